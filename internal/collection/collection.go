// Package collection keeps each user's set of owned collectibles.
package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pokequest/internal/keylock"
	"pokequest/internal/model"
	"pokequest/internal/store"
)

// Key is the store key a collection is persisted under.
const Key = "collection"

type Store struct {
	kv     store.Store
	locks  *keylock.Locker
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Store)

// WithClock overrides the acquisition timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(kv store.Store, locks *keylock.Locker, logger *zap.Logger, opts ...Option) *Store {
	if locks == nil {
		locks = keylock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		kv:     kv,
		locks:  locks,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the user's collection. Absent, unreadable or malformed data
// all yield an empty collection.
func (s *Store) Load(ctx context.Context, userID string) model.Collection {
	return s.load(ctx, userID)
}

// Add inserts item unless an item with the same id is already owned. The
// returned collection reflects the persisted state.
func (s *Store) Add(ctx context.Context, userID string, item model.CollectibleItem, via model.AcquiredVia) (model.Collection, bool, error) {
	unlock := s.locks.Lock(lockKey(userID))
	defer unlock()

	current := s.load(ctx, userID)
	if Contains(current, item.ID) {
		return current, false, nil
	}
	next := model.Collection{Items: make([]model.OwnedItem, 0, len(current.Items)+1)}
	next.Items = append(next.Items, current.Items...)
	next.Items = append(next.Items, model.OwnedItem{
		CollectibleItem: item,
		AcquiredVia:     via,
		AcquiredAt:      s.now().UTC(),
	})
	if err := s.save(ctx, userID, next); err != nil {
		return current, false, err
	}
	s.logger.Info("collectible added",
		zap.String("user_id", userID),
		zap.Int("item_id", item.ID),
		zap.String("via", string(via)),
		zap.Int("owned", next.Len()),
	)
	return next, true, nil
}

// SetMirrorRef records the mirrored artwork location for an owned item.
// Unknown ids are ignored.
func (s *Store) SetMirrorRef(ctx context.Context, userID string, itemID int, ref string) error {
	unlock := s.locks.Lock(lockKey(userID))
	defer unlock()

	current := s.load(ctx, userID)
	for i := range current.Items {
		if current.Items[i].ID == itemID {
			current.Items[i].MirrorRef = ref
			return s.save(ctx, userID, current)
		}
	}
	return nil
}

// All loads every persisted collection keyed by user id.
func (s *Store) All(ctx context.Context) (map[string]model.Collection, error) {
	records, err := s.kv.ListKey(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	out := make(map[string]model.Collection, len(records))
	for _, record := range records {
		c, err := decode(record.Value)
		if err != nil {
			s.logger.Warn("discarding malformed collection", zap.String("user_id", record.UserID), zap.Error(err))
			c = model.Collection{Items: []model.OwnedItem{}}
		}
		out[record.UserID] = c
	}
	return out, nil
}

func Contains(c model.Collection, id int) bool {
	for _, item := range c.Items {
		if item.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) load(ctx context.Context, userID string) model.Collection {
	empty := model.Collection{Items: []model.OwnedItem{}}
	raw, ok, err := s.kv.ReadKey(ctx, userID, Key)
	if err != nil {
		s.logger.Warn("collection read failed, using empty collection", zap.String("user_id", userID), zap.Error(err))
		return empty
	}
	if !ok {
		return empty
	}
	c, err := decode(raw)
	if err != nil {
		s.logger.Warn("discarding malformed collection", zap.String("user_id", userID), zap.Error(err))
		return empty
	}
	return c
}

func (s *Store) save(ctx context.Context, userID string, c model.Collection) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	if err := s.kv.WriteKey(ctx, userID, Key, raw); err != nil {
		return fmt.Errorf("persist collection: %w", err)
	}
	return nil
}

// decode also drops duplicate ids so a hand-edited file cannot break the
// set invariant.
func decode(raw []byte) (model.Collection, error) {
	var c model.Collection
	if err := json.Unmarshal(raw, &c); err != nil {
		return model.Collection{}, err
	}
	seen := make(map[int]struct{}, len(c.Items))
	items := make([]model.OwnedItem, 0, len(c.Items))
	for _, item := range c.Items {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}
	c.Items = items
	return c, nil
}

func lockKey(userID string) string {
	return Key + ":" + userID
}
