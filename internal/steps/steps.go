// Package steps tracks the daily step challenge for each user.
package steps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pokequest/internal/keylock"
	"pokequest/internal/model"
	"pokequest/internal/random"
	"pokequest/internal/store"
)

// Key is the store key the challenge record is persisted under.
const Key = "stepChallengeData"

const (
	MinGoal      = 10000
	MaxGoal      = 20000
	HistoryLimit = 7

	dateLayout = "2006-01-02"
)

var (
	ErrGoalNotCompleted     = errors.New("daily step goal not completed")
	ErrRewardAlreadyClaimed = errors.New("daily reward already claimed")
	ErrStepLimit            = errors.New("step count above the daily limit")
)

type Option func(*Tracker)

// WithMaxSteps rejects updates that would leave today's count above n.
func WithMaxSteps(n int) Option {
	return func(t *Tracker) {
		t.maxSteps = n
	}
}

type Tracker struct {
	kv     store.Store
	locks  *keylock.Locker
	rng    random.Source
	loc    *time.Location
	logger *zap.Logger

	maxSteps int
}

func New(kv store.Store, locks *keylock.Locker, rng random.Source, loc *time.Location, logger *zap.Logger, opts ...Option) *Tracker {
	if locks == nil {
		locks = keylock.New()
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		kv:     kv,
		locks:  locks,
		rng:    rng,
		loc:    loc,
		logger: logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// GenerateGoal returns a uniform integer in [MinGoal, MaxGoal].
func GenerateGoal(rng random.Source) int {
	return MinGoal + rng.Intn(MaxGoal-MinGoal+1)
}

// DateKey formats now as a calendar date in the tracker's time zone.
func (t *Tracker) DateKey(now time.Time) string {
	return now.In(t.loc).Format(dateLayout)
}

// Initialize loads today's record, creating or rolling it over as needed.
func (t *Tracker) Initialize(ctx context.Context, userID string, now time.Time) (model.DailyStepChallenge, error) {
	unlock := t.locks.Lock(lockKey(userID))
	defer unlock()
	return t.current(ctx, userID, now)
}

// SetSteps replaces today's step count. Negative values clamp to zero and a
// completed goal stays completed for the rest of the day.
func (t *Tracker) SetSteps(ctx context.Context, userID string, now time.Time, value int) (model.DailyStepChallenge, error) {
	unlock := t.locks.Lock(lockKey(userID))
	defer unlock()

	record, err := t.current(ctx, userID, now)
	if err != nil {
		return record, err
	}
	return t.apply(ctx, userID, record, value)
}

// AddSteps adjusts today's count by delta.
func (t *Tracker) AddSteps(ctx context.Context, userID string, now time.Time, delta int) (model.DailyStepChallenge, error) {
	unlock := t.locks.Lock(lockKey(userID))
	defer unlock()

	record, err := t.current(ctx, userID, now)
	if err != nil {
		return record, err
	}
	return t.apply(ctx, userID, record, record.CurrentSteps+delta)
}

// ClaimReward grants one reward per completed day. pick chooses the item
// and its id is saved before grant runs, so a claim interrupted after the
// grant retries with the same item instead of drawing another. grant must be
// idempotent per item id.
func (t *Tracker) ClaimReward(ctx context.Context, userID string, now time.Time, pick func() (int, error), grant func(itemID int) error) (model.DailyStepChallenge, error) {
	unlock := t.locks.Lock(lockKey(userID))
	defer unlock()

	record, err := t.current(ctx, userID, now)
	if err != nil {
		return record, err
	}
	if !record.Completed {
		return record, ErrGoalNotCompleted
	}
	if record.RewardClaimed {
		return record, ErrRewardAlreadyClaimed
	}
	if record.RewardItemID == 0 {
		id, err := pick()
		if err != nil {
			return record, err
		}
		record.RewardItemID = id
		if err := t.save(ctx, userID, record); err != nil {
			return record, err
		}
	} else {
		t.logger.Info("retrying interrupted reward claim",
			zap.String("user_id", userID),
			zap.Int("item_id", record.RewardItemID),
		)
	}
	if err := grant(record.RewardItemID); err != nil {
		return record, err
	}
	record.RewardClaimed = true
	if err := t.save(ctx, userID, record); err != nil {
		return record, err
	}
	return record, nil
}

// TodaySteps returns today's step count for every user with a record.
// Records from earlier days count as zero.
func (t *Tracker) TodaySteps(ctx context.Context, now time.Time) (map[string]int, error) {
	records, err := t.kv.ListKey(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("list step records: %w", err)
	}
	today := t.DateKey(now)
	out := make(map[string]int, len(records))
	for _, r := range records {
		var record model.DailyStepChallenge
		if err := json.Unmarshal(r.Value, &record); err != nil || record.DateKey != today {
			out[r.UserID] = 0
			continue
		}
		out[r.UserID] = max(record.CurrentSteps, 0)
	}
	return out, nil
}

func (t *Tracker) apply(ctx context.Context, userID string, record model.DailyStepChallenge, value int) (model.DailyStepChallenge, error) {
	if t.maxSteps > 0 && value > t.maxSteps {
		return record, ErrStepLimit
	}
	record.CurrentSteps = max(value, 0)
	record.Completed = record.Completed || record.CurrentSteps >= record.DailyGoal
	record.History = upsertHistory(record.History, model.StepHistoryEntry{
		DateKey: record.DateKey,
		Steps:   record.CurrentSteps,
	})
	if err := t.save(ctx, userID, record); err != nil {
		return record, err
	}
	return record, nil
}

// current must be called with the user's lock held.
func (t *Tracker) current(ctx context.Context, userID string, now time.Time) (model.DailyStepChallenge, error) {
	today := t.DateKey(now)
	stored, ok := t.load(ctx, userID)
	if ok && stored.DateKey == today {
		return stored, nil
	}

	next := model.DailyStepChallenge{
		DateKey:   today,
		DailyGoal: GenerateGoal(t.rng),
		History:   []model.StepHistoryEntry{},
	}
	if ok {
		next.History = stored.History
		if !hasDate(stored.History, stored.DateKey) {
			next.History = append(next.History, model.StepHistoryEntry{
				DateKey: stored.DateKey,
				Steps:   stored.CurrentSteps,
			})
		}
		next.History = trimHistory(next.History)
		t.logger.Info("step challenge rolled over",
			zap.String("user_id", userID),
			zap.String("from", stored.DateKey),
			zap.String("to", today),
			zap.Int("daily_goal", next.DailyGoal),
		)
	}
	if err := t.save(ctx, userID, next); err != nil {
		return next, err
	}
	return next, nil
}

func (t *Tracker) load(ctx context.Context, userID string) (model.DailyStepChallenge, bool) {
	raw, ok, err := t.kv.ReadKey(ctx, userID, Key)
	if err != nil {
		t.logger.Warn("step record read failed, starting fresh", zap.String("user_id", userID), zap.Error(err))
		return model.DailyStepChallenge{}, false
	}
	if !ok {
		return model.DailyStepChallenge{}, false
	}
	var record model.DailyStepChallenge
	if err := json.Unmarshal(raw, &record); err != nil {
		t.logger.Warn("discarding malformed step record", zap.String("user_id", userID), zap.Error(err))
		return model.DailyStepChallenge{}, false
	}
	if err := validate(record); err != nil {
		t.logger.Warn("discarding invalid step record", zap.String("user_id", userID), zap.Error(err))
		return model.DailyStepChallenge{}, false
	}
	if record.History == nil {
		record.History = []model.StepHistoryEntry{}
	}
	return record, true
}

func (t *Tracker) save(ctx context.Context, userID string, record model.DailyStepChallenge) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode step record: %w", err)
	}
	if err := t.kv.WriteKey(ctx, userID, Key, raw); err != nil {
		return fmt.Errorf("persist step record: %w", err)
	}
	return nil
}

func validate(record model.DailyStepChallenge) error {
	if _, err := time.Parse(dateLayout, record.DateKey); err != nil {
		return fmt.Errorf("date key %q: %w", record.DateKey, err)
	}
	if record.CurrentSteps < 0 {
		return fmt.Errorf("negative steps %d", record.CurrentSteps)
	}
	if record.DailyGoal < MinGoal || record.DailyGoal > MaxGoal {
		return fmt.Errorf("daily goal %d out of range", record.DailyGoal)
	}
	return nil
}

func upsertHistory(history []model.StepHistoryEntry, entry model.StepHistoryEntry) []model.StepHistoryEntry {
	out := append([]model.StepHistoryEntry(nil), history...)
	for i := range out {
		if out[i].DateKey == entry.DateKey {
			out[i].Steps = entry.Steps
			return trimHistory(out)
		}
	}
	return trimHistory(append(out, entry))
}

func trimHistory(history []model.StepHistoryEntry) []model.StepHistoryEntry {
	if len(history) <= HistoryLimit {
		return history
	}
	return append([]model.StepHistoryEntry(nil), history[len(history)-HistoryLimit:]...)
}

func hasDate(history []model.StepHistoryEntry, dateKey string) bool {
	for _, entry := range history {
		if entry.DateKey == dateKey {
			return true
		}
	}
	return false
}

func lockKey(userID string) string {
	return Key + ":" + userID
}
