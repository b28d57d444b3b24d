// Package catch runs the catch-quiz-reward loop for a single player.
//
// A Machine moves Idle -> Fetching -> AwaitingAnswer -> Resolved -> Idle.
// Triggers outside Idle are dropped, so at most one attempt is in flight.
// The only transition nobody asks for is the decay from Resolved back to
// Idle, which runs on a Scheduler and is cancelled by Close.
package catch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pokequest/internal/model"
	"pokequest/internal/random"
)

type State string

const (
	StateIdle           State = "idle"
	StateFetching       State = "fetching"
	StateAwaitingAnswer State = "awaiting_answer"
	StateResolved       State = "resolved"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

const (
	DefaultMaxItemID    = 200
	DefaultSuccessDecay = 2500 * time.Millisecond
	DefaultFailureDecay = 1500 * time.Millisecond

	subscriberBuffer = 8
)

var (
	ErrNotAwaitingAnswer = errors.New("no question is awaiting an answer")
	ErrNoQuestions       = errors.New("question pool is empty")
	ErrClosed            = errors.New("catch session closed")
)

// Detail is the first fetch stage. DescriptionRef is handed back to the
// provider to fetch the description.
type Detail struct {
	Item           model.CollectibleItem
	DescriptionRef string
}

type Provider interface {
	FetchItemDetail(ctx context.Context, id int) (Detail, error)
	FetchItemDescription(ctx context.Context, ref string) (string, error)
}

type Collector interface {
	Add(ctx context.Context, userID string, item model.CollectibleItem, via model.AcquiredVia) (model.Collection, bool, error)
}

// Snapshot is an immutable view of a session.
type Snapshot struct {
	AttemptID       string                 `json:"attempt_id,omitempty"`
	State           State                  `json:"state"`
	Outcome         Outcome                `json:"outcome,omitempty"`
	PendingItem     *model.CollectibleItem `json:"pending_item,omitempty"`
	PendingQuestion *model.QuizQuestion    `json:"pending_question,omitempty"`
	Added           bool                   `json:"added,omitempty"`
	LastError       string                 `json:"last_error,omitempty"`
}

type Config struct {
	UserID       string
	MaxItemID    int
	SuccessDecay time.Duration
	FailureDecay time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxItemID <= 0 {
		c.MaxItemID = DefaultMaxItemID
	}
	if c.SuccessDecay <= 0 {
		c.SuccessDecay = DefaultSuccessDecay
	}
	if c.FailureDecay <= 0 {
		c.FailureDecay = DefaultFailureDecay
	}
	return c
}

type Deps struct {
	Provider  Provider
	Collector Collector
	Questions []model.QuizQuestion
	Rand      random.Source
	Scheduler Scheduler
	Logger    *zap.Logger
}

type Machine struct {
	cfg       Config
	provider  Provider
	collector Collector
	questions []model.QuizQuestion
	rng       random.Source
	sched     Scheduler
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	retired atomic.Bool

	mu        sync.Mutex
	closed    bool
	attemptID string
	state     State
	outcome   Outcome
	item      *model.CollectibleItem
	question  *model.QuizQuestion
	added     bool
	lastErr   string
	timer     Timer
	subs      map[int]chan Snapshot
	nextSub   int
}

func New(cfg Config, deps Deps) (*Machine, error) {
	if deps.Provider == nil {
		return nil, errors.New("catch: provider is required")
	}
	if deps.Collector == nil {
		return nil, errors.New("catch: collector is required")
	}
	if len(deps.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	if deps.Rand == nil {
		rng, err := random.New()
		if err != nil {
			return nil, fmt.Errorf("catch: seed random source: %w", err)
		}
		deps.Rand = rng
	}
	if deps.Scheduler == nil {
		deps.Scheduler = RealScheduler{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Machine{
		cfg:       cfg.withDefaults(),
		provider:  deps.Provider,
		collector: deps.Collector,
		questions: append([]model.QuizQuestion(nil), deps.Questions...),
		rng:       deps.Rand,
		sched:     deps.Scheduler,
		logger:    deps.Logger.With(zap.String("user_id", cfg.UserID)),
		ctx:       ctx,
		cancel:    cancel,
		state:     StateIdle,
		subs:      make(map[int]chan Snapshot),
	}, nil
}

// Trigger starts a new attempt. It reports false, and changes nothing,
// unless the machine is Idle.
func (m *Machine) Trigger() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.state != StateIdle {
		return false
	}

	m.attemptID = uuid.NewString()
	m.state = StateFetching
	m.outcome = ""
	m.item = nil
	m.question = nil
	m.added = false
	m.lastErr = ""
	id := 1 + m.rng.Intn(m.cfg.MaxItemID)

	m.logger.Debug("catch attempt started", zap.String("attempt_id", m.attemptID), zap.Int("item_id", id))
	m.publishLocked()

	m.wg.Add(1)
	go m.fetch(m.attemptID, id)
	return true
}

func (m *Machine) fetch(attemptID string, id int) {
	defer m.wg.Done()

	detail, err := m.provider.FetchItemDetail(m.ctx, id)
	if err != nil {
		m.fetchFailed(attemptID, id, fmt.Errorf("fetch item %d: %w", id, err))
		return
	}
	description, err := m.provider.FetchItemDescription(m.ctx, detail.DescriptionRef)
	if err != nil {
		m.fetchFailed(attemptID, id, fmt.Errorf("fetch description for item %d: %w", id, err))
		return
	}
	item := detail.Item
	item.Description = description
	m.fetchSucceeded(attemptID, item)
}

func (m *Machine) fetchSucceeded(attemptID string, item model.CollectibleItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.currentLocked(attemptID, StateFetching) {
		return
	}
	q := m.questions[m.rng.Intn(len(m.questions))]
	m.state = StateAwaitingAnswer
	m.item = &item
	m.question = &q
	m.logger.Debug("question ready",
		zap.String("attempt_id", attemptID),
		zap.Int("item_id", item.ID),
	)
	m.publishLocked()
}

// fetchFailed returns to Idle. There is no retry; the player triggers again.
func (m *Machine) fetchFailed(attemptID string, id int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.currentLocked(attemptID, StateFetching) {
		return
	}
	m.logger.Warn("catch fetch failed",
		zap.String("attempt_id", attemptID),
		zap.Int("item_id", id),
		zap.Error(err),
	)
	m.resetLocked()
	m.lastErr = err.Error()
	m.publishLocked()
}

// SubmitAnswer grades choice against the pending question. A correct
// answer adds the pending item to the collection before resolving.
func (m *Machine) SubmitAnswer(ctx context.Context, choice string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return m.snapshotLocked(), ErrClosed
	}
	if m.state != StateAwaitingAnswer {
		return m.snapshotLocked(), ErrNotAwaitingAnswer
	}

	m.state = StateResolved
	if choice != m.question.CorrectOption {
		m.outcome = OutcomeFailure
		m.logger.Info("catch failed: wrong answer", zap.String("attempt_id", m.attemptID), zap.Int("item_id", m.item.ID))
		m.scheduleDecayLocked(m.cfg.FailureDecay)
		m.publishLocked()
		return m.snapshotLocked(), nil
	}

	_, added, err := m.collector.Add(ctx, m.cfg.UserID, *m.item, model.AcquiredViaQuiz)
	if err != nil {
		m.outcome = OutcomeFailure
		m.lastErr = err.Error()
		m.logger.Error("catch failed: collection write",
			zap.String("attempt_id", m.attemptID),
			zap.Int("item_id", m.item.ID),
			zap.Error(err),
		)
		m.scheduleDecayLocked(m.cfg.FailureDecay)
		m.publishLocked()
		return m.snapshotLocked(), nil
	}
	m.outcome = OutcomeSuccess
	m.added = added
	m.logger.Info("catch succeeded",
		zap.String("attempt_id", m.attemptID),
		zap.Int("item_id", m.item.ID),
		zap.Bool("added", added),
	)
	m.scheduleDecayLocked(m.cfg.SuccessDecay)
	m.publishLocked()
	return m.snapshotLocked(), nil
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe streams snapshots after every transition, starting with the
// current one. A subscriber that falls behind loses intermediate snapshots,
// never the latest. The channel closes on cancel or Close.
func (m *Machine) Subscribe() (<-chan Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Snapshot, subscriberBuffer)
	if m.closed {
		close(ch)
		return ch, func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	ch <- m.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if sub, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(sub)
			}
		})
	}
}

// Close tears the session down. The decay timer is stopped, in-flight
// fetches are cancelled and their results dropped. Close waits for fetch
// goroutines to exit.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.retired.Store(true)
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.cancel()
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
	m.mu.Unlock()

	m.wg.Wait()
}

// Retire closes the machine if it is Idle with no subscribers and reports
// whether it did.
func (m *Machine) Retire() bool {
	m.mu.Lock()
	if m.closed || m.state != StateIdle || len(m.subs) > 0 {
		m.mu.Unlock()
		return false
	}
	m.closed = true
	m.retired.Store(true)
	m.cancel()
	m.mu.Unlock()

	m.wg.Wait()
	return true
}

// Closed reports whether Close or Retire has run. It never blocks on an
// in-progress transition.
func (m *Machine) Closed() bool {
	return m.retired.Load()
}

func (m *Machine) scheduleDecayLocked(d time.Duration) {
	attemptID := m.attemptID
	m.timer = m.sched.AfterFunc(d, func() {
		m.decay(attemptID)
	})
}

func (m *Machine) decay(attemptID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.currentLocked(attemptID, StateResolved) {
		return
	}
	m.resetLocked()
	m.publishLocked()
}

func (m *Machine) currentLocked(attemptID string, want State) bool {
	return !m.closed && m.attemptID == attemptID && m.state == want
}

func (m *Machine) resetLocked() {
	m.attemptID = ""
	m.state = StateIdle
	m.outcome = ""
	m.item = nil
	m.question = nil
	m.added = false
	m.lastErr = ""
	m.timer = nil
}

func (m *Machine) snapshotLocked() Snapshot {
	snap := Snapshot{
		AttemptID: m.attemptID,
		State:     m.state,
		Outcome:   m.outcome,
		Added:     m.added,
		LastError: m.lastErr,
	}
	if m.item != nil {
		item := *m.item
		snap.PendingItem = &item
	}
	if m.question != nil {
		q := m.question.Public()
		snap.PendingQuestion = &q
	}
	return snap
}

func (m *Machine) publishLocked() {
	snap := m.snapshotLocked()
	for _, ch := range m.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// Full: drop the oldest queued snapshot to make room.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
