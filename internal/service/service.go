package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"pokequest/internal/catch"
	"pokequest/internal/collection"
	"pokequest/internal/keylock"
	"pokequest/internal/model"
	"pokequest/internal/random"
	"pokequest/internal/reward"
	"pokequest/internal/steps"
	"pokequest/internal/store"
)

const (
	DefaultUserID = "guest"

	// MaxDailySteps bounds what a client may report for a single day.
	MaxDailySteps = 200000

	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	mirrorTimeout           = 30 * time.Second
	defaultSessionSweep     = 5 * time.Minute
)

var (
	ErrGoalNotCompleted     = steps.ErrGoalNotCompleted
	ErrRewardAlreadyClaimed = steps.ErrRewardAlreadyClaimed
	ErrNotAwaitingAnswer    = catch.ErrNotAwaitingAnswer
	ErrEmptyCatalog         = errors.New("reward catalog is empty")
	ErrInvalidSteps         = fmt.Errorf("steps must be between 0 and %d", MaxDailySteps)
	ErrServiceClosed        = errors.New("service is shutting down")
)

// ArtworkMirror copies an item's image somewhere durable and returns the new
// location.
type ArtworkMirror interface {
	Mirror(ctx context.Context, item model.CollectibleItem) (string, error)
}

type Options struct {
	Provider  catch.Provider
	Questions []model.QuizQuestion
	Catalog   []model.CollectibleItem
	Catch     catch.Config
	Rand      random.Source
	Scheduler catch.Scheduler
	Location  *time.Location
	Mirror    ArtworkMirror
	Logger    *zap.Logger
	Now       func() time.Time

	// SessionSweep is how often catch sessions that are Idle with no
	// subscribers are dropped. They are rebuilt on the next request.
	SessionSweep time.Duration
}

type ClaimResult struct {
	Item      model.CollectibleItem    `json:"item"`
	Added     bool                     `json:"added"`
	Challenge model.DailyStepChallenge `json:"challenge"`
}

type Service struct {
	collection *collection.Store
	steps      *steps.Tracker
	provider   catch.Provider
	questions  []model.QuizQuestion
	catalog    []model.CollectibleItem
	catchCfg   catch.Config
	rng        random.Source
	scheduler  catch.Scheduler
	loc        *time.Location
	mirror     ArtworkMirror
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time

	badgeRules []badgeRule

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	machines map[string]*catch.Machine
}

func New(st store.Store, opts Options) (*Service, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	if opts.Provider == nil {
		return nil, errors.New("collectible provider is required")
	}
	if len(opts.Questions) == 0 {
		return nil, catch.ErrNoQuestions
	}
	if len(opts.Catalog) == 0 {
		return nil, ErrEmptyCatalog
	}
	if opts.Rand == nil {
		rng, err := random.New()
		if err != nil {
			return nil, err
		}
		opts.Rand = rng
	}
	if opts.Scheduler == nil {
		opts.Scheduler = catch.RealScheduler{}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SessionSweep <= 0 {
		opts.SessionSweep = defaultSessionSweep
	}
	rules, err := loadBadgeRules()
	if err != nil {
		return nil, err
	}

	locks := keylock.New()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		collection: collection.New(st, locks, opts.Logger.Named("collection"), collection.WithClock(opts.Now)),
		steps:      steps.New(st, locks, opts.Rand, opts.Location, opts.Logger.Named("steps"), steps.WithMaxSteps(MaxDailySteps)),
		provider:   opts.Provider,
		questions:  opts.Questions,
		catalog:    opts.Catalog,
		catchCfg:   opts.Catch,
		rng:        opts.Rand,
		scheduler:  opts.Scheduler,
		loc:        opts.Location,
		mirror:     opts.Mirror,
		logger:     opts.Logger,
		tracer:     otel.Tracer("pokequest/service"),
		now:        opts.Now,
		badgeRules: rules,
		ctx:        ctx,
		cancel:     cancel,
		machines:   make(map[string]*catch.Machine),
	}
	if missing := reward.ValidateCatalog(opts.Catalog); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, tier := range missing {
			names = append(names, string(tier))
		}
		s.logger.Warn("reward catalog has empty tiers, claims will widen", zap.Strings("tiers", names))
	}
	s.wg.Add(1)
	go s.sweepSessions(opts.SessionSweep)
	return s, nil
}

// Close tears down every catch session and waits for background mirroring.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	machines := s.machines
	s.machines = make(map[string]*catch.Machine)
	s.mu.Unlock()

	for _, m := range machines {
		m.Close()
	}
	s.cancel()
	s.wg.Wait()
}

// Location is the time zone that defines a calendar day.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) Now() time.Time {
	return s.now()
}

func NormalizeUserID(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return DefaultUserID
	}
	return userID
}

func (s *Service) machineFor(userID string) (*catch.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrServiceClosed
	}
	if m, ok := s.machines[userID]; ok && !m.Closed() {
		return m, nil
	}
	cfg := s.catchCfg
	cfg.UserID = userID
	m, err := catch.New(cfg, catch.Deps{
		Provider:  s.provider,
		Collector: &mirroringCollector{svc: s},
		Questions: s.questions,
		Rand:      s.rng,
		Scheduler: s.scheduler,
		Logger:    s.logger.Named("catch"),
	})
	if err != nil {
		return nil, err
	}
	s.machines[userID] = m
	return m, nil
}

// Trigger starts a catch attempt. accepted is false when an attempt is
// already in progress.
func (s *Service) Trigger(userID string) (catch.Snapshot, bool, error) {
	userID = NormalizeUserID(userID)
	for {
		m, err := s.machineFor(userID)
		if err != nil {
			return catch.Snapshot{}, false, err
		}
		accepted := m.Trigger()
		if !accepted && m.Closed() {
			continue
		}
		return m.Snapshot(), accepted, nil
	}
}

func (s *Service) SubmitAnswer(ctx context.Context, userID string, choice string) (catch.Snapshot, error) {
	userID = NormalizeUserID(userID)
	for {
		m, err := s.machineFor(userID)
		if err != nil {
			return catch.Snapshot{}, err
		}
		snap, err := m.SubmitAnswer(ctx, strings.TrimSpace(choice))
		if errors.Is(err, catch.ErrClosed) {
			continue
		}
		return snap, err
	}
}

// CatchState reports the user's session, Idle when there is none.
func (s *Service) CatchState(userID string) catch.Snapshot {
	s.mu.Lock()
	m, ok := s.machines[NormalizeUserID(userID)]
	s.mu.Unlock()
	if !ok {
		return catch.Snapshot{State: catch.StateIdle}
	}
	return m.Snapshot()
}

func (s *Service) Subscribe(userID string) (<-chan catch.Snapshot, func(), error) {
	userID = NormalizeUserID(userID)
	for {
		m, err := s.machineFor(userID)
		if err != nil {
			return nil, nil, err
		}
		ch, cancel := m.Subscribe()
		if m.Closed() {
			cancel()
			continue
		}
		return ch, cancel, nil
	}
}

// Sessions reports how many catch sessions are held in memory.
func (s *Service) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.machines)
}

// SweepSessions drops sessions that are Idle with no subscribers and returns
// how many it dropped.
func (s *Service) SweepSessions() int {
	s.mu.Lock()
	candidates := make(map[string]*catch.Machine, len(s.machines))
	for userID, m := range s.machines {
		candidates[userID] = m
	}
	s.mu.Unlock()

	// Retire takes the machine lock, which must never be acquired under s.mu.
	dropped := 0
	for userID, m := range candidates {
		if !m.Retire() {
			continue
		}
		s.mu.Lock()
		if s.machines[userID] == m {
			delete(s.machines, userID)
		}
		s.mu.Unlock()
		dropped++
	}
	if dropped > 0 {
		s.logger.Debug("idle catch sessions dropped", zap.Int("dropped", dropped))
	}
	return dropped
}

func (s *Service) sweepSessions(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.SweepSessions()
		}
	}
}

// EndSession discards the user's catch session. A pending decay or fetch is
// cancelled; the next trigger starts from a fresh Idle session.
func (s *Service) EndSession(userID string) bool {
	userID = NormalizeUserID(userID)
	s.mu.Lock()
	m, ok := s.machines[userID]
	delete(s.machines, userID)
	s.mu.Unlock()
	if ok {
		m.Close()
	}
	return ok
}

func (s *Service) Collection(ctx context.Context, userID string) model.Collection {
	return s.collection.Load(ctx, NormalizeUserID(userID))
}

func (s *Service) Steps(ctx context.Context, userID string) (model.DailyStepChallenge, error) {
	return s.steps.Initialize(ctx, NormalizeUserID(userID), s.now())
}

func (s *Service) SetSteps(ctx context.Context, userID string, value int) (model.DailyStepChallenge, error) {
	if value > MaxDailySteps {
		return model.DailyStepChallenge{}, ErrInvalidSteps
	}
	return stepsResult(s.steps.SetSteps(ctx, NormalizeUserID(userID), s.now(), value))
}

func (s *Service) AddSteps(ctx context.Context, userID string, delta int) (model.DailyStepChallenge, error) {
	if delta > MaxDailySteps || delta < -MaxDailySteps {
		return model.DailyStepChallenge{}, ErrInvalidSteps
	}
	return stepsResult(s.steps.AddSteps(ctx, NormalizeUserID(userID), s.now(), delta))
}

func stepsResult(challenge model.DailyStepChallenge, err error) (model.DailyStepChallenge, error) {
	if errors.Is(err, steps.ErrStepLimit) {
		return challenge, ErrInvalidSteps
	}
	return challenge, err
}

// ClaimGoalReward grants one catalog item per completed day.
func (s *Service) ClaimGoalReward(ctx context.Context, userID string) (ClaimResult, error) {
	userID = NormalizeUserID(userID)
	ctx, span := s.tracer.Start(ctx, "service.ClaimGoalReward", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	var result ClaimResult
	pick := func() (int, error) {
		item, err := s.resolveReward()
		if err != nil {
			return 0, err
		}
		return item.ID, nil
	}
	grant := func(itemID int) error {
		item, ok := s.catalogItem(itemID)
		if !ok {
			return fmt.Errorf("reward item %d is not in the catalog", itemID)
		}
		_, added, err := s.addToCollection(ctx, userID, item, model.AcquiredViaGoal)
		if err != nil {
			return err
		}
		result.Item = item
		result.Added = added
		return nil
	}
	challenge, err := s.steps.ClaimReward(ctx, userID, s.now(), pick, grant)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return ClaimResult{}, err
	}
	result.Challenge = challenge
	span.SetAttributes(
		attribute.Int("item_id", result.Item.ID),
		attribute.String("rarity", string(result.Item.RarityTier)),
	)
	s.logger.Info("goal reward claimed",
		zap.String("user_id", userID),
		zap.Int("item_id", result.Item.ID),
		zap.String("rarity", string(result.Item.RarityTier)),
		zap.Bool("added", result.Added),
	)
	return result, nil
}

func (s *Service) catalogItem(id int) (model.CollectibleItem, bool) {
	for _, item := range s.catalog {
		if item.ID == id {
			return item, true
		}
	}
	return model.CollectibleItem{}, false
}

// resolveReward draws from the catalog and, when the drawn tier is empty,
// falls back to the nearest tier that has entries.
func (s *Service) resolveReward() (model.CollectibleItem, error) {
	item, err := reward.Resolve(s.catalog, s.rng)
	if err == nil {
		return item, nil
	}
	var tierErr *reward.EmptyTierError
	if !errors.As(err, &tierErr) {
		return model.CollectibleItem{}, err
	}
	for _, tier := range reward.AdjacentTiers(tierErr.Tier) {
		item, err := reward.PickFromTier(s.catalog, tier, s.rng)
		if err == nil {
			s.logger.Warn("reward tier empty, widened",
				zap.String("drawn", string(tierErr.Tier)),
				zap.String("used", string(tier)),
			)
			return item, nil
		}
	}
	return model.CollectibleItem{}, ErrEmptyCatalog
}

func (s *Service) addToCollection(ctx context.Context, userID string, item model.CollectibleItem, via model.AcquiredVia) (model.Collection, bool, error) {
	c, added, err := s.collection.Add(ctx, userID, item, via)
	if err != nil || !added || s.mirror == nil {
		return c, added, err
	}
	s.mu.Lock()
	closed := s.closed
	if !closed {
		s.wg.Add(1)
	}
	s.mu.Unlock()
	if closed {
		return c, added, nil
	}
	go s.mirrorArtwork(userID, item)
	return c, added, nil
}

func (s *Service) mirrorArtwork(userID string, item model.CollectibleItem) {
	defer s.wg.Done()
	ctx, cancel := context.WithTimeout(s.ctx, mirrorTimeout)
	defer cancel()

	ref, err := s.mirror.Mirror(ctx, item)
	if err != nil {
		s.logger.Warn("artwork mirror failed",
			zap.String("user_id", userID),
			zap.Int("item_id", item.ID),
			zap.Error(err),
		)
		return
	}
	if err := s.collection.SetMirrorRef(ctx, userID, item.ID, ref); err != nil {
		s.logger.Warn("record mirror ref failed", zap.String("user_id", userID), zap.Int("item_id", item.ID), zap.Error(err))
	}
}

// mirroringCollector lets catch sessions add through the service so new
// items get their artwork mirrored.
type mirroringCollector struct {
	svc *Service
}

func (c *mirroringCollector) Add(ctx context.Context, userID string, item model.CollectibleItem, via model.AcquiredVia) (model.Collection, bool, error) {
	return c.svc.addToCollection(ctx, userID, item, via)
}

func (s *Service) DailyReport(ctx context.Context, userID string, day time.Time) (model.DailyReport, error) {
	userID = NormalizeUserID(userID)
	dateKey := day.In(s.loc).Format("2006-01-02")

	challenge, err := s.steps.Initialize(ctx, userID, s.now())
	if err != nil {
		return model.DailyReport{}, err
	}
	report := model.DailyReport{
		Date:     dateKey,
		UserID:   userID,
		Acquired: []model.OwnedItem{},
		History:  challenge.History,
	}
	if challenge.DateKey == dateKey {
		report.Steps = challenge.CurrentSteps
		report.DailyGoal = challenge.DailyGoal
		report.GoalCompleted = challenge.Completed
	} else {
		for _, entry := range challenge.History {
			if entry.DateKey == dateKey {
				report.Steps = entry.Steps
			}
		}
	}

	for _, item := range s.collection.Load(ctx, userID).Items {
		if item.AcquiredAt.In(s.loc).Format("2006-01-02") == dateKey {
			report.Acquired = append(report.Acquired, item)
		}
	}
	caught := 0
	for _, item := range report.Acquired {
		if item.AcquiredVia == model.AcquiredViaQuiz {
			caught++
		}
	}

	report.GeneratedText = fmt.Sprintf(
		"On %s %s walked %d steps, caught %d collectibles and earned %d rewards.",
		dateKey,
		userID,
		report.Steps,
		caught,
		len(report.Acquired)-caught,
	)
	report.GeneratedAt = s.now()
	return report, nil
}

// Leaderboard ranks users by owned items, then today's steps.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	collections, err := s.collection.All(ctx)
	if err != nil {
		return nil, err
	}
	todaySteps, err := s.steps.TodaySteps(ctx, s.now())
	if err != nil {
		return nil, err
	}

	byUser := make(map[string]*model.LeaderboardEntry, len(collections)+len(todaySteps))
	entryFor := func(userID string) *model.LeaderboardEntry {
		e, ok := byUser[userID]
		if !ok {
			e = &model.LeaderboardEntry{UserID: userID}
			byUser[userID] = e
		}
		return e
	}
	for userID, c := range collections {
		entryFor(userID).OwnedItems = c.Len()
	}
	for userID, n := range todaySteps {
		entryFor(userID).TodaySteps = n
	}

	result := make([]model.LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].OwnedItems != result[j].OwnedItems {
			return result[i].OwnedItems > result[j].OwnedItems
		}
		if result[i].TodaySteps != result[j].TodaySteps {
			return result[i].TodaySteps > result[j].TodaySteps
		}
		return result[i].UserID < result[j].UserID
	})
	if len(result) > limit {
		result = result[:limit]
	}
	for i := range result {
		result[i].Rank = i + 1
	}
	return result, nil
}
