package steps_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokequest/internal/model"
	"pokequest/internal/random"
	"pokequest/internal/steps"
	"pokequest/internal/store"
)

func newTracker(t *testing.T, rng random.Source) (*steps.Tracker, store.Store) {
	t.Helper()
	kv, err := store.NewJSONStore(filepath.Join(t.TempDir(), "steps.json"))
	require.NoError(t, err)
	if rng == nil {
		rng = random.NewSeeded(7)
	}
	return steps.New(kv, nil, rng, time.UTC, nil), kv
}

func day(n int) time.Time {
	return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestGenerateGoalRange(t *testing.T) {
	t.Parallel()
	rng := random.NewSeeded(1)
	for i := 0; i < 5000; i++ {
		goal := steps.GenerateGoal(rng)
		require.GreaterOrEqual(t, goal, steps.MinGoal)
		require.LessOrEqual(t, goal, steps.MaxGoal)
	}
	assert.Equal(t, steps.MinGoal, steps.GenerateGoal(&random.Scripted{Ints: []int{0}}))
	assert.Equal(t, steps.MaxGoal, steps.GenerateGoal(&random.Scripted{Ints: []int{10000}}))
}

func TestInitializeFreshRecord(t *testing.T) {
	t.Parallel()
	tracker, _ := newTracker(t, nil)

	record, err := tracker.Initialize(context.Background(), "ash", day(0))
	require.NoError(t, err)
	assert.Equal(t, "2026-05-01", record.DateKey)
	assert.Zero(t, record.CurrentSteps)
	assert.False(t, record.Completed)
	assert.Empty(t, record.History)
	assert.GreaterOrEqual(t, record.DailyGoal, steps.MinGoal)

	again, err := tracker.Initialize(context.Background(), "ash", day(0).Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, record.DailyGoal, again.DailyGoal, "goal must be stable within a day")
}

func TestSetStepsClampsAndCompletesMonotonically(t *testing.T) {
	t.Parallel()
	tracker, _ := newTracker(t, &random.Scripted{Ints: []int{0}})
	ctx := context.Background()

	record, err := tracker.SetSteps(ctx, "ash", day(0), -50)
	require.NoError(t, err)
	assert.Zero(t, record.CurrentSteps)

	record, err = tracker.SetSteps(ctx, "ash", day(0), 12000)
	require.NoError(t, err)
	assert.True(t, record.Completed)

	record, err = tracker.SetSteps(ctx, "ash", day(0), 100)
	require.NoError(t, err)
	assert.Equal(t, 100, record.CurrentSteps)
	assert.True(t, record.Completed, "completed must not revert within a day")
	assert.Equal(t, []model.StepHistoryEntry{{DateKey: "2026-05-01", Steps: 100}}, record.History)
}

func TestAddSteps(t *testing.T) {
	t.Parallel()
	tracker, _ := newTracker(t, nil)
	ctx := context.Background()

	_, err := tracker.AddSteps(ctx, "misty", day(0), 1000)
	require.NoError(t, err)
	record, err := tracker.AddSteps(ctx, "misty", day(0), 500)
	require.NoError(t, err)
	assert.Equal(t, 1500, record.CurrentSteps)

	record, err = tracker.AddSteps(ctx, "misty", day(0), -5000)
	require.NoError(t, err)
	assert.Zero(t, record.CurrentSteps)
}

func TestRolloverKeepsHistory(t *testing.T) {
	t.Parallel()
	tracker, _ := newTracker(t, &random.Scripted{Ints: []int{0, 9999}})
	ctx := context.Background()

	_, err := tracker.SetSteps(ctx, "ash", day(0), 15000)
	require.NoError(t, err)

	record, err := tracker.Initialize(ctx, "ash", day(1))
	require.NoError(t, err)
	assert.Equal(t, "2026-05-02", record.DateKey)
	assert.Zero(t, record.CurrentSteps)
	assert.False(t, record.Completed)
	assert.False(t, record.RewardClaimed)
	assert.Equal(t, 19999, record.DailyGoal)
	assert.Equal(t, []model.StepHistoryEntry{{DateKey: "2026-05-01", Steps: 15000}}, record.History)
}

func TestRolloverAppendsUnrecordedDay(t *testing.T) {
	t.Parallel()
	tracker, kv := newTracker(t, nil)
	ctx := context.Background()

	raw := `{"date_key":"2026-05-01","current_steps":4200,"daily_goal":12000,"completed":false,"history":[{"date_key":"2026-04-30","steps":800}]}`
	require.NoError(t, kv.WriteKey(ctx, "brock", steps.Key, []byte(raw)))

	record, err := tracker.Initialize(ctx, "brock", day(1))
	require.NoError(t, err)
	assert.Equal(t, []model.StepHistoryEntry{
		{DateKey: "2026-04-30", Steps: 800},
		{DateKey: "2026-05-01", Steps: 4200},
	}, record.History)
}

func TestHistoryCappedAtSevenDays(t *testing.T) {
	t.Parallel()
	tracker, _ := newTracker(t, nil)
	ctx := context.Background()

	var record model.DailyStepChallenge
	var err error
	for i := 0; i < 10; i++ {
		record, err = tracker.SetSteps(ctx, "ash", day(i), 1000*(i+1))
		require.NoError(t, err)
	}
	require.Len(t, record.History, steps.HistoryLimit)
	for i, entry := range record.History {
		assert.Equal(t, day(3+i).Format("2006-01-02"), entry.DateKey)
	}
}

func TestMalformedRecordIsDiscarded(t *testing.T) {
	t.Parallel()
	tracker, kv := newTracker(t, nil)
	ctx := context.Background()

	for i, raw := range []string{`not json`, `{"date_key":"yesterday","daily_goal":12000}`, `{"date_key":"2026-05-01","daily_goal":5}`} {
		user := fmt.Sprintf("user-%d", i)
		require.NoError(t, kv.WriteKey(ctx, user, steps.Key, []byte(raw)))
		record, err := tracker.Initialize(ctx, user, day(0))
		require.NoError(t, err)
		assert.Equal(t, "2026-05-01", record.DateKey)
		assert.Empty(t, record.History)
		assert.GreaterOrEqual(t, record.DailyGoal, steps.MinGoal)
	}
}

func TestClaimRewardOncePerDay(t *testing.T) {
	t.Parallel()
	tracker, _ := newTracker(t, &random.Scripted{Ints: []int{0}})
	ctx := context.Background()
	picks := 0
	pick := func() (int, error) {
		picks++
		return 25, nil
	}
	var granted []int
	grant := func(id int) error {
		granted = append(granted, id)
		return nil
	}

	_, err := tracker.ClaimReward(ctx, "ash", day(0), pick, grant)
	assert.ErrorIs(t, err, steps.ErrGoalNotCompleted)

	_, err = tracker.SetSteps(ctx, "ash", day(0), steps.MinGoal)
	require.NoError(t, err)

	_, err = tracker.ClaimReward(ctx, "ash", day(0), pick, func(int) error {
		return errors.New("collection unavailable")
	})
	require.Error(t, err)

	record, err := tracker.ClaimReward(ctx, "ash", day(0), pick, grant)
	require.NoError(t, err)
	assert.True(t, record.RewardClaimed)
	assert.Equal(t, 25, record.RewardItemID)

	_, err = tracker.ClaimReward(ctx, "ash", day(0), pick, grant)
	assert.ErrorIs(t, err, steps.ErrRewardAlreadyClaimed)
	assert.Equal(t, []int{25}, granted)
	assert.Equal(t, 1, picks)

	record, err = tracker.Initialize(ctx, "ash", day(1))
	require.NoError(t, err)
	assert.False(t, record.RewardClaimed)
	assert.Zero(t, record.RewardItemID)
}

// flakyStore fails step record writes while failSteps is set.
type flakyStore struct {
	store.Store
	failSteps bool
}

func (f *flakyStore) WriteKey(ctx context.Context, userID, name string, value []byte) error {
	if f.failSteps && name == steps.Key {
		return errors.New("disk full")
	}
	return f.Store.WriteKey(ctx, userID, name, value)
}

func TestClaimRewardRetriesSameItemAfterFailedSave(t *testing.T) {
	t.Parallel()
	_, kv := newTracker(t, nil)
	flaky := &flakyStore{Store: kv}
	tracker := steps.New(flaky, nil, &random.Scripted{Ints: []int{0}}, time.UTC, nil)
	ctx := context.Background()

	_, err := tracker.SetSteps(ctx, "ash", day(0), steps.MinGoal)
	require.NoError(t, err)

	next := 100
	pick := func() (int, error) {
		next++
		return next, nil
	}
	var granted []int
	grant := func(id int) error {
		granted = append(granted, id)
		flaky.failSteps = true
		return nil
	}

	for i := 0; i < 3; i++ {
		_, err = tracker.ClaimReward(ctx, "ash", day(0), pick, grant)
		require.Error(t, err)
		flaky.failSteps = false
	}

	record, err := tracker.ClaimReward(ctx, "ash", day(0), pick, func(id int) error {
		granted = append(granted, id)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, record.RewardClaimed)
	assert.Equal(t, []int{101, 101, 101, 101}, granted)
	assert.Equal(t, 101, next, "item is picked once")

	_, err = tracker.ClaimReward(ctx, "ash", day(0), pick, grant)
	assert.ErrorIs(t, err, steps.ErrRewardAlreadyClaimed)
}

func TestMaxStepsRejectedUnderLock(t *testing.T) {
	t.Parallel()
	kv, err := store.NewJSONStore(filepath.Join(t.TempDir(), "steps.json"))
	require.NoError(t, err)
	tracker := steps.New(kv, nil, random.NewSeeded(3), time.UTC, nil, steps.WithMaxSteps(1000))
	ctx := context.Background()

	_, err = tracker.SetSteps(ctx, "ash", day(0), 900)
	require.NoError(t, err)

	record, err := tracker.AddSteps(ctx, "ash", day(0), 200)
	assert.ErrorIs(t, err, steps.ErrStepLimit)
	assert.Equal(t, 900, record.CurrentSteps)

	record, err = tracker.AddSteps(ctx, "ash", day(0), 100)
	require.NoError(t, err)
	assert.Equal(t, 1000, record.CurrentSteps)

	_, err = tracker.SetSteps(ctx, "ash", day(0), 1001)
	assert.ErrorIs(t, err, steps.ErrStepLimit)
}

func TestTodaySteps(t *testing.T) {
	t.Parallel()
	tracker, _ := newTracker(t, nil)
	ctx := context.Background()

	_, err := tracker.SetSteps(ctx, "ash", day(0), 300)
	require.NoError(t, err)
	_, err = tracker.SetSteps(ctx, "misty", day(1), 900)
	require.NoError(t, err)

	got, err := tracker.TodaySteps(ctx, day(1))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"ash": 0, "misty": 900}, got)
}
