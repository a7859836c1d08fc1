package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnworld-service/internal/domain"
	"learnworld-service/internal/infra/memory"
	"learnworld-service/internal/metrics"
)

var fixedNow = time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T, opts ...Option) (*ProgressService, *memory.UserStore) {
	t.Helper()
	users := memory.NewUserStore()
	lessons := memory.NewLessonRepository(memory.NewStaticLessonLoader(testLessons()), time.Minute)
	var seq int64
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return fmt.Sprintf("u%d", atomic.AddInt64(&seq, 1)) }),
	}
	return NewProgressService(users, lessons, append(base, opts...)...), users
}

func TestRegisterStartsAtLevelOne(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "  Asha ")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "Asha", user.Name)
	assert.Zero(t, user.Progression.Coins)
	for _, w := range domain.Worlds {
		assert.Equal(t, 1, user.Progression.Levels.Of(w))
	}

	_, err = svc.Register(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestUpdateProfileKeepsProgression(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, "Asha")
	require.NoError(t, err)
	assert.Equal(t, domain.InterestAll, user.AreaOfInterest)
	assert.Equal(t, domain.DefaultScreenTimeLimit, user.ScreenTimeLimit)
	_, err = svc.SubmitLesson(ctx, user.ID, "math-1", domain.AnswerSubmission{1, 2})
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, user.ID, domain.ProfileUpdate{Name: "Asha K", AreaOfInterest: "math", ScreenTimeLimit: 45})
	require.NoError(t, err)
	assert.Equal(t, "Asha K", updated.Name)
	assert.Equal(t, "math", updated.AreaOfInterest)
	assert.Equal(t, 45, updated.ScreenTimeLimit)
	assert.Equal(t, 60, updated.Progression.Coins)

	_, err = svc.UpdateProfile(ctx, user.ID, domain.ProfileUpdate{AreaOfInterest: "Art"})
	assert.ErrorIs(t, err, domain.ErrInvalidProfile)
	profile, err := svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "math", profile.AreaOfInterest)

	_, err = svc.UpdateProfile(ctx, "ghost", domain.ProfileUpdate{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestSubmitLessonCreditsOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc, _ := newService(t, WithMetrics(metrics.New(reg)))
	ctx := context.Background()
	user, err := svc.Register(ctx, "Asha")
	require.NoError(t, err)

	summary, err := svc.SubmitLesson(ctx, user.ID, "math-1", domain.AnswerSubmission{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 25, summary.PointsEarned)
	assert.Equal(t, 60, summary.CoinsEarned)
	assert.Equal(t, 60, summary.Coins)
	assert.False(t, summary.LeveledUp)
	assert.Len(t, summary.Results, 2)

	_, err = svc.SubmitLesson(ctx, user.ID, "math-1", domain.AnswerSubmission{1, 2})
	assert.ErrorIs(t, err, domain.ErrDuplicateCompletion)

	profile, err := svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, profile.Progression.Coins)
	assert.Equal(t, 25, profile.Progression.TotalScore)
	require.Len(t, profile.Progression.Completed, 1)
	assert.Equal(t, fixedNow, profile.Progression.Completed[0].CompletedAt)

	assert.Equal(t, float64(1), counterValue(t, reg, "learnworld_duplicate_completions_total"))
}

func TestSubmitLessonLevelsUpOnGlobalCoins(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, "Asha")
	require.NoError(t, err)

	_, err = svc.SubmitLesson(ctx, user.ID, "math-1", nil)
	require.NoError(t, err)
	summary, err := svc.SubmitLesson(ctx, user.ID, "science-1", nil)
	require.NoError(t, err)

	assert.Equal(t, 110, summary.Coins)
	assert.True(t, summary.LeveledUp)
	assert.Equal(t, 2, summary.NewLevel)

	levels, err := svc.Levels(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, levels.Of(domain.Science))
	assert.Equal(t, 1, levels.Of(domain.Math))
}

func TestSubmitLessonErrors(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.SubmitLesson(ctx, "ghost", "math-1", nil)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = svc.SubmitLesson(ctx, "ghost", "nope", nil)
	assert.ErrorIs(t, err, domain.ErrLessonNotFound)
}

func TestConcurrentSubmissionsCreditOnce(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, "Asha")
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	var successes, duplicates int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitLesson(ctx, user.ID, "math-1", domain.AnswerSubmission{1, 2})
			switch {
			case err == nil:
				atomic.AddInt64(&successes, 1)
			case errors.Is(err, domain.ErrDuplicateCompletion):
				atomic.AddInt64(&duplicates, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), successes)
	assert.Equal(t, int64(workers-1), duplicates)
	profile, err := svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, profile.Progression.Coins)
	assert.Len(t, profile.Progression.Completed, 1)
}

func TestGrantCoins(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, "Asha")
	require.NoError(t, err)

	history := domain.History
	summary, err := svc.GrantCoins(ctx, user.ID, 250, &history)
	require.NoError(t, err)
	assert.Equal(t, 250, summary.Coins)
	assert.True(t, summary.LeveledUp)
	assert.Equal(t, 3, summary.Levels.Of(domain.History))

	_, err = svc.GrantCoins(ctx, user.ID, -5, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidCoinAmount)

	profile, err := svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 250, profile.Progression.TotalScore)
}

func TestLeaderboardAndRank(t *testing.T) {
	svc, users := newService(t)
	ctx := context.Background()
	asha, _ := svc.Register(ctx, "Asha")
	ben, _ := svc.Register(ctx, "Ben")
	chen, _ := svc.Register(ctx, "Chen")
	idle, _ := svc.Register(ctx, "Idle")

	_, err := svc.SubmitLesson(ctx, ben.ID, "math-1", domain.AnswerSubmission{1, 2})
	require.NoError(t, err)
	_, err = svc.SubmitLesson(ctx, chen.ID, "science-1", domain.AnswerSubmission{0})
	require.NoError(t, err)
	require.NoError(t, users.SetActive(ctx, idle.ID, false))

	page, err := svc.Leaderboard(ctx, nil, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalEntries)
	assert.True(t, page.HasNext)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, ben.ID, page.Entries[0].UserID)
	assert.Equal(t, chen.ID, page.Entries[1].UserID)

	last, err := svc.Leaderboard(ctx, nil, 2, 1)
	require.NoError(t, err)
	require.Len(t, last.Entries, 1)
	assert.Equal(t, asha.ID, last.Entries[0].UserID)
	assert.Equal(t, 3, last.Entries[0].Rank)

	math := domain.Math
	worldPage, err := svc.Leaderboard(ctx, &math, 10, 0)
	require.NoError(t, err)
	require.Len(t, worldPage.Entries, 1)
	assert.Equal(t, ben.ID, worldPage.Entries[0].UserID)

	_, err = svc.Leaderboard(ctx, nil, 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidPagination)

	rank, err := svc.Rank(ctx, chen.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rank.Rank)
	assert.Equal(t, 67, rank.Percentile)

	_, err = svc.Rank(ctx, idle.ID)
	assert.ErrorIs(t, err, domain.ErrNotRanked)

	top, err := svc.TopPerformers(ctx)
	require.NoError(t, err)
	assert.Len(t, top, 3)
}

func TestListLessonsAndView(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	user, _ := svc.Register(ctx, "Asha")
	_, err := svc.SubmitLesson(ctx, user.ID, "math-1", nil)
	require.NoError(t, err)

	lessons, err := svc.ListLessons(ctx, user.ID, domain.Math, 1)
	require.NoError(t, err)
	require.Len(t, lessons, 1, "inactive lessons are hidden")
	assert.Equal(t, "math-1", lessons[0].ID)
	assert.True(t, lessons[0].IsCompleted)

	view, err := svc.GetLesson(ctx, "math-1")
	require.NoError(t, err)
	require.Len(t, view.Questions, 2)
	assert.Equal(t, "What is 2 x 3?", view.Questions[0].Prompt)

	progress, total, err := svc.Progress(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Equal(t, 1, progress[domain.Math].CompletedLessons)
	assert.Equal(t, 0, progress[domain.Science].CompletedLessons)
}

func TestSubscribersReceiveBoardAfterCommit(t *testing.T) {
	svc, _ := newService(t, WithLiveBoardSize(1))
	ctx := context.Background()
	asha, _ := svc.Register(ctx, "Asha")
	ben, _ := svc.Register(ctx, "Ben")

	updates, cancel, err := svc.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel()

	_, err = svc.SubmitLesson(ctx, ben.ID, "math-1", domain.AnswerSubmission{1, 2})
	require.NoError(t, err)

	select {
	case board := <-updates:
		require.Len(t, board.Entries, 1)
		assert.Equal(t, ben.ID, board.Entries[0].UserID)
	case <-time.After(time.Second):
		t.Fatal("expected leaderboard update")
	}

	snapshot, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Entries, 1)
	assert.NotEqual(t, asha.ID, snapshot.Entries[0].UserID)
}

func TestLastPushMatchesFinalBoard(t *testing.T) {
	svc, _ := newService(t, WithLiveBoardSize(50))
	ctx := context.Background()

	const players = 12
	ids := make([]string, players)
	for i := range ids {
		u, err := svc.Register(ctx, fmt.Sprintf("player-%d", i))
		require.NoError(t, err)
		ids[i] = u.ID
	}

	updates, cancel, err := svc.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel()

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(id string, lesson string) {
			defer wg.Done()
			_, err := svc.SubmitLesson(ctx, id, lesson, domain.AnswerSubmission{1, 2})
			assert.NoError(t, err)
		}(id, []string{"math-1", "science-1"}[i%2])
	}
	wg.Wait()

	var last domain.Leaderboard
	for len(updates) > 0 {
		last = <-updates
	}
	final, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, final.Entries, last.Entries)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

func testLessons() map[string]domain.Lesson {
	return map[string]domain.Lesson{
		"math-1": {
			ID:    "math-1",
			Title: "Times tables",
			World: domain.Math,
			Level: 1,
			Questions: []domain.Question{
				{Prompt: "What is 2 x 3?", Options: []string{"5", "6"}, CorrectIndex: 1, Points: 10},
				{Prompt: "What is 3 x 4?", Options: []string{"7", "10", "12"}, CorrectIndex: 2, Points: 15},
			},
			CoinsReward: 60,
			Active:      true,
		},
		"math-draft": {
			ID:          "math-draft",
			Title:       "Division",
			World:       domain.Math,
			Level:       1,
			CoinsReward: 10,
		},
		"science-1": {
			ID:    "science-1",
			Title: "Plants",
			World: domain.Science,
			Level: 1,
			Questions: []domain.Question{
				{Prompt: "Plants need?", Options: []string{"Light", "Noise"}, CorrectIndex: 0},
			},
			CoinsReward: 50,
			Active:      true,
		},
	}
}
