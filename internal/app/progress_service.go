package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"learnworld-service/internal/domain"
	"learnworld-service/internal/engine"
	"learnworld-service/internal/logger"
	"learnworld-service/internal/metrics"
)

// UserRepository abstracts where user progression lives (in-memory, Redis, Postgres).
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	Get(ctx context.Context, userID string) (domain.User, error)
	// Update runs fn as a single atomic read-modify-write for userID. If fn
	// returns an error nothing is written and the error is returned as is.
	Update(ctx context.Context, userID string, fn func(domain.User) (domain.User, error)) (domain.User, error)
	// List returns a snapshot of all users; it may lag concurrent commits.
	List(ctx context.Context) ([]domain.User, error)
}

// LessonRepository loads lesson content (from cache/backing store).
type LessonRepository interface {
	GetLesson(ctx context.Context, lessonID string) (domain.Lesson, error)
	ListLessons(ctx context.Context, world domain.World, level int) ([]domain.Lesson, error)
}

// TopPerformersLimit is the size of the top performers board.
const TopPerformersLimit = 10

// ProgressService contains the progression use cases.
type ProgressService struct {
	users   UserRepository
	lessons LessonRepository
	hub     *LeaderboardHub
	log     *logger.Logger
	metrics *metrics.Recorder
	now     func() time.Time
	newID   func() string
	liveTop int

	// publishMu orders snapshot+publish so the last push reflects the last commit.
	publishMu sync.Mutex
}

// Option customizes a ProgressService.
type Option func(*ProgressService)

func WithLogger(l *logger.Logger) Option {
	return func(s *ProgressService) { s.log = l }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(s *ProgressService) { s.metrics = m }
}

func WithHub(h *LeaderboardHub) Option {
	return func(s *ProgressService) { s.hub = h }
}

// WithClock is for deterministic completion timestamps in tests.
func WithClock(now func() time.Time) Option {
	return func(s *ProgressService) { s.now = now }
}

// WithIDGenerator overrides uuid-based user IDs.
func WithIDGenerator(gen func() string) Option {
	return func(s *ProgressService) { s.newID = gen }
}

// WithLiveBoardSize sets how many entries live subscribers receive.
func WithLiveBoardSize(n int) Option {
	return func(s *ProgressService) {
		if n > 0 {
			s.liveTop = n
		}
	}
}

func NewProgressService(users UserRepository, lessons LessonRepository, opts ...Option) *ProgressService {
	s := &ProgressService{
		users:   users,
		lessons: lessons,
		hub:     NewLeaderboardHub(),
		log:     logger.Nop(),
		now:     time.Now,
		newID:   uuid.NewString,
		liveTop: TopPerformersLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user with zero coins/score and level 1 in every world.
func (s *ProgressService) Register(ctx context.Context, name string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, domain.ErrInvalidName
	}
	user := domain.User{
		ID:              s.newID(),
		Name:            name,
		Active:          true,
		CreatedAt:       s.now().UTC(),
		Progression:     domain.NewProgression(),
		AreaOfInterest:  domain.InterestAll,
		ScreenTimeLimit: domain.DefaultScreenTimeLimit,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	s.log.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Profile returns the user's record.
func (s *ProgressService) Profile(ctx context.Context, userID string) (domain.User, error) {
	return s.users.Get(ctx, userID)
}

// UpdateProfile applies the non-zero fields of update to the user's profile.
func (s *ProgressService) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (domain.User, error) {
	user, err := s.users.Update(ctx, userID, func(user domain.User) (domain.User, error) {
		return user.ApplyProfile(update)
	})
	if err != nil {
		return domain.User{}, err
	}
	s.log.Info("profile updated", "user_id", userID)
	if strings.TrimSpace(update.Name) != "" {
		s.publish(ctx)
	}
	return user, nil
}

// Levels returns the user's level in every world.
func (s *ProgressService) Levels(ctx context.Context, userID string) (domain.Levels, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Progression.Levels, nil
}

// Progress returns per-world progress and the user's total score.
func (s *ProgressService) Progress(ctx context.Context, userID string) (map[domain.World]domain.WorldProgress, int, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return engine.Progress(user.Progression), user.Progression.TotalScore, nil
}

// ListLessons returns active lessons for (world, level) with the user's completion flags.
func (s *ProgressService) ListLessons(ctx context.Context, userID string, world domain.World, level int) ([]domain.LessonSummary, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	lessons, err := s.lessons.ListLessons(ctx, world, level)
	if err != nil {
		return nil, err
	}
	out := make([]domain.LessonSummary, 0, len(lessons))
	for _, l := range lessons {
		if !l.Active {
			continue
		}
		out = append(out, domain.LessonSummary{
			ID:               l.ID,
			Title:            l.Title,
			Description:      l.Description,
			CoinsReward:      l.CoinsReward,
			EstimatedMinutes: l.EstimatedMinutes,
			IsCompleted:      user.Progression.HasCompleted(l.ID),
		})
	}
	return out, nil
}

// GetLesson returns lesson content without the answer key.
func (s *ProgressService) GetLesson(ctx context.Context, lessonID string) (domain.LessonView, error) {
	lesson, err := s.lessons.GetLesson(ctx, lessonID)
	if err != nil {
		return domain.LessonView{}, err
	}
	return lesson.View(), nil
}

// SubmitLesson scores answers and credits the lesson to the user at most once.
// The duplicate check and the credit happen inside one store Update, so
// concurrent submissions of the same lesson yield exactly one success.
func (s *ProgressService) SubmitLesson(ctx context.Context, userID, lessonID string, answers domain.AnswerSubmission) (domain.CompletionSummary, error) {
	lesson, err := s.lessons.GetLesson(ctx, lessonID)
	if err != nil {
		return domain.CompletionSummary{}, err
	}

	scoring := engine.Evaluate(lesson.Questions, answers)
	var summary domain.CompletionSummary
	_, err = s.users.Update(ctx, userID, func(user domain.User) (domain.User, error) {
		next, sum, err := engine.ApplyCompletion(user.Progression, lesson, scoring, s.now().UTC())
		if err != nil {
			return user, err
		}
		summary = sum
		user.Progression = next
		return user, nil
	})
	if errors.Is(err, domain.ErrDuplicateCompletion) {
		s.metrics.Duplicate()
		s.log.Info("duplicate lesson submission", "user_id", userID, "lesson_id", lessonID)
		return domain.CompletionSummary{}, err
	}
	if err != nil {
		return domain.CompletionSummary{}, fmt.Errorf("commit completion: %w", err)
	}

	s.metrics.Completion(lesson.World, summary)
	s.log.Info("lesson completed",
		"user_id", userID,
		"lesson_id", lessonID,
		"world", lesson.World.Key(),
		"score", summary.PointsEarned,
		"coins", summary.Coins,
		"level_up", summary.LeveledUp,
	)
	s.publish(ctx)
	return summary, nil
}

// GrantCoins credits coins outside the lesson flow.
func (s *ProgressService) GrantCoins(ctx context.Context, userID string, amount int, world *domain.World) (domain.GrantSummary, error) {
	var summary domain.GrantSummary
	_, err := s.users.Update(ctx, userID, func(user domain.User) (domain.User, error) {
		next, sum, err := engine.GrantCoins(user.Progression, amount, world)
		if err != nil {
			return user, err
		}
		summary = sum
		user.Progression = next
		return user, nil
	})
	if err != nil {
		return domain.GrantSummary{}, err
	}
	s.metrics.Grant(amount, world, summary.LeveledUp)
	s.log.Info("coins granted", "user_id", userID, "amount", amount, "coins", summary.Coins)
	s.publish(ctx)
	return summary, nil
}

// Leaderboard returns one page of the global (world == nil) or world-scoped board.
func (s *ProgressService) Leaderboard(ctx context.Context, world *domain.World, pageSize, pageIndex int) (domain.Page, error) {
	sorted, err := s.sorted(ctx, world)
	if err != nil {
		return domain.Page{}, err
	}
	return engine.Paginate(sorted, pageSize, pageIndex)
}

// Rank returns the user's global standing.
func (s *ProgressService) Rank(ctx context.Context, userID string) (domain.UserRank, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return domain.UserRank{}, err
	}
	rank, ok := engine.RankOf(engine.Entries(users, nil), userID)
	if !ok {
		return domain.UserRank{}, domain.ErrNotRanked
	}
	return rank, nil
}

// TopPerformers returns the first TopPerformersLimit entries of the global board.
func (s *ProgressService) TopPerformers(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	page, err := s.Leaderboard(ctx, nil, TopPerformersLimit, 0)
	if err != nil {
		return nil, err
	}
	return page.Entries, nil
}

// Subscribe returns a channel that receives global leaderboard updates.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *ProgressService) Subscribe(_ context.Context) (<-chan domain.Leaderboard, func(), error) {
	ch, cancel := s.hub.Subscribe()
	return ch, cancel, nil
}

// Snapshot computes the current live board without publishing it.
func (s *ProgressService) Snapshot(ctx context.Context) (domain.Leaderboard, error) {
	sorted, err := s.sorted(ctx, nil)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	if len(sorted) > s.liveTop {
		sorted = sorted[:s.liveTop]
	}
	return domain.Leaderboard{Entries: sorted, UpdatedAt: s.now()}, nil
}

func (s *ProgressService) sorted(ctx context.Context, world *domain.World) ([]domain.LeaderboardEntry, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	return engine.Sort(engine.Entries(users, world)), nil
}

// publish pushes a fresh board to live subscribers. Failures only cost a
// missed push, the commit has already happened.
func (s *ProgressService) publish(ctx context.Context) {
	if s.hub.Subscribers() == 0 {
		return
	}
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	board, err := s.Snapshot(ctx)
	if err != nil {
		s.log.Warn("leaderboard snapshot failed", "error", err)
		return
	}
	s.hub.Publish(board.Entries)
}
