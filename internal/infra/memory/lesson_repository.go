package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"learnworld-service/internal/domain"
)

// LessonLoader fetches lesson content from a backing store (e.g., document DB).
type LessonLoader interface {
	LoadLesson(ctx context.Context, lessonID string) (domain.Lesson, error)
	LoadLessons(ctx context.Context, world domain.World, level int) ([]domain.Lesson, error)
}

// LessonRepository caches lessons with TTL to avoid repeated DB hits.
type LessonRepository struct {
	loader LessonLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedLesson
}

type cachedLesson struct {
	lesson    domain.Lesson
	expiresAt time.Time
}

func NewLessonRepository(loader LessonLoader, ttl time.Duration) *LessonRepository {
	return &LessonRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedLesson),
	}
}

func (r *LessonRepository) GetLesson(ctx context.Context, lessonID string) (domain.Lesson, error) {
	if lesson, ok := r.cached(lessonID); ok {
		return lesson, nil
	}

	result, err, _ := r.sf.Do(lessonID, func() (interface{}, error) {
		if lesson, ok := r.cached(lessonID); ok {
			return lesson, nil
		}

		lesson, err := r.loader.LoadLesson(ctx, lessonID)
		if err != nil {
			return domain.Lesson{}, err
		}
		lesson = lesson.WithDefaults()

		r.mu.Lock()
		r.cache[lessonID] = cachedLesson{
			lesson:    lesson,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return lesson, nil
	})
	if err != nil {
		return domain.Lesson{}, err
	}
	return result.(domain.Lesson), nil
}

// ListLessons is not cached; listings change whenever content is published.
func (r *LessonRepository) ListLessons(ctx context.Context, world domain.World, level int) ([]domain.Lesson, error) {
	lessons, err := r.loader.LoadLessons(ctx, world, level)
	if err != nil {
		return nil, err
	}
	for i := range lessons {
		lessons[i] = lessons[i].WithDefaults()
	}
	return lessons, nil
}

func (r *LessonRepository) cached(lessonID string) (domain.Lesson, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[lessonID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Lesson{}, false
	}
	return entry.lesson, true
}

func (r *LessonRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticLessonLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticLessonLoader struct {
	lessons map[string]domain.Lesson
}

func NewStaticLessonLoader(lessons map[string]domain.Lesson) *StaticLessonLoader {
	return &StaticLessonLoader{lessons: lessons}
}

func (l *StaticLessonLoader) LoadLesson(_ context.Context, lessonID string) (domain.Lesson, error) {
	if lesson, ok := l.lessons[lessonID]; ok {
		return lesson, nil
	}
	return domain.Lesson{}, domain.ErrLessonNotFound
}

func (l *StaticLessonLoader) LoadLessons(_ context.Context, world domain.World, level int) ([]domain.Lesson, error) {
	out := make([]domain.Lesson, 0)
	for _, lesson := range l.lessons {
		if lesson.World == world && lesson.Level == level {
			out = append(out, lesson)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
