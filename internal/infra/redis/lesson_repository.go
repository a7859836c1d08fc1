package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"learnworld-service/internal/domain"
	"learnworld-service/internal/infra/memory"
)

// LessonRepository caches lesson JSON in Redis and falls back to a loader on cache miss.
// Lessons are stored as: SET lesson:{lessonID} {json} EX ttl
type LessonRepository struct {
	client *redis.Client
	loader memory.LessonLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewLessonRepository(client *redis.Client, loader memory.LessonLoader, ttl time.Duration) *LessonRepository {
	return &LessonRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *LessonRepository) GetLesson(ctx context.Context, lessonID string) (domain.Lesson, error) {
	key := r.key(lessonID)
	if lesson, ok := r.cached(ctx, key); ok {
		return lesson, nil
	}

	result, err, _ := r.sf.Do(lessonID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if lesson, ok := r.cached(ctx, key); ok {
			return lesson, nil
		}

		lesson, err := r.loader.LoadLesson(ctx, lessonID)
		if err != nil {
			return domain.Lesson{}, err
		}
		lesson = lesson.WithDefaults()

		if data, err := json.Marshal(lesson); err == nil {
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return lesson, nil
	})
	if err != nil {
		return domain.Lesson{}, err
	}
	return result.(domain.Lesson), nil
}

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

// Invalidate drops a cached lesson after its content changed.
func (r *LessonRepository) Invalidate(ctx context.Context, lessonID string) error {
	return r.client.Del(ctx, r.key(lessonID)).Err()
}

func (r *LessonRepository) cached(ctx context.Context, key string) (domain.Lesson, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Lesson{}, false
	}
	var lesson domain.Lesson
	if err := json.Unmarshal(raw, &lesson); err != nil {
		return domain.Lesson{}, false
	}
	return lesson, true
}

func (r *LessonRepository) key(lessonID string) string {
	return "lesson:" + lessonID
}

func (r *LessonRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
