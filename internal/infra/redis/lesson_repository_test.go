package redis

import (
	"context"
	"testing"
	"time"

	"learnworld-service/internal/domain"
	"learnworld-service/internal/infra/memory"
)

var completedAt = time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

func TestLessonRepositoryCachesInRedis(t *testing.T) {
	mr, client := startRedis(t)

	loader := &countingLoader{
		LessonLoader: memory.NewStaticLessonLoader(map[string]domain.Lesson{
			"lesson-1": sampleLesson(),
		}),
	}
	repo := NewLessonRepository(client, loader, time.Minute)

	lesson, err := repo.GetLesson(context.Background(), "lesson-1")
	if err != nil {
		t.Fatalf("get lesson: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("lesson:lesson-1") {
		t.Fatalf("expected lesson cached in redis")
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetLesson(context.Background(), "lesson-1")
	if err != nil {
		t.Fatalf("get cached lesson: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached.World != lesson.World || cached.Questions[0].CorrectIndex != 1 {
		t.Fatalf("cached lesson differs: %+v", cached)
	}

	if err := repo.Invalidate(context.Background(), "lesson-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetLesson(context.Background(), "lesson-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestLessonRepositoryMissing(t *testing.T) {
	_, client := startRedis(t)
	repo := NewLessonRepository(client, memory.NewStaticLessonLoader(nil), time.Minute)
	if _, err := repo.GetLesson(context.Background(), "nope"); err != domain.ErrLessonNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	memory.LessonLoader
	calls int
}

func (l *countingLoader) LoadLesson(ctx context.Context, lessonID string) (domain.Lesson, error) {
	l.calls++
	return l.LessonLoader.LoadLesson(ctx, lessonID)
}

func sampleLesson() domain.Lesson {
	return domain.Lesson{
		ID:    "lesson-1",
		Title: "Planets",
		World: domain.Science,
		Level: 1,
		Questions: []domain.Question{
			{Prompt: "Which planet is red?", Options: []string{"Venus", "Mars"}, CorrectIndex: 1, Points: 10},
		},
		CoinsReward: 5,
		Active:      true,
	}
}
