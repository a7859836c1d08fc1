package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"learnworld-service/internal/domain"
)

// LessonLoader loads lesson JSONB from Postgres.
type LessonLoader struct {
	pool *pgxpool.Pool
}

func NewLessonLoader(pool *pgxpool.Pool) *LessonLoader {
	return &LessonLoader{pool: pool}
}

func (l *LessonLoader) LoadLesson(ctx context.Context, lessonID string) (domain.Lesson, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM lessons WHERE id=$1`, lessonID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lesson{}, domain.ErrLessonNotFound
	}
	if err != nil {
		return domain.Lesson{}, fmt.Errorf("load lesson: %w", err)
	}
	return decodeLesson(lessonID, raw)
}

func (l *LessonLoader) LoadLessons(ctx context.Context, world domain.World, level int) ([]domain.Lesson, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, data FROM lessons WHERE world=$1 AND level=$2 AND is_active ORDER BY id`,
		world.Key(), level)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	lessons := make([]domain.Lesson, 0)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lesson, err := decodeLesson(id, raw)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, lesson)
	}
	return lessons, rows.Err()
}

// SaveLesson upserts a lesson; world and level are denormalized for listing.
func (l *LessonLoader) SaveLesson(ctx context.Context, lesson domain.Lesson) error {
	data, err := json.Marshal(lesson)
	if err != nil {
		return fmt.Errorf("marshal lesson: %w", err)
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO lessons (id, world, level, is_active, data) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET world=EXCLUDED.world, level=EXCLUDED.level, is_active=EXCLUDED.is_active, data=EXCLUDED.data`,
		lesson.ID, lesson.World.Key(), lesson.Level, lesson.Active, data)
	if err != nil {
		return fmt.Errorf("save lesson: %w", err)
	}
	return nil
}

func decodeLesson(id string, raw []byte) (domain.Lesson, error) {
	var lesson domain.Lesson
	if err := json.Unmarshal(raw, &lesson); err != nil {
		return domain.Lesson{}, fmt.Errorf("unmarshal lesson: %w", err)
	}
	lesson.ID = id
	return lesson, nil
}
