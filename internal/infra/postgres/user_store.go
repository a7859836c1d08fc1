package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"learnworld-service/internal/domain"
)

const (
	uniqueViolation = "23505"
	userColumns     = "id, name, is_active, created_at, progression, area_of_interest, parent_email, screen_time_limit"
)

// UserStore persists users in Postgres. Update locks the row with
// SELECT ... FOR UPDATE so read, check and write are linearized per user.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) Create(ctx context.Context, user domain.User) error {
	data, err := json.Marshal(user.Progression)
	if err != nil {
		return fmt.Errorf("marshal progression: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Name, user.Active, user.CreatedAt, data,
		user.AreaOfInterest, user.ParentEmail, user.ScreenTimeLimit)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *UserStore) Get(ctx context.Context, userID string) (domain.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	return scanUser(row)
}

func (s *UserStore) Update(ctx context.Context, userID string, fn func(domain.User) (domain.User, error)) (domain.User, error) {
	var updated domain.User
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		current, err := scanUser(tx.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id=$1 FOR UPDATE`, userID))
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		data, err := json.Marshal(next.Progression)
		if err != nil {
			return fmt.Errorf("marshal progression: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE users SET name=$2, is_active=$3, progression=$4,
			 area_of_interest=$5, parent_email=$6, screen_time_limit=$7 WHERE id=$1`,
			userID, next.Name, next.Active, data,
			next.AreaOfInterest, next.ParentEmail, next.ScreenTimeLimit); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		next.ID = userID
		updated = next
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return updated, nil
}

func (s *UserStore) List(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		user domain.User
		raw  []byte
	)
	err := row.Scan(&user.ID, &user.Name, &user.Active, &user.CreatedAt, &raw,
		&user.AreaOfInterest, &user.ParentEmail, &user.ScreenTimeLimit)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	if err := json.Unmarshal(raw, &user.Progression); err != nil {
		return domain.User{}, fmt.Errorf("unmarshal progression: %w", err)
	}
	if user.Progression.Levels == nil {
		user.Progression.Levels = domain.InitialLevels()
	}
	return user, nil
}
