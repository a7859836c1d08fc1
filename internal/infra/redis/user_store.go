package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"learnworld-service/internal/domain"
)

const (
	usersIndexKey = "users:index"
	// maxTxRetries bounds optimistic retries when another writer touches the same user.
	maxTxRetries = 16
)

// UserStore keeps each user as JSON under user:{id}. Updates run inside
// WATCH/MULTI so a commit only lands if nobody else wrote the user in between.
type UserStore struct {
	client *redis.Client
}

func NewUserStore(client *redis.Client) *UserStore {
	return &UserStore{client: client}
}

func (s *UserStore) Create(ctx context.Context, user domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	// record and index entry are written in one MULTI; re-adding an existing ID is a no-op
	key := s.key(user.ID)
	var created *redis.BoolCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		created = pipe.SetNX(ctx, key, data, 0)
		pipe.SAdd(ctx, usersIndexKey, user.ID)
		return nil
	})
	if err != nil {
		// EXEC does not roll back, so drop a record that missed its index entry
		if created != nil && created.Val() {
			_ = s.client.Del(ctx, key).Err()
		}
		return fmt.Errorf("create user: %w", err)
	}
	if !created.Val() {
		return domain.ErrUserExists
	}
	return nil
}

func (s *UserStore) Get(ctx context.Context, userID string) (domain.User, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return decodeUser(raw)
}

func (s *UserStore) Update(ctx context.Context, userID string, fn func(domain.User) (domain.User, error)) (domain.User, error) {
	key := s.key(userID)
	var updated domain.User

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		current, err := decodeUser(raw)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		next.ID = userID
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err == nil {
			updated = next
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return domain.User{}, err
		}
		return updated, nil
	}
	return domain.User{}, domain.ErrConcurrentUpdate
}

func (s *UserStore) List(ctx context.Context) ([]domain.User, error) {
	ids, err := s.client.SMembers(ctx, usersIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	if len(ids) == 0 {
		return []domain.User{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	users := make([]domain.User, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		user, err := decodeUser([]byte(str))
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *UserStore) key(userID string) string {
	return "user:" + userID
}

func decodeUser(raw []byte) (domain.User, error) {
	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return domain.User{}, fmt.Errorf("unmarshal user: %w", err)
	}
	if user.Progression.Levels == nil {
		user.Progression.Levels = domain.InitialLevels()
	}
	return user, nil
}
