package memory

import (
	"context"
	"sort"
	"sync"

	"learnworld-service/internal/domain"
)

// UserStore is an in-memory implementation of app.UserRepository. Each user
// has its own lock so commits for different users never contend.
type UserStore struct {
	mu    sync.RWMutex
	slots map[string]*userSlot
}

type userSlot struct {
	mu   sync.Mutex
	user domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{
		slots: make(map[string]*userSlot),
	}
}

func (s *UserStore) Create(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slots[user.ID]; ok {
		return domain.ErrUserExists
	}
	user.Progression = user.Progression.Clone()
	s.slots[user.ID] = &userSlot{user: user}
	return nil
}

func (s *UserStore) Get(_ context.Context, userID string) (domain.User, error) {
	slot, ok := s.slot(userID)
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return cloneUser(slot.user), nil
}

func (s *UserStore) Update(ctx context.Context, userID string, fn func(domain.User) (domain.User, error)) (domain.User, error) {
	slot, ok := s.slot(userID)
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}

	next, err := fn(cloneUser(slot.user))
	if err != nil {
		return domain.User{}, err
	}
	next.ID = userID
	slot.user = cloneUser(next)
	return next, nil
}

// List returns users ordered by ID. Each user is read under its own lock.
func (s *UserStore) List(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	slots := make([]*userSlot, 0, len(s.slots))
	for _, slot := range s.slots {
		slots = append(slots, slot)
	}
	s.mu.RUnlock()

	users := make([]domain.User, 0, len(slots))
	for _, slot := range slots {
		slot.mu.Lock()
		users = append(users, cloneUser(slot.user))
		slot.mu.Unlock()
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// SetActive flips a user's active flag; account lifecycle lives outside the engine.
func (s *UserStore) SetActive(ctx context.Context, userID string, active bool) error {
	_, err := s.Update(ctx, userID, func(u domain.User) (domain.User, error) {
		u.Active = active
		return u, nil
	})
	return err
}

func (s *UserStore) slot(userID string) (*userSlot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slots[userID]
	return slot, ok
}

func cloneUser(u domain.User) domain.User {
	u.Progression = u.Progression.Clone()
	return u
}
