package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"eng_portal/internal/auth"
)

// Users is an in-process auth.UserStore.
type Users struct {
	mu      sync.Mutex
	byEmail map[string]auth.User
}

var _ auth.UserStore = (*Users)(nil)

func NewUsers() *Users {
	return &Users{byEmail: map[string]auth.User{}}
}

func (s *Users) CreateUser(_ context.Context, u *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return auth.ErrEmailTaken
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	s.byEmail[u.Email] = *u
	return nil
}

func (s *Users) UserByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byEmail[email]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &u, nil
}
