// Package auth handles email/password accounts and publishes session
// changes to interested views.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailTaken         = errors.New("user already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidSignUp      = errors.New("invalid sign-up details")
)

// User is a stored account.
type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	FirstName    string    `db:"first_name"`
	Surname      string    `db:"surname"`
	CreatedAt    time.Time `db:"created_at"`
}

// UserStore persists accounts. CreateUser fills in ID and CreatedAt and
// returns ErrEmailTaken for a duplicate email. UserByEmail returns
// ErrUserNotFound when no account matches.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	UserByEmail(ctx context.Context, email string) (*User, error)
}

// Profile is the extra data captured at registration.
type Profile struct {
	FirstName string `json:"first_name"`
	Surname   string `json:"surname"`
}

// Session is a signed-in user's context.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	Surname   string    `json:"surname"`
	IssuedAt  time.Time `json:"issued_at"`
}

// Initials returns the first two letters of the email, upper-cased.
func (s Session) Initials() string {
	r := []rune(s.Email)
	if len(r) > 2 {
		r = r[:2]
	}
	return strings.ToUpper(string(r))
}

type EventKind string

const (
	SignedIn  EventKind = "SIGNED_IN"
	SignedOut EventKind = "SIGNED_OUT"
)

// Event reports a session change.
type Event struct {
	Kind    EventKind
	Session Session
}

type signUpRequest struct {
	Email     string `validate:"required,email"`
	Password  string `validate:"required,min=6"`
	FirstName string `validate:"required"`
	Surname   string `validate:"required"`
}

// Service signs users up, in and out.
type Service struct {
	users    UserStore
	logger   *zap.Logger
	validate *validator.Validate

	// Cost is the bcrypt cost for new passwords.
	Cost int

	mu   sync.Mutex
	next int
	subs map[int]func(Event)
}

func NewService(users UserStore, logger *zap.Logger) *Service {
	return &Service{
		users:    users,
		logger:   logger,
		validate: validator.New(),
		Cost:     bcrypt.DefaultCost,
		subs:     map[int]func(Event){},
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates an account. The user signs in separately.
func (s *Service) SignUp(ctx context.Context, email, password string, p Profile) error {
	req := signUpRequest{
		Email:     normalizeEmail(email),
		Password:  password,
		FirstName: strings.TrimSpace(p.FirstName),
		Surname:   strings.TrimSpace(p.Surname),
	}
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", ErrInvalidSignUp, fieldList(verrs))
		}
		return fmt.Errorf("%w: %v", ErrInvalidSignUp, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.Cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u := &User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		Surname:      req.Surname,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return err
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID), zap.String("email", u.Email))
	return nil
}

// SignIn checks the password and opens a new session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.UserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		Surname:   u.Surname,
		IssuedAt:  time.Now(),
	}
	s.logger.Info("user signed in", zap.String("user_id", u.ID), zap.String("session_id", sess.ID))
	s.publish(Event{Kind: SignedIn, Session: sess})
	return &sess, nil
}

// SignOut ends sess.
func (s *Service) SignOut(_ context.Context, sess Session) {
	s.logger.Info("user signed out", zap.String("user_id", sess.UserID), zap.String("session_id", sess.ID))
	s.publish(Event{Kind: SignedOut, Session: sess})
}

// OnSessionChange registers fn for every later session event. The returned
// func removes the subscription.
func (s *Service) OnSessionChange(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (s *Service) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Service) publish(ev Event) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func fieldList(verrs validator.ValidationErrors) string {
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		names = append(names, strings.ToLower(fe.Field()))
	}
	return strings.Join(names, ", ")
}
