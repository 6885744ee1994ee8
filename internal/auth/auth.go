// Package auth registers players and checks their credentials.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/bonk-chess-server/internal/obslog"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinUsernameLen = 4
	MinPasswordLen = 8
	DefaultCost    = 10
)

var (
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrUsernameTooShort   = errors.New("username too short")
	ErrUsernameChars      = errors.New("username has invalid characters")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrUsernameIsPassword = errors.New("username and password are the same")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnavailable        = errors.New("identity provider unavailable")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// User is a stored account.
type User struct {
	ID           string
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Identity is what a successful sign-in yields.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Store persists users. Lookups are case-insensitive; FindByUsername returns
// nil, nil when there is no such user.
type Store interface {
	Create(ctx context.Context, u User) error
	FindByUsername(ctx context.Context, username string) (*User, error)
}

// Authenticator checks a username/password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (Identity, error)
}

// ValidateRegistration applies the sign-up rules in order and returns the first
// failure.
func ValidateRegistration(username, password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len(username) < MinUsernameLen {
		return ErrUsernameTooShort
	}
	if !usernamePattern.MatchString(username) {
		return ErrUsernameChars
	}
	if len(password) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	if username == password {
		return ErrUsernameIsPassword
	}
	return nil
}

type Service struct {
	store Store
	cost  int
	now   func() time.Time
}

type Option func(*Service)

// WithCost sets the bcrypt cost; tests use bcrypt.MinCost.
func WithCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, cost: DefaultCost, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Register(ctx context.Context, username, password, confirm string) (Identity, error) {
	username = strings.TrimSpace(username)
	if err := ValidateRegistration(username, password, confirm); err != nil {
		return Identity{}, err
	}
	existing, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return Identity{}, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return Identity{}, ErrUsernameTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Identity{}, fmt.Errorf("hash password: %w", err)
	}
	u := User{ID: uuid.NewString(), Username: username, PasswordHash: hash, CreatedAt: s.now()}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return Identity{}, err
		}
		return Identity{}, fmt.Errorf("create user: %w", err)
	}
	obslog.L().Info("user_registered", zap.String("username", username), zap.String("user_id", u.ID))
	return Identity{UserID: u.ID, Username: u.Username}, nil
}

// Authenticate answers ErrInvalidCredentials for both an unknown user and a wrong
// password.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	u, err := s.store.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return Identity{}, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return Identity{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{UserID: u.ID, Username: u.Username}, nil
}
