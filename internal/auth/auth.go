// Package auth issues and resolves login session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alfredjeanlab/becmi/internal/idgen"
	"github.com/alfredjeanlab/becmi/internal/model"
	"github.com/alfredjeanlab/becmi/internal/store"
)

// DefaultTTL is how long a login session stays valid.
const DefaultTTL = 24 * time.Hour

var (
	// ErrInvalidCredentials is returned for an unknown user or wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthenticated is returned for a missing, unknown or expired token.
	ErrUnauthenticated = errors.New("authentication required")
)

// Store is the persistence the auth service needs.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	CreateAuthSession(ctx context.Context, s *model.AuthSession) error
	GetAuthSession(ctx context.Context, token string) (*model.AuthSession, error)
	DeleteAuthSession(ctx context.Context, token string) error
}

// Service logs users in and resolves their tokens.
type Service struct {
	store  Store
	hasher *Hasher
	ttl    time.Duration
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates an auth service. A non-positive ttl selects DefaultTTL.
func NewService(s Store, hasher *Hasher, ttl time.Duration) *Service {
	if hasher == nil {
		hasher = NewHasher(0)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: s, hasher: hasher, ttl: ttl, now: time.Now}
}

// Login verifies credentials and creates a new session.
func (s *Service) Login(ctx context.Context, username, password string) (*model.AuthSession, *model.User, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		// Spend the same bcrypt time as a real comparison.
		_ = s.hasher.Compare(s.dummy(), []byte(password))
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("looking up user: %w", err)
	}
	if err := s.hasher.Compare(u.PasswordHash, []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	token, err := idgen.SessionToken()
	if err != nil {
		return nil, nil, err
	}
	as := &model.AuthSession{
		Token:     token,
		UserID:    u.UserID,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.store.CreateAuthSession(ctx, as); err != nil {
		return nil, nil, err
	}
	return as, u, nil
}

// Authenticate resolves a token to its live session.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.AuthSession, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	as, err := s.store.GetAuthSession(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("resolving session: %w", err)
	}
	if as.Expired(s.now()) {
		return nil, ErrUnauthenticated
	}
	return as, nil
}

// Logout deletes the session for token. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteAuthSession(ctx, token)
}

// TTL returns the session lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash([]byte("becmi-no-such-user"))
	})
	return s.dummyHash
}
