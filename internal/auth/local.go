package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Local authenticates a single configured administrator and issues its own
// tokens. Signed-out tokens are remembered until they expire.
type Local struct {
	notifier

	email string
	hash  []byte
	jwt   *JWTManager
	now   func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewLocal creates the provider. passwordHash is a bcrypt hash.
func NewLocal(email, passwordHash string, jwt *JWTManager) (*Local, error) {
	if email == "" || passwordHash == "" {
		return nil, fmt.Errorf("local auth needs an admin email and password hash")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}
	if err := jwt.ValidateConfig(); err != nil {
		return nil, err
	}
	return &Local{
		email:   strings.ToLower(strings.TrimSpace(email)),
		hash:    []byte(passwordHash),
		jwt:     jwt,
		now:     time.Now,
		revoked: map[string]time.Time{},
	}, nil
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (l *Local) SignInWithPassword(_ context.Context, email, password string) (*Session, error) {
	if strings.ToLower(strings.TrimSpace(email)) != l.email {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(l.hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, claims, err := l.jwt.GenerateToken("admin", l.email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s := claims.session(token)
	l.emit(Event{Kind: SignedIn, Session: s})
	return s, nil
}

func (l *Local) SignOut(_ context.Context, s *Session) error {
	if s == nil {
		return ErrNoSession
	}
	claims, err := l.jwt.ValidateToken(s.AccessToken)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	l.mu.Lock()
	now := l.now()
	for id, exp := range l.revoked {
		if now.After(exp) {
			delete(l.revoked, id)
		}
	}
	l.revoked[claims.ID] = claims.ExpiresAt.Time
	l.mu.Unlock()

	l.emit(Event{Kind: SignedOut, Session: s})
	return nil
}

func (l *Local) CurrentSession(_ context.Context, accessToken string) (*Session, error) {
	if err := validateTokenFormat(accessToken); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	claims, err := l.jwt.ValidateToken(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	l.mu.Lock()
	_, gone := l.revoked[claims.ID]
	l.mu.Unlock()
	if gone {
		return nil, fmt.Errorf("%w: token was signed out", ErrNoSession)
	}
	return claims.session(accessToken), nil
}
