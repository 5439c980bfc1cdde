// Package auth signs administrators in against the hosted session service
// (or a locally configured administrator) and restores their session on
// every request.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrInvalidCredentials is returned when the email/password pair is rejected
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrNoSession is returned when a request carries no usable session
	ErrNoSession = errors.New("no active session")
)

// Session is an authenticated administrator
type Session struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	Email        string
	ExpiresAt    time.Time
}

// Expired reports whether the access token is past its expiry
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// EventKind distinguishes session change notifications
type EventKind int

const (
	SignedIn EventKind = iota
	SignedOut
)

func (k EventKind) String() string {
	if k == SignedIn {
		return "signed_in"
	}
	return "signed_out"
}

// Event is delivered to OnSessionChange subscribers
type Event struct {
	Kind    EventKind
	Session *Session
}

// Provider is the session service the dashboard authenticates against
type Provider interface {
	// CurrentSession restores the session that owns accessToken
	CurrentSession(ctx context.Context, accessToken string) (*Session, error)
	OnSessionChange(fn func(Event)) (unsubscribe func())
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, s *Session) error
}

// notifier fans session events out to subscribers
type notifier struct {
	mu   sync.Mutex
	subs map[int]func(Event)
	next int
}

func (n *notifier) OnSessionChange(fn func(Event)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = map[int]func(Event){}
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

func (n *notifier) emit(ev Event) {
	n.mu.Lock()
	fns := make([]func(Event), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
