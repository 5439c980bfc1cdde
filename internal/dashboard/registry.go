package dashboard

import (
	"context"
	"sync"
	"time"

	"asset-dashboard/internal/auth"
	"asset-dashboard/internal/collection"
	"asset-dashboard/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StoreFactory returns the asset store a session's dashboard talks to
type StoreFactory func(s *auth.Session) store.AssetStore

// DefaultIdleTimeout is how long a dashboard nobody asks for stays mounted
const DefaultIdleTimeout = 30 * time.Minute

type mounted struct {
	dash     *Dashboard
	token    string
	lastSeen time.Time
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithIdleTimeout sets how long an unused dashboard stays mounted
func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.idle = d
		}
	}
}

// WithClock replaces time.Now for idle tracking
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// Registry tracks the dashboards mounted for signed-in browser sessions.
// Each access token owns at most one dashboard, and dashboards idle longer
// than the idle timeout are unmounted.
type Registry struct {
	stores   StoreFactory
	recorder collection.Recorder
	log      *zap.Logger
	idle     time.Duration
	now      func() time.Time

	mu     sync.Mutex
	mounts map[string]mounted
}

// NewRegistry creates an empty registry. recorder may be nil.
func NewRegistry(stores StoreFactory, recorder collection.Recorder, log *zap.Logger, opts ...RegistryOption) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{
		stores:   stores,
		recorder: recorder,
		log:      log,
		idle:     DefaultIdleTimeout,
		now:      time.Now,
		mounts:   map[string]mounted{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) build(s *auth.Session) *Dashboard {
	opts := []collection.Option{collection.WithLogger(r.log)}
	if r.recorder != nil {
		opts = append(opts, collection.WithRecorder(r.recorder))
	}
	return New(collection.NewModel(r.stores(s), opts...), r.log)
}

// Mount creates a dashboard in its default state for s and runs the initial
// load. A failed load is recorded on the dashboard, not returned.
// An earlier dashboard of the same token is unmounted, and so is every
// dashboard past its idle timeout.
func (r *Registry) Mount(ctx context.Context, s *auth.Session) (string, *Dashboard) {
	d := r.build(s)
	key := uuid.NewString()
	now := r.now()

	r.mu.Lock()
	var evicted []mounted
	for k, m := range r.mounts {
		if m.token == s.AccessToken || now.Sub(m.lastSeen) > r.idle {
			evicted = append(evicted, m)
			delete(r.mounts, k)
		}
	}
	r.mounts[key] = mounted{dash: d, token: s.AccessToken, lastSeen: now}
	r.mu.Unlock()

	for _, m := range evicted {
		m.dash.model.Close()
	}
	r.log.Debug("dashboard mounted",
		zap.String("key", key),
		zap.String("user", s.Email),
		zap.Int("evicted", len(evicted)))

	_ = d.model.Load(ctx)
	return key, d
}

// Temporary creates a dashboard for s that the registry does not track.
// The returned func discards it.
func (r *Registry) Temporary(ctx context.Context, s *auth.Session) (*Dashboard, func()) {
	d := r.build(s)
	_ = d.model.Load(ctx)
	return d, d.model.Close
}

// Get returns the dashboard mounted under key, provided it belongs to s and
// has not gone idle, and marks it as used.
func (r *Registry) Get(key string, s *auth.Session) (*Dashboard, bool) {
	now := r.now()
	r.mu.Lock()
	m, ok := r.mounts[key]
	if !ok || s == nil || m.token != s.AccessToken {
		r.mu.Unlock()
		return nil, false
	}
	if now.Sub(m.lastSeen) > r.idle {
		delete(r.mounts, key)
		r.mu.Unlock()
		m.dash.model.Close()
		r.log.Debug("idle dashboard unmounted", zap.String("key", key))
		return nil, false
	}
	m.lastSeen = now
	r.mounts[key] = m
	r.mu.Unlock()
	return m.dash, true
}

// Unmount discards the dashboard. Loads still in flight are dropped.
func (r *Registry) Unmount(key string) {
	r.mu.Lock()
	m, ok := r.mounts[key]
	delete(r.mounts, key)
	r.mu.Unlock()
	if ok {
		m.dash.model.Close()
		r.log.Debug("dashboard unmounted", zap.String("key", key))
	}
}

// Len is the number of mounted dashboards
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mounts)
}

// Watch unmounts every dashboard of a session when the provider reports it
// signed out. The returned func stops watching.
func (r *Registry) Watch(p auth.Provider) func() {
	return p.OnSessionChange(func(ev auth.Event) {
		if ev.Kind != auth.SignedOut || ev.Session == nil {
			return
		}
		r.mu.Lock()
		var keys []string
		for k, m := range r.mounts {
			if m.token == ev.Session.AccessToken {
				keys = append(keys, k)
			}
		}
		r.mu.Unlock()
		for _, k := range keys {
			r.Unmount(k)
		}
	})
}

// UnmountAll discards every dashboard, used on shutdown
func (r *Registry) UnmountAll() {
	r.mu.Lock()
	keys := make([]string, 0, len(r.mounts))
	for k := range r.mounts {
		keys = append(keys, k)
	}
	r.mu.Unlock()
	for _, k := range keys {
		r.Unmount(k)
	}
}
