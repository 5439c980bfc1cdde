// Package collection holds the in-memory asset cache behind one mounted
// dashboard and the pure views derived from it.
package collection

import (
	"context"
	"errors"
	"sync"

	"asset-dashboard/internal/models"
	"asset-dashboard/internal/store"

	"go.uber.org/zap"
)

// ErrClosed is returned when the dashboard owning the model has been unmounted
var ErrClosed = errors.New("asset collection is closed")

// Recorder receives load and mutation outcomes, typically for metrics
type Recorder interface {
	LoadFinished(err error)
	MutationFinished(op string, err error)
}

type nopRecorder struct{}

func (nopRecorder) LoadFinished(error)             {}
func (nopRecorder) MutationFinished(string, error) {}

// mutation is a confirmed local change kept while a load is in flight so the
// fetched rows cannot overwrite it
type mutation struct {
	update *models.Asset
	delete models.AssetID
}

func (m mutation) apply(assets []models.Asset) []models.Asset {
	if m.update != nil {
		return replace(assets, *m.update)
	}
	return remove(assets, m.delete)
}

// Model is the session-local cache of the remote assets table.
//
// The cache only changes on Load or on the Apply* calls, and those are made
// only after the remote store has confirmed the corresponding operation.
type Model struct {
	store    store.AssetStore
	log      *zap.Logger
	recorder Recorder

	mu      sync.Mutex
	assets  []models.Asset
	loaded  bool
	err     string
	closed  bool
	loading int
	journal []mutation
	subs    map[int]func()
	nextSub int
}

// Option configures a Model
type Option func(*Model)

func WithLogger(l *zap.Logger) Option {
	return func(m *Model) { m.log = l }
}

func WithRecorder(r Recorder) Option {
	return func(m *Model) { m.recorder = r }
}

// NewModel creates an empty collection backed by s
func NewModel(s store.AssetStore, opts ...Option) *Model {
	m := &Model{
		store:    s,
		log:      zap.NewNop(),
		recorder: nopRecorder{},
		assets:   []models.Asset{},
		subs:     map[int]func(){},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store is the remote table this model mirrors
func (m *Model) Store() store.AssetStore {
	return m.store
}

// Load replaces the collection with a fresh fetch. On failure the previous
// collection is kept and the error text is recorded. There is no retry.
func (m *Model) Load(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.loading == 0 {
		m.journal = nil
	}
	m.loading++
	m.mu.Unlock()

	fetched, err := m.store.FetchAll(ctx)
	m.recorder.LoadFinished(err)

	m.mu.Lock()
	m.loading--
	if m.closed {
		m.mu.Unlock()
		m.log.Debug("discarding asset load after close")
		return ErrClosed
	}
	if err != nil {
		m.err = err.Error()
		if m.loading == 0 {
			m.journal = nil
		}
		m.mu.Unlock()
		m.log.Warn("asset load failed", zap.Error(err))
		m.notify()
		return err
	}

	fresh := make([]models.Asset, len(fetched))
	copy(fresh, fetched)
	for _, mu := range m.journal {
		fresh = mu.apply(fresh)
	}
	replayed := len(m.journal)
	if m.loading == 0 {
		m.journal = nil
	}
	m.assets = fresh
	m.err = ""
	m.loaded = true
	m.mu.Unlock()

	m.log.Info("assets loaded", zap.Int("count", len(fresh)), zap.Int("replayed", replayed))
	m.notify()
	return nil
}

// ApplyUpdate replaces the entry whose id matches updated. Absent ids are ignored.
func (m *Model) ApplyUpdate(updated models.Asset) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	row := updated.Clone()
	m.assets = replace(m.assets, row)
	if m.loading > 0 {
		m.journal = append(m.journal, mutation{update: &row})
	}
	m.mu.Unlock()
	m.notify()
}

// ApplyDelete removes the entry with id. Removing an absent id is a no-op.
func (m *Model) ApplyDelete(id models.AssetID) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.assets = remove(m.assets, id)
	if m.loading > 0 {
		m.journal = append(m.journal, mutation{delete: id})
	}
	m.mu.Unlock()
	m.notify()
}

// Assets returns a snapshot of the collection in store order
func (m *Model) Assets() []models.Asset {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Asset, len(m.assets))
	copy(out, m.assets)
	return out
}

// Get finds one asset by id
func (m *Model) Get(id models.AssetID) (models.Asset, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assets {
		if a.ID == id {
			return a.Clone(), true
		}
	}
	return models.Asset{}, false
}

// Filtered applies Filter to the current snapshot
func (m *Model) Filtered(query string) []models.Asset {
	return Filter(m.Assets(), query)
}

// Err is the message of the last failed load, empty after a successful one
func (m *Model) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Loaded reports whether at least one load has succeeded
func (m *Model) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Loading reports whether a fetch is outstanding
func (m *Model) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading > 0
}

// Subscribe registers fn to run after every change to the collection or its
// error state. The returned func removes the subscription.
func (m *Model) Subscribe(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Close discards the collection. Loads that finish afterwards are dropped.
func (m *Model) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.assets = nil
	m.journal = nil
	m.subs = map[int]func(){}
}

// Closed reports whether the owning dashboard has been unmounted
func (m *Model) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Recorder returns the outcome sink shared with the editing flow
func (m *Model) Recorder() Recorder {
	return m.recorder
}

func (m *Model) notify() {
	m.mu.Lock()
	fns := make([]func(), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func replace(assets []models.Asset, row models.Asset) []models.Asset {
	out := make([]models.Asset, len(assets))
	copy(out, assets)
	for i := range out {
		if out[i].ID == row.ID {
			out[i] = row
			break
		}
	}
	return out
}

func remove(assets []models.Asset, id models.AssetID) []models.Asset {
	out := make([]models.Asset, 0, len(assets))
	for _, a := range assets {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}
