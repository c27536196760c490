// Package session provides the session-scoped variant of the engine: every UI
// session owns an isolated pagination service that expires when idle.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chart-pager/internal/logging"
	"chart-pager/internal/observability"
	"chart-pager/internal/pagination"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// DefaultIdleTTL is used when Config.IdleTTL is zero.
const DefaultIdleTTL = 30 * time.Minute

// Resolver picks the service that serves a request.
type Resolver func(r *http.Request) (*pagination.Service, error)

// Static always resolves to svc.
func Static(svc *pagination.Service) Resolver {
	return func(*http.Request) (*pagination.Service, error) { return svc, nil }
}

// Lease resolves the service a long-lived connection reads. The session
// cannot expire until release is called.
type Lease func(r *http.Request) (svc *pagination.Service, release func(), err error)

// StaticLease always leases svc. Its release is a no-op.
func StaticLease(svc *pagination.Service) Lease {
	return func(*http.Request) (*pagination.Service, func(), error) { return svc, func() {}, nil }
}

// Config configures a Manager.
type Config struct {
	IdleTTL        time.Duration
	SweepInterval  time.Duration
	ChunkThreshold int
	Logger         *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type entry struct {
	svc      *pagination.Service
	lastSeen time.Time
	leases   int
}

// Manager owns per-session services.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry

	ttl       time.Duration
	sweep     time.Duration
	threshold int
	now       func() time.Time
	logger    *zap.Logger
}

// NewManager creates an empty manager.
func NewManager(cfg Config) *Manager {
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	sweep := cfg.SweepInterval
	if sweep <= 0 {
		sweep = ttl / 2
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Manager{
		sessions:  make(map[string]*entry),
		ttl:       ttl,
		sweep:     sweep,
		threshold: cfg.ChunkThreshold,
		now:       now,
		logger:    logging.OrNop(cfg.Logger),
	}
}

// Create starts a new session and returns its id.
func (m *Manager) Create() string {
	id := uuid.NewString()

	m.mu.Lock()
	m.sessions[id] = &entry{
		svc:      pagination.New(pagination.Config{ChunkThreshold: m.threshold, Logger: m.logger}),
		lastSeen: m.now(),
	}
	n := len(m.sessions)
	m.mu.Unlock()

	observability.SetActiveSessions(n)
	m.logger.Debug("session created", zap.String("session_id", id))
	return id
}

// Get returns the session's service and refreshes its idle timer.
func (m *Manager) Get(id string) (*pagination.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastSeen = m.now()
	return e.svc, nil
}

// Acquire returns the session's service and pins the session until release
// is called. Sweep never expires a pinned session; release restarts its idle
// timer.
func (m *Manager) Acquire(id string) (*pagination.Service, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	e.leases++
	e.lastSeen = m.now()

	var once sync.Once
	release := func() {
		once.Do(func() {
			m.mu.Lock()
			e.leases--
			e.lastSeen = m.now()
			m.mu.Unlock()
		})
	}
	return e.svc, release, nil
}

// Close ends a session.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	observability.SetActiveSessions(n)
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops unpinned sessions idle for longer than the TTL and returns how
// many were removed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	removed := 0
	for id, e := range m.sessions {
		if e.leases == 0 && now.Sub(e.lastSeen) > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	observability.SetActiveSessions(n)
	if removed > 0 {
		m.logger.Info("expired idle sessions", zap.Int("removed", removed), zap.Int("active", n))
	}
	return removed
}

// Run sweeps periodically until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Sweep(m.now())
		}
	}
}

// Resolver resolves the session named by the request path value param.
func (m *Manager) Resolver(param string) Resolver {
	return func(r *http.Request) (*pagination.Service, error) {
		return m.Get(r.PathValue(param))
	}
}

// Lease leases the session named by the request path value param.
func (m *Manager) Lease(param string) Lease {
	return func(r *http.Request) (*pagination.Service, func(), error) {
		return m.Acquire(r.PathValue(param))
	}
}
