// Package routing implements the Routing Manager: picking a
// backend for a new query and maintaining the query-id -> backend binding
// used to pin follow-up requests to the coordinator that accepted them.
package routing

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/simpligility/trino-gateway/internal/backend"
	"github.com/simpligility/trino-gateway/internal/errors"
)

// DefaultRoutingGroup is the fallback group used when the selected group is
// unknown or empty.
const DefaultRoutingGroup = "adhoc"

const shardCountDefault = 32

type binding struct {
	backendName string
	lastAccess  time.Time
	evictAt     time.Time // zero until a terminal state schedules eviction
}

type shard struct {
	mu       sync.Mutex
	bindings map[string]*binding
}

// Manager is the sharded concurrent query-binding cache plus the
// pick/resolve logic. Each shard guards its own lock so a sweep or a write
// on one shard never blocks readers of another.
type Manager struct {
	backends *backend.Manager
	shards   []*shard
	ttl      time.Duration
	grace    time.Duration
}

// NewManager builds a Routing Manager backed by the given Backend State
// Manager. ttl is the binding sweep TTL; grace
// is the terminal-state eviction grace window.
func NewManager(backends *backend.Manager, ttl, grace time.Duration, shardCount int) *Manager {
	if shardCount <= 0 {
		shardCount = shardCountDefault
	}
	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = &shard{bindings: make(map[string]*binding)}
	}
	return &Manager{backends: backends, shards: shards, ttl: ttl, grace: grace}
}

func (m *Manager) shardFor(queryID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(queryID))
	return m.shards[h.Sum32()%uint32(len(m.shards))]
}

// Pick chooses one routable backend for a new query in the given routing
// group. An empty or unknown group falls back to
// DefaultRoutingGroup; if that is also empty, returns NoBackendAvailable.
func (m *Manager) Pick(group string) (*backend.Backend, error) {
	if group != "" {
		if list := m.backends.ListByGroup(group); len(list) > 0 {
			return list[0], nil
		}
	}
	list := m.backends.ListByGroup(DefaultRoutingGroup)
	if len(list) == 0 {
		return nil, errors.NewNoBackendAvailable(group)
	}
	return list[0], nil
}

// Bind records that queryID was accepted by backendName.
// Idempotent for identical mappings; a conflicting rebind is a no-op that
// keeps the existing binding (a conflicting rebind implies a bug elsewhere).
func (m *Manager) Bind(queryID, backendName string) {
	s := m.shardFor(queryID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.bindings[queryID]; ok {
		if existing.backendName != backendName {
			return // conflicting rebind: keep existing; not reported or logged
		}
		existing.lastAccess = time.Now()
		return
	}
	s.bindings[queryID] = &binding{backendName: backendName, lastAccess: time.Now()}
}

// Resolve looks up the backend bound to queryID.
// A hit is returned regardless of the backend's current health — the
// gateway still attempts the forward so the client observes the true Trino
// error if the coordinator is down.
func (m *Manager) Resolve(queryID string) (*backend.Backend, error) {
	s := m.shardFor(queryID)
	s.mu.Lock()
	b, ok := s.bindings[queryID]
	if ok {
		b.lastAccess = time.Now()
	}
	s.mu.Unlock()

	if !ok {
		return nil, errors.NewUnknownQuery(queryID)
	}
	backendObj, found := m.backends.ByName(b.backendName)
	if !found {
		return nil, errors.NewUnknownQuery(queryID)
	}
	return backendObj, nil
}

// ScheduleTerminalEviction marks a binding for removal after the grace
// window, once a terminal-state response (no nextUri) has been observed.
func (m *Manager) ScheduleTerminalEviction(queryID string) {
	s := m.shardFor(queryID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bindings[queryID]; ok {
		b.evictAt = time.Now().Add(m.grace)
	}
}

// Evict removes a binding unconditionally (admin / test use).
func (m *Manager) Evict(queryID string) {
	s := m.shardFor(queryID)
	s.mu.Lock()
	delete(s.bindings, queryID)
	s.mu.Unlock()
}

// Sweep scans every shard, removing bindings whose TTL has elapsed since
// last access or whose scheduled terminal-eviction time has passed. Only one
// shard lock is held at a time.
func (m *Manager) Sweep(now time.Time) {
	for _, s := range m.shards {
		s.mu.Lock()
		for id, b := range s.bindings {
			if !b.evictAt.IsZero() && now.After(b.evictAt) {
				delete(s.bindings, id)
				continue
			}
			if now.Sub(b.lastAccess) > m.ttl {
				delete(s.bindings, id)
			}
		}
		s.mu.Unlock()
	}
}

// Run starts the background sweeper, firing every minute
// until stop is closed.
func (m *Manager) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case t := <-ticker.C:
			m.Sweep(t)
		}
	}
}
