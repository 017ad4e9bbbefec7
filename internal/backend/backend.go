// Package backend implements the Backend State Manager: the
// authoritative in-memory list of configured Trino coordinators, their
// routing-group membership, and a periodically refreshed health snapshot.
package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/trinodb/trino-go-client/trino" // deep-probe driver

	"github.com/simpligility/trino-gateway/internal/config"
)

// HealthSnapshot is the atomically-replaceable probe result for one backend.
type HealthSnapshot struct {
	Reachable  bool
	QueueDepth int
	CheckedAt  time.Time
	Err        string
}

// Backend is one configured Trino coordinator.
type Backend struct {
	Name         string
	ExternalURL  string
	ProxyTo      string
	RoutingGroup string
	Active       bool
	DeepProbe    bool

	snapshot atomic.Pointer[HealthSnapshot]
}

// Routable reports whether this backend may currently receive new traffic:
// it must be active and its latest health snapshot must be reachable.
func (b *Backend) Routable() bool {
	snap := b.snapshot.Load()
	return b.Active && snap != nil && snap.Reachable
}

// Health returns the current health snapshot, or a zero-value unreachable
// snapshot if none has been taken yet.
func (b *Backend) Health() HealthSnapshot {
	if snap := b.snapshot.Load(); snap != nil {
		return *snap
	}
	return HealthSnapshot{}
}

// SetHealthSnapshot overrides the current health snapshot directly, bypassing
// the probe loop. Exported so callers outside this package (the routing
// manager's tests) can build a deterministically routable backend without
// running real HTTP probes.
func (b *Backend) SetHealthSnapshot(s *HealthSnapshot) {
	b.snapshot.Store(s)
}

// Manager holds the copy-on-write backend list and runs the
// periodic concurrent health-probe task.
type Manager struct {
	list       atomic.Pointer[[]*Backend]
	httpClient *http.Client
	probeEvery time.Duration
	probeDeadl time.Duration

	mu      sync.Mutex // serializes admin mutations (rare writers)
	stopped chan struct{}
}

// NewManager builds a Manager from the initial configured backend set.
func NewManager(cfgs []config.BackendConfig, cfg config.MonitorConfig) *Manager {
	backends := make([]*Backend, 0, len(cfgs))
	for _, c := range cfgs {
		backends = append(backends, &Backend{
			Name:         c.Name,
			ExternalURL:  c.ExternalURL,
			ProxyTo:      c.ProxyTo,
			RoutingGroup: c.RoutingGroup,
			Active:       c.Active,
			DeepProbe:    c.DeepProbe,
		})
	}
	m := &Manager{
		httpClient: &http.Client{Timeout: time.Duration(cfg.ProbeTimeoutMs) * time.Millisecond},
		probeEvery: time.Duration(cfg.ProbeIntervalSeconds) * time.Second,
		probeDeadl: time.Duration(cfg.ProbeTimeoutMs) * time.Millisecond,
		stopped:    make(chan struct{}),
	}
	m.list.Store(&backends)
	return m
}

// All returns every configured backend with its current snapshot, for admin
// UIs.
func (m *Manager) All() []*Backend {
	p := m.list.Load()
	if p == nil {
		return nil
	}
	out := make([]*Backend, len(*p))
	copy(out, *p)
	return out
}

// ListByGroup returns the routable backends of a group, ordered by ascending
// queue depth then name.
func (m *Manager) ListByGroup(group string) []*Backend {
	p := m.list.Load()
	if p == nil {
		return nil
	}
	var out []*Backend
	for _, b := range *p {
		if b.RoutingGroup == group && b.Routable() {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		hi, hj := out[i].Health(), out[j].Health()
		if hi.QueueDepth != hj.QueueDepth {
			return hi.QueueDepth < hj.QueueDepth
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ByName returns the backend with the given name, if configured.
func (m *Manager) ByName(name string) (*Backend, bool) {
	p := m.list.Load()
	if p == nil {
		return nil, false
	}
	for _, b := range *p {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

// Upsert adds or replaces a backend by name (admin API).
func (m *Manager) Upsert(c config.BackendConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.list.Load()
	cur := *p
	next := make([]*Backend, 0, len(cur)+1)
	replaced := false
	for _, b := range cur {
		if b.Name == c.Name {
			nb := &Backend{
				Name: c.Name, ExternalURL: c.ExternalURL, ProxyTo: c.ProxyTo,
				RoutingGroup: c.RoutingGroup, Active: c.Active, DeepProbe: c.DeepProbe,
			}
			nb.snapshot.Store(b.snapshot.Load())
			next = append(next, nb)
			replaced = true
			continue
		}
		next = append(next, b)
	}
	if !replaced {
		next = append(next, &Backend{
			Name: c.Name, ExternalURL: c.ExternalURL, ProxyTo: c.ProxyTo,
			RoutingGroup: c.RoutingGroup, Active: c.Active, DeepProbe: c.DeepProbe,
		})
	}
	m.list.Store(&next)
}

// Remove deletes a backend by name (admin API).
func (m *Manager) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.list.Load()
	cur := *p
	next := make([]*Backend, 0, len(cur))
	for _, b := range cur {
		if b.Name != name {
			next = append(next, b)
		}
	}
	m.list.Store(&next)
}

// Run starts the periodic probe loop; it blocks until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.probeEvery)
	defer ticker.Stop()
	m.probeAll(ctx)
	for {
		select {
		case <-ctx.Done():
			close(m.stopped)
			return
		case <-ticker.C:
			m.probeAll(ctx)
		}
	}
}

// probeAll fires one concurrent probe task per backend; a probe's failure
// never blocks others.
func (m *Manager) probeAll(ctx context.Context) {
	backends := m.All()
	var wg sync.WaitGroup
	for _, b := range backends {
		wg.Add(1)
		go func(b *Backend) {
			defer wg.Done()
			m.probeOne(ctx, b)
		}(b)
	}
	wg.Wait()
}

func (m *Manager) probeOne(ctx context.Context, b *Backend) {
	deadline, cancel := context.WithTimeout(ctx, m.probeDeadl)
	defer cancel()

	snap := &HealthSnapshot{CheckedAt: time.Now()}
	queueDepth, reachable, err := m.httpProbe(deadline, b)
	snap.Reachable = reachable
	snap.QueueDepth = queueDepth
	if err != nil {
		snap.Err = err.Error()
	}

	if b.DeepProbe && reachable {
		if derr := m.deepProbe(deadline, b); derr != nil {
			snap.Reachable = false
			snap.Err = derr.Error()
		}
	}

	b.snapshot.Store(snap)
}

type infoResponse struct {
	ActiveWorkers int `json:"activeWorkers"`
	QueuedQueries int `json:"queuedQueries"`
}

func (m *Manager) httpProbe(ctx context.Context, b *Backend) (queueDepth int, reachable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.ProxyTo+"/v1/info", nil)
	if err != nil {
		return 0, false, err
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, false, fmt.Errorf("backend: /v1/info returned %d", resp.StatusCode)
	}
	var info infoResponse
	_ = json.NewDecoder(resp.Body).Decode(&info)
	return info.QueuedQueries, true, nil
}

// deepProbe opens a connection via the Trino SQL driver and issues a
// liveness query, supplementing (never replacing) the required HTTP probe.
// Reuses the driver's own connection pooling; used strictly for liveness,
// never for query execution.
func (m *Manager) deepProbe(ctx context.Context, b *Backend) error {
	dsn := fmt.Sprintf("%s?catalog=system&schema=runtime", b.ProxyTo)
	db, err := sql.Open("trino", dsn)
	if err != nil {
		return fmt.Errorf("backend: deep probe dial %s: %w", b.Name, err)
	}
	defer db.Close()

	row := db.QueryRowContext(ctx, "SELECT 1")
	var one int
	if err := row.Scan(&one); err != nil {
		return fmt.Errorf("backend: deep probe query %s: %w", b.Name, err)
	}
	return nil
}
