package routing

import (
	"testing"
	"time"

	"github.com/simpligility/trino-gateway/internal/backend"
	"github.com/simpligility/trino-gateway/internal/config"
)

func testBackends(t *testing.T, cfgs []config.BackendConfig) *backend.Manager {
	t.Helper()
	m := backend.NewManager(cfgs, config.MonitorConfig{ProbeIntervalSeconds: 5, ProbeTimeoutMs: 1000})
	for _, c := range cfgs {
		b, ok := m.ByName(c.Name)
		if !ok {
			t.Fatalf("backend %q not registered", c.Name)
		}
		markRoutable(b)
	}
	return m
}

// markRoutable forces a backend's health snapshot to reachable without
// running the real HTTP probe loop, for deterministic unit tests.
func markRoutable(b *backend.Backend) {
	b.Active = true
	probe := &backend.HealthSnapshot{Reachable: true, CheckedAt: time.Now()}
	b.SetHealthSnapshot(probe)
}

func TestManager_PickReturnsRoutableBackendInGroup(t *testing.T) {
	backends := testBackends(t, []config.BackendConfig{
		{Name: "b1", ProxyTo: "http://b1", RoutingGroup: "adhoc", Active: true},
	})
	rt := NewManager(backends, time.Hour, 15*time.Second, 4)

	b, err := rt.Pick("adhoc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Name != "b1" {
		t.Fatalf("expected b1, got %s", b.Name)
	}
}

func TestManager_PickFallsBackToAdhocWhenGroupUnknown(t *testing.T) {
	backends := testBackends(t, []config.BackendConfig{
		{Name: "b1", ProxyTo: "http://b1", RoutingGroup: DefaultRoutingGroup, Active: true},
	})
	rt := NewManager(backends, time.Hour, 15*time.Second, 4)

	b, err := rt.Pick("nonexistent-group")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Name != "b1" {
		t.Fatalf("expected fallback to b1, got %s", b.Name)
	}
}

func TestManager_PickFailsWhenNoBackendAnywhere(t *testing.T) {
	backends := backend.NewManager(nil, config.MonitorConfig{ProbeIntervalSeconds: 5, ProbeTimeoutMs: 1000})
	rt := NewManager(backends, time.Hour, 15*time.Second, 4)

	_, err := rt.Pick("adhoc")
	if err == nil {
		t.Fatal("expected NoBackendAvailable error, got nil")
	}
}

func TestManager_BindAndResolvePinning(t *testing.T) {
	backends := testBackends(t, []config.BackendConfig{
		{Name: "b1", ProxyTo: "http://b1", RoutingGroup: "adhoc", Active: true},
		{Name: "b2", ProxyTo: "http://b2", RoutingGroup: "adhoc", Active: true},
	})
	rt := NewManager(backends, time.Hour, 15*time.Second, 4)

	rt.Bind("20240101_000000_00001_abcde", "b1")
	b, err := rt.Resolve("20240101_000000_00001_abcde")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Name != "b1" {
		t.Fatalf("expected pinned to b1, got %s", b.Name)
	}
}

func TestManager_ConflictingRebindKeepsOriginal(t *testing.T) {
	backends := testBackends(t, []config.BackendConfig{
		{Name: "b1", ProxyTo: "http://b1", RoutingGroup: "adhoc", Active: true},
		{Name: "b2", ProxyTo: "http://b2", RoutingGroup: "adhoc", Active: true},
	})
	rt := NewManager(backends, time.Hour, 15*time.Second, 4)

	rt.Bind("q1", "b1")
	rt.Bind("q1", "b2") // conflicting rebind, should be a no-op

	b, err := rt.Resolve("q1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Name != "b1" {
		t.Fatalf("expected binding to remain b1, got %s", b.Name)
	}
}

func TestManager_ResolveUnknownQueryFails(t *testing.T) {
	backends := backend.NewManager(nil, config.MonitorConfig{ProbeIntervalSeconds: 5, ProbeTimeoutMs: 1000})
	rt := NewManager(backends, time.Hour, 15*time.Second, 4)

	_, err := rt.Resolve("does-not-exist")
	if err == nil {
		t.Fatal("expected UnknownQuery error, got nil")
	}
}

func TestManager_SweepEvictsExpiredBindings(t *testing.T) {
	backends := testBackends(t, []config.BackendConfig{
		{Name: "b1", ProxyTo: "http://b1", RoutingGroup: "adhoc", Active: true},
	})
	rt := NewManager(backends, time.Millisecond, 15*time.Second, 4)

	rt.Bind("q1", "b1")
	rt.Sweep(time.Now().Add(time.Hour))

	if _, err := rt.Resolve("q1"); err == nil {
		t.Fatal("expected binding to be swept after TTL elapsed")
	}
}

func TestManager_TerminalEvictionHonorsGraceWindow(t *testing.T) {
	backends := testBackends(t, []config.BackendConfig{
		{Name: "b1", ProxyTo: "http://b1", RoutingGroup: "adhoc", Active: true},
	})
	rt := NewManager(backends, time.Hour, 15*time.Second, 4)

	rt.Bind("q1", "b1")
	rt.ScheduleTerminalEviction("q1")

	// Still within grace window.
	rt.Sweep(time.Now())
	if _, err := rt.Resolve("q1"); err != nil {
		t.Fatalf("expected binding to survive within grace window, got error: %v", err)
	}

	// Past grace window.
	rt.Sweep(time.Now().Add(20 * time.Second))
	if _, err := rt.Resolve("q1"); err == nil {
		t.Fatal("expected binding to be evicted after grace window elapsed")
	}
}
