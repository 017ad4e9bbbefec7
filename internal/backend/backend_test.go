package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/simpligility/trino-gateway/internal/config"
)

func monitorCfg() config.MonitorConfig {
	return config.MonitorConfig{ProbeIntervalSeconds: 60, ProbeTimeoutMs: 1000}
}

func TestBackend_RoutableRequiresActiveAndReachable(t *testing.T) {
	b := &Backend{Name: "b1", Active: true}
	if b.Routable() {
		t.Fatal("expected not routable before any snapshot exists")
	}
	b.SetHealthSnapshot(&HealthSnapshot{Reachable: true})
	if !b.Routable() {
		t.Fatal("expected routable when active and reachable")
	}
	b.Active = false
	if b.Routable() {
		t.Fatal("expected not routable when inactive, even if reachable")
	}
}

func TestManager_ListByGroupOrdersByQueueDepthThenName(t *testing.T) {
	m := NewManager([]config.BackendConfig{
		{Name: "b-busy", ProxyTo: "http://b-busy", RoutingGroup: "adhoc", Active: true},
		{Name: "a-idle", ProxyTo: "http://a-idle", RoutingGroup: "adhoc", Active: true},
		{Name: "c-idle", ProxyTo: "http://c-idle", RoutingGroup: "adhoc", Active: true},
	}, monitorCfg())

	busy, _ := m.ByName("b-busy")
	busy.SetHealthSnapshot(&HealthSnapshot{Reachable: true, QueueDepth: 10})
	a, _ := m.ByName("a-idle")
	a.SetHealthSnapshot(&HealthSnapshot{Reachable: true, QueueDepth: 0})
	c, _ := m.ByName("c-idle")
	c.SetHealthSnapshot(&HealthSnapshot{Reachable: true, QueueDepth: 0})

	list := m.ListByGroup("adhoc")
	if len(list) != 3 {
		t.Fatalf("expected 3 routable backends, got %d", len(list))
	}
	want := []string{"a-idle", "c-idle", "b-busy"}
	for i, name := range want {
		if list[i].Name != name {
			t.Fatalf("order[%d] = %s, want %s", i, list[i].Name, name)
		}
	}
}

func TestManager_ListByGroupExcludesUnroutable(t *testing.T) {
	m := NewManager([]config.BackendConfig{
		{Name: "healthy", ProxyTo: "http://healthy", RoutingGroup: "adhoc", Active: true},
		{Name: "down", ProxyTo: "http://down", RoutingGroup: "adhoc", Active: true},
		{Name: "inactive", ProxyTo: "http://inactive", RoutingGroup: "adhoc", Active: false},
	}, monitorCfg())

	h, _ := m.ByName("healthy")
	h.SetHealthSnapshot(&HealthSnapshot{Reachable: true})
	d, _ := m.ByName("down")
	d.SetHealthSnapshot(&HealthSnapshot{Reachable: false})
	inactive, _ := m.ByName("inactive")
	inactive.SetHealthSnapshot(&HealthSnapshot{Reachable: true})

	list := m.ListByGroup("adhoc")
	if len(list) != 1 || list[0].Name != "healthy" {
		t.Fatalf("expected only 'healthy' to be routable, got %v", list)
	}
}

func TestManager_UpsertAddsThenReplacesPreservingSnapshot(t *testing.T) {
	m := NewManager(nil, monitorCfg())
	m.Upsert(config.BackendConfig{Name: "b1", ProxyTo: "http://b1", RoutingGroup: "adhoc", Active: true})

	b, ok := m.ByName("b1")
	if !ok {
		t.Fatal("expected b1 to be present after upsert")
	}
	b.SetHealthSnapshot(&HealthSnapshot{Reachable: true, QueueDepth: 3})

	m.Upsert(config.BackendConfig{Name: "b1", ProxyTo: "http://b1-new", RoutingGroup: "etl", Active: true})
	b2, ok := m.ByName("b1")
	if !ok {
		t.Fatal("expected b1 to still be present after replace")
	}
	if b2.ProxyTo != "http://b1-new" || b2.RoutingGroup != "etl" {
		t.Fatalf("expected updated fields, got %+v", b2)
	}
	if b2.Health().QueueDepth != 3 {
		t.Fatalf("expected snapshot to survive replace, got %+v", b2.Health())
	}
}

func TestManager_RemoveDeletesBackend(t *testing.T) {
	m := NewManager([]config.BackendConfig{
		{Name: "b1", ProxyTo: "http://b1", RoutingGroup: "adhoc", Active: true},
	}, monitorCfg())
	m.Remove("b1")
	if _, ok := m.ByName("b1"); ok {
		t.Fatal("expected b1 to be removed")
	}
}

func TestManager_ProbeAllMarksReachableFromInfoEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(infoResponse{ActiveWorkers: 2, QueuedQueries: 5})
	}))
	defer srv.Close()

	m := NewManager([]config.BackendConfig{
		{Name: "b1", ProxyTo: srv.URL, RoutingGroup: "adhoc", Active: true},
	}, config.MonitorConfig{ProbeIntervalSeconds: 60, ProbeTimeoutMs: 2000})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	m.probeAll(ctx)

	b, _ := m.ByName("b1")
	h := b.Health()
	if !h.Reachable || h.QueueDepth != 5 {
		t.Fatalf("expected reachable with queueDepth=5, got %+v", h)
	}
}

func TestManager_ProbeAllMarksUnreachableOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewManager([]config.BackendConfig{
		{Name: "b1", ProxyTo: srv.URL, RoutingGroup: "adhoc", Active: true},
	}, config.MonitorConfig{ProbeIntervalSeconds: 60, ProbeTimeoutMs: 2000})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	m.probeAll(ctx)

	b, _ := m.ByName("b1")
	if b.Health().Reachable {
		t.Fatal("expected unreachable on non-200 /v1/info response")
	}
}
