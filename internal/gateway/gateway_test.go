package gateway

import (
	"context"
	"testing"

	"github.com/simpligility/trino-gateway/internal/backend"
	"github.com/simpligility/trino-gateway/internal/config"
)

func baseConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.RequestRouter.ExternalURL = "https://gw.example.com"
	cfg.Backends = []config.BackendConfig{
		{Name: "b1", ProxyTo: "http://backend1:8080", ExternalURL: "http://backend1:8080", RoutingGroup: "adhoc", Active: true},
	}
	return cfg
}

func TestNew_FailsFastWithoutExternalURL(t *testing.T) {
	cfg := baseConfig()
	cfg.RequestRouter.ExternalURL = ""
	_, err := New(cfg, nil, nil)
	if err == nil {
		t.Fatal("expected config error for missing external URL")
	}
}

func TestNew_FailsFastOnBackendMissingProxyTo(t *testing.T) {
	cfg := baseConfig()
	cfg.Backends = []config.BackendConfig{{Name: "bad", RoutingGroup: "adhoc", Active: true}}
	_, err := New(cfg, nil, nil)
	if err == nil {
		t.Fatal("expected config error for backend missing proxyTo")
	}
}

func TestNew_BuildsCoreWithDefaultInMemoryHistory(t *testing.T) {
	core, err := New(baseConfig(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if core.History == nil {
		t.Fatal("expected default in-memory history sink to be set")
	}
	if core.Proxy == nil || core.Routing == nil || core.Backends == nil || core.Rules == nil || core.Selector == nil {
		t.Fatal("expected all Core components to be wired")
	}
}

func TestCore_ReadinessFailsWithNoRoutableBackend(t *testing.T) {
	cfg := baseConfig()
	core, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// No health probe has run, so the backend is not yet routable.
	if err := core.Readiness(context.Background()); err == nil {
		t.Fatal("expected readiness to fail before any health probe has marked a backend routable")
	}
}

func TestCore_ReadinessSucceedsWithRoutableBackend(t *testing.T) {
	core, err := New(baseConfig(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, ok := core.Backends.ByName("b1")
	if !ok {
		t.Fatal("expected backend b1 to be registered")
	}
	b.SetHealthSnapshot(&backend.HealthSnapshot{Reachable: true})

	if err := core.Readiness(context.Background()); err != nil {
		t.Fatalf("expected readiness to succeed, got %v", err)
	}
}
