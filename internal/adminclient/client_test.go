package adminclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_ListBackends(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/backends" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]Backend{{Name: "b1", RoutingGroup: "adhoc", Active: true}})
	}))
	defer srv.Close()

	c := New(srv.URL)
	backends, err := c.ListBackends(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(backends) != 1 || backends[0].Name != "b1" {
		t.Fatalf("unexpected backends: %+v", backends)
	}
}

func TestClient_UpsertBackendSendsExpectedBody(t *testing.T) {
	var gotBody UpsertBackendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/admin/backends/new-backend" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.UpsertBackend(context.Background(), "new-backend", UpsertBackendRequest{
		ProxyTo: "http://b:8080", RoutingGroup: "etl", Active: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotBody.ProxyTo != "http://b:8080" || gotBody.RoutingGroup != "etl" {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
}

func TestClient_DeleteBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Fatalf("expected DELETE, got %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.DeleteBackend(context.Background(), "b1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_ReloadRules(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/admin/rules/reload" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.ReloadRules(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_ErrorResponseSurfacesGatewayMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "backend not found"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetBackend(context.Background(), "missing")
	if err == nil || err.Error() != "backend not found" {
		t.Fatalf("expected 'backend not found' error, got %v", err)
	}
}

func TestClient_NoEndpointConfiguredFailsFast(t *testing.T) {
	c := New("")
	_, err := c.ListBackends(context.Background())
	if err == nil {
		t.Fatal("expected error when no endpoint is configured")
	}
}
