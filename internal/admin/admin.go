// Package admin implements the administrative HTTP interface: backend CRUD
// and rules-engine reload, served on a listener separate from
// client-facing Trino traffic.
package admin

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/simpligility/trino-gateway/internal/auth"
	"github.com/simpligility/trino-gateway/internal/backend"
	"github.com/simpligility/trino-gateway/internal/config"
	gwerrors "github.com/simpligility/trino-gateway/internal/errors"
)

// ReloadableRules is the subset of the gateway Core the admin API needs to
// trigger a rules-engine reload, kept narrow so this package does not
// import internal/gateway (avoiding a dependency cycle).
type ReloadableRules interface {
	ReloadRules() error
}

// Handler serves the admin API.
type Handler struct {
	Backends *backend.Manager
	Rules    ReloadableRules
	Auth     auth.Authenticator
	mux      *http.ServeMux
}

// NewHandler builds the admin mux: GET/PUT/DELETE /admin/backends[/{name}],
// POST /admin/rules/reload. authenticator may be nil, in which case the
// admin API is unauthenticated (suitable for a trusted internal network).
func NewHandler(backends *backend.Manager, rulesOwner ReloadableRules, authenticator auth.Authenticator) *Handler {
	h := &Handler{Backends: backends, Rules: rulesOwner, Auth: authenticator}
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/backends", h.handleBackendsCollection)
	mux.HandleFunc("/admin/backends/", h.handleBackendItem)
	mux.HandleFunc("/admin/rules/reload", h.handleRulesReload)
	h.mux = mux
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Auth != nil {
		if err := h.authenticate(r); err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
			return
		}
	}
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) authenticate(r *http.Request) error {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return gwerrors.NewAuthFailed("missing Bearer prefix")
	}
	_, err := h.Auth.ValidateToken(r.Context(), token)
	return err
}

func (h *Handler) handleBackendsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, backendViews(h.Backends.All()))
}

func (h *Handler) handleBackendItem(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Path[len("/admin/backends/"):]
	if name == "" {
		http.Error(w, "backend name required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var c config.BackendConfig
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, "malformed backend definition", http.StatusBadRequest)
			return
		}
		c.Name = name
		h.Backends.Upsert(c)
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		h.Backends.Remove(name)
		w.WriteHeader(http.StatusNoContent)

	case http.MethodGet:
		b, ok := h.Backends.ByName(name)
		if !ok {
			http.Error(w, "backend not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, backendView(b))

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleRulesReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.Rules.ReloadRules(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type backendJSON struct {
	Name         string `json:"name"`
	ProxyTo      string `json:"proxyTo"`
	ExternalURL  string `json:"externalUrl"`
	RoutingGroup string `json:"routingGroup"`
	Active       bool   `json:"active"`
	Reachable    bool   `json:"reachable"`
	QueueDepth   int    `json:"queueDepth"`
}

func backendView(b *backend.Backend) backendJSON {
	health := b.Health()
	return backendJSON{
		Name: b.Name, ProxyTo: b.ProxyTo, ExternalURL: b.ExternalURL,
		RoutingGroup: b.RoutingGroup, Active: b.Active,
		Reachable: health.Reachable, QueueDepth: health.QueueDepth,
	}
}

func backendViews(bs []*backend.Backend) []backendJSON {
	out := make([]backendJSON, len(bs))
	for i, b := range bs {
		out[i] = backendView(b)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
