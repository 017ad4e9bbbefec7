// Package proxy implements the Proxy Handler: the single
// http.Handler that classifies each exchange, resolves a backend, rewrites
// and forwards the request, rewrites and streams back the response, and
// captures query-id bindings along the way.
package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/simpligility/trino-gateway/internal/attributes"
	gwbackend "github.com/simpligility/trino-gateway/internal/backend"
	gwerrors "github.com/simpligility/trino-gateway/internal/errors"
	"github.com/simpligility/trino-gateway/internal/observability"
	"github.com/simpligility/trino-gateway/internal/routing"
	"github.com/simpligility/trino-gateway/internal/selector"
)

// QueryHistorySink is the append-only query-history collaborator: the core
// calls it asynchronously for every new statement and ignores failures.
type QueryHistorySink interface {
	Record(ctx context.Context, queryID, user, source, sql, backendName string, submittedAt time.Time) error
}

const captureLimit = 256 * 1024

// RoutingGroupHeader is stripped from every forwarded request.
const RoutingGroupHeader = "X-Trino-Routing-Group"

// Handler is the gateway's single http.Handler.
type Handler struct {
	Extract    func(*http.Request) *attributes.View
	Selector   selector.Selector
	Backends   *gwbackend.Manager
	Routing    *routing.Manager
	Logger     observability.RouteLogger
	History    QueryHistorySink
	External   string // this gateway's own external base URL, e.g. https://gw.example.com
	HTTPClient *http.Client
}

// NewHandler wires the components into a Handler with sane defaults.
func NewHandler(extract func(*http.Request) *attributes.View, sel selector.Selector, backends *gwbackend.Manager, rt *routing.Manager, logger observability.RouteLogger, history QueryHistorySink, external string) *Handler {
	return &Handler{
		Extract:  extract,
		Selector: sel,
		Backends: backends,
		Routing:  rt,
		Logger:   logger,
		History:  history,
		External: external,
		HTTPClient: &http.Client{
			Timeout: 0, // per-request deadline is set via context below
		},
	}
}

type requestIDKey struct{}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	kind, queryID := classify(r)
	ctx := context.WithValue(r.Context(), requestIDKey{}, observability.NewRequestID())
	r = r.WithContext(ctx)

	b, ruleFired, view, err := h.resolveBackend(r, kind, queryID)
	if err != nil {
		h.writeError(w, err)
		outcome := ""
		switch err.(type) {
		case *gwerrors.ErrNoBackendAvailable:
			outcome = "no_backend"
		case *gwerrors.ErrUnknownQuery:
			outcome = "unknown_query"
		}
		e := entryFor(ctx, view, ruleFired, "", outcome, err, time.Since(start))
		e.QueryID = queryID
		h.logExchange(r.Context(), e)
		return
	}

	h.forward(w, r, b, kind, queryID, view, ruleFired, start)
}

func (h *Handler) resolveBackend(r *http.Request, kind exchangeKind, queryID string) (*gwbackend.Backend, string, *attributes.View, error) {
	switch kind {
	case kindNewStatement:
		view := h.Extract(r)
		group, ruleFired := h.Selector.Select(view, r.Header.Get(RoutingGroupHeader))
		g := ""
		if group != nil {
			g = *group
		}
		b, err := h.Routing.Pick(g)
		return b, ruleFired, view, err

	case kindFollowUp:
		b, err := h.Routing.Resolve(queryID)
		return b, "", nil, err

	case kindUIInfo:
		b, err := h.Routing.Pick(routing.DefaultRoutingGroup)
		return b, "", nil, err

	default:
		b, err := h.Routing.Pick(routing.DefaultRoutingGroup)
		return b, "", nil, err
	}
}

func (h *Handler) forward(w http.ResponseWriter, r *http.Request, b *gwbackend.Backend, kind exchangeKind, queryID string, view *attributes.View, ruleFired string, start time.Time) {
	outboundURL, err := buildOutboundURL(b.ProxyTo, r.URL)
	if err != nil {
		h.writeError(w, fmt.Errorf("backend: malformed proxy target: %w", err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// The 60s deadline covers only the wait for response headers; the body
	// then streams for as long as the client keeps reading.
	headerCtx, headerCancel := context.WithTimeout(ctx, 60*time.Second)
	defer headerCancel()
	stopHeaderDeadline := context.AfterFunc(headerCtx, cancel)

	outReq, err := http.NewRequestWithContext(ctx, r.Method, outboundURL.String(), r.Body)
	if err != nil {
		h.writeError(w, fmt.Errorf("backend: failed to build outbound request: %w", err))
		return
	}
	copyForwardHeaders(outReq, r, b.ExternalURL)

	resp, err := h.HTTPClient.Do(outReq)
	if err != nil {
		h.writeBackendError(w, b.Name, headerCtx)
		e := entryFor(ctx, view, ruleFired, b.Name, "backend_error", err, time.Since(start))
		e.QueryID = queryID
		e.RoutingGroup = b.RoutingGroup
		h.logExchange(r.Context(), e)
		return
	}
	stopHeaderDeadline()
	defer resp.Body.Close()

	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	h.streamAndCapture(r.Context(), w, resp, b, kind, queryID, view, ruleFired, start)
}

func (h *Handler) streamAndCapture(ctx context.Context, w http.ResponseWriter, resp *http.Response, b *gwbackend.Backend, kind exchangeKind, queryID string, view *attributes.View, ruleFired string, start time.Time) {
	body := rewriteURIHost(resp.Body, b.ExternalURL, h.External)

	isJSON := strings.Contains(resp.Header.Get("Content-Type"), "json")
	var cap *capWriter
	var dst io.Writer = w
	if isJSON && (kind == kindNewStatement || kind == kindFollowUp) {
		cap = newCapWriter(captureLimit)
		dst = io.MultiWriter(w, cap)
	}

	_, copyErr := io.Copy(dst, body)

	if cap == nil || resp.StatusCode != http.StatusOK {
		e := entryFor(ctx, view, ruleFired, b.Name, "forwarded", copyErr, time.Since(start))
		e.QueryID = queryID
		e.RoutingGroup = b.RoutingGroup
		h.logExchange(ctx, e)
		return
	}

	c := parseCaptured(cap.buf)
	effectiveID := queryID
	if kind == kindNewStatement && c.queryID != "" {
		effectiveID = c.queryID
		h.Routing.Bind(c.queryID, b.Name)
		if h.History != nil {
			go func() {
				sql := ""
				user := ""
				source := ""
				if view != nil {
					sql = view.RawSQL
					user = view.User
					source = view.Source
				}
				if err := h.History.Record(context.Background(), c.queryID, user, source, sql, b.Name, start); err != nil {
					h.logExchange(context.Background(), observability.RouteLogEntry{QueryID: c.queryID, Backend: b.Name, Outcome: "history_error", Error: err.Error()})
				}
			}()
		}
	}
	if c.isTerminal() && effectiveID != "" {
		h.Routing.ScheduleTerminalEviction(effectiveID)
	}

	e := entryFor(ctx, view, ruleFired, b.Name, "forwarded", copyErr, time.Since(start))
	e.QueryID = effectiveID
	e.RoutingGroup = b.RoutingGroup
	h.logExchange(ctx, e)
}

func buildOutboundURL(proxyTo string, reqURL *url.URL) (*url.URL, error) {
	base, err := url.Parse(proxyTo)
	if err != nil {
		return nil, err
	}
	out := *base
	out.Path = singleJoiningSlash(base.Path, reqURL.Path)
	out.RawQuery = reqURL.RawQuery
	return &out, nil
}

func singleJoiningSlash(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}

// copyForwardHeaders copies inbound headers to the outbound request: strip
// the routing-group header, rewrite Host, append (not overwrite)
// X-Forwarded-* headers, and leave everything else untouched.
func copyForwardHeaders(outReq *http.Request, r *http.Request, backendExternalHost string) {
	outReq.Header = r.Header.Clone()
	outReq.Header.Del(RoutingGroupHeader)
	outReq.Host = backendExternalHost
	if u, err := url.Parse(backendExternalHost); err == nil && u.Host != "" {
		outReq.Host = u.Host
	}

	clientIP := r.RemoteAddr
	if idx := strings.LastIndex(clientIP, ":"); idx >= 0 {
		clientIP = clientIP[:idx]
	}
	if prior := outReq.Header.Get("X-Forwarded-For"); prior != "" {
		outReq.Header.Set("X-Forwarded-For", prior+", "+clientIP)
	} else {
		outReq.Header.Set("X-Forwarded-For", clientIP)
	}
	proto := "http"
	if r.TLS != nil {
		proto = "https"
	}
	outReq.Header.Set("X-Forwarded-Proto", proto)
	outReq.Header.Set("X-Forwarded-Host", r.Host)
}

func (h *Handler) writeBackendError(w http.ResponseWriter, backendName string, ctx context.Context) {
	status := http.StatusBadGateway
	if ctx.Err() == context.DeadlineExceeded {
		status = http.StatusGatewayTimeout
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "backend unavailable",
		"backend": backendName,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, body := errorResponse(err)
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func entryFor(ctx context.Context, view *attributes.View, ruleFired, backendName, outcomeOverride string, err error, latency time.Duration) observability.RouteLogEntry {
	requestID, _ := ctx.Value(requestIDKey{}).(string)
	e := observability.RouteLogEntry{
		RequestID: requestID,
		RuleFired: ruleFired,
		Backend:   backendName,
		Outcome:   outcomeOverride,
		Latency:   latency,
	}
	if view != nil {
		e.User = view.User
		e.Source = view.Source
	}
	if err != nil {
		e.Error = err.Error()
		if e.Outcome == "" {
			e.Outcome = "failed"
		}
	} else if e.Outcome == "" {
		e.Outcome = "forwarded"
	}
	return e
}

func (h *Handler) logExchange(ctx context.Context, entry observability.RouteLogEntry) {
	if h.Logger == nil {
		return
	}
	_ = h.Logger.LogRoute(ctx, entry)
}
