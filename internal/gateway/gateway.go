// Package gateway wires the gateway's components into a single Core: the
// explicit dependency-injected manager graph — extractor, selector, rules
// engine, backend state, routing manager, and proxy handler — constructed
// directly, with no framework.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/simpligility/trino-gateway/internal/attributes"
	"github.com/simpligility/trino-gateway/internal/backend"
	"github.com/simpligility/trino-gateway/internal/config"
	gwerrors "github.com/simpligility/trino-gateway/internal/errors"
	"github.com/simpligility/trino-gateway/internal/observability"
	"github.com/simpligility/trino-gateway/internal/proxy"
	"github.com/simpligility/trino-gateway/internal/routing"
	"github.com/simpligility/trino-gateway/internal/rules"
	"github.com/simpligility/trino-gateway/internal/selector"
	"github.com/simpligility/trino-gateway/internal/storage"
)

// Core wires every gateway component and implements http.Handler for the
// client-facing listener.
type Core struct {
	Config   *config.Config
	Backends *backend.Manager
	Routing  *routing.Manager
	Rules    *rules.Engine
	Selector selector.Selector
	Logger   observability.RouteLogger
	History  storage.QueryHistorySink
	Proxy    *proxy.Handler
}

// New constructs a Core from configuration, failing fast on any
// configuration problem: malformed rules file,
// unresolvable paths, unparseable backend URLs.
func New(cfg *config.Config, logger observability.RouteLogger, history storage.QueryHistorySink) (*Core, error) {
	if cfg.RequestRouter.ExternalURL == "" {
		return nil, gwerrors.NewConfigError("requestRouter.externalUrl", "gateway external URL must be configured", nil)
	}
	for _, b := range cfg.Backends {
		if b.ProxyTo == "" {
			return nil, gwerrors.NewConfigError("backends", fmt.Sprintf("backend %q has no proxyTo URL", b.Name), nil)
		}
		for _, raw := range []string{b.ProxyTo, b.ExternalURL} {
			if _, err := url.Parse(raw); err != nil {
				return nil, gwerrors.NewConfigError("backends", fmt.Sprintf("backend %q has an unparseable URL %q", b.Name, raw), err)
			}
		}
	}

	backends := backend.NewManager(cfg.Backends, cfg.Monitor)

	var engine *rules.Engine
	if cfg.RoutingRules.RulesEngineEnabled {
		var err error
		engine, err = rules.NewEngineFromFile(cfg.RoutingRules.RulesConfigPath, logger)
		if err != nil {
			return nil, gwerrors.NewConfigError(cfg.RoutingRules.RulesConfigPath, err.Error(), err)
		}
	} else {
		engine = rules.NewEngine(nil, logger)
	}

	sel := selector.NewFromConfig(cfg.RoutingRules.Selector, engine)

	rt := routing.NewManager(
		backends,
		time.Duration(cfg.Routing.BindingTTLSeconds)*time.Second,
		time.Duration(cfg.Routing.TerminalEvictionGraceSecs)*time.Second,
		cfg.Routing.ShardCount,
	)

	if history == nil {
		history = storage.NewInMemorySink()
	}

	ph := proxy.NewHandler(attributes.Extract, sel, backends, rt, logger, history, cfg.RequestRouter.ExternalURL)

	return &Core{
		Config:   cfg,
		Backends: backends,
		Routing:  rt,
		Rules:    engine,
		Selector: sel,
		Logger:   logger,
		History:  history,
		Proxy:    ph,
	}, nil
}

// ServeHTTP implements http.Handler, delegating every exchange to the Proxy
// Handler.
func (c *Core) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.Proxy.ServeHTTP(w, r)
}

// Run starts the background tasks the Core owns: backend health probing and
// the binding-cache sweeper. It blocks until ctx is
// cancelled.
func (c *Core) Run(ctx context.Context) {
	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()
	go c.Routing.Run(stop)
	c.Backends.Run(ctx)
}

// ReloadRules atomically swaps the active Rule Set from the configured
// rules file path (admin API).
func (c *Core) ReloadRules() error {
	return c.Rules.Reload(c.Config.RoutingRules.RulesConfigPath)
}

// Readiness reports whether the Core has at least one routable backend in
// the default group.
func (c *Core) Readiness(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(c.Backends.ListByGroup(routing.DefaultRoutingGroup)) == 0 {
		return gwerrors.NewNoBackendAvailable(routing.DefaultRoutingGroup)
	}
	return nil
}
