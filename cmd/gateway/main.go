// Package main is the entrypoint for the Trino gateway server: a layer-7
// HTTP proxy that fronts a fleet of Trino coordinators, routing client
// traffic by pluggable rules and pinning follow-up requests to the
// coordinator that accepted the original query.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/simpligility/trino-gateway/internal/admin"
	"github.com/simpligility/trino-gateway/internal/auth"
	"github.com/simpligility/trino-gateway/internal/config"
	"github.com/simpligility/trino-gateway/internal/gateway"
	"github.com/simpligility/trino-gateway/internal/observability"
	"github.com/simpligility/trino-gateway/internal/storage"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "Path to gateway YAML config (default: search standard locations)")
		showHelp   = flag.Bool("help", false, "Show help message")
		showVer    = flag.Bool("version", false, "Show version")
	)
	flag.Parse()

	if *showHelp {
		flag.Usage()
		return nil
	}
	if *showVer {
		fmt.Printf("trino-gateway %s (commit: %s, built: %s)\n", version, commit, date)
		return nil
	}

	if p := os.Getenv("TRINOGW_CONFIG"); p != "" && *configPath == "" {
		*configPath = p
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(cfg.Backends) == 0 {
		return fmt.Errorf("startup failed: no backends configured")
	}

	logger := observability.NewJSONLogger(os.Stdout)

	history, err := buildHistorySink(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize query-history sink: %w", err)
	}

	core, err := gateway.New(cfg, logger, history)
	if err != nil {
		return fmt.Errorf("failed to construct gateway: %w", err)
	}

	ctx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	go core.Run(ctx)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.RequestRouter.Port),
		Handler:      core,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 0, // result pages stream for an unbounded time
		IdleTimeout:  60 * time.Second,
	}

	var adminServer *http.Server
	if cfg.Admin.Enabled {
		adminServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Admin.Port),
			Handler: admin.NewHandler(core.Backends, core, buildAdminAuthenticator(cfg)),
		}
	}

	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("shutting down gateway...")
		cancelRun()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
		if adminServer != nil {
			if err := adminServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("admin shutdown error: %v", err)
			}
		}
		close(done)
	}()

	if adminServer != nil {
		go func() {
			log.Printf("admin API listening on %s", adminServer.Addr)
			if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("admin server error: %v", err)
			}
		}()
	}

	log.Printf("trino-gateway %s starting on %s", version, server.Addr)
	for _, b := range cfg.Backends {
		log.Printf("backend %q group=%q proxyTo=%s active=%v", b.Name, b.RoutingGroup, b.ProxyTo, b.Active)
	}

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	log.Println("gateway stopped")
	return nil
}

// buildAdminAuthenticator returns nil (unauthenticated) when no tokens are
// configured, matching AdminConfig's documented default for trusted
// internal networks.
func buildAdminAuthenticator(cfg *config.Config) auth.Authenticator {
	if len(cfg.Admin.AuthTokens) == 0 {
		return nil
	}
	a := auth.NewStaticTokenAuthenticator()
	for token, operator := range cfg.Admin.AuthTokens {
		a.RegisterToken(token, &auth.User{ID: operator, Name: operator})
	}
	return a
}

func buildHistorySink(cfg *config.Config) (storage.QueryHistorySink, error) {
	if !cfg.Database.Enabled {
		log.Println("query history: using in-memory sink (database.enabled=false)")
		return storage.NewInMemorySink(), nil
	}

	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password,
		cfg.Database.Name, cfg.Database.SSLMode)

	sink, err := storage.OpenPostgresSink(storage.PostgresConfig{
		ConnectionString: connStr,
		MaxOpenConns:     10,
		MaxIdleConns:     5,
		ConnMaxLifetime:  5 * time.Minute,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sink.CheckConnectivity(ctx); err != nil {
		return nil, err
	}

	runner := storage.NewMigrationRunner(sink.DB())
	if err := runner.Run(ctx); err != nil {
		return nil, err
	}

	log.Println("query history: connected to PostgreSQL")
	return sink, nil
}
