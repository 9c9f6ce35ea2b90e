package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	handoffhttp "github.com/SKRBLAI/skrblai-live-sub001/internal/adapter/http"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/adapter/mcp"
	hnats "github.com/SKRBLAI/skrblai-live-sub001/internal/adapter/nats"
	hotel "github.com/SKRBLAI/skrblai-live-sub001/internal/adapter/otel"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/adapter/postgres"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/adapter/ws"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/adapter/yamlcatalog"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/config"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/handoff"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/logger"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/middleware"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/telemetry"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/resilience"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/service"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// run dispatches subcommands. Without one, handoffd serves.
func run(args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "serve":
			return serve(args[1:])
		case "migrate":
			return runMigrate(args[1:])
		case "catalog":
			return runCatalog(args[1:])
		case "help", "--help", "-h":
			printHelp()
			return nil
		}
	}
	return serve(args)
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: handoffd [command] [options]

Commands:
  serve                  Run the HTTP, WebSocket and MCP server (default)
  migrate up|down|version
                         Manage the telemetry schema
  catalog check          Validate the agent and chain catalogs
  help                   Show this help message

Options:
  --config FILE          YAML config file (default handoff.yaml)
  --port PORT            HTTP listen port
  --log-level LEVEL      debug, info, warn or error
  --dsn DSN              PostgreSQL DSN
  --nats-url URL         NATS server URL
  --trigger BACKEND      nats, amqp or none
`)
}

// loadConfig applies the config hierarchy and then the command-line flags.
func loadConfig(args []string) (*config.Config, error) {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return nil, err
	}
	path := config.DefaultConfigFile
	if flags.ConfigFile != nil {
		path = *flags.ConfigFile
	}
	cfg, err := config.LoadFrom(path, config.DefaultEnvFile)
	if err != nil {
		return nil, err
	}
	if err := flags.Apply(cfg); err != nil {
		return nil, fmt.Errorf("config flags: %w", err)
	}
	return cfg, nil
}

func serve(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
		"trigger", cfg.Handoff.TriggerBackend,
		"l2_cache", cfg.Cache.L2Backend,
	)

	ctx := context.Background()

	// --- Observability ---

	shutdownOTEL, err := hotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		if err := shutdownOTEL(context.Background()); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()
	metrics, err := hotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Catalogs ---

	cat, err := yamlcatalog.Load(cfg.Handoff.AgentsFile, cfg.Handoff.ChainsFile)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if err := cat.Check(); err != nil {
		slog.Warn("catalog check failed; entries are served as loaded and only those with an unknown tier are skipped", "error", err)
	}
	agentsVersion, chainsVersion := cat.Versions()
	slog.Info("catalog loaded", "agents_version", agentsVersion, "chains_version", chainsVersion)

	// --- Infrastructure ---

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")
	store := postgres.NewStore(pool, cfg.Handoff.SuccessRateMinSamples)

	// NATS (optional when neither the trigger nor the cache needs it)
	var queue *hnats.Queue
	if cfg.NATS.URL != "" {
		queue, err = hnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Drain() }()
	}

	rateCache, closeCache, err := buildCache(ctx, cfg, queue)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer closeCache()

	trigger, closeTrigger, err := buildTrigger(cfg, queue)
	if err != nil {
		return fmt.Errorf("workflow trigger: %w", err)
	}
	defer closeTrigger()

	// --- Telemetry fan-out ---

	hub := ws.NewHub(originPatterns(cfg.Server.CORSOrigin))
	defer hub.Close()

	sinks := telemetry.Fanout{store}
	if queue != nil {
		// Events reach the websocket feed through NATS so that every replica
		// sees the handoffs of all the others.
		sinks = append(sinks, hnats.NewEventPublisher(queue))
		stopRelay, err := service.NewFeedRelay(queue, hub).Start(ctx)
		if err != nil {
			return fmt.Errorf("event feed: %w", err)
		}
		defer stopRelay()
	} else {
		sinks = append(sinks, hub)
	}

	// --- Services ---

	breaker := resilience.NewBreaker("workflow-trigger", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	handoffSvc := service.NewHandoffService(service.HandoffConfig{
		Ranker: handoff.RankerConfig{
			Threshold:          cfg.Handoff.Threshold,
			MaxRecommendations: cfg.Handoff.MaxRecommendations,
			MaxAlternatives:    cfg.Handoff.MaxAlternatives,
		},
		DefaultSuccessRate:  cfg.Handoff.DefaultSuccessRate,
		MaxSessionHandoffs:  cfg.Handoff.MaxSessionHandoffs,
		HistoryDefaultLimit: cfg.Handoff.HistoryDefaultLimit,
		HistoryMaxLimit:     cfg.Handoff.HistoryMaxLimit,
	}, service.HandoffDeps{
		Agents:  cat,
		Chains:  cat,
		Sink:    sinks,
		History: store,
		Ratings: store,
		Rates:   service.NewSuccessRateCache(store, rateCache, cfg.Handoff.SuccessRateTTL),
		Trigger: trigger,
		Breaker: breaker,
		Metrics: metrics,
	})

	// --- HTTP ---

	handlers := &handoffhttp.Handlers{
		Handoffs: handoffSvc,
		Agents:   cat,
		Chains:   cat,
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(hotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID)
	r.Use(handoffhttp.SecurityHeaders)
	r.Use(handoffhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(handoffhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	// Health endpoint with dependency status
	r.Get("/health", healthHandler(pool.Ping, queue, breaker, hub))

	// WebSocket event feed
	r.Get("/ws", hub.HandleWS)

	// MCP tools
	if cfg.MCP.Enabled {
		mcpSrv := mcp.NewServer(mcp.ServerConfig{
			Name:    "handoffd",
			Version: handoffhttp.Version,
			Path:    cfg.MCP.Path,
		}, mcp.ServerDeps{Handoffs: handoffSvc, Agents: cat, Chains: cat})
		r.Handle(cfg.MCP.Path, mcpSrv.Handler())
		slog.Info("mcp server mounted", "path", cfg.MCP.Path)
	}

	// API routes
	r.Group(func(r chi.Router) {
		if cfg.Server.WriteTimeout > 0 {
			r.Use(chimw.Timeout(cfg.Server.WriteTimeout))
		}
		handoffhttp.MountRoutes(r, handlers, middleware.Idempotency(rateCache, cfg.Idempotency.TTL))
	})

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-done:
	case err := <-serveErr:
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// originPatterns turns the CORS origin into a websocket origin pattern.
func originPatterns(origin string) []string {
	if origin == "" || origin == "*" {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return []string{origin}
	}
	return []string{u.Host}
}

// healthHandler returns an http.HandlerFunc that reports service health.
func healthHandler(pingDB func(context.Context) error, queue *hnats.Queue, breaker *resilience.Breaker, hub *ws.Hub) http.HandlerFunc {
	type healthStatus struct {
		Status      string `json:"status"`
		Postgres    string `json:"postgres"`
		NATS        string `json:"nats"`
		Trigger     string `json:"trigger_circuit"`
		Connections int    `json:"ws_connections"`
		Dropped     int64  `json:"ws_dropped"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{
			Status:      "ok",
			Postgres:    "ok",
			NATS:        "disabled",
			Trigger:     breaker.State().String(),
			Connections: hub.ConnectionCount(),
			Dropped:     hub.DroppedCount(),
		}
		code := http.StatusOK

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pingDB(ctx); err != nil {
			status.Status, status.Postgres = "degraded", "unreachable"
			code = http.StatusServiceUnavailable
		}
		if queue != nil {
			status.NATS = "ok"
			if !queue.IsConnected() {
				status.Status, status.NATS = "degraded", "disconnected"
				code = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
