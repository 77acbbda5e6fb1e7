package journalservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/mindspeak/mindspeak-backend/internal/ai/claude"
	"github.com/mindspeak/mindspeak-backend/internal/ai/whisper"
	"github.com/mindspeak/mindspeak-backend/internal/api"
	"github.com/mindspeak/mindspeak-backend/internal/api/recovery"
	"github.com/mindspeak/mindspeak-backend/internal/config"
	"github.com/mindspeak/mindspeak-backend/internal/health"
	"github.com/mindspeak/mindspeak-backend/internal/logger"
	"github.com/mindspeak/mindspeak-backend/internal/pipeline"
	"github.com/mindspeak/mindspeak-backend/internal/services"
	"github.com/mindspeak/mindspeak-backend/internal/store"
	"github.com/mindspeak/mindspeak-backend/internal/store/postgres"
	"github.com/mindspeak/mindspeak-backend/internal/store/sqlite"
	"github.com/mindspeak/mindspeak-backend/internal/uploads"
	"github.com/mindspeak/mindspeak-backend/internal/usage"
	"github.com/rs/zerolog"
)

// Run starts the journal service HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("journal-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Str("upload_dir", cfg.UploadDir).
		Msg("Journal service starting")

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	// Initialize dependencies (store, uploads, AI providers)
	deps, err := initDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}

	// Build router
	router := buildRouter(deps)

	// Start health checkers and bind service health
	svcHealth := startHealthCheckers(ctx, cfg, log, deps)

	// Block startup until dependencies report healthy; fail fast otherwise
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	// HTTP server and serve
	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// dependencies groups the wired components handed to the router and checkers.
type dependencies struct {
	store       store.Store
	files       *uploads.Dir
	transcriber *whisper.Transcriber
	processor   *claude.Processor
	entrySvc    *services.EntryService
	userSvc     *services.UserService
}

// initDependencies constructs required components and enforces fail-fast on missing deps.
func initDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*dependencies, error) {
	st, err := newStore(ctx, cfg)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store adapter unavailable")
		return nil, err
	}

	files, err := uploads.New(cfg.UploadDir)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Upload directory unavailable")
		return nil, err
	}

	transcriber, err := whisper.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Transcription provider unavailable")
		return nil, err
	}

	processor, err := claude.New(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Analysis provider unavailable")
		return nil, err
	}

	pipe := pipeline.New(transcriber, processor, log)
	tracker := usage.NewTracker(st.Usage())

	return &dependencies{
		store:       st,
		files:       files,
		transcriber: transcriber,
		processor:   processor,
		entrySvc:    services.NewEntryService(st, pipe, tracker, files, log),
		userSvc:     services.NewUserService(st, tracker),
	}, nil
}

// newStore opens the configured database driver and ensures schema.
func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := sqlite.EnsureSchema(ctx, db); err != nil {
			return nil, err
		}
		return sqlite.New(db), nil
	case "postgres":
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return postgres.NewWithDB(db), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER: %s", cfg.DBDriver)
	}
}

// buildRouter wires HTTP routes to handlers.
func buildRouter(deps *dependencies) *mux.Router {
	root := mux.NewRouter()
	root.Use(recovery.Middleware)

	// Users
	userHandler := api.NewUserHandler(deps.userSvc)
	root.HandleFunc("/api/users", userHandler.CreateUser).Methods("POST")
	root.HandleFunc("/api/users/{userId}", userHandler.GetUser).Methods("GET")
	root.HandleFunc("/api/users/{userId}", userHandler.UpdateProfile).Methods("PUT")
	root.HandleFunc("/api/users/{userId}", userHandler.DeleteUser).Methods("DELETE")

	// Preferences and goals
	root.HandleFunc("/api/users/{userId}/preferences", userHandler.GetPreferences).Methods("GET")
	root.HandleFunc("/api/users/{userId}/preferences", userHandler.UpdatePreferences).Methods("PUT")
	root.HandleFunc("/api/users/{userId}/preferences/goals", userHandler.AddGoal).Methods("POST")
	root.HandleFunc("/api/users/{userId}/preferences/goals/{goalId}", userHandler.RemoveGoal).Methods("DELETE")
	root.HandleFunc("/api/users/{userId}/usage", userHandler.GetUsage).Methods("GET")

	// Entries
	entryHandler := api.NewEntryHandler(deps.entrySvc, deps.files)
	root.HandleFunc("/api/users/{userId}/entries", entryHandler.ListEntries).Methods("GET")
	root.HandleFunc("/api/users/{userId}/entries/upload-audio", entryHandler.UploadAudio).Methods("POST")
	root.HandleFunc("/api/users/{userId}/entries/text", entryHandler.CreateTextEntry).Methods("POST")
	root.HandleFunc("/api/users/{userId}/entries/stats", entryHandler.GetStats).Methods("GET")
	root.HandleFunc("/api/users/{userId}/entries/trash", entryHandler.GetTrash).Methods("GET")
	root.HandleFunc("/api/users/{userId}/entries/trash", entryHandler.EmptyTrash).Methods("DELETE")
	root.HandleFunc("/api/users/{userId}/entries/fix-streaks", entryHandler.FixStreaks).Methods("POST")
	root.HandleFunc("/api/users/{userId}/entries/{entryId}", entryHandler.GetEntry).Methods("GET")
	root.HandleFunc("/api/users/{userId}/entries/{entryId}", entryHandler.UpdateEntry).Methods("PUT")
	root.HandleFunc("/api/users/{userId}/entries/{entryId}", entryHandler.DeleteEntry).Methods("DELETE")
	root.HandleFunc("/api/users/{userId}/entries/{entryId}/process", entryHandler.ProcessEntry).Methods("POST")
	root.HandleFunc("/api/users/{userId}/entries/{entryId}/restore", entryHandler.RestoreEntry).Methods("POST")

	// Health
	healthHandler := api.NewHealthHandler()
	root.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")

	return root
}

// startHealthCheckers starts component checkers and service-level aggregator; binds health.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, deps *dependencies) *health.ServiceHealthChecker {
	var checkers []health.HealthChecker
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	storeChecker := store.NewStoreHealthChecker(deps.store, log, probeTimeout)
	go storeChecker.Start(ctx, interval)
	checkers = append(checkers, storeChecker)

	// Provider probes are real API calls, so they are opt-in.
	if cfg.AIHealthChecks {
		whisperChecker := health.NewPingChecker("whisper", deps.transcriber, log, probeTimeout)
		go whisperChecker.Start(ctx, interval)
		checkers = append(checkers, whisperChecker)

		claudeChecker := health.NewPingChecker("claude", deps.processor, log, probeTimeout)
		go claudeChecker.Start(ctx, interval)
		checkers = append(checkers, claudeChecker)
	}

	svcHealth := health.NewServiceHealthChecker(log, checkers...)
	go svcHealth.Start(ctx, interval)
	api.BindServiceHealth(svcHealth.IsHealthy)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// Processing streams progress events over a single response, so the
		// write timeout must cover a full transcription plus analysis round.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// calculateStartupHealthTimeout returns the startup health timeout in seconds,
// calculated as interval*2 with a minimum of 60 seconds.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	// Checkers start unhealthy and need at least one probe cycle to flip
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
