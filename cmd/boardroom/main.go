package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	brhttp "github.com/Strob0t/Boardroom/internal/adapter/http"
	"github.com/Strob0t/Boardroom/internal/adapter/litellm"
	"github.com/Strob0t/Boardroom/internal/adapter/mcp"
	brnats "github.com/Strob0t/Boardroom/internal/adapter/nats"
	"github.com/Strob0t/Boardroom/internal/adapter/natskv"
	"github.com/Strob0t/Boardroom/internal/adapter/natsobj"
	brotel "github.com/Strob0t/Boardroom/internal/adapter/otel"
	"github.com/Strob0t/Boardroom/internal/adapter/postgres"
	"github.com/Strob0t/Boardroom/internal/adapter/ristretto"
	"github.com/Strob0t/Boardroom/internal/adapter/tiered"
	"github.com/Strob0t/Boardroom/internal/adapter/ws"
	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/logger"
	"github.com/Strob0t/Boardroom/internal/middleware"
	"github.com/Strob0t/Boardroom/internal/port/notifier"
	"github.com/Strob0t/Boardroom/internal/resilience"
	"github.com/Strob0t/Boardroom/internal/secrets"
	"github.com/Strob0t/Boardroom/internal/service"
)

// resumeBatch caps how many stalled pitches are rescheduled at startup.
const resumeBatch = 500

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	var err error
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		err = runAdmin(os.Args[2:])
	} else {
		err = run(os.Args[1:])
	}
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return err
	}
	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	holder := config.NewHolder(cfg, cfgPath)

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	vault, err := secrets.NewVault(secrets.Merge(
		secrets.ConfigLoader(holder),
		secrets.FileLoader(cfg.Server.SecretsDir, secrets.KeyMetricsSecret, secrets.KeyMCPAPIKey),
	))
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"panel_size", len(cfg.Panel.Roster),
		"pg_max_conns", cfg.Postgres.MaxConns,
		"secrets", vault.Keys(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Observability ---

	otelShutdown, err := brotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	metrics, err := brotel.NewMetrics()
	if err != nil {
		slog.Warn("metrics disabled", "error", err)
		metrics = nil
	}

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
	store := postgres.NewStore(pool)

	// NATS
	queue, err := brnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	kv, err := queue.KeyValue(ctx, cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
	if err != nil {
		return fmt.Errorf("nats kv: %w", err)
	}
	objects, err := queue.ObjectStore(ctx, cfg.NATS.AssetBucket)
	if err != nil {
		return fmt.Errorf("nats object store: %w", err)
	}

	// Cache: ristretto in front of NATS KV
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB)
	if err != nil {
		return fmt.Errorf("ristretto: %w", err)
	}
	defer l1.Close()
	appCache := tiered.New(l1, natskv.New(kv), cfg.Memory.TTL)

	// LiteLLM
	llmClient := litellm.NewClient(cfg.LiteLLM.URL, cfg.LiteLLM.MasterKey)
	llmClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout,
		resilience.WithStateChange(func(from, to resilience.State) {
			slog.Warn("litellm breaker state changed", "from", from.String(), "to", to.String())
		}),
		resilience.WithIgnore(callerFault),
	))
	llmClient.SetPool(resilience.NewPool(cfg.LiteLLM.MaxConcurrent))
	logModelReachability(ctx, llmClient, cfg.Panel)
	agents := litellm.NewAgent(llmClient, litellm.AgentOptions{
		BriefModel:  cfg.Agent.BriefModel,
		MaxTokens:   cfg.Agent.MaxTokens,
		Temperature: cfg.Agent.Temperature,
	})

	// --- Services ---

	hub := ws.NewHub(cfg.Server.CORSOrigin)
	notifySvc := service.NewNotificationService(buildNotifiers(cfg.Notify), cfg.Notify.Events)
	sched := service.NewScheduler(queue)

	tr := service.NewTransitioner(store, sched, hub, notifySvc)
	memorySvc := service.NewMemoryService(store, appCache, holder)
	pitchSvc := service.NewPitchService(store, agents, tr, memorySvc, hub, holder)
	commentSvc := service.NewCommentaryService(store, agents, sched, hub, holder)
	votingSvc := service.NewVotingService(store, agents, sched, hub, holder)
	deliberationSvc := service.NewDeliberationService(store, tr)
	revisionSvc := service.NewRevisionService(store, agents, tr, sched, hub, notifySvc, holder)
	executionSvc := service.NewExecutionService(store, agents, tr, sched, hub, holder)
	postMortemSvc := service.NewPostMortemService(store, agents, memorySvc, sched, hub, holder)

	if cfg.LiteLLM.ImageModel != "" {
		executionSvc.SetAssets(litellm.NewImageGenerator(llmClient, cfg.LiteLLM.ImageModel), natsobj.New(objects))
		slog.Info("asset generation enabled", "model", cfg.LiteLLM.ImageModel)
	}

	if metrics != nil {
		tr.SetMetrics(metrics)
		commentSvc.SetMetrics(metrics)
		votingSvc.SetMetrics(metrics)
		postMortemSvc.SetMetrics(metrics)
	}

	// --- Pipeline worker ---

	worker := service.NewPipelineWorker(queue)
	if metrics != nil {
		worker.SetMetrics(metrics)
	}
	worker.Handle(deliberation.StageComment, commentSvc.Comment)
	worker.Handle(deliberation.StageVote, votingSvc.VotePost)
	worker.Handle(deliberation.StageVoteComment, votingSvc.VoteComment)
	worker.Handle(deliberation.StageDeliberate, deliberationSvc.Deliberate)
	worker.Handle(deliberation.StageRevise, revisionSvc.Revise)
	worker.Handle(deliberation.StageExecute, executionSvc.Execute)
	worker.Handle(deliberation.StageAsset, executionSvc.GenerateAsset)
	worker.Handle(deliberation.StagePostMortem, postMortemSvc.Analyze)
	if err := worker.Start(ctx); err != nil {
		return fmt.Errorf("pipeline worker: %w", err)
	}
	if n, err := tr.ResumeStalled(ctx, resumeBatch); err != nil {
		slog.Warn("stalled pitches not resumed", "error", err)
	} else if n > 0 {
		slog.Info("resumed stalled pitches", "count", n)
	}

	// --- HTTP ---

	handlers := &brhttp.Handlers{
		Pitches:      pitchSvc,
		Voting:       votingSvc,
		Deliberation: deliberationSvc,
		Executions:   executionSvc,
		PostMortem:   postMortemSvc,
		Memory:       memorySvc,
		Health: []brhttp.HealthCheck{
			{Name: "postgres", Check: store.Ping},
			{Name: "nats", Check: func(context.Context) error {
				if !queue.IsConnected() {
					return errors.New("not connected")
				}
				return nil
			}},
			{Name: "litellm", Check: func(ctx context.Context) error {
				ok, err := llmClient.Health(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("unhealthy")
				}
				return nil
			}},
		},
	}

	generateLimit := middleware.NewRateLimiter(cfg.Server.GenerateRPS, cfg.Server.GenerateBurst)
	generateLimit.StartCleanup(ctx, time.Minute, 10*time.Minute)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(brotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(brhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(brhttp.SecurityHeaders)
	r.Use(brhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/ws", hub.HandleWS)

	r.Group(func(r chi.Router) {
		// Generation waits on the model; everything else is short.
		r.Use(chimw.Timeout(cfg.Agent.Timeout + 30*time.Second))
		brhttp.MountRoutes(r, handlers, brhttp.RouteOptions{
			Idempotency:   middleware.Idempotency(appCache, cfg.Server.IdempotencyTTL),
			GenerateLimit: generateLimit.Handler,
			MetricsAuth:   middleware.SignedBody(vault.Getter(secrets.KeyMetricsSecret)),
		})
	})

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Agent.Timeout + 60*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// --- MCP ---

	var mcpSrv *mcp.Server
	if cfg.MCP.Enabled {
		mcpSrv = mcp.NewServer(mcp.ServerConfig{
			Addr:    ":" + strconv.Itoa(cfg.MCP.Port),
			Name:    cfg.MCP.Name,
			Version: cfg.MCP.Version,
			APIKey:  vault.Getter(secrets.KeyMCPAPIKey),
		}, mcp.ServerDeps{Memory: memorySvc, Trees: pitchSvc})
		if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
	}

	// Config reload and graceful shutdown
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			if err := holder.Reload(); err != nil {
				slog.Error("config reload failed", "error", err)
				continue
			}
			if err := vault.Reload(); err != nil {
				slog.Error("secrets reload failed", "error", err)
			}
			slog.Info("config reloaded", "brand", holder.Brand().Name)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	signal.Stop(reload)
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
	if mcpSrv != nil {
		if err := mcpSrv.Stop(shutdownCtx); err != nil {
			slog.Error("mcp shutdown", "error", err)
		}
	}
	worker.Stop()
	cancel()
	if err := queue.Drain(); err != nil {
		slog.Error("nats drain", "error", err)
	}
	notifySvc.Wait()
	return otelShutdown(shutdownCtx)
}

// buildNotifiers creates a notifier for every configured webhook.
func buildNotifiers(cfg config.Notify) []notifier.Notifier {
	out := notifier.Build(map[string]string{
		"slack":   cfg.SlackWebhookURL,
		"discord": cfg.DiscordWebhookURL,
	})
	names := make([]string, len(out))
	for i, n := range out {
		names[i] = n.Name()
	}
	slog.Info("notifiers configured", "providers", names, "events", cfg.Events)
	return out
}

// logModelReachability warns about panel models LiteLLM cannot reach. Startup
// continues either way; an unreachable model surfaces as a skipped agent.
func logModelReachability(ctx context.Context, client *litellm.Client, panel config.Panel) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	models, err := client.DiscoverModels(ctx)
	if err != nil {
		slog.Warn("model discovery failed", "error", err)
		return
	}
	status := make(map[string]litellm.DiscoveredModel, len(models))
	for _, m := range models {
		status[m.ModelName] = m
	}
	for _, a := range panel.Roster {
		m, ok := status[a.Model]
		switch {
		case !ok:
			slog.Warn("panel model not configured in litellm", "agent", a.ID, "model", a.Model)
		case m.Status == "unreachable":
			slog.Warn("panel model unreachable", "agent", a.ID, "model", a.Model, "error", m.ErrorDetail)
		}
	}
}

// callerFault reports errors that say nothing about the proxy's health: a
// canceled stage or a request the proxy rejected as malformed.
func callerFault(err error) bool {
	var apiErr *litellm.APIError
	return errors.Is(err, context.Canceled) ||
		(errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest)
}
