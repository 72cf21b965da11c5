package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"DailyDigest/internal/api"
	"DailyDigest/internal/config"
	"DailyDigest/internal/domain"
	"DailyDigest/internal/infrastructure/envstore"
	"DailyDigest/internal/infrastructure/llm"
	"DailyDigest/internal/infrastructure/parser"
	"DailyDigest/internal/infrastructure/poster"
	"DailyDigest/internal/infrastructure/scheduler"
	"DailyDigest/internal/infrastructure/storage"
	"DailyDigest/internal/infrastructure/webhook"
	"DailyDigest/internal/logging"
	"DailyDigest/internal/ports"
	"DailyDigest/internal/progress"
	"DailyDigest/internal/scanner"
	"DailyDigest/internal/usecase"
)

const (
	scraperTimeout  = 30 * time.Second
	shutdownTimeout = 15 * time.Second
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pipeline  *usecase.Pipeline
	tracker   *progress.Tracker
	runner    *usecase.Runner
	scheduler *usecase.Scheduler
	handler   http.Handler
}

// New builds the application graph. Nothing is started yet.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.NewFileStore(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}

	secrets, err := envstore.Open(cfg.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("open env store: %w", err)
	}

	client := &http.Client{Timeout: scraperTimeout}
	registry := scanner.NewRegistry()
	registry.Register(parser.NewSohuScanner(cfg.Sources, client, baseLogger.With("component", "scanner.tencent")))
	registry.Register(parser.NewAIBaseScanner(cfg.Sources, client, baseLogger.With("component", "scanner.aibase")))

	var renderer ports.Renderer
	if cfg.Poster.Enabled {
		renderer = poster.NewChromeRenderer(cfg.Poster, baseLogger.With("component", "poster"))
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Sources:    registry,
		Store:      store,
		Summarizer: llm.NewDeepSeekClient(cfg.DeepSeek, secrets),
		Renderer:   renderer,
		Template:   poster.NewDefaultTemplate(),
		Publisher:  webhook.NewKingsoftPublisher(cfg.Webhook, secrets),
		Logger:     baseLogger.With("component", "pipeline"),
	})

	tracker := progress.NewTracker()
	runner := usecase.NewRunner(tracker, baseLogger.With("component", "runner"))

	var sched *usecase.Scheduler
	if cfg.Scheduler.Enabled {
		driver, err := scheduler.NewDailyScheduler(cfg.Scheduler.RunAt, cfg.Scheduler.Location())
		if err != nil {
			tracker.Close()
			return nil, err
		}
		sched = usecase.NewScheduler(driver, runner, pipeline, cfg.Scheduler, baseLogger.With("component", "scheduler"))
	}

	handler := api.NewRouter(api.NewHandler(api.HandlerDeps{
		Runner:   runner,
		Pipeline: pipeline,
		Store:    store,
		Secrets:  secrets,
		Settings: api.Settings{
			CacheEnabled: cfg.Storage.CacheEnabled,
			ImageEnabled: cfg.Poster.Enabled,
			Location:     cfg.Scheduler.Location(),
		},
		Logger: baseLogger.With("component", "api"),
	}))

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		pipeline:  pipeline,
		tracker:   tracker,
		runner:    runner,
		scheduler: sched,
		handler:   handler,
	}, nil
}

// Handler exposes the HTTP router.
func (a *Application) Handler() http.Handler {
	return a.handler
}

// Serve runs the HTTP gateway and the daily scheduler until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		a.logger.Info("daily scheduler started", "run_at", a.cfg.Scheduler.RunAt, "timezone", a.cfg.Scheduler.Location().String())
	}

	server := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown", "error", err)
		}
		a.Close(shutdownCtx)
		return nil
	})

	return g.Wait()
}

// RunRequest configures a one-off daily run.
type RunRequest struct {
	Date    string
	Sources []string
	UseAI   bool
	Publish bool
}

// Run performs a single synchronous daily pipeline execution.
func (a *Application) Run(ctx context.Context, req RunRequest) (domain.DailyResult, error) {
	day, err := domain.ParseDay(req.Date, a.cfg.Scheduler.Location())
	if err != nil {
		return domain.DailyResult{}, err
	}

	outcome, err := a.runner.Run(ctx, a.pipeline.DailyJob(usecase.DailyRequest{
		Day:     day,
		Sources: req.Sources,
		UseAI:   req.UseAI,
		Publish: req.Publish,
	}))
	if err != nil {
		return domain.DailyResult{}, err
	}

	for _, line := range a.runner.Snapshot().Details {
		a.logger.Info("run detail", "line", line)
	}

	result, _ := outcome.Result.(domain.DailyResult)
	return result, nil
}

// Close stops the scheduler and waits for the running job.
func (a *Application) Close(ctx context.Context) {
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.logger.Error("scheduler shutdown", "error", err)
		}
	}
	if err := a.runner.Shutdown(ctx); err != nil {
		a.logger.Error("runner shutdown", "error", err)
	}
	a.tracker.Close()
}
