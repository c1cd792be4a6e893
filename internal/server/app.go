// Package server assembles the application: store selection, queues,
// collectors, worker lanes, and the HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/vibefinder/vibefinder/internal/api"
	"github.com/vibefinder/vibefinder/internal/clock/system"
	mapscollector "github.com/vibefinder/vibefinder/internal/collector/maps"
	redditcollector "github.com/vibefinder/vibefinder/internal/collector/reddit"
	"github.com/vibefinder/vibefinder/internal/config"
	"github.com/vibefinder/vibefinder/internal/controller"
	"github.com/vibefinder/vibefinder/internal/engine/vader"
	"github.com/vibefinder/vibefinder/internal/hash/sha256"
	"github.com/vibefinder/vibefinder/internal/id/uuid"
	"github.com/vibefinder/vibefinder/internal/insight"
	"github.com/vibefinder/vibefinder/internal/logging"
	"github.com/vibefinder/vibefinder/internal/places"
	memorypublisher "github.com/vibefinder/vibefinder/internal/publisher/memory"
	gcppublisher "github.com/vibefinder/vibefinder/internal/publisher/pubsub"
	memoryqueue "github.com/vibefinder/vibefinder/internal/queue/memory"
	memorystore "github.com/vibefinder/vibefinder/internal/store/memory"
	pgstore "github.com/vibefinder/vibefinder/internal/store/postgres"
	"github.com/vibefinder/vibefinder/internal/telemetry"
	"github.com/vibefinder/vibefinder/internal/worker"
)

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	apiServer *api.Server

	scrapeQueue  *memoryqueue.Queue[insight.ScrapeTask]
	cascadeQueue *memoryqueue.Queue[insight.CascadeTask]
	scrapeLane   *worker.ScrapeWorker
	analysisLane *worker.AnalysisWorker

	pgPool        *pgxpool.Pool
	mapsCollector *mapscollector.Collector
	publisher     insight.Publisher
}

// Build creates the application's dependencies from configuration.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	telemetry.Init()

	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies", zap.Int("port", cfg.Server.Port))

	store, err := app.setupStore(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := app.setupPublisher(ctx)
	if err != nil {
		return nil, err
	}
	collectors, err := app.setupCollectors()
	if err != nil {
		return nil, err
	}

	app.scrapeQueue = memoryqueue.NewQueue[insight.ScrapeTask](cfg.Scrape.QueueDepth)
	app.cascadeQueue = memoryqueue.NewQueue[insight.CascadeTask](cfg.Scrape.QueueDepth)

	clock := system.New()
	ids := uuid.New()
	gate := insight.NewGate(cfg.FreshnessMaxAge())

	app.scrapeLane = worker.NewScrape(
		app.scrapeQueue,
		app.cascadeQueue,
		store,
		collectors,
		sha256.New(),
		ids,
		clock,
		publisher,
		worker.ScrapeConfig{
			MaxReviews:   cfg.Scrape.MaxReviews,
			MaxAttempts:  cfg.Scrape.MaxAttempts,
			RetryBackoff: cfg.RetryBackoff(),
			SoftBudget:   cfg.SoftBudget(),
			HardBudget:   cfg.HardBudget(),
			EventTopic:   cfg.PubSub.TopicName,
		},
		logger.Named("scrape"),
	)
	app.analysisLane = worker.NewAnalysis(
		app.cascadeQueue,
		store,
		vader.New(),
		logger.Named("analysis"),
	)

	ctrl := controller.New(store, app.scrapeQueue, ids, clock, gate, logger.Named("controller"))
	searcher := places.New(places.Config{
		APIKey:  cfg.Places.APIKey,
		Timeout: time.Duration(cfg.Places.TimeoutSeconds) * time.Second,
	}, logger.Named("places"))

	app.apiServer = api.NewServer(ctrl, store, searcher, cfg, logger.Named("api"))
	return app, nil
}

// Run starts the worker lanes and the HTTP server, blocking until the
// context is canceled or a signal arrives.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application started")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for i := 0; i < a.cfg.Scrape.ScrapeWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.scrapeLane.Run(ctx)
		}()
	}
	for i := 0; i < a.cfg.Scrape.AnalysisWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.analysisLane.Run(ctx)
		}()
	}
	a.logger.Info("worker lanes started",
		zap.Int("scrape_workers", a.cfg.Scrape.ScrapeWorkers),
		zap.Int("analysis_workers", a.cfg.Scrape.AnalysisWorkers))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	wg.Wait()

	return a.Close()
}

// Close releases application resources.
func (a *App) Close() error {
	a.scrapeQueue.Close()
	a.cascadeQueue.Close()
	if a.mapsCollector != nil {
		a.mapsCollector.Close()
	}
	if closer, ok := a.publisher.(*gcppublisher.Publisher); ok {
		if err := closer.Close(); err != nil {
			a.logger.Warn("pubsub publisher close failed", zap.Error(err))
		}
	}
	if a.pgPool != nil {
		a.pgPool.Close()
	}
	if err := a.logger.Sync(); err != nil && !errors.Is(err, syscall.ENOTTY) {
		a.logger.Warn("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) setupStore(ctx context.Context) (insight.Store, error) {
	if a.cfg.DB.DSN == "" {
		a.logger.Info("using in-memory store")
		return memorystore.New(), nil
	}
	store, pool, err := pgstore.Connect(ctx, a.cfg.DB.DSN, a.cfg.DB.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("postgres store init failed: %w", err)
	}
	a.pgPool = pool
	a.logger.Info("postgres store initialized")
	return store, nil
}

func (a *App) setupPublisher(ctx context.Context) (insight.Publisher, error) {
	if a.cfg.PubSub.ProjectID == "" || a.cfg.PubSub.TopicName == "" {
		a.logger.Info("no pubsub topic configured, using in-memory publisher")
		a.publisher = memorypublisher.New()
		return a.publisher, nil
	}
	publisher, err := gcppublisher.New(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.TopicName)
	if err != nil {
		return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
	}
	a.logger.Info("pubsub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName))
	a.publisher = publisher
	return publisher, nil
}

func (a *App) setupCollectors() ([]insight.SourceCollector, error) {
	var collectors []insight.SourceCollector
	if a.cfg.Sources.Maps.Enabled {
		collector, err := mapscollector.New(mapscollector.Config{
			MaxParallel:       a.cfg.Sources.Maps.MaxParallel,
			UserAgent:         a.cfg.Sources.Maps.UserAgent,
			NavigationTimeout: time.Duration(a.cfg.Sources.Maps.NavTimeoutSec) * time.Second,
			ScrollRounds:      a.cfg.Sources.Maps.ScrollRounds,
		}, a.logger.Named("maps"))
		if err != nil {
			return nil, fmt.Errorf("maps collector init failed: %w", err)
		}
		a.mapsCollector = collector
		collectors = append(collectors, collector)
	}
	if a.cfg.Sources.Reddit.Enabled {
		collectors = append(collectors, redditcollector.New(redditcollector.Config{
			BaseURL:    a.cfg.Sources.Reddit.BaseURL,
			UserAgent:  a.cfg.Sources.Reddit.UserAgent,
			MaxResults: a.cfg.Sources.Reddit.MaxResults,
		}, a.logger.Named("reddit")))
	}
	if len(collectors) == 0 {
		return nil, errors.New("at least one review source must be enabled")
	}
	return collectors, nil
}
