package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/imrishuroy/wishwall/internal/aws"
	"github.com/imrishuroy/wishwall/internal/config"
	"github.com/imrishuroy/wishwall/internal/handlers"
	"github.com/imrishuroy/wishwall/internal/logging"
	"github.com/imrishuroy/wishwall/internal/metrics"
	"github.com/imrishuroy/wishwall/internal/release"
	"github.com/imrishuroy/wishwall/internal/releaserun"
	"github.com/imrishuroy/wishwall/internal/wishes"
)

const shutdownTimeout = 10 * time.Second

// App holds every dependency of the wish wall process.
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	Store     wishes.Store
	Ledger    releaserun.Ledger
	Metrics   *metrics.Prometheus
	Recorder  metrics.Recorder
	Releaser  *release.Service
	Publisher *aws.Publisher
	Router    *gin.Engine

	newClients func(ctx context.Context, s aws.Settings) (*aws.AWSClients, error)
	clients    *aws.AWSClients
	now        func() time.Time
}

// Option customises New.
type Option func(*App)

// WithAWSClients skips loading AWS config and uses the given clients.
func WithAWSClients(c *aws.AWSClients) Option {
	return func(a *App) { a.clients = c }
}

// WithClock overrides the wall clock used by handlers and the wish store.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// New wires storage, the release pipeline, metrics and the HTTP router.
// AWS clients are only created when the configuration needs one.
func New(ctx context.Context, cfg config.Config, log *zap.Logger, opts ...Option) (*App, error) {
	a := &App{
		Config:     cfg,
		Logger:     log,
		newClients: aws.NewAWSClients,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	storeOpts := []wishes.Option{
		wishes.WithMaxActive(cfg.MaxWishesPerUser),
		wishes.WithRetention(cfg.WishRetention),
		wishes.WithClock(a.now),
	}

	if cfg.UseInMemoryStore {
		mem := wishes.NewMemoryStore(storeOpts...)
		if cfg.SeedDemoWishes {
			mem.SeedDemo()
		}
		a.Store = mem
		a.Ledger = releaserun.NewMemoryLedger()
		log.Info("using in-memory wish store", zap.Bool("seeded", cfg.SeedDemoWishes))
	} else {
		clients, err := a.awsClients(ctx)
		if err != nil {
			return nil, err
		}
		a.Store = wishes.NewDynamoStore(clients.DynamoDB, cfg.WishesTable, storeOpts...)
		a.Ledger = releaserun.NewStore(clients.DynamoDB, cfg.ReleaseRunsTable, releaserun.DefaultTTLWindow)
		log.Info("using dynamodb wish store",
			zap.String("table", cfg.WishesTable),
			zap.String("runs_table", cfg.ReleaseRunsTable))
	}

	a.Metrics = metrics.NewPrometheus()
	a.Recorder = a.Metrics
	if cfg.CloudWatchMetrics {
		clients, err := a.awsClients(ctx)
		if err != nil {
			return nil, err
		}
		a.Recorder = metrics.Multi{a.Metrics, metrics.NewCloudWatch(clients.CloudWatch, cfg.MetricsNamespace)}
	}

	if cfg.ReleaseQueueURL != "" {
		clients, err := a.awsClients(ctx)
		if err != nil {
			return nil, err
		}
		a.Publisher = aws.NewPublisher(clients.SQS, cfg.ReleaseQueueURL)
	}

	a.Releaser = release.NewService(a.Store, a.Ledger, a.Recorder, cfg.ReleaseRunKey)
	a.Router = a.newRouter()
	return a, nil
}

func (a *App) awsClients(ctx context.Context) (*aws.AWSClients, error) {
	if a.clients != nil {
		return a.clients, nil
	}
	c, err := a.newClients(ctx, a.Config.AWSSettings())
	if err != nil {
		return nil, fmt.Errorf("init aws clients: %w", err)
	}
	a.clients = c
	return c, nil
}

func (a *App) newRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(a.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(a.Metrics.Handler()))

	handlers.RegisterWishRoutes(r, handlers.HandlerConfig{
		Store:            a.Store,
		Releaser:         a.Releaser,
		Publisher:        a.Publisher,
		Metrics:          a.Recorder,
		MaxWishesPerUser: a.Config.MaxWishesPerUser,
		ReleaseAPIKey:    a.Config.ReleaseAPIKey,
		ReleaseRunKey:    a.Config.ReleaseRunKey,
		CountdownTarget:  a.Config.CountdownTarget,
		ReleaseTime:      a.Config.ReleaseTime,
		ReleaseMessage:   a.Config.ReleaseMessage,
		Now:              a.now,
	})
	return r
}

// Run serves HTTP on cfg.HTTPAddr and, when enabled, runs the release
// scheduler. It blocks until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	var sched *release.Scheduler
	if a.Config.SchedulerEnabled {
		var err error
		sched, err = release.NewScheduler(a.Releaser, a.Config.ReleaseSchedule, a.Config.ReleaseTime,
			a.Config.ReleaseRunKey, a.Logger.Named("scheduler"))
		if err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              a.Config.HTTPAddr,
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.Logger.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	if sched != nil {
		g.Go(func() error { return sched.Run(ctx) })
	}

	return g.Wait()
}
