package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bulldogcinemas/cinema-go/internal/config"
	"github.com/bulldogcinemas/cinema-go/internal/notify"
	"github.com/bulldogcinemas/cinema-go/internal/postgres"
	"github.com/bulldogcinemas/cinema-go/internal/redis"
	"github.com/bulldogcinemas/cinema-go/internal/repository"
	memoryrepo "github.com/bulldogcinemas/cinema-go/internal/repository/memory"
	postgresrepo "github.com/bulldogcinemas/cinema-go/internal/repository/postgres"
	redisrepo "github.com/bulldogcinemas/cinema-go/internal/repository/redis"
	"github.com/bulldogcinemas/cinema-go/internal/service"
	"github.com/bulldogcinemas/cinema-go/internal/service/hold"
	httpgin "github.com/bulldogcinemas/cinema-go/internal/transport/http/gin"
	"github.com/bulldogcinemas/cinema-go/internal/worker"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	sweeper    *worker.Sweeper
	notifier   *notify.AMQPNotifier
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Storage backend: postgres in production, memory for local dev.
	var store repository.Store
	switch cfg.Store {
	case "memory":
		store = memoryrepo.NewStore()
		logger.Warn("using in-memory store, data is not persisted")
	default:
		dsn := fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.Postgres.User,
			cfg.Postgres.Password,
			cfg.Postgres.Host,
			cfg.Postgres.Port,
			cfg.Postgres.Name,
			cfg.Postgres.SSLMode,
		)

		pgxPool, err := postgres.New(context.Background(), postgres.Config{DSN: dsn})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}

		store = postgresrepo.NewStore(pgxPool)
	}

	// Redis is optional; without it the services fall back to direct reads,
	// no rate limiting, and no idempotent hold replay.
	var (
		cache            *redisrepo.Cache
		pubsub           *redisrepo.ShowtimesPubSub
		limiter          *redisrepo.SlidingWindowLimiter
		idempotencyStore *redisrepo.IdempotencyStore
	)
	if cfg.Redis.Addr != "" {
		rdb, err := redis.New(context.Background(), redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}

		cache = redisrepo.New(rdb)
		pubsub = redisrepo.NewShowtimesPubSub(rdb)
		limiter = redisrepo.NewSlidingWindowLimiter(rdb, "rl", cfg.Hold.RateLimit, cfg.Hold.RateWindow)
		idempotencyStore = redisrepo.NewIdempotencyStore(rdb, 2*time.Hour)
	}

	var notifier *notify.AMQPNotifier
	if cfg.RabbitMQ.URL != "" {
		var err error
		notifier, err = notify.NewAMQPNotifier(cfg.RabbitMQ.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize rabbitmq: %w", err)
		}
	}

	services := service.NewServices(service.Deps{
		Store:   store,
		Cache:   cache,
		PubSub:  pubsub,
		Limiter: limiter,
		// notify.Notifier is an interface; only pass the concrete value when
		// it exists, a typed nil would dodge the services' nil checks.
		Notifier: func() notify.Notifier {
			if notifier == nil {
				return nil
			}
			return notifier
		}(),
		Logger: logger,
		HoldCfg: hold.Config{
			DefaultTTL: cfg.Hold.DefaultTTL,
			MinTTL:     cfg.Hold.MinTTL,
			MaxTTL:     cfg.Hold.MaxTTL,
		},
	})

	router := httpgin.NewRouter(services, idempotencyStore, cfg.JWT.Secret, logger)

	var sweeper *worker.Sweeper
	if cfg.Hold.SweepInterval > 0 {
		sweeper = worker.NewSweeper(store, cfg.Hold.SweepInterval, logger)
	}

	return &App{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
		sweeper:  sweeper,
		notifier: notifier,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	if a.sweeper != nil {
		g.Go(func() error {
			a.sweeper.Run(gCtx)
			return nil
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := a.httpServer.Shutdown(ctx)
		if a.notifier != nil {
			_ = a.notifier.Close()
		}
		return err
	})

	return g.Wait()
}
