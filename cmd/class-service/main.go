package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/Gym-Booking-System/internal/class/application"
	classgrpc "github.com/dmehra2102/Gym-Booking-System/internal/class/infrastructure/grpc"
	classhttp "github.com/dmehra2102/Gym-Booking-System/internal/class/infrastructure/http"
	classmem "github.com/dmehra2102/Gym-Booking-System/internal/class/infrastructure/memory"
	"github.com/dmehra2102/Gym-Booking-System/internal/class/infrastructure/messaging"
	classpg "github.com/dmehra2102/Gym-Booking-System/internal/class/infrastructure/postgres"
	"github.com/dmehra2102/Gym-Booking-System/pkg/channel"
	"github.com/dmehra2102/Gym-Booking-System/pkg/idempotency"
	"github.com/dmehra2102/Gym-Booking-System/pkg/logging"
	"github.com/dmehra2102/Gym-Booking-System/pkg/shutdown"
	"github.com/dmehra2102/Gym-Booking-System/pkg/tracing"
)

const serviceName = "class-service"

func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		slog.Error("load config failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(serviceName, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("class-service stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("class-service shutdown complete")
}

func run(cfg Config, log *slog.Logger) error {
	ctx, cancel := shutdown.WithSignals(context.Background(), log)
	defer cancel()

	tp, err := tracing.Init(ctx, serviceName, cfg.OTLPEndpoint, log)
	if err != nil {
		return err
	}

	repo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	bus, err := channel.Open(ctx, cfg.Channel, log)
	if err != nil {
		return errors.Wrap(err, "open channel")
	}

	var idem messaging.Deduplicator
	if cfg.IdempotencyTTL > 0 {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Channel.RedisAddr})
		defer rdb.Close()
		idem = idempotency.NewStore(rdb, cfg.IdempotencyTTL)
		log.Info("redis duplicate filter enabled", "ttl", cfg.IdempotencyTTL)
	}

	svc := application.NewService(log, repo)
	consumer := messaging.NewConsumer(log, bus, cfg.ConsumerGroup, svc, idem)

	gs, err := classgrpc.Run(cfg.GRPCAddr, classgrpc.NewServer(log, svc))
	if err != nil {
		return errors.Wrap(err, "start grpc server")
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Mount("/", classhttp.NewHandler(log, svc).Routes())
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Run(gctx, cfg.ConsumerWorkers)
	})
	g.Go(func() error {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return shutdown.Drain(cfg.ShutdownTimeout,
			srv.Shutdown,
			func(context.Context) error { gs.GracefulStop(); return nil },
			func(context.Context) error { return bus.Close() },
			tp.Shutdown,
		)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg Config, log *slog.Logger) (application.ClassRepository, func(), error) {
	switch cfg.Store {
	case "memory":
		log.Warn("using in-memory class store, data is lost on restart")
		return classmem.NewRepository(), func() {}, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.PGURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "pg connect")
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "pg ping")
		}
		if err := classpg.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return classpg.NewRepository(log, pool), pool.Close, nil
	default:
		return nil, nil, errors.Newf("unknown store %q", cfg.Store)
	}
}
