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
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/Gym-Booking-System/internal/booking/application"
	bookinggrpc "github.com/dmehra2102/Gym-Booking-System/internal/booking/infrastructure/grpc"
	bookinghttp "github.com/dmehra2102/Gym-Booking-System/internal/booking/infrastructure/http"
	bookingmem "github.com/dmehra2102/Gym-Booking-System/internal/booking/infrastructure/memory"
	"github.com/dmehra2102/Gym-Booking-System/internal/booking/infrastructure/messaging"
	bookingpg "github.com/dmehra2102/Gym-Booking-System/internal/booking/infrastructure/postgres"
	"github.com/dmehra2102/Gym-Booking-System/pkg/channel"
	"github.com/dmehra2102/Gym-Booking-System/pkg/clock"
	"github.com/dmehra2102/Gym-Booking-System/pkg/logging"
	"github.com/dmehra2102/Gym-Booking-System/pkg/outbox"
	"github.com/dmehra2102/Gym-Booking-System/pkg/shutdown"
	"github.com/dmehra2102/Gym-Booking-System/pkg/tracing"
)

const serviceName = "booking-service"

func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		slog.Error("load config failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(serviceName, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("booking-service stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("booking-service shutdown complete")
}

func run(cfg Config, log *slog.Logger) error {
	ctx, cancel := shutdown.WithSignals(context.Background(), log)
	defer cancel()

	tp, err := tracing.Init(ctx, serviceName, cfg.OTLPEndpoint, log)
	if err != nil {
		return err
	}

	if cfg.PublishMode == "outbox" && cfg.Store != "postgres" {
		return errors.Newf("PUBLISH_MODE=outbox requires STORE=postgres, got %q", cfg.Store)
	}

	bus, err := channel.Open(ctx, cfg.Channel, log)
	if err != nil {
		return errors.Wrap(err, "open channel")
	}

	var (
		repo   application.BookingRepository
		events application.EventPublisher = messaging.NewPublisher(log, bus)
		queue  application.OutboxRepository
		relay  *outbox.Relay
	)
	switch cfg.Store {
	case "memory":
		log.Warn("using in-memory booking store, data is lost on restart")
		repo = bookingmem.NewRepository()
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.PGURL)
		if err != nil {
			return errors.Wrap(err, "pg connect")
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			return errors.Wrap(err, "pg ping")
		}
		if err := bookingpg.Migrate(ctx, pool); err != nil {
			return err
		}
		pgRepo := bookingpg.NewRepository(log, pool)
		repo = pgRepo
		if cfg.PublishMode == "outbox" {
			queue = pgRepo
			dispatch := outbox.NewDispatcher(log, bus)
			relay = outbox.NewRelay(log, bookingpg.NewOutboxStore(log, pool), dispatch, serviceName+"-"+uuid.NewString())
		}
	default:
		return errors.Newf("unknown store %q", cfg.Store)
	}

	classes, err := bookinggrpc.NewClassClient(log, cfg.ClassServiceAddr, cfg.ClassServiceTimeout)
	if err != nil {
		return err
	}
	defer classes.Close()

	svc := application.NewService(log, repo, classes, events, clock.NewRealClock())
	if queue != nil {
		svc.WithOutbox(queue)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Mount("/", bookinghttp.NewHandler(log, svc).Routes())
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}
	g.Go(func() error {
		log.Info("http listening", "addr", cfg.HTTPAddr, "publish_mode", cfg.PublishMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return shutdown.Drain(cfg.ShutdownTimeout,
			srv.Shutdown,
			func(context.Context) error { return bus.Close() },
			tp.Shutdown,
		)
	})
	return g.Wait()
}
