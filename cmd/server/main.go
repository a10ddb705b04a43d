package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"safeband/internal/alert"
	alertmetrics "safeband/internal/alert/metrics"
	brhandler "safeband/internal/bracelet/handler"
	braceletmetrics "safeband/internal/bracelet/metrics"
	braceletservice "safeband/internal/bracelet/service"
	braceletstore "safeband/internal/bracelet/store"
	gfhandler "safeband/internal/geofence/handler"
	geofencemetrics "safeband/internal/geofence/metrics"
	geofenceservice "safeband/internal/geofence/service"
	geofencestore "safeband/internal/geofence/store"
	"safeband/internal/platform/config"
	"safeband/internal/platform/httpserver"
	"safeband/internal/platform/logger"
	"safeband/internal/platform/postgres"
	"safeband/internal/platform/redis"
	"safeband/internal/tracking/mqtt"
	"safeband/internal/tracking/simulator"
	"safeband/internal/transport/router"
)

const shutdownTimeout = 10 * time.Second

// main wires dependencies and owns the process lifecycle. Business
// logic lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores: postgres when configured, in-memory otherwise.
	var (
		identities braceletstore.IdentityStore = braceletstore.NewInMemory()
		zones      geofencestore.ZoneStore     = geofencestore.NewInMemory()
		health     []router.HealthCheck
	)
	if cfg.Postgres.DSN != "" {
		db, err := postgres.Open(cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		identities = braceletstore.NewPostgres(db)
		zones = geofencestore.NewPostgres(db)
		health = append(health, router.HealthCheck{Name: "postgres", Probe: db.PingContext})
	}

	// Alert engine with log fanout; Redis fanout when configured.
	engineOpts := []alert.Option{
		alert.WithLogger(log),
		alert.WithMetrics(alertmetrics.New()),
		alert.WithSink(alert.NewLogSink(log)),
	}
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		engineOpts = append(engineOpts, alert.WithSink(alert.NewRedisSink(redisClient.Client)))
		health = append(health, router.HealthCheck{Name: "redis", Probe: redisClient.Health})
	}
	engine := alert.NewEngine(engineOpts...)

	bracelets := braceletservice.New(identities,
		braceletservice.WithLogger(log),
		braceletservice.WithMetrics(braceletmetrics.New()),
		braceletservice.WithActivationThrottle(10, 15*time.Minute),
	)
	geofences := geofenceservice.New(zones, engine,
		geofenceservice.WithLogger(log),
		geofenceservice.WithMetrics(geofencemetrics.New()),
	)

	r := router.New(router.Deps{
		Logger:        log,
		JWTSigningKey: cfg.JWTSigningKey,
		AdminKeyHash:  cfg.AdminKeyHash,
		Bracelets:     brhandler.New(bracelets, log),
		Geofence:      gfhandler.New(geofences, log),
		HealthChecks:  health,
	})
	srv := httpserver.New(cfg.Addr, r)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return engine.Run(ctx) })

	if cfg.MQTT.Broker != "" {
		source := mqtt.NewSource(cfg.MQTT, geofences, log)
		g.Go(func() error { return source.Run(ctx) })
	}
	if cfg.Simulator.Enabled {
		sim := simulator.New(cfg.Simulator, zones, geofences, log)
		g.Go(func() error { return sim.Run(ctx) })
	}

	g.Go(func() error {
		log.Info("safeband server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
