package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	promhandler "github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-api/internal/service/notification"
	cleanup "github.com/jwalitptl/clinic-api/internal/worker"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("worker stopped")
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLog := logger.Setup(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "clinic-worker",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(cfg.Metrics.Namespace, reg)

	broker, err := redis.NewRedisBroker(ctx, cfg.Redis.ToBrokerConfig(), *appLog.Zerolog(), m)
	if err != nil {
		return fmt.Errorf("failed to create Redis broker: %w", err)
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(postgres.NewBaseRepository(db, m))

	processor, err := worker.NewOutboxProcessor(
		outboxRepo,
		broker,
		cfg.Notification.Topic,
		cfg.Outbox.ToWorkerConfig(),
		appLog.With(map[string]any{"component": "outbox-processor"}),
		m,
	)
	if err != nil {
		return fmt.Errorf("invalid outbox configuration: %w", err)
	}

	cleaner, err := cleanup.NewOutboxCleanupWorker(
		outboxRepo,
		cfg.Outbox.Retention,
		cfg.Outbox.CleanupInterval,
		appLog.With(map[string]any{"component": "outbox-cleanup"}),
		m,
	)
	if err != nil {
		return fmt.Errorf("invalid outbox cleanup configuration: %w", err)
	}

	notifier := notification.NewService(m, appLog.With(map[string]any{"component": "notification"}), senders(cfg.Notification)...)
	consumer := notification.NewConsumer(notifier, cfg.Notification.ClinicName, appLog.With(map[string]any{"component": "consumer"}))

	srv := &http.Server{
		Addr:              cfg.Metrics.WorkerAddr,
		Handler:           opsEngine(cfg.Metrics.Namespace, reg, map[string]health.Check{"database": db.PingContext, "redis": broker.Ping}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var wg sync.WaitGroup
	start := func(name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
			appLog.Info("component stopped", "component", name)
		}()
	}

	start("outbox-processor", func() { processor.Start(ctx) })
	start("outbox-cleanup", func() { cleaner.Start(ctx) })
	start("system-metrics", func() { metrics.NewSystemCollector(cfg.Metrics.Namespace, reg).Run(ctx, cfg.Metrics.SystemInterval) })
	start("consumer", func() {
		if err := broker.Subscribe(ctx, cfg.Notification.Topic, consumer.Handle); err != nil {
			appLog.Error(err, "notification consumer failed")
			stop()
		}
	})
	start("ops-server", func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error(err, "ops server failed")
			stop()
		}
	})

	appLog.Info("worker started", "topic", cfg.Notification.Topic, "ops_addr", cfg.Metrics.WorkerAddr)
	<-ctx.Done()

	appLog.Info("shutting down worker")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Warn(err, "ops server shutdown")
	}
	wg.Wait()
	return nil
}

// opsEngine serves metrics and health checks for the worker process
func opsEngine(namespace string, reg *prometheus.Registry, checks map[string]health.Check) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	prom := promhandler.New(namespace, reg)
	engine.Use(prom.Middleware())
	engine.GET("/metrics", prom.Handler())

	health.NewHandler(checks).RegisterRoutes(engine)
	return engine
}

func senders(cfg config.NotificationConfig) []notification.Sender {
	var out []notification.Sender
	if cfg.WhatsApp.Enabled {
		out = append(out, notification.NewWhatsAppSender(cfg.WhatsApp))
	}
	if cfg.SMTP.Enabled {
		out = append(out, notification.NewEmailSender(email.NewSMTPService(cfg.SMTP)))
	}
	return out
}
