package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/email"
	appointmenthandler "github.com/jwalitptl/clinic-api/internal/handler/appointment"
	authhandler "github.com/jwalitptl/clinic-api/internal/handler/auth"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	patienthandler "github.com/jwalitptl/clinic-api/internal/handler/patient"
	paymenthandler "github.com/jwalitptl/clinic-api/internal/handler/payment"
	promhandler "github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	visithandler "github.com/jwalitptl/clinic-api/internal/handler/visit"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-api/internal/router"
	appointmentservice "github.com/jwalitptl/clinic-api/internal/service/appointment"
	authservice "github.com/jwalitptl/clinic-api/internal/service/auth"
	"github.com/jwalitptl/clinic-api/internal/service/notification"
	patientservice "github.com/jwalitptl/clinic-api/internal/service/patient"
	paymentservice "github.com/jwalitptl/clinic-api/internal/service/payment"
	visitservice "github.com/jwalitptl/clinic-api/internal/service/visit"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api server stopped")
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
		Service: "clinic-api",
	})
	gin.SetMode(cfg.Server.Mode)

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
	go metrics.NewSystemCollector(cfg.Metrics.Namespace, reg).Run(ctx, cfg.Metrics.SystemInterval)

	base := postgres.NewBaseRepository(db, m)
	patients := postgres.NewPatientRepository(base)
	visits := postgres.NewVisitRepository(base)
	users := postgres.NewUserRepository(base)

	authSvc := authservice.NewService(
		users,
		auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry()),
		security.NewBcryptHasher(cfg.Auth.BcryptCost),
		authservice.Options{},
		m,
		appLog.With(map[string]any{"component": "auth"}),
	)
	notifier := notification.NewService(m, appLog.With(map[string]any{"component": "notification"}), senders(cfg.Notification)...)

	handlers := router.Handlers{
		Auth: authhandler.NewHandler(authSvc, cfg.Server.CookieSecure),
		Health: health.NewHandler(map[string]health.Check{
			"database": db.PingContext,
		}),
		Metrics: promhandler.New(cfg.Metrics.Namespace, reg),
		Patient: patienthandler.NewHandler(patientservice.NewService(patients, appLog)),
		Visit:   visithandler.NewHandler(visitservice.NewService(visits, patients, m, appLog)),
		Payment: paymenthandler.NewHandler(paymentservice.NewService(visits, patients, m, appLog)),
		Appointment: appointmenthandler.NewHandler(
			appointmentservice.NewService(patients, notifier, cfg.Notification.ClinicName, appLog)),
	}

	r := router.NewRouter(router.Config{
		Server:    cfg.Server,
		RateLimit: cfg.RateLimit,
		CORS:      cfg.CORS,
	}, middleware.NewAuthMiddleware(authSvc), handlers)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	appLog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	appLog.Info("server exited")
	return nil
}

// senders builds the enabled notification channels. Reminders sent from the
// API use the same channels as the worker.
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
