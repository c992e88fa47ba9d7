package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	authservice "github.com/jwalitptl/clinic-api/internal/service/auth"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

// adminPasswordEnv keeps the password out of shell history
const adminPasswordEnv = "CLINIC_ADMIN_PASSWORD"

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "clinicctl",
		Short:         "Operational tasks for the clinic records API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "directory containing config.yml")

	load := func() (*config.Config, *logger.Logger, error) {
		var paths []string
		if configPath != "" {
			paths = append(paths, configPath)
		}
		cfg, err := config.LoadConfig(paths...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		return cfg, logger.Setup(logger.Config{Level: cfg.Log.Level, Format: "console", Service: "clinicctl"}), nil
	}

	root.AddCommand(migrateCmd(load), createAdminCmd(load))
	return root
}

type loader func() (*config.Config, *logger.Logger, error)

func withDB(cmd *cobra.Command, load loader, fn func(ctx context.Context, db *sqlx.DB, cfg *config.Config, log *logger.Logger) error) error {
	cfg, log, err := load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, db, cfg, log)
}

func migrateCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, load, func(ctx context.Context, db *sqlx.DB, _ *config.Config, log *logger.Logger) error {
				applied, err := postgres.Migrate(ctx, db)
				if err != nil {
					return err
				}
				log.Info("migrations complete", "applied", len(applied))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations that have not been applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, load, func(ctx context.Context, db *sqlx.DB, _ *config.Config, _ *logger.Logger) error {
				pending, err := postgres.PendingMigrations(ctx, db)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(pending) == 0 {
					fmt.Fprintln(out, "schema is up to date")
					return nil
				}
				for _, name := range pending {
					fmt.Fprintln(out, "pending", name)
				}
				return nil
			})
		},
	})
	return cmd
}

type adminFlags struct {
	name  string
	email string
}

func (f adminFlags) request(password string) (*model.CreateUserRequest, error) {
	if f.email == "" {
		return nil, fmt.Errorf("--email is required")
	}
	if password == "" {
		return nil, fmt.Errorf("%s must be set", adminPasswordEnv)
	}
	name := f.name
	if name == "" {
		name = "Administrator"
	}
	return &model.CreateUserRequest{Name: name, Email: f.email, Password: password, Role: model.RoleAdmin}, nil
}

func createAdminCmd(load loader) *cobra.Command {
	var flags adminFlags

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin staff account",
		Long:  "Create an admin staff account. The password is read from " + adminPasswordEnv + ".",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := flags.request(os.Getenv(adminPasswordEnv))
			if err != nil {
				return err
			}

			return withDB(cmd, load, func(ctx context.Context, db *sqlx.DB, cfg *config.Config, log *logger.Logger) error {
				m := metrics.NewNoop()
				svc := authservice.NewService(
					postgres.NewUserRepository(postgres.NewBaseRepository(db, m)),
					auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry()),
					security.NewBcryptHasher(cfg.Auth.BcryptCost),
					authservice.Options{},
					m,
					log,
				)
				user, err := svc.Register(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Email, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&flags.name, "name", "", "display name")
	cmd.Flags().StringVar(&flags.email, "email", "", "login email")
	return cmd
}
