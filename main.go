package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"eng_portal/internal/auth"
	"eng_portal/internal/backend"
	"eng_portal/internal/backend/memory"
	"eng_portal/internal/backend/postgres"
	"eng_portal/internal/storage"
)

var configPath string

// sweepInterval is how often idle workspaces are reclaimed.
const sweepInterval = time.Minute

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "eng_portal",
		Short:        "Engineering portal: daily logs, action tracking and training records",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file")
	root.PersistentFlags().String("dsn", "", "PostgreSQL connection string")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	cmd.Flags().String("addr", "", "listen address")
	cmd.Flags().String("driver", "", "database driver (postgres or memory)")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := postgres.Open(cmd.Context(), cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if len(args) == 1 && args[0] == "down" {
				if err := db.MigrateDown(); err != nil {
					return err
				}
				logger.Info("migrations rolled back")
				return nil
			}
			if err := db.MigrateUp(); err != nil {
				return err
			}
			logger.Info("migrations applied")
			return nil
		},
	}
}

// openBackend connects the record store and user store for the configured
// driver. Attachments always go to disk.
func openBackend(ctx context.Context, cfg config, logger *zap.Logger) (backend.Client, auth.UserStore, func(), error) {
	files, err := storage.NewDisk(cfg.Storage.Dir, cfg.Storage.PublicURL)
	if err != nil {
		return nil, nil, nil, err
	}

	if cfg.Database.Driver == "memory" {
		logger.Warn("using in-memory backend, data is lost on exit")
		mem := memory.New()
		return backend.Compose(mem, mem, files), memory.NewUsers(), func() {}, nil
	}

	logger.Info("connecting to database")
	db, err := postgres.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Info("database connection successful")
	return backend.Compose(db, db, files), db, func() { db.Close() }, nil
}

func serve(ctx context.Context, cfg config, logger *zap.Logger) error {
	client, users, closeBackend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	s := newServer(cfg, logger, client, users)
	defer s.portal.Close()
	go s.portal.RunSweeper(ctx, sweepInterval, cfg.Session.IdleTimeout)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
