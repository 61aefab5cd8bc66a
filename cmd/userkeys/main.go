package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/atvirokodosprendimai/userkeys/internal/app"
	"github.com/atvirokodosprendimai/userkeys/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	cmd := &cli.Command{
		Name:  "userkeys",
		Usage: "User profile and per-service API key service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":8080",
				Sources: cli.EnvVars("USERKEYS_ADDR"),
				Usage:   "HTTP listen address",
			},
			&cli.StringFlag{
				Name:    "db-driver",
				Value:   app.DriverSQLite,
				Sources: cli.EnvVars("USERKEYS_DB_DRIVER"),
				Usage:   "Database driver: sqlite or postgres",
			},
			&cli.StringFlag{
				Name:    "db-path",
				Value:   "./userkeys.sqlite",
				Sources: cli.EnvVars("USERKEYS_DB_PATH"),
				Usage:   "SQLite file path",
			},
			&cli.StringFlag{
				Name:    "database-url",
				Sources: cli.EnvVars("USERKEYS_DATABASE_URL", "DATABASE_URL"),
				Usage:   "PostgreSQL connection string",
			},
			&cli.StringFlag{
				Name:     "jwt-secret",
				Sources:  cli.EnvVars("USERKEYS_JWT_SECRET"),
				Usage:    "HMAC secret for HS256 bearer tokens",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "bootstrap-admin",
				Sources: cli.EnvVars("USERKEYS_BOOTSTRAP_ADMIN"),
				Usage:   "Optional username to upsert with the admin role at startup",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Sources: cli.EnvVars("USERKEYS_DEBUG"),
				Usage:   "Enable debug logging",
			},
			&cli.DurationFlag{
				Name:    "shutdown-timeout",
				Value:   10 * time.Second,
				Sources: cli.EnvVars("USERKEYS_SHUTDOWN_TIMEOUT"),
				Usage:   "Graceful shutdown deadline",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := app.Config{
				Addr:            c.String("addr"),
				DBDriver:        c.String("db-driver"),
				DBPath:          c.String("db-path"),
				DatabaseURL:     c.String("database-url"),
				JWTSecret:       c.String("jwt-secret"),
				BootstrapAdmin:  c.String("bootstrap-admin"),
				Debug:           c.Bool("debug"),
				ShutdownTimeout: c.Duration("shutdown-timeout"),
			}

			lg, err := logger.New(cfg.Debug)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = lg.Sync() }()
			zap.ReplaceGlobals(lg)

			server, closer, err := app.NewServer(ctx, cfg, lg)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			defer func() {
				if closeErr := closer.Close(); closeErr != nil {
					lg.Error("close resources", zap.Error(closeErr))
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				lg.Info("listening", zap.String("addr", cfg.Addr), zap.String("db_driver", cfg.DBDriver))
				errCh <- server.ListenAndServe()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			shutdown := func() error {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}

			select {
			case <-ctx.Done():
				return shutdown()
			case sig := <-sigCh:
				lg.Info("received signal", zap.String("signal", sig.String()))
				return shutdown()
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
