package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atvirokodosprendimai/userkeys/internal/adapters/httpapi"
	"github.com/atvirokodosprendimai/userkeys/internal/adapters/sqlstore"
	"github.com/atvirokodosprendimai/userkeys/internal/adapters/sqlstore/gormdb"
	"github.com/atvirokodosprendimai/userkeys/internal/adapters/token"
	"github.com/atvirokodosprendimai/userkeys/internal/core/domain"
	"github.com/atvirokodosprendimai/userkeys/internal/core/usecase"
	"github.com/atvirokodosprendimai/userkeys/migrations"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Addr            string
	DBDriver        string
	DBPath          string
	DatabaseURL     string
	JWTSecret       string
	BootstrapAdmin  string
	Debug           bool
	ShutdownTimeout time.Duration
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	switch c.DBDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			errs = append(errs, errors.New("db-path is required for the sqlite driver"))
		}
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("database-url is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported db-driver %q", c.DBDriver))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt-secret is required"))
	}
	if c.BootstrapAdmin != "" {
		if err := domain.ValidateUsername(c.BootstrapAdmin); err != nil {
			errs = append(errs, fmt.Errorf("bootstrap-admin: %w", err))
		}
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown-timeout must be positive"))
	}
	return errors.Join(errs...)
}

func (c Config) dsn() string {
	if c.DBDriver == DriverPostgres {
		return c.DatabaseURL
	}
	return c.DBPath
}

func NewServer(ctx context.Context, cfg Config, lg *zap.Logger) (*http.Server, io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	if lg == nil {
		lg = zap.NewNop()
	}

	decoder, err := token.NewHS256Decoder(cfg.JWTSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("token decoder: %w", err)
	}

	db, err := gormdb.Open(cfg.DBDriver, cfg.dsn())
	if err != nil {
		return nil, nil, err
	}

	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("resolve writer sql db: %w", err)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := migrations.Up(migrateCtx, writeSQLDB, db.Dialect); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	users := sqlstore.NewUserRepository(db)
	credentials := sqlstore.NewCredentialRepository(db)

	if cfg.BootstrapAdmin != "" {
		bootstrapCtx, bootstrapCancel := context.WithTimeout(ctx, 5*time.Second)
		admin, err := users.Upsert(bootstrapCtx, domain.User{
			Username:  cfg.BootstrapAdmin,
			Role:      domain.RoleAdmin,
			CreatedAt: time.Now().UTC(),
		})
		bootstrapCancel()
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("bootstrap admin: %w", err)
		}
		lg.Info("bootstrap admin ready", zap.String("username", admin.Username), zap.Uint64("user_id", admin.ID))
	}

	handler := httpapi.NewHandler(
		usecase.NewIdentityService(decoder, users),
		usecase.NewCredentialService(credentials),
		httpapi.WithLogger(lg),
		httpapi.WithHealthCheck(db.Ping),
	)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          zap.NewStdLog(lg),
	}

	return server, db, nil
}
