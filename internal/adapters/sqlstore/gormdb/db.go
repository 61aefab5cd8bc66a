package gormdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

// DB holds separate reader and writer handles. For PostgreSQL both point at
// the same pool.
type DB struct {
	R       *gorm.DB
	W       *gorm.DB
	Dialect string
}

type Tx struct {
	*gorm.DB
}

type cbfn func(tx *Tx) error

func (db *DB) ReadTX(ctx context.Context, fn cbfn) error {
	return db.R.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Tx{DB: tx})
	}, &sql.TxOptions{ReadOnly: true})
}

func (db *DB) WriteTX(ctx context.Context, fn cbfn) error {
	return db.W.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Tx{DB: tx})
	})
}

func (db *DB) WriteSQLDB() (*sql.DB, error) {
	return db.W.DB()
}

func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.R.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (db *DB) Close() error {
	var firstErr error
	closeOne := func(g *gorm.DB) {
		if err := closeGORM(g); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	closeOne(db.R)
	if db.W != db.R {
		closeOne(db.W)
	}
	return firstErr
}

var _ io.Closer = (*DB)(nil)

func newGORMConfig() *gorm.Config {
	return &gorm.Config{
		PrepareStmt: true,
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Silent,
				IgnoreRecordNotFoundError: true,
				ParameterizedQueries:      true,
				Colorful:                  false,
			},
		),
	}
}

// OpenSQLite opens file with one writer connection and a CPU-sized reader
// pool. Pragmas travel in the DSN so every pooled connection gets them.
func OpenSQLite(file string) (*DB, error) {
	reader, err := gorm.Open(gormsqlite.Dialector{DriverName: "sqlite", DSN: buildDSN(file, true)}, newGORMConfig())
	if err != nil {
		return nil, fmt.Errorf("open read db: %w", err)
	}

	writer, err := gorm.Open(gormsqlite.Dialector{DriverName: "sqlite", DSN: buildDSN(file, false)}, newGORMConfig())
	if err != nil {
		_ = closeGORM(reader)
		return nil, fmt.Errorf("open write db: %w", err)
	}

	rdb, err := reader.DB()
	if err != nil {
		_ = closeGORM(reader)
		_ = closeGORM(writer)
		return nil, fmt.Errorf("reader sql db: %w", err)
	}
	wdb, err := writer.DB()
	if err != nil {
		_ = closeGORM(reader)
		_ = closeGORM(writer)
		return nil, fmt.Errorf("writer sql db: %w", err)
	}

	rdb.SetMaxOpenConns(runtime.NumCPU())
	rdb.SetMaxIdleConns(runtime.NumCPU())
	rdb.SetConnMaxLifetime(0)
	rdb.SetConnMaxIdleTime(0)

	wdb.SetMaxOpenConns(1)
	wdb.SetMaxIdleConns(1)
	wdb.SetConnMaxLifetime(0)
	wdb.SetConnMaxIdleTime(0)

	return &DB{R: reader, W: writer, Dialect: DialectSQLite}, nil
}

func buildDSN(file string, readOnly bool) string {
	pragmas := []string{
		"journal_mode(WAL)",
		"synchronous(NORMAL)",
		"temp_store(MEMORY)",
		"foreign_keys(1)",
		"busy_timeout(5000)",
		"trusted_schema(OFF)",
	}
	if readOnly {
		pragmas = append(pragmas, "query_only(1)")
	} else {
		pragmas = append(pragmas, "query_only(0)")
	}

	return "file:" + file + "?_pragma=" + strings.Join(pragmas, "&_pragma=")
}

// OpenPostgres opens a single pool used for both reads and writes.
func OpenPostgres(dsn string) (*DB, error) {
	g, err := gorm.Open(postgres.Open(dsn), newGORMConfig())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := g.DB()
	if err != nil {
		_ = closeGORM(g)
		return nil, fmt.Errorf("postgres sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(4 * runtime.NumCPU())
	sqlDB.SetMaxIdleConns(runtime.NumCPU())
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return &DB{R: g, W: g, Dialect: DialectPostgres}, nil
}

// Open dispatches on driver ("sqlite" or "postgres").
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case "sqlite", DialectSQLite:
		return OpenSQLite(dsn)
	case DialectPostgres, "postgresql":
		return OpenPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func closeGORM(g *gorm.DB) error {
	if g == nil {
		return nil
	}
	sqlDB, err := g.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
