// Package storage provides the SQLite-backed student store: schema,
// raw query execution for SQL templates, and student/constancia persistence.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql

	"github.com/garyellow/school-records-go/internal/config"
	"github.com/garyellow/school-records-go/internal/logger"
)

// DB wraps the SQLite database connection
type DB struct {
	conn   *sql.DB
	path   string
	logger *logger.Logger
}

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	fmt.Sprintf("busy_timeout(%d)", config.DatabaseBusy.Milliseconds()),
	"foreign_keys(1)",
	"synchronous(NORMAL)",
}

func dsn(dbPath string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	if dbPath == ":memory:" {
		return "file::memory:?" + q.Encode()
	}
	return "file:" + dbPath + "?" + q.Encode()
}

// New opens the database, creating its directory if needed, and initializes the schema.
// log may be nil.
func New(ctx context.Context, dbPath string, log *logger.Logger) (*DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(4)
		conn.SetMaxIdleConns(2)
		conn.SetConnMaxLifetime(time.Hour)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := InitSchema(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if log == nil {
		log = logger.Discard()
	}

	return &DB{conn: conn, path: dbPath, logger: log.WithModule("storage")}, nil
}

// NewTestDB creates an in-memory database for testing.
// The database is discarded when closed.
func NewTestDB() (*DB, error) {
	return New(context.Background(), ":memory:", nil)
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Conn returns the underlying *sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Ping checks the connection. Used by the readiness probe.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// observe logs queries slower than config.SlowOperation.
func (db *DB) observe(ctx context.Context, op string, start time.Time) {
	if elapsed := time.Since(start); elapsed > config.SlowOperation {
		db.logger.WarnContext(ctx, "slow database operation",
			"operation", op,
			"duration_ms", elapsed.Milliseconds())
	}
}
