package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Pool manages a MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MariaDB connection pool.
// parseTime is forced on so DATETIME columns scan into time.Time.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MariaDB DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// Ping checks that the database is reachable.
func (p *Pool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// EnsureSchema creates the identities table when it does not exist yet.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS identities (
			seq           BIGINT NOT NULL AUTO_INCREMENT UNIQUE,
			uuid          VARCHAR(36) NOT NULL PRIMARY KEY,
			photo         LONGTEXT NOT NULL,
			fingerprint   CHAR(64) NULL UNIQUE,
			first_name    VARCHAR(255) NULL,
			last_name     VARCHAR(255) NULL,
			grade         INT NULL,
			is_registered BOOLEAN NOT NULL DEFAULT FALSE,
			created_at    DATETIME(6) NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
	`
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create identities table: %w", err)
	}
	return nil
}

// Open connects to MariaDB and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Pool, error) {
	pool, err := NewPool(dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
