package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const collectionsSchema = `
	CREATE TABLE IF NOT EXISTS medconsult_collections (
		name       TEXT PRIMARY KEY,
		document   JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// PostgresBackend keeps one JSONB document per collection.
type PostgresBackend struct {
	db *sqlx.DB
}

// NewDB opens and pings a postgres connection for the given DSN.
func NewDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func NewPostgresBackend(db *sqlx.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// Migrate creates the collections table if it does not exist.
func (b *PostgresBackend) Migrate(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, collectionsSchema); err != nil {
		return fmt.Errorf("failed to create collections table: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Read(ctx context.Context, c Collection) ([]byte, error) {
	query := `
		SELECT document
		FROM medconsult_collections
		WHERE name = $1
	`
	var document []byte
	err := b.db.QueryRowxContext(ctx, query, string(c)).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	return document, nil
}

func (b *PostgresBackend) Write(ctx context.Context, c Collection, data []byte) error {
	query := `
		INSERT INTO medconsult_collections (name, document, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE
		SET document = EXCLUDED.document, updated_at = NOW()
	`
	_, err := b.db.ExecContext(ctx, query, string(c), string(data))
	return err
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *PostgresBackend) Close() error {
	return b.db.Close()
}
