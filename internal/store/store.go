// Package store keeps one exported canvas document per canvas id in
// Postgres.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("canvas not found")
	ErrExists   = errors.New("canvas already exists")
)

const schema = `
CREATE TABLE IF NOT EXISTS canvases (
	id         TEXT PRIMARY KEY,
	version    INTEGER NOT NULL DEFAULT 1,
	document   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type Canvas struct {
	ID        string          `json:"id"`
	Version   int32           `json:"version"`
	Document  json.RawMessage `json:"document"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NewPool connects and pings the database.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the canvases table if needed.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const columns = `id, version, document, created_at, updated_at`

func scanCanvas(row pgx.Row) (*Canvas, error) {
	var c Canvas
	if err := row.Scan(&c.ID, &c.Version, &c.Document, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) Create(ctx context.Context, id string, doc []byte) (*Canvas, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO canvases (id, document) VALUES ($1, $2) RETURNING `+columns,
		id, doc)
	c, err := scanCanvas(row)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrExists
		}
		return nil, fmt.Errorf("create canvas: %w", err)
	}
	return c, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Canvas, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+columns+` FROM canvases WHERE id = $1`, id)
	c, err := scanCanvas(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get canvas: %w", err)
	}
	return c, nil
}

// Save replaces the document and bumps the version.
func (s *Store) Save(ctx context.Context, id string, doc []byte) (*Canvas, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE canvases
		SET document = $2, version = version + 1, updated_at = now()
		WHERE id = $1
		RETURNING `+columns,
		id, doc)
	c, err := scanCanvas(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("save canvas: %w", err)
	}
	return c, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM canvases WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete canvas: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
