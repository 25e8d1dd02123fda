package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the Postgres store needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore implements Store on a single "documents" table holding
// typed fields in a jsonb column.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a PostgresStore with the given connection pool.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get fetches the document at path.
func (s *PostgresStore) Get(ctx context.Context, path string) (Document, error) {
	collection, id, err := SplitPath(path)
	if err != nil {
		return nil, err
	}

	var raw []byte
	err = s.db.QueryRow(ctx,
		`SELECT fields FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", path, err)
	}

	var fields map[string]wireValue
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", path, err)
	}
	return decodeFields(fields), nil
}

// Patch creates or replaces the document at path.
func (s *PostgresStore) Patch(ctx context.Context, path string, doc Document) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return err
	}

	fields, err := encodeFields(doc)
	if err != nil {
		return fmt.Errorf("patch document %s: %w", path, err)
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("patch document %s: encode: %w", path, err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO documents (collection, id, fields, updated_at)
		 VALUES ($1, $2, $3::jsonb, NOW())
		 ON CONFLICT (collection, id)
		 DO UPDATE SET fields = EXCLUDED.fields, updated_at = NOW()`,
		collection, id, string(raw),
	)
	if err != nil {
		return fmt.Errorf("patch document %s: %w", path, err)
	}
	return nil
}

// Delete removes the document at path; a missing document is not an error.
func (s *PostgresStore) Delete(ctx context.Context, path string) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", path, err)
	}
	return nil
}
