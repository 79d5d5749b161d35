package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/nerrad567/clinic-auth/internal/infrastructure/database"
)

// SQLiteBackend keeps records in the records table created by the
// migrations package. Processes that open the same database file share
// records; the last write to a name wins.
type SQLiteBackend struct {
	db *database.DB
}

// NewSQLiteBackend returns a Backend over a migrated database.
func NewSQLiteBackend(db *database.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

func (b *SQLiteBackend) Get(ctx context.Context, name string) ([]byte, error) {
	var value string
	err := b.db.QueryRowContext(ctx, "SELECT value FROM records WHERE name = ?", name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (b *SQLiteBackend) Put(ctx context.Context, name string, value []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO records (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		name, string(value), time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (b *SQLiteBackend) Delete(ctx context.Context, name string) error {
	_, err := b.db.ExecContext(ctx, "DELETE FROM records WHERE name = ?", name)
	return err
}
