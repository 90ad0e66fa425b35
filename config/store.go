package config

import (
	"context"
	"database/sql"
	"errors"
)

// Store persists a Config, keyed by its UniqueID. Implementations must be
// safe for concurrent use across a single process.
type Store interface {
	Get(ctx context.Context, uniqueID string) (*Config, error)
	Put(ctx context.Context, cfg *Config) error
}

// ErrNotFound is returned by Get when no config is stored for a unique id.
var ErrNotFound = errors.New("config: not found")

const migration = `
CREATE TABLE IF NOT EXISTS printer_configs (
	unique_id TEXT NOT NULL PRIMARY KEY,
	printer_id INTEGER NOT NULL,
	token TEXT NOT NULL,
	public_ip TEXT NOT NULL DEFAULT '',
	short_id TEXT NOT NULL DEFAULT '',
	in_setup INTEGER NOT NULL DEFAULT 1,
	name TEXT NOT NULL DEFAULT ''
) STRICT;
`

// SQLiteStore is a Store backed by a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) the printer_configs table on db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(migration); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, uniqueID string) (*Config, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT unique_id, printer_id, token, public_ip, short_id, in_setup, name
		FROM printer_configs WHERE unique_id = ?`, uniqueID)

	var cfg Config
	var inSetup int
	err := row.Scan(&cfg.UniqueID, &cfg.PrinterID, &cfg.Token, &cfg.PublicIP, &cfg.ShortID, &inSetup, &cfg.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	cfg.InSetup = inSetup != 0
	return &cfg, nil
}

func (s *SQLiteStore) Put(ctx context.Context, cfg *Config) error {
	inSetup := 0
	if cfg.InSetup {
		inSetup = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO printer_configs (unique_id, printer_id, token, public_ip, short_id, in_setup, name)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(unique_id) DO UPDATE SET
			printer_id = excluded.printer_id,
			token = excluded.token,
			public_ip = excluded.public_ip,
			short_id = excluded.short_id,
			in_setup = excluded.in_setup,
			name = excluded.name`,
		cfg.UniqueID, cfg.PrinterID, cfg.Token, cfg.PublicIP, cfg.ShortID, inSetup, cfg.Name)
	return err
}
