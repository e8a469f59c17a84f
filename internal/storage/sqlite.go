// Package storage keeps session snapshots on disk.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"luckydraw/internal/models"
)

// SQLiteStore persists one JSON snapshot per tenant.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. ":memory:" works
// for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS snapshots (
		tenant_id TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create snapshots table: %w", err)
	}
	return nil
}

// Save replaces the tenant's snapshot.
func (s *SQLiteStore) Save(ctx context.Context, tenantID string, snap models.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (tenant_id, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		tenantID, string(body), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving snapshot for %s: %w", tenantID, err)
	}
	return nil
}

// Load returns the tenant's snapshot and whether one was stored.
func (s *SQLiteStore) Load(ctx context.Context, tenantID string) (models.Snapshot, bool, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM snapshots WHERE tenant_id = ?`, tenantID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Snapshot{}, false, nil
	}
	if err != nil {
		return models.Snapshot{}, false, fmt.Errorf("loading snapshot for %s: %w", tenantID, err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		return models.Snapshot{}, false, fmt.Errorf("decoding snapshot for %s: %w", tenantID, err)
	}
	return snap, true, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, tenantID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE tenant_id = ?`, tenantID); err != nil {
		return fmt.Errorf("deleting snapshot for %s: %w", tenantID, err)
	}
	return nil
}

// Tenants lists the stored tenant IDs, most recently saved first.
func (s *SQLiteStore) Tenants(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tenant_id FROM snapshots ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
