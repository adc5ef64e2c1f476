// Package store keeps a history of installed prediction maps in DuckDB.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-pestmap/internal/surface"
)

// ErrNotFound is returned when a snapshot id is unknown.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot describes one saved prediction map.
type Snapshot struct {
	ID        string    `json:"id" doc:"Snapshot ID"`
	Label     string    `json:"label" doc:"Free-form label"`
	CreatedAt time.Time `json:"createdAt" doc:"Creation time (UTC)"`
	Regions   int       `json:"regions" doc:"Number of region rows"`
}

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         VARCHAR PRIMARY KEY,
	label      VARCHAR NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshot_rows (
	snapshot_id VARCHAR NOT NULL,
	region_code VARCHAR NOT NULL,
	risk_level  INTEGER NOT NULL,
	probability DOUBLE NOT NULL,
	temperature DOUBLE NOT NULL,
	humidity    DOUBLE NOT NULL,
	source      VARCHAR NOT NULL,
	PRIMARY KEY (snapshot_id, region_code)
);`

// Store persists snapshots.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// New creates the schema if needed.
func New(ctx context.Context, db *sql.DB, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating snapshot schema: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Save writes preds under a new id.
func (s *Store) Save(ctx context.Context, label string, preds surface.Predictions) (Snapshot, error) {
	snap := Snapshot{
		ID:        uuid.NewString(),
		Label:     label,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		Regions:   len(preds),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("saving snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, label, created_at) VALUES (?, ?, ?)`,
		snap.ID, snap.Label, snap.CreatedAt,
	); err != nil {
		return Snapshot{}, fmt.Errorf("saving snapshot: %w", err)
	}
	for _, code := range preds.Codes() {
		p := preds[code]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snapshot_rows VALUES (?, ?, ?, ?, ?, ?, ?)`,
			snap.ID, code, p.RiskLevel, p.Probability, p.Temperature, p.Humidity, string(p.Source),
		); err != nil {
			return Snapshot{}, fmt.Errorf("saving snapshot row %s: %w", code, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("saving snapshot: %w", err)
	}

	s.log.Info("saved snapshot", zap.String("id", snap.ID), zap.String("label", label), zap.Int("regions", snap.Regions))
	return snap, nil
}

// List returns all snapshots, newest first.
func (s *Store) List(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.label, s.created_at, count(r.region_code)
		FROM snapshots s
		LEFT JOIN snapshot_rows r ON r.snapshot_id = s.id
		GROUP BY s.id, s.label, s.created_at
		ORDER BY s.created_at DESC, s.id`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	out := []Snapshot{}
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.Label, &snap.CreatedAt, &snap.Regions); err != nil {
			return nil, fmt.Errorf("listing snapshots: %w", err)
		}
		snap.CreatedAt = snap.CreatedAt.UTC()
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Load returns the snapshot and its prediction map.
func (s *Store) Load(ctx context.Context, id string) (Snapshot, surface.Predictions, error) {
	var snap Snapshot
	err := s.db.QueryRowContext(ctx,
		`SELECT id, label, created_at FROM snapshots WHERE id = ?`, id,
	).Scan(&snap.ID, &snap.Label, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Snapshot{}, nil, fmt.Errorf("loading snapshot %s: %w", id, err)
	}
	snap.CreatedAt = snap.CreatedAt.UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT region_code, risk_level, probability, temperature, humidity, source
		FROM snapshot_rows WHERE snapshot_id = ?`, id)
	if err != nil {
		return Snapshot{}, nil, fmt.Errorf("loading snapshot %s: %w", id, err)
	}
	defer rows.Close()

	preds := surface.Predictions{}
	for rows.Next() {
		var p surface.PredictionPoint
		var source string
		if err := rows.Scan(&p.RegionCode, &p.RiskLevel, &p.Probability, &p.Temperature, &p.Humidity, &source); err != nil {
			return Snapshot{}, nil, fmt.Errorf("loading snapshot %s: %w", id, err)
		}
		p.Source = surface.Source(source)
		preds[p.RegionCode] = p
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, nil, fmt.Errorf("loading snapshot %s: %w", id, err)
	}
	snap.Regions = len(preds)
	return snap, preds, nil
}

// Delete removes a snapshot and its rows.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_rows WHERE snapshot_id = ?`, id); err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}
