package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arvi-k/physlab/internal/core"
)

// ErrRunNotFound is returned when a run ID has no row in the archive.
var ErrRunNotFound = errors.New("server: run not found")

// RunRecord is one archived run summary. The full event log lives in its own
// table and is fetched separately.
type RunRecord struct {
	ID        string             `json:"id"`
	Lab       string             `json:"lab"`
	Seed      int64              `json:"seed"`
	Rate      float64            `json:"rate"`
	SimTime   float64            `json:"sim_time"`
	Ticks     uint64             `json:"ticks"`
	Driver    string             `json:"driver,omitempty"`
	Phase     string             `json:"phase"`
	Terminal  bool               `json:"terminal"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// RunRepo persists finished runs and their event logs to the archive database.
type RunRepo struct {
	db *sql.DB
}

// NewRunRepo creates a repository backed by an initialized archive database.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

// Archive inserts the run summary and its events in a single transaction, so
// a failed insert never leaves a summary without its event log.
func (r *RunRepo) Archive(ctx context.Context, rec RunRecord, events []core.Event) error {
	metricsJSON, err := json.Marshal(rec.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics for run %s: %w", rec.ID, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, lab, seed, rate, sim_time, ticks, driver, phase, terminal, metrics, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Lab, rec.Seed, rec.Rate, rec.SimTime, rec.Ticks,
		rec.Driver, rec.Phase, rec.Terminal, string(metricsJSON), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", rec.ID, err)
	}

	for _, e := range events {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO events (run_id, tick, time, event_type, name, detail)
			VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, e.Tick, e.Time, string(e.Type), e.Name, e.Detail,
		)
		if err != nil {
			return fmt.Errorf("failed to insert event for run %s: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

// List returns all archived run summaries, newest first.
func (r *RunRepo) List(ctx context.Context) ([]RunRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, lab, seed, rate, sim_time, ticks, driver, phase, terminal, metrics, created_at
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var metricsJSON string
		err := rows.Scan(
			&rec.ID, &rec.Lab, &rec.Seed, &rec.Rate, &rec.SimTime, &rec.Ticks,
			&rec.Driver, &rec.Phase, &rec.Terminal, &metricsJSON, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if metricsJSON != "" && metricsJSON != "null" {
			if err := json.Unmarshal([]byte(metricsJSON), &rec.Metrics); err != nil {
				return nil, fmt.Errorf("failed to decode metrics for run %s: %w", rec.ID, err)
			}
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

// Get returns one archived run summary by ID.
func (r *RunRepo) Get(ctx context.Context, runID string) (*RunRecord, error) {
	var rec RunRecord
	var metricsJSON string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, lab, seed, rate, sim_time, ticks, driver, phase, terminal, metrics, created_at
		FROM runs WHERE id = ?`, runID).Scan(
		&rec.ID, &rec.Lab, &rec.Seed, &rec.Rate, &rec.SimTime, &rec.Ticks,
		&rec.Driver, &rec.Phase, &rec.Terminal, &metricsJSON, &rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", runID, err)
	}
	if metricsJSON != "" && metricsJSON != "null" {
		if err := json.Unmarshal([]byte(metricsJSON), &rec.Metrics); err != nil {
			return nil, fmt.Errorf("failed to decode metrics for run %s: %w", runID, err)
		}
	}
	return &rec, nil
}

// Events returns the archived event log of one run in tick order.
func (r *RunRepo) Events(ctx context.Context, runID string) ([]core.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tick, time, event_type, name, detail
		FROM events WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []core.Event
	for rows.Next() {
		var e core.Event
		var etype string
		if err := rows.Scan(&e.Tick, &e.Time, &etype, &e.Name, &e.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Type = core.EventType(etype)
		out = append(out, e)
	}

	return out, rows.Err()
}
