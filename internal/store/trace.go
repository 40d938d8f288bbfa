package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/keyflick/internal/gesture"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Trace is a recorded touch path. Label holds the expected result in the
// form produced by gesture.Result.String, or is empty for unlabeled traces.
type Trace struct {
	ID          string          `json:"id"`
	Label       string          `json:"label,omitempty"`
	Mode        string          `json:"mode"`
	AspectRatio float64         `json:"aspect_ratio"`
	Points      []gesture.Point `json:"points"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TraceRepository provides CRUD operations for traces.
type TraceRepository struct {
	db *sql.DB
}

// Traces returns the trace repository for this store.
func (s *Store) Traces() *TraceRepository {
	return &TraceRepository{db: s.db}
}

const traceColumns = `id, label, mode, aspect_ratio, points, created_at`

// Create inserts a new trace. A missing ID is filled with a random UUID
// and an empty mode defaults to "features".
func (r *TraceRepository) Create(t *Trace) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Mode == "" {
		t.Mode = "features"
	}
	if t.AspectRatio == 0 {
		t.AspectRatio = 1
	}
	t.CreatedAt = time.Now()

	points, err := json.Marshal(t.Points)
	if err != nil {
		return fmt.Errorf("failed to encode points: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO traces (id, label, mode, aspect_ratio, points, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Label, t.Mode, t.AspectRatio, string(points), t.CreatedAt,
	)
	return err
}

// GetByID retrieves a trace by its ID.
func (r *TraceRepository) GetByID(id string) (*Trace, error) {
	row := r.db.QueryRow(`SELECT `+traceColumns+` FROM traces WHERE id = ?`, id)

	t, err := scanTrace(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// List retrieves all traces, newest first.
func (r *TraceRepository) List() ([]*Trace, error) {
	return r.query(`SELECT ` + traceColumns + ` FROM traces ORDER BY created_at DESC`)
}

// ListLabeled retrieves the traces that carry an expected result, oldest
// first.
func (r *TraceRepository) ListLabeled() ([]*Trace, error) {
	return r.query(`SELECT ` + traceColumns + ` FROM traces WHERE label != '' ORDER BY created_at, id`)
}

// Delete removes a trace and its classifications.
func (r *TraceRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM traces WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *TraceRepository) query(q string, args ...any) ([]*Trace, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var traces []*Trace
	for rows.Next() {
		t, err := scanTrace(rows)
		if err != nil {
			return nil, err
		}
		traces = append(traces, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return traces, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrace(s scanner) (*Trace, error) {
	t := &Trace{}
	var points string

	if err := s.Scan(&t.ID, &t.Label, &t.Mode, &t.AspectRatio, &points, &t.CreatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(points), &t.Points); err != nil {
		return nil, fmt.Errorf("trace %s: failed to decode points: %w", t.ID, err)
	}
	return t, nil
}
