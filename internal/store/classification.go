package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayusman/keyflick/internal/gesture"
)

// Classification is the recognizer output recorded for a trace.
type Classification struct {
	ID        int64            `json:"id"`
	TraceID   string           `json:"trace_id"`
	Result    gesture.Result   `json:"result"`
	Features  gesture.Features `json:"features"`
	CreatedAt time.Time        `json:"created_at"`
}

// ClassificationRepository stores classification records.
type ClassificationRepository struct {
	db *sql.DB
}

// Classifications returns the classification repository for this store.
func (s *Store) Classifications() *ClassificationRepository {
	return &ClassificationRepository{db: s.db}
}

// Create inserts c and sets its ID and CreatedAt.
func (r *ClassificationRepository) Create(c *Classification) error {
	c.CreatedAt = time.Now()

	features, err := json.Marshal(c.Features)
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}

	result, err := r.db.Exec(
		`INSERT INTO classifications (trace_id, kind, direction, sense, features, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.TraceID, c.Result.Kind.String(), c.Result.Direction.String(), c.Result.Sense.String(),
		string(features), c.CreatedAt,
	)
	if err != nil {
		return err
	}

	c.ID, err = result.LastInsertId()
	return err
}

// GetByTraceID retrieves every classification of a trace, oldest first.
func (r *ClassificationRepository) GetByTraceID(traceID string) ([]Classification, error) {
	rows, err := r.db.Query(
		`SELECT id, trace_id, kind, direction, sense, features, created_at
		 FROM classifications
		 WHERE trace_id = ?
		 ORDER BY id`,
		traceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classifications []Classification
	for rows.Next() {
		var c Classification
		var kind, direction, sense, features string
		if err := rows.Scan(&c.ID, &c.TraceID, &kind, &direction, &sense, &features, &c.CreatedAt); err != nil {
			return nil, err
		}

		if err := c.Result.Kind.UnmarshalText([]byte(kind)); err != nil {
			return nil, err
		}
		if err := c.Result.Direction.UnmarshalText([]byte(direction)); err != nil {
			return nil, err
		}
		if err := c.Result.Sense.UnmarshalText([]byte(sense)); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(features), &c.Features); err != nil {
			return nil, fmt.Errorf("classification %d: failed to decode features: %w", c.ID, err)
		}

		classifications = append(classifications, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return classifications, nil
}
