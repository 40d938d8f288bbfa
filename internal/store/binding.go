package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Binding sources. A binding fires only for outcomes from its source.
const (
	SourceSession  = "session"
	SourceClassify = "classify"
	SourceTrace    = "trace"
	SourceAny      = "any"
)

// ValidSource reports whether source names a binding source. Empty is
// valid and means SourceSession.
func ValidSource(source string) bool {
	switch source {
	case "", SourceSession, SourceClassify, SourceTrace, SourceAny:
		return true
	}
	return false
}

// Binding ties a recognized result to a plugin action. Gesture holds the
// result in gesture.Result.String form.
type Binding struct {
	ID        string          `json:"id"`
	Gesture   string          `json:"gesture"`
	Source    string          `json:"source"`
	Plugin    string          `json:"plugin"`
	Action    string          `json:"action"`
	Params    json.RawMessage `json:"params"`
	Enabled   bool            `json:"enabled"`
	CreatedAt time.Time       `json:"created_at"`
}

// Matches reports whether b fires for an outcome from source.
func (b *Binding) Matches(source string) bool {
	return b.Enabled && (b.Source == SourceAny || b.Source == source)
}

// BindingRepository provides CRUD operations for bindings.
type BindingRepository struct {
	db *sql.DB
}

// Bindings returns the binding repository for this store.
func (s *Store) Bindings() *BindingRepository {
	return &BindingRepository{db: s.db}
}

const bindingColumns = `id, gesture, source, plugin, action, params, enabled, created_at`

// Create inserts a new binding. A missing ID is filled with a random UUID
// and an empty source defaults to live sessions.
func (r *BindingRepository) Create(b *Binding) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Source == "" {
		b.Source = SourceSession
	}
	if b.Params == nil {
		b.Params = json.RawMessage("{}")
	}
	b.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO bindings (`+bindingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Gesture, b.Source, b.Plugin, b.Action, string(b.Params), b.Enabled, b.CreatedAt,
	)
	return err
}

// GetByID retrieves a binding by its ID.
func (r *BindingRepository) GetByID(id string) (*Binding, error) {
	b, err := scanBinding(r.db.QueryRow(`SELECT `+bindingColumns+` FROM bindings WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// List retrieves all bindings, oldest first.
func (r *BindingRepository) List() ([]*Binding, error) {
	return r.query(`SELECT ` + bindingColumns + ` FROM bindings ORDER BY created_at, id`)
}

// ListByGesture retrieves the enabled bindings for a result label.
func (r *BindingRepository) ListByGesture(gesture string) ([]*Binding, error) {
	return r.query(`SELECT `+bindingColumns+` FROM bindings WHERE gesture = ? AND enabled = 1 ORDER BY created_at, id`, gesture)
}

// SetEnabled switches a binding on or off.
func (r *BindingRepository) SetEnabled(id string, enabled bool) error {
	result, err := r.db.Exec(`UPDATE bindings SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// Delete removes a binding by its ID.
func (r *BindingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM bindings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *BindingRepository) query(q string, args ...any) ([]*Binding, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bindings []*Binding
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}
	return bindings, rows.Err()
}

func scanBinding(s scanner) (*Binding, error) {
	b := &Binding{}
	var params string
	var enabled int

	if err := s.Scan(&b.ID, &b.Gesture, &b.Source, &b.Plugin, &b.Action, &params, &enabled, &b.CreatedAt); err != nil {
		return nil, err
	}

	b.Params = json.RawMessage(params)
	b.Enabled = enabled != 0
	return b, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
