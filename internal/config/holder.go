package config

import (
	"sync/atomic"
)

// Holder publishes the current settings to concurrent readers. Sessions
// take a snapshot when they start, so a swap only affects later gestures.
type Holder struct {
	current atomic.Pointer[Settings]
}

// NewHolder creates a Holder publishing s.
func NewHolder(s Settings) *Holder {
	h := &Holder{}
	h.current.Store(&s)
	return h
}

// Load returns the current snapshot.
func (h *Holder) Load() Settings {
	return *h.current.Load()
}

// Store validates s and publishes it. Invalid settings leave the current
// snapshot in place.
func (h *Holder) Store(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	h.current.Store(&s)
	return nil
}

// Reload reads path and publishes the result.
func (h *Holder) Reload(path string) error {
	s, err := Load(path)
	if err != nil {
		return err
	}
	h.current.Store(&s)
	return nil
}
