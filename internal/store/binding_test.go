package store

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestBindingRepository_Create(t *testing.T) {
	s := newTestStore(t)
	repo := s.Bindings()

	b := &Binding{
		Gesture: "swipe:up",
		Plugin:  "keyboard",
		Action:  "keystroke",
		Params:  json.RawMessage(`{"key":"A"}`),
		Enabled: true,
	}
	if err := repo.Create(b); err != nil {
		t.Fatalf("failed to create binding: %v", err)
	}
	if b.ID == "" {
		t.Error("expected a generated ID")
	}
	if b.Source != SourceSession {
		t.Errorf("expected default source %q, got %q", SourceSession, b.Source)
	}

	got, err := repo.GetByID(b.ID)
	if err != nil {
		t.Fatalf("failed to get binding: %v", err)
	}
	if got.Gesture != "swipe:up" || got.Plugin != "keyboard" || got.Action != "keystroke" || !got.Enabled {
		t.Errorf("unexpected binding %+v", got)
	}
	if string(got.Params) != `{"key":"A"}` {
		t.Errorf("params = %s", got.Params)
	}
}

func TestBindingRepository_DefaultParams(t *testing.T) {
	s := newTestStore(t)

	b := &Binding{Gesture: "tap", Plugin: "keyboard", Action: "keystroke"}
	if err := s.Bindings().Create(b); err != nil {
		t.Fatalf("failed to create binding: %v", err)
	}

	got, err := s.Bindings().GetByID(b.ID)
	if err != nil {
		t.Fatalf("failed to get binding: %v", err)
	}
	if string(got.Params) != "{}" {
		t.Errorf("params = %s, want {}", got.Params)
	}
	if got.Enabled {
		t.Error("binding created disabled should stay disabled")
	}
}

func TestBindingRepository_InvalidSource(t *testing.T) {
	s := newTestStore(t)

	b := &Binding{Gesture: "tap", Source: "camera", Plugin: "keyboard", Action: "keystroke"}
	if err := s.Bindings().Create(b); err == nil {
		t.Error("expected constraint error for unknown source")
	}
}

func TestBindingRepository_ListByGesture(t *testing.T) {
	s := newTestStore(t)
	repo := s.Bindings()

	for _, b := range []*Binding{
		{ID: "a", Gesture: "swipe:up", Plugin: "p", Action: "x", Enabled: true},
		{ID: "b", Gesture: "swipe:up", Plugin: "p", Action: "y", Enabled: false},
		{ID: "c", Gesture: "tap", Plugin: "p", Action: "z", Enabled: true},
	} {
		if err := repo.Create(b); err != nil {
			t.Fatalf("failed to create binding %s: %v", b.ID, err)
		}
	}

	got, err := repo.ListByGesture("swipe:up")
	if err != nil {
		t.Fatalf("failed to list bindings: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("expected only binding a, got %d bindings", len(got))
	}

	all, err := repo.List()
	if err != nil {
		t.Fatalf("failed to list bindings: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 bindings, got %d", len(all))
	}
}

func TestBindingRepository_SetEnabled(t *testing.T) {
	s := newTestStore(t)
	repo := s.Bindings()

	b := &Binding{Gesture: "tap", Plugin: "p", Action: "x", Enabled: true}
	if err := repo.Create(b); err != nil {
		t.Fatalf("failed to create binding: %v", err)
	}

	if err := repo.SetEnabled(b.ID, false); err != nil {
		t.Fatalf("failed to disable binding: %v", err)
	}
	got, _ := repo.ListByGesture("tap")
	if len(got) != 0 {
		t.Errorf("disabled binding still listed")
	}

	if err := repo.SetEnabled("missing", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBindingRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Bindings()

	b := &Binding{Gesture: "tap", Plugin: "p", Action: "x", Enabled: true}
	if err := repo.Create(b); err != nil {
		t.Fatalf("failed to create binding: %v", err)
	}

	if err := repo.Delete(b.ID); err != nil {
		t.Fatalf("failed to delete binding: %v", err)
	}
	if _, err := repo.GetByID(b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestBinding_Matches(t *testing.T) {
	tests := []struct {
		binding Binding
		source  string
		want    bool
	}{
		{Binding{Source: SourceSession, Enabled: true}, SourceSession, true},
		{Binding{Source: SourceSession, Enabled: true}, SourceTrace, false},
		{Binding{Source: SourceAny, Enabled: true}, SourceClassify, true},
		{Binding{Source: SourceAny, Enabled: false}, SourceClassify, false},
	}

	for _, tt := range tests {
		if got := tt.binding.Matches(tt.source); got != tt.want {
			t.Errorf("Binding{Source: %s, Enabled: %v}.Matches(%s) = %v, want %v",
				tt.binding.Source, tt.binding.Enabled, tt.source, got, tt.want)
		}
	}
}

func TestValidSource(t *testing.T) {
	for _, source := range []string{"", SourceSession, SourceClassify, SourceTrace, SourceAny} {
		if !ValidSource(source) {
			t.Errorf("ValidSource(%q) = false", source)
		}
	}
	if ValidSource("camera") {
		t.Error(`ValidSource("camera") = true`)
	}
}
