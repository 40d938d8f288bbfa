package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/keyflick/internal/config"
	"github.com/ayusman/keyflick/internal/store"
)

func TestSettingsHandler_Get(t *testing.T) {
	holder := config.NewHolder(config.Default())
	router := newRouter(NewSettingsHandler(holder, nil, nil))

	rec := do(t, router, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, config.Default(), decode[config.Settings](t, rec))
}

func TestSettingsHandler_Update(t *testing.T) {
	s := newTestStore(t)
	holder := config.NewHolder(config.Default())
	h := NewSettingsHandler(holder, s, nil)

	var notified []config.Settings
	h.OnChange(func(next config.Settings) { notified = append(notified, next) })
	router := newRouter(h)

	rec := do(t, router, http.MethodPut, "/api/settings", `{"thresholds":{"min_swipe_length":42}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	want := config.Default()
	want.Thresholds.MinSwipeLength = 42

	assert.Equal(t, want, decode[config.Settings](t, rec))
	assert.Equal(t, want, holder.Load())
	assert.Equal(t, []config.Settings{want}, notified)

	var persisted config.Settings
	require.NoError(t, s.Settings().GetJSON(config.StoreKey, &persisted))
	assert.Equal(t, want, persisted)
}

func TestSettingsHandler_UpdateRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	holder := config.NewHolder(config.Default())
	router := newRouter(NewSettingsHandler(holder, s, nil))

	tests := []struct {
		name string
		body string
	}{
		{"even window", `{"preprocess":{"smoothing_window":4}}`},
		{"negative swipe length", `{"thresholds":{"min_swipe_length":-1}}`},
		{"tiny history", `{"live":{"history_size":1}}`},
		{"unknown key", `{"thresholds":{"speed":1}}`},
		{"not json", `thresholds`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPut, "/api/settings", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	assert.Equal(t, config.Default(), holder.Load())
	err := s.Settings().GetJSON(config.StoreKey, &config.Settings{})
	assert.True(t, errors.Is(err, store.ErrNotFound), "nothing should be persisted, got %v", err)
}

func TestSettingsHandler_Reset(t *testing.T) {
	s := newTestStore(t)

	custom := config.Default()
	custom.Thresholds.MinSwipeLength = 55
	holder := config.NewHolder(custom)

	base := config.Default()
	base.Live.HistorySize = 12
	router := newRouter(NewSettingsHandler(holder, s, func() (config.Settings, error) { return base, nil }))

	require.NoError(t, s.Settings().SetJSON(config.StoreKey, custom))

	rec := do(t, router, http.MethodDelete, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, base, holder.Load())

	err := s.Settings().GetJSON(config.StoreKey, &config.Settings{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSettingsHandler_ResetBaselineError(t *testing.T) {
	holder := config.NewHolder(config.Default())
	router := newRouter(NewSettingsHandler(holder, nil, func() (config.Settings, error) {
		return config.Settings{}, errors.New("config file unreadable")
	}))

	rec := do(t, router, http.MethodDelete, "/api/settings", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, config.Default(), holder.Load())
}
