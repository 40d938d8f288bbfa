package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/keyflick/internal/calibrate"
	"github.com/ayusman/keyflick/internal/config"
	"github.com/ayusman/keyflick/internal/session"
	"github.com/ayusman/keyflick/internal/store"
	"github.com/ayusman/keyflick/testdata"
)

// newTestStore creates a Store backed by a temporary database.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type registrar interface {
	Register(r *mux.Router)
}

func newRouter(handlers ...registrar) *mux.Router {
	r := mux.NewRouter()
	sub := r.PathPrefix("/api").Subrouter()
	for _, h := range handlers {
		h.Register(sub)
	}
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

// recorder collects observed outcomes.
type recorder struct {
	sources  []string
	outcomes []session.Outcome
}

func (r *recorder) Observe(source string, out session.Outcome) {
	r.sources = append(r.sources, source)
	r.outcomes = append(r.outcomes, out)
}

// storeFixtures saves every embedded trace and returns how many there are.
func storeFixtures(t *testing.T, s *store.Store) int {
	t.Helper()

	raws, err := testdata.LoadAll()
	require.NoError(t, err)

	for _, raw := range raws {
		doc, err := calibrate.ParseDocument(raw)
		require.NoError(t, err)
		require.NoError(t, s.Traces().Create(&store.Trace{
			ID:          doc.ID,
			Label:       doc.ResultLabel(),
			Mode:        doc.Mode,
			AspectRatio: doc.AspectRatio,
			Points:      doc.Points,
		}))
	}
	return len(raws)
}

func TestObserverFunc(t *testing.T) {
	var got string
	ObserverFunc(func(source string, out session.Outcome) { got = source }).Observe("classify", session.Outcome{})
	assert.Equal(t, "classify", got)

	// nil observers are replaced with a no-op
	observerOrNop(nil).Observe("classify", session.Outcome{})
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	h := NewClassifyHandler(config.NewHolder(config.Default()), nil)
	rec := do(t, newRouter(h), http.MethodPost, "/api/classify", `{"points":[{"x":0,"y":0}],"speed":3}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorResponse](t, rec)
	assert.Contains(t, body.Error, "speed")
}

func TestDecodeJSON_RequiresJSONContentType(t *testing.T) {
	h := NewClassifyHandler(config.NewHolder(config.Default()), nil)
	router := newRouter(h)
	body := `{"points":[{"x":0,"y":0},{"x":40,"y":0}]}`

	tests := []struct {
		contentType string
		want        int
	}{
		{"", http.StatusUnsupportedMediaType},
		{"text/plain", http.StatusUnsupportedMediaType},
		{"application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"multipart/form-data; boundary=x", http.StatusUnsupportedMediaType},
		{"application/json", http.StatusOK},
		{"Application/JSON; charset=utf-8", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/classify", strings.NewReader(body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestDecodeJSON_EmptyBodyWithoutContentType(t *testing.T) {
	var v struct{ N int }
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", nil)
	require.NoError(t, decodeJSON(httptest.NewRecorder(), req, &v, true))

	req = httptest.NewRequest(http.MethodPost, "/api/evaluate", nil)
	assert.ErrorIs(t, decodeJSON(httptest.NewRecorder(), req, &v, false), errUnsupportedMediaType)
}
