// Package api provides HTTP API handlers for the keyflick recognizer.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/ayusman/keyflick/internal/session"
)

// maxBodyBytes caps request bodies. A long trace is a few thousand points.
const maxBodyBytes = 4 << 20

// Observer is notified of every classification the API produces. source
// names the endpoint that produced it.
type Observer interface {
	Observe(source string, out session.Outcome)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(source string, out session.Outcome)

// Observe calls f.
func (f ObserverFunc) Observe(source string, out session.Outcome) {
	f(source, out)
}

type nopObserver struct{}

func (nopObserver) Observe(string, session.Outcome) {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errUnsupportedMediaType rejects bodies a browser can send cross-origin
// without a preflight, such as text/plain forms.
var errUnsupportedMediaType = errors.New("content type must be application/json")

// decodeJSON decodes the request body into v. Unknown fields are
// rejected and the body must be sent as application/json. An empty body
// leaves v untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" && allowEmpty && r.ContentLength == 0 {
		return nil
	}
	if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
		return errUnsupportedMediaType
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// writeDecodeError reports a decodeJSON failure.
func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errUnsupportedMediaType) {
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}
