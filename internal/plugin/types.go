// Package plugin runs external programs bound to recognized gestures.
//
// A plugin is a directory holding a plugin.json manifest and an
// executable. The executable receives one Request as JSON on stdin and
// answers with one Response on stdout.
package plugin

import (
	"encoding/json"
	"slices"
)

// Manifest describes a plugin and the actions it accepts.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Actions     []string `json:"actions"`
}

// HasAction reports whether the manifest lists action.
func (m Manifest) HasAction(action string) bool {
	return slices.Contains(m.Actions, action)
}

// Request is sent to a plugin when a bound result is recognized.
type Request struct {
	Action string `json:"action"`
	// Gesture is the result in gesture.Result.String form.
	Gesture string          `json:"gesture"`
	Source  string          `json:"source"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a plugin's answer.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin.
type Plugin struct {
	Manifest   Manifest `json:"manifest"`
	Path       string   `json:"path"`
	Executable string   `json:"executable"`
}
