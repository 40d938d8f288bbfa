// Package testdata embeds recorded touch traces for tests.
package testdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
)

//go:embed traces/*.json
var tracesFS embed.FS

// LoadTrace loads a trace document by name, without the .json suffix.
func LoadTrace(name string) (json.RawMessage, error) {
	data, err := tracesFS.ReadFile("traces/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load trace %s: %w", name, err)
	}
	return json.RawMessage(data), nil
}

// TraceNames lists the embedded traces in lexical order.
func TraceNames() ([]string, error) {
	entries, err := tracesFS.ReadDir("traces")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())))
	}
	sort.Strings(names)
	return names, nil
}

// LoadAll loads every embedded trace.
func LoadAll() ([]json.RawMessage, error) {
	names, err := TraceNames()
	if err != nil {
		return nil, err
	}

	traces := make([]json.RawMessage, 0, len(names))
	for _, name := range names {
		raw, err := LoadTrace(name)
		if err != nil {
			return nil, err
		}
		traces = append(traces, raw)
	}
	return traces, nil
}
