package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/keyflick/internal/store"
)

func TestAPI_TraceWorkflow(t *testing.T) {
	// Setup
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	srv := New(Config{Store: s})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. Record a labeled trace
	createBody := `{"label": "swipe:down", "points": [{"x":0,"y":0},{"x":0,"y":12},{"x":0,"y":24},{"x":0,"y":36},{"x":0,"y":48}]}`
	resp, err := client.Post(ts.URL+"/api/traces", "application/json", bytes.NewBufferString(createBody))
	if err != nil {
		t.Fatalf("POST /api/traces error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var created struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	if created.Label != "swipe:down" {
		t.Errorf("created label = %s, want swipe:down", created.Label)
	}

	// 2. List traces
	resp, _ = client.Get(ts.URL + "/api/traces")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/traces status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var listed struct {
		Traces []struct {
			ID string `json:"id"`
		} `json:"traces"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()

	if len(listed.Traces) != 1 {
		t.Fatalf("len(traces) = %d, want 1", len(listed.Traces))
	}

	// 3. Classify the stored trace
	resp, _ = client.Post(ts.URL+"/api/traces/"+created.ID+"/classify", "application/json", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST classify status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var classified struct {
		Result struct {
			Kind      string `json:"kind"`
			Direction string `json:"direction"`
		} `json:"result"`
	}
	json.NewDecoder(resp.Body).Decode(&classified)
	resp.Body.Close()

	if classified.Result.Kind != "swipe" || classified.Result.Direction != "down" {
		t.Errorf("classified as %+v, want swipe down", classified.Result)
	}

	// 4. Evaluate every labeled trace
	resp, _ = client.Post(ts.URL+"/api/evaluate", "application/json", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /api/evaluate status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var report struct {
		Total   int `json:"total"`
		Correct int `json:"correct"`
	}
	json.NewDecoder(resp.Body).Decode(&report)
	resp.Body.Close()

	if report.Total != 1 || report.Correct != 1 {
		t.Errorf("report = %+v, want 1/1", report)
	}

	// 5. Delete trace
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/traces/"+created.ID, nil)
	resp, _ = client.Do(req)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()

	// 6. Verify deleted
	resp, _ = client.Get(ts.URL + "/api/traces/" + created.ID)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp.Body.Close()
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := New(Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
}
