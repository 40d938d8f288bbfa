package plugin

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func serveString(t *testing.T, input string, handlers map[string]HandlerFunc) Response {
	t.Helper()
	var out bytes.Buffer
	if err := Serve(strings.NewReader(input), &out, handlers); err != nil {
		t.Fatalf("Serve() failed: %v", err)
	}
	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response %q: %v", out.String(), err)
	}
	return resp
}

func TestServe(t *testing.T) {
	handlers := map[string]HandlerFunc{
		"echo": func(req *Request) (any, error) {
			var p struct {
				Text string `json:"text"`
			}
			if err := req.DecodeParams(&p); err != nil {
				return nil, err
			}
			return map[string]string{"text": p.Text, "gesture": req.Gesture}, nil
		},
		"quiet": func(req *Request) (any, error) { return nil, nil },
		"fail":  func(req *Request) (any, error) { return nil, errors.New("no display") },
	}

	tests := []struct {
		name    string
		input   string
		success bool
		data    string
		errMsg  string
	}{
		{"data", `{"action":"echo","gesture":"tap","params":{"text":"hi"}}`, true, `{"gesture":"tap","text":"hi"}`, ""},
		{"no params", `{"action":"echo","gesture":"tap"}`, true, `{"gesture":"tap","text":""}`, ""},
		{"no data", `{"action":"quiet"}`, true, "", ""},
		{"handler error", `{"action":"fail"}`, false, "", "action fail failed: no display"},
		{"unknown action", `{"action":"dance"}`, false, "", "unknown action: dance"},
		{"bad params", `{"action":"echo","params":{"text":1}}`, false, "", "failed to parse params"},
		{"bad request", `not json`, false, "", "failed to decode request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := serveString(t, tt.input, handlers)
			if resp.Success != tt.success {
				t.Fatalf("Success = %v, want %v (error %q)", resp.Success, tt.success, resp.Error)
			}
			if string(resp.Data) != tt.data {
				t.Errorf("Data = %s, want %s", resp.Data, tt.data)
			}
			if !strings.Contains(resp.Error, tt.errMsg) {
				t.Errorf("Error = %q, want %q", resp.Error, tt.errMsg)
			}
		})
	}
}
