package plugin

import (
	"encoding/json"
	"fmt"
	"io"
)

// HandlerFunc performs one plugin action. The returned data, if any, is
// sent back as Response.Data.
type HandlerFunc func(req *Request) (any, error)

// Serve is the plugin side of the executor protocol: it decodes one
// Request from r, dispatches it to the handler registered for its action
// and writes the Response to w. Handler failures are reported in the
// response; only I/O errors are returned.
func Serve(r io.Reader, w io.Writer, handlers map[string]HandlerFunc) error {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return writeResponse(w, failure(fmt.Sprintf("failed to decode request: %v", err)))
	}

	handler, ok := handlers[req.Action]
	if !ok {
		return writeResponse(w, failure(fmt.Sprintf("unknown action: %s", req.Action)))
	}

	data, err := handler(&req)
	if err != nil {
		return writeResponse(w, failure(fmt.Sprintf("action %s failed: %v", req.Action, err)))
	}

	resp := &Response{Success: true}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return writeResponse(w, failure(fmt.Sprintf("failed to encode data: %v", err)))
		}
		resp.Data = raw
	}
	return writeResponse(w, resp)
}

// DecodeParams unmarshals the request parameters into v. Missing params
// leave v unchanged.
func (r *Request) DecodeParams(v any) error {
	if len(r.Params) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Params, v); err != nil {
		return fmt.Errorf("failed to parse params: %w", err)
	}
	return nil
}

func failure(msg string) *Response {
	return &Response{Success: false, Error: msg}
}

func writeResponse(w io.Writer, resp *Response) error {
	return json.NewEncoder(w).Encode(resp)
}
