package server

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/keyflick/internal/capture"
	"github.com/ayusman/keyflick/internal/gesture"
	"github.com/ayusman/keyflick/internal/session"
)

func dial(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) message {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	return msg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func swipeEvents() []capture.Event {
	return []capture.Event{
		{Type: capture.EventBegin, X: 100, Y: 100},
		{Type: capture.EventMove, X: 110, Y: 100},
		{Type: capture.EventMove, X: 120, Y: 100},
		{Type: capture.EventMove, X: 130, Y: 100},
		{Type: capture.EventEnd, X: 140, Y: 100},
	}
}

func TestSessionHandler_Swipe(t *testing.T) {
	s := New(Config{})
	ts := httptest.NewServer(s)
	defer ts.Close()

	feed := dial(t, ts, "/ws/feed")
	waitFor(t, func() bool { return s.feed.Clients() == 1 })

	conn := dial(t, ts, "/ws/session")
	for _, e := range swipeEvents() {
		if err := conn.WriteJSON(e); err != nil {
			t.Fatalf("failed to send event: %v", err)
		}
	}

	for i := 0; i < 3; i++ {
		msg := readMessage(t, conn)
		if msg.Type != "update" || msg.Update == nil {
			t.Fatalf("message %d: expected update, got %+v", i, msg)
		}
	}

	msg := readMessage(t, conn)
	if msg.Type != "result" || msg.Outcome == nil {
		t.Fatalf("expected result, got %+v", msg)
	}
	want := gesture.Result{Kind: gesture.Swipe, Direction: gesture.Right}
	if msg.Outcome.Result != want {
		t.Errorf("expected %v, got %v", want, msg.Outcome.Result)
	}

	broadcast := readMessage(t, feed)
	if broadcast.Type != "result" || broadcast.Source != "session" {
		t.Fatalf("expected session result on the feed, got %+v", broadcast)
	}
	if broadcast.Outcome.Result != want {
		t.Errorf("feed: expected %v, got %v", want, broadcast.Outcome.Result)
	}
}

func TestSessionHandler_WideKey(t *testing.T) {
	s := New(Config{})
	ts := httptest.NewServer(s)
	defer ts.Close()

	conn := dial(t, ts, "/ws/session?aspect=2")
	for _, e := range swipeEvents() {
		conn.WriteJSON(e)
	}

	var msg message
	for msg.Type != "result" {
		msg = readMessage(t, conn)
	}
	if msg.Outcome.Result.Kind != gesture.Tap {
		t.Errorf("expected a tap on a wide key, got %v", msg.Outcome.Result)
	}
}

func TestSessionHandler_InvalidFrame(t *testing.T) {
	s := New(Config{})
	ts := httptest.NewServer(s)
	defer ts.Close()

	conn := dial(t, ts, "/ws/session")
	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"wiggle"}`))

	msg := readMessage(t, conn)
	if msg.Type != "error" || !strings.Contains(msg.Error, "wiggle") {
		t.Fatalf("expected error frame, got %+v", msg)
	}

	// the connection stays usable
	conn.WriteJSON(capture.Event{Type: capture.EventBegin})
	conn.WriteJSON(capture.Event{Type: capture.EventEnd, X: 1, Y: 1})

	msg = readMessage(t, conn)
	if msg.Type != "result" || msg.Outcome.Result.Kind != gesture.Tap {
		t.Errorf("expected tap result, got %+v", msg)
	}
}

func TestSessionHandler_BadParams(t *testing.T) {
	s := New(Config{})
	ts := httptest.NewServer(s)
	defer ts.Close()

	for _, query := range []string{"?aspect=0", "?aspect=wide", "?mode=wiggle"} {
		url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/session" + query
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			t.Errorf("%s: expected handshake failure", query)
			continue
		}
		if resp == nil || resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %v", query, resp)
		}
	}
}

func TestSessionHandler_NotWebsocket(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/ws/session", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d for a plain request, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestFeedHandler_Disconnect(t *testing.T) {
	s := New(Config{})
	ts := httptest.NewServer(s)
	defer ts.Close()

	conn := dial(t, ts, "/ws/feed")
	waitFor(t, func() bool { return s.feed.Clients() == 1 })

	conn.Close()
	waitFor(t, func() bool { return s.feed.Clients() == 0 })
}

func TestSessionParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws/session?aspect=1.5&mode=offset", nil)

	aspect, mode, err := sessionParams(req)
	if err != nil {
		t.Fatalf("sessionParams() error = %v", err)
	}
	if aspect != 1.5 || mode.String() != "offset" {
		t.Errorf("got aspect %v mode %v", aspect, mode)
	}
}

func TestFeedHandler_SlowClientDoesNotBlockPublish(t *testing.T) {
	s := New(Config{})
	ts := httptest.NewServer(s)
	defer ts.Close()

	// The client never reads, so its queue fills up.
	dial(t, ts, "/ws/feed")
	waitFor(t, func() bool { return s.feed.Clients() == 1 })

	out := session.Outcome{Result: gesture.Result{Kind: gesture.Tap}}
	start := time.Now()
	for i := 0; i < 100000 && s.feed.Clients() > 0; i++ {
		s.Observe("session", out)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("publishing took %v", elapsed)
	}
	if got := s.feed.Clients(); got != 0 {
		t.Errorf("expected the slow client to be dropped, got %d clients", got)
	}
}

func TestFeedHandler_Close(t *testing.T) {
	s := New(Config{})
	ts := httptest.NewServer(s)
	defer ts.Close()

	conn := dial(t, ts, "/ws/feed")
	waitFor(t, func() bool { return s.feed.Clients() == 1 })

	s.feed.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to be closed")
	}
	waitFor(t, func() bool { return s.feed.Clients() == 0 })
}

func TestSessionHandler_ReadLimit(t *testing.T) {
	s := New(Config{})
	ts := httptest.NewServer(s)
	defer ts.Close()

	conn := dial(t, ts, "/ws/session")
	big := `{"type":"move","x":1,"y":1,"pad":"` + strings.Repeat("x", sessionReadLimit) + `"}`
	// The server may hang up before the whole frame is written.
	conn.WriteMessage(websocket.TextMessage, []byte(big))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsCloseError(err, websocket.CloseMessageTooBig) || !isTimeout(err) {
			break
		}
		t.Fatalf("expected the server to close an oversized frame, got %v", err)
	}
	waitFor(t, func() bool {
		text := serve(s, http.MethodGet, "/metrics", "").Body.String()
		return strings.Contains(text, "keyflick_sessions_open 0")
	})
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
