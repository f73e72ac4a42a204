package http_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sophialabs/coopwatch/internal/infrastructure/services"
	"github.com/sophialabs/coopwatch/internal/testutil"
)

func dialLive(t *testing.T, f *fixture, cameraID string) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(f.srv)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/cameras/" + cameraID + "/live"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial %s: %v (status %d)", url, err, status)
	}
	t.Cleanup(func() { conn.Close() })

	waitFor(t, func() bool { return f.hub.Subscribers(cameraID) == 1 })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLive_DeliversFramesAsBinaryMessages(t *testing.T) {
	f := newFixture(t, testCamera("north"))
	conn := dialLive(t, f, "north")

	f.capture(t, "north", 2)

	for i := range 2 {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		kind, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("frame %d: %v", i+1, err)
		}
		if kind != websocket.BinaryMessage {
			t.Errorf("frame %d: expected binary message, got %d", i+1, kind)
		}
		if !bytes.Equal(data, testutil.JPEGImage(32).Data) {
			t.Errorf("frame %d: unexpected payload", i+1)
		}
	}
}

func TestLive_ClosesWhenCameraRemoved(t *testing.T) {
	f := newFixture(t, testCamera("north"))
	conn := dialLive(t, f, "north")

	if err := f.runner.Apply(services.NewCameraIndex()); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("expected going-away close, got %v", err)
	}
}

func TestLive_UnsubscribesOnClientClose(t *testing.T) {
	f := newFixture(t, testCamera("north"))
	conn := dialLive(t, f, "north")

	conn.Close()
	waitFor(t, func() bool { return f.hub.Subscribers("north") == 0 })
}

func TestLive_PauseSkipsFrames(t *testing.T) {
	f := newFixture(t, testCamera("north"))
	conn := dialLive(t, f, "north")

	if err := conn.WriteJSON(map[string]string{"command": "pause"}); err != nil {
		t.Fatal(err)
	}
	// Give the reader a moment to apply the command before publishing.
	time.Sleep(50 * time.Millisecond)
	f.capture(t, "north", 1)

	if err := conn.WriteJSON(map[string]string{"command": "resume"}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	f.capture(t, "north", 1)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("expected a frame after resume: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("frame captured while paused should not be delivered")
	}
	st, _ := f.stages.Get("north")
	if latest, _ := st.Latest(); latest.Seq != 2 {
		t.Errorf("expected two captures, latest seq %d", latest.Seq)
	}
}

func TestLive_UnknownCamera(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/cameras/ghost/live"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 handshake response, got %v", resp)
	}
}
