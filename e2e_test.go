package coopwatch_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	_ "image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sophialabs/coopwatch/internal/infrastructure/wiring"
	"github.com/sophialabs/coopwatch/internal/testutil"
)

// copyCoop copies the sample camera definitions into a temp root so tests
// can write to it.
func copyCoop(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dst := filepath.Join(root, "cameras")
	if err := os.MkdirAll(dst, 0o755); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(filepath.Join("coop", "cameras"))
	if err != nil {
		t.Fatalf("failed to read sample cameras: %v", err)
	}
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join("coop", "cameras", e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dst, e.Name()), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func setupE2EServer(t *testing.T) (*httptest.Server, *wiring.Container) {
	t.Helper()

	c, err := wiring.New(wiring.Params{
		RootDir:        copyCoop(t),
		EventSize:      100,
		BufferBytes:    1 << 20,
		LiveQueue:      4,
		RateLimiterTTL: 10 * time.Minute,
		Logger:         &testutil.NoopLogger{},
	})
	if err != nil {
		t.Fatalf("failed to wire: %v", err)
	}
	t.Cleanup(c.Close)

	if err := c.Server().Reload(context.Background()); err != nil {
		t.Fatalf("failed to load cameras: %v", err)
	}

	ts := httptest.NewServer(c.Server())
	t.Cleanup(ts.Close)
	return ts, c
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, v any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestE2E_HealthCheck(t *testing.T) {
	ts, _ := setupE2EServer(t)

	var body map[string]any
	if status := getJSON(t, ts.URL+"/api/v1/health", &body); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", body["status"])
	}
	if body["cameras"] != float64(4) {
		t.Errorf("expected 4 sample cameras, got %v", body["cameras"])
	}
}

func TestE2E_ListCameras(t *testing.T) {
	ts, _ := setupE2EServer(t)

	var cams []struct {
		ID        string `json:"id"`
		Kind      string `json:"kind"`
		Captioned bool   `json:"captioned"`
		Scheduled bool   `json:"scheduled"`
	}
	getJSON(t, ts.URL+"/api/v1/cameras", &cams)

	want := []string{"feeder", "gate", "nest", "north"}
	if len(cams) != len(want) {
		t.Fatalf("expected %d cameras, got %d", len(want), len(cams))
	}
	for i, id := range want {
		if cams[i].ID != id {
			t.Errorf("camera %d: expected %s, got %s", i, id, cams[i].ID)
		}
	}
	north := cams[3]
	if north.Kind != "synthetic" || !north.Captioned || !north.Scheduled {
		t.Errorf("unexpected north summary: %+v", north)
	}
}

func TestE2E_CameraDetail(t *testing.T) {
	ts, _ := setupE2EServer(t)

	var detail map[string]any
	if status := getJSON(t, ts.URL+"/api/v1/cameras/feeder", &detail); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if detail["source_index"] != float64(1) {
		t.Errorf("feeder is the second entry of yard.yaml, got index %v", detail["source_index"])
	}
	src, _ := detail["source"].(map[string]any)
	if src["kind"] != "http" || src["timeout"] != "3s" {
		t.Errorf("unexpected source %v", src)
	}
	if !strings.Contains(detail["source_yaml"].(string), "snapshot.jpg") {
		t.Errorf("source_yaml should hold the feeder entry, got %v", detail["source_yaml"])
	}
}

func TestE2E_CaptionedFrames(t *testing.T) {
	ts, c := setupE2EServer(t)

	tests := []struct {
		camera        string
		width, height int
	}{
		{"north", 640, 360},
		{"nest", 320, 180},
	}
	for _, tt := range tests {
		t.Run(tt.camera, func(t *testing.T) {
			if _, err := c.Runner().SampleOnce(context.Background(), tt.camera); err != nil {
				t.Fatalf("SampleOnce failed: %v", err)
			}

			resp, err := http.Get(ts.URL + "/api/v1/cameras/" + tt.camera + "/frames/latest")
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}
			data, _ := io.ReadAll(resp.Body)
			cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("frame is not a decodable image: %v", err)
			}
			if format != "jpeg" || cfg.Width != tt.width || cfg.Height != tt.height {
				t.Errorf("expected %dx%d jpeg, got %dx%d %s", tt.width, tt.height, cfg.Width, cfg.Height, format)
			}
		})
	}
}

func TestE2E_MonitoringSession(t *testing.T) {
	ts, _ := setupE2EServer(t)

	var connected struct {
		Status  string `json:"status"`
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	if status := postJSON(t, ts.URL+"/api/v1/sessions", `{"camera_id":"nest"}`, &connected); status != http.StatusCreated {
		t.Fatalf("connect: expected 201, got %d", status)
	}
	sid := connected.Session.ID
	if sid == "" {
		t.Fatal("expected a session id")
	}

	if status := postJSON(t, ts.URL+"/api/v1/sessions/"+sid+"/start", "", nil); status != http.StatusOK {
		t.Fatalf("start: expected 200, got %d", status)
	}

	var shot struct {
		Status string `json:"status"`
		Frame  struct {
			Seq         uint64 `json:"seq"`
			ContentType string `json:"content_type"`
			Data        []byte `json:"data"`
		} `json:"frame"`
	}
	if status := postJSON(t, ts.URL+"/api/v1/sessions/"+sid+"/screenshot", "", &shot); status != http.StatusOK {
		t.Fatalf("screenshot: expected 200, got %d", status)
	}
	if shot.Status != "success" || shot.Frame.ContentType != "image/jpeg" || len(shot.Frame.Data) == 0 {
		t.Errorf("unexpected screenshot: status=%s type=%s bytes=%d", shot.Status, shot.Frame.ContentType, len(shot.Frame.Data))
	}

	var events []struct {
		Camera string `json:"camera"`
		Kind   string `json:"kind"`
	}
	getJSON(t, ts.URL+"/api/v1/events?camera=nest", &events)
	kinds := map[string]int{}
	for _, e := range events {
		kinds[e.Kind]++
	}
	if kinds["session"] < 2 || kinds["staged"] != 1 {
		t.Errorf("unexpected nest events: %v", kinds)
	}
}

func TestE2E_RateLimitedReads(t *testing.T) {
	ts, c := setupE2EServer(t)
	if _, err := c.Runner().SampleOnce(context.Background(), "north"); err != nil {
		t.Fatal(err)
	}

	limited := 0
	for range 20 {
		resp, err := http.Get(ts.URL + "/api/v1/cameras/north/frames/latest")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited == 0 {
		t.Error("expected some reads over the north burst to be rate limited")
	}
}

func TestE2E_LiveFeed(t *testing.T) {
	ts, c := setupE2EServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/cameras/nest/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for c.Hub().Subscribers("nest") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("live feed never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := c.Runner().SampleOnce(context.Background(), "nest"); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Errorf("expected binary message, got %d", kind)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Error("expected a JPEG payload")
	}
}

func TestE2E_CreateCameraAndReload(t *testing.T) {
	ts, _ := setupE2EServer(t)

	body := "id: brooder\nname: Brooder\nsource:\n  kind: synthetic\n"
	resp, err := http.Post(ts.URL+"/api/v1/cameras", "application/yaml", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var stats map[string]any
	if status := getJSON(t, ts.URL+"/api/v1/cameras/brooder/buffer", &stats); status != http.StatusOK {
		t.Fatalf("expected 200 for new camera buffer, got %d", status)
	}
	if stats["capacity"] != float64(1<<20) {
		t.Errorf("new camera should get the default buffer, got %v", stats["capacity"])
	}
}
