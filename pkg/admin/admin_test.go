package admin

import (
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/juanpablocruz/pixelflut/pkg/eventbus"
	"github.com/juanpablocruz/pixelflut/pkg/mockcanvas"
	"github.com/juanpablocruz/pixelflut/pkg/wire"
)

func newTestHandler(t *testing.T, opts ...Option) (*Handler, *mockcanvas.Server, *httptest.Server) {
	t.Helper()
	srv := mockcanvas.NewServer(mockcanvas.New(8, 4), mockcanvas.DefaultConfig())
	h := New(srv, opts...)
	ts := httptest.NewServer(h)
	t.Cleanup(func() {
		h.Close()
		ts.Close()
	})
	return h, srv, ts
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	return resp
}

func TestInfo(t *testing.T) {
	_, _, ts := newTestHandler(t)
	resp := get(t, ts.URL+"/info")
	defer resp.Body.Close()

	var got infoResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := infoResponse{Width: 8, Height: 4, RecvBufferSize: 1024, SendBufferSize: 1024}
	if got != want {
		t.Fatalf("info: got %+v want %+v", got, want)
	}
}

func TestCanvasPNG(t *testing.T) {
	_, srv, ts := newTestHandler(t)
	srv.Canvas().Fill(wire.Rect{X: 2, Y: 1, W: 3, H: 2}, wire.Color{R: 200, G: 10, B: 30})

	resp := get(t, ts.URL+"/canvas.png")
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type %q", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 4 {
		t.Fatalf("bounds %v", b)
	}
	r, g, b, _ := img.At(3, 2).RGBA()
	if r>>8 != 200 || g>>8 != 10 || b>>8 != 30 {
		t.Fatalf("pixel (3,2): %d,%d,%d", r>>8, g>>8, b>>8)
	}
	r, g, b, _ = img.At(0, 0).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Fatalf("pixel (0,0) not black")
	}
}

func TestMetricsRoute(t *testing.T) {
	_, _, ts := newTestHandler(t)
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("metrics without registry: status %d", resp.StatusCode)
	}

	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "admin_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()
	_, _, ts = newTestHandler(t, WithRegistry(reg))
	resp = get(t, ts.URL+"/metrics")
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "admin_test_total 1") {
		t.Fatalf("metrics body missing counter:\n%s", body)
	}
}

func TestActivityStream(t *testing.T) {
	bus := eventbus.New[mockcanvas.Activity]()
	bus.Start()
	defer bus.Stop()

	h, _, ts := newTestHandler(t, WithActivity(bus))
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/activity"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.hub.Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("watcher never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	bus.Publish(mockcanvas.Activity{
		Time:   time.Now(),
		Kind:   mockcanvas.ActivityCommand,
		Remote: "mem-1",
		Op:     "fill_rect",
		Rect:   wire.Rect{X: 1, Y: 2, W: 3, H: 4},
		Pixels: 12,
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got mockcanvas.ActivityRecord
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Kind != "command" || got.Op != "fill_rect" || got.Pixels != 12 || got.Remote != "mem-1" {
		t.Fatalf("record: %+v", got)
	}
	if got.Rect != (wire.Rect{X: 1, Y: 2, W: 3, H: 4}).String() {
		t.Fatalf("rect %q", got.Rect)
	}
}

func TestActivityDropsClosedWatcher(t *testing.T) {
	hub := NewHub(nil)
	ts := httptest.NewServer(hub)
	defer ts.Close()
	defer hub.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("watcher never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	conn.Close()
	for hub.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("closed watcher still registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
