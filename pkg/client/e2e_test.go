package client_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/juanpablocruz/pixelflut/pkg/client"
	"github.com/juanpablocruz/pixelflut/pkg/mockcanvas"
	"github.com/juanpablocruz/pixelflut/pkg/transport"
	"github.com/juanpablocruz/pixelflut/pkg/wire"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func startServer(t *testing.T, ln net.Listener, w, h int) *mockcanvas.Server {
	t.Helper()
	srv := mockcanvas.NewServer(mockcanvas.New(w, h), mockcanvas.DefaultConfig(), mockcanvas.WithLogger(quiet))
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Close()
		if err := <-done; err != nil {
			t.Errorf("serve: %v", err)
		}
	})
	return srv
}

func memClient(t *testing.T, w, h int, bufSize int) (*client.Client, *mockcanvas.Server) {
	t.Helper()
	sw := transport.NewSwitch()
	ln, err := sw.Listen("canvas")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := startServer(t, ln, w, h)
	conn, err := sw.Dial(context.Background(), "canvas")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	cfg := client.DefaultConfig()
	cfg.BufferSize = bufSize
	c, err := client.New(conn, cfg, client.WithLogger(quiet))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, srv
}

func TestE2EInfoAndPixels(t *testing.T) {
	ctx := context.Background()
	c, srv := memClient(t, 800, 600, 1024)

	info, err := c.QueryInfo(ctx)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Width != 800 || info.Height != 600 || info.RecvBufferSize != 1024 {
		t.Fatalf("info %+v", info)
	}

	p := wire.Pixel{X: 10, Y: 20, Color: wire.Color{R: 1, G: 2, B: 3}}
	if err := c.PutPixel(ctx, p); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := c.GetPixel(ctx, 10, 20)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != p.Color {
		t.Fatalf("read back %v, want %v", got, p.Color)
	}
	if col, ok := srv.Canvas().Get(10, 20); !ok || col != p.Color {
		t.Fatalf("canvas holds %v", col)
	}

	// Out of the canvas reads black.
	if err := c.PutPixel(ctx, wire.Pixel{X: 900, Y: 5, Color: wire.Color{R: 255}}); err != nil {
		t.Fatalf("put outside: %v", err)
	}
	if got, _ := c.GetPixel(ctx, 900, 5); got != (wire.Color{}) {
		t.Fatalf("outside pixel %v", got)
	}
}

func TestE2EFillThenGetRect(t *testing.T) {
	ctx := context.Background()
	c, _ := memClient(t, 800, 600, 1024)

	red := wire.Color{R: 255}
	r := wire.Rect{X: 395, Y: 295, W: 10, H: 10}
	if err := c.FillRect(ctx, red, r); err != nil {
		t.Fatalf("fill: %v", err)
	}
	got, err := c.GetRect(ctx, wire.Rect{X: 390, Y: 290, W: 20, H: 20})
	if err != nil {
		t.Fatalf("get rect: %v", err)
	}
	for i, col := range got {
		x, y := 390+i%20, 290+i/20
		inside := x >= 395 && x < 405 && y >= 295 && y < 305
		if inside && col != red || !inside && col != (wire.Color{}) {
			t.Fatalf("pixel (%d,%d) = %v", x, y, col)
		}
	}
}

func TestE2EPrintRectRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, size := range []int{8, 20, 1024, 8192} {
		c, _ := memClient(t, 300, 200, size)
		r := wire.Rect{X: 7, Y: 9, W: 123, H: 45}
		colors := make([]wire.Color, r.Area())
		for i := range colors {
			colors[i] = wire.Color{R: byte(i), G: byte(i / 3), B: byte(i / 7)}
		}
		if err := c.PrintRect(ctx, colors, r); err != nil {
			t.Fatalf("size %d: print: %v", size, err)
		}
		got, err := c.GetRect(ctx, r)
		if err != nil {
			t.Fatalf("size %d: get: %v", size, err)
		}
		for i := range colors {
			if got[i] != colors[i] {
				t.Fatalf("size %d: color %d = %v, want %v", size, i, got[i], colors[i])
			}
		}
	}
}

func TestE2EConcurrentCommandsStayFramed(t *testing.T) {
	ctx := context.Background()
	c, _ := memClient(t, 256, 256, 64)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			col := wire.Color{R: byte(g * 60), G: 1}
			r := wire.Rect{X: uint16(g * 64), W: 64, H: 64}
			for i := 0; i < 5; i++ {
				if err := c.FillRect(ctx, col, r); err != nil {
					errs <- err
					return
				}
				got, err := c.GetRect(ctx, r)
				if err != nil {
					errs <- err
					return
				}
				for _, v := range got {
					if v != col {
						errs <- errors.New("interleaved reply")
						return
					}
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent: %v", err)
	}
}

func TestE2EServerClosesOnUnknownOpcode(t *testing.T) {
	sw := transport.NewSwitch()
	ln, _ := sw.Listen("canvas")
	startServer(t, ln, 10, 10)
	conn, err := sw.Dial(context.Background(), "canvas")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := transport.WriteAll(conn, []byte{'Z', 0, 0, 0, 0, 0, 0, 0}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
		t.Fatalf("want EOF after unknown opcode, got %v", err)
	}
}

func TestE2ETCPLoopback(t *testing.T) {
	ln, err := transport.ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	startServer(t, ln, 800, 600)

	cfg := client.DefaultConfig()
	cfg.Addr = ln.Addr().String()
	cfg.IOTimeout = 5 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := client.Dial(ctx, cfg, client.WithLogger(quiet))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	info, err := c.QueryInfo(ctx)
	if err != nil || info.Width != 800 || info.Height != 600 {
		t.Fatalf("info %+v err %v", info, err)
	}
	r := wire.Rect{X: 100, Y: 100, W: 200, H: 150}
	if err := c.FillRect(ctx, wire.Color{G: 200}, r); err != nil {
		t.Fatalf("fill: %v", err)
	}
	got, err := c.GetRect(ctx, r)
	if err != nil {
		t.Fatalf("get rect: %v", err)
	}
	for i, col := range got {
		if col != (wire.Color{G: 200}) {
			t.Fatalf("pixel %d = %v", i, col)
		}
	}
}

func TestE2EDialRefused(t *testing.T) {
	ln, err := transport.ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	cfg := client.DefaultConfig()
	cfg.Addr = addr
	cfg.DialTimeout = time.Second
	if _, err := client.Dial(context.Background(), cfg, client.WithLogger(quiet)); !errors.Is(err, client.ErrTransport) {
		t.Fatalf("want ErrTransport, got %v", err)
	}
}
