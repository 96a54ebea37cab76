// canvasd runs the in-memory canvas server on TCP. A separate HTTP
// listener serves metrics, the server info, a PNG snapshot and a
// websocket activity stream.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/juanpablocruz/pixelflut/pkg/admin"
	"github.com/juanpablocruz/pixelflut/pkg/eventbus"
	"github.com/juanpablocruz/pixelflut/pkg/metrics"
	"github.com/juanpablocruz/pixelflut/pkg/mockcanvas"
	"github.com/juanpablocruz/pixelflut/pkg/transport"
)

var (
	flAddr     = flag.String("addr", ":1337", "canvas listen address")
	flWidth    = flag.Int("width", 1024, "canvas width")
	flHeight   = flag.Int("height", 1024, "canvas height")
	flBuffer   = flag.Int("buffer", 1024, "recv/send buffer size announced in the info reply")
	flMaxConns = flag.Int("max-conns", 10, "concurrent connections, 0=unlimited")
	flIdle     = flag.Duration("idle-timeout", 0, "close connections idle this long, 0=never")
	flHTTP     = flag.String("http", ":9100", "admin HTTP listen address, empty=off")
	flLogLevel = flag.String("log-level", "info", "debug, info, warn or error")
	flActivity = flag.String("activity", "", "append connection and command activity as JSON lines to this file")
)

func main() {
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*flLogLevel)); err != nil {
		log.Fatalf("bad -log-level: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *flWidth <= 0 || *flHeight <= 0 || *flWidth > 0xffff || *flHeight > 0xffff {
		log.Fatalf("canvas size %dx%d out of range", *flWidth, *flHeight)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(metrics.WithRegistry(reg), metrics.WithSubsystem("server"))

	cfg := mockcanvas.Config{
		RecvBufferSize: *flBuffer,
		SendBufferSize: *flBuffer,
		MaxConns:       *flMaxConns,
		IdleTimeout:    *flIdle,
	}
	opts := []mockcanvas.Option{mockcanvas.WithLogger(logger), mockcanvas.WithMetrics(m)}
	var bus *eventbus.Bus[mockcanvas.Activity]
	if *flActivity != "" || *flHTTP != "" {
		bus = eventbus.New[mockcanvas.Activity](eventbus.WithSubscriberBuffer(1024))
		opts = append(opts, mockcanvas.WithActivity(bus))
	}
	if *flActivity != "" {
		al, err := newActivityLog(*flActivity)
		if err != nil {
			log.Fatalf("%v", err)
		}
		bus.Subscribe(al.OnActivity)
		// Runs after bus.Stop: the bus drains before the file closes.
		defer al.Close()
	}
	srv := mockcanvas.NewServer(mockcanvas.New(*flWidth, *flHeight), cfg, opts...)

	ln, err := transport.ListenTCP(*flAddr)
	if err != nil {
		log.Fatalf("listen %s: %v", *flAddr, err)
	}
	logger.Info("canvas listening", "addr", ln.Addr().String(), "info", srv.Info().String())

	var (
		hs *http.Server
		ah *admin.Handler
	)
	if *flHTTP != "" {
		ah = admin.New(srv, admin.WithRegistry(reg), admin.WithActivity(bus), admin.WithLogger(logger))
		hs = &http.Server{Addr: *flHTTP, Handler: ah, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("admin server", "err", err)
			}
		}()
		logger.Info("admin listening", "addr", *flHTTP)
	}
	if bus != nil {
		bus.Start()
		defer bus.Stop()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("serve", "err", err)
		}
	case <-sigChan:
		logger.Info("shutting down")
	}
	_ = srv.Close()
	if hs != nil {
		ah.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = hs.Shutdown(ctx)
	}
}
