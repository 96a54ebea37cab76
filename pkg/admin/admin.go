// Package admin serves the HTTP side of canvasd: Prometheus metrics, the
// server info, a PNG snapshot of the canvas and a live activity stream.
package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/juanpablocruz/pixelflut/pkg/eventbus"
	"github.com/juanpablocruz/pixelflut/pkg/mockcanvas"
	"github.com/juanpablocruz/pixelflut/pkg/raster"
)

type Option func(*Handler)

// WithRegistry exposes reg on /metrics. Without it the route is absent.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(h *Handler) { h.reg = reg }
}

// WithActivity streams bus events on /activity.
func WithActivity(bus *eventbus.Bus[mockcanvas.Activity]) Option {
	return func(h *Handler) { h.bus = bus }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.log = l }
}

type Handler struct {
	srv    *mockcanvas.Server
	reg    *prometheus.Registry
	bus    *eventbus.Bus[mockcanvas.Activity]
	log    *slog.Logger
	hub    *Hub
	router chi.Router
}

func New(srv *mockcanvas.Server, opts ...Option) *Handler {
	h := &Handler{srv: srv, log: slog.Default()}
	for _, o := range opts {
		o(h)
	}

	r := chi.NewRouter()
	r.Get("/info", h.info)
	r.Get("/canvas.png", h.canvasPNG)
	if h.reg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.reg, promhttp.HandlerOpts{Registry: h.reg}))
	}
	if h.bus != nil {
		h.hub = NewHub(h.log)
		h.bus.Subscribe(h.hub.OnActivity)
		r.Get("/activity", h.hub.ServeHTTP)
	}
	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Close disconnects activity watchers.
func (h *Handler) Close() {
	if h.hub != nil {
		h.hub.Close()
	}
}

type infoResponse struct {
	Width          uint32 `json:"width"`
	Height         uint32 `json:"height"`
	RecvBufferSize uint32 `json:"recv_buffer_size"`
	SendBufferSize uint32 `json:"send_buffer_size"`
}

func (h *Handler) info(w http.ResponseWriter, _ *http.Request) {
	si := h.srv.Info()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(infoResponse{
		Width:          si.Width,
		Height:         si.Height,
		RecvBufferSize: si.RecvBufferSize,
		SendBufferSize: si.SendBufferSize,
	})
}

func (h *Handler) canvasPNG(w http.ResponseWriter, _ *http.Request) {
	c := h.srv.Canvas()
	cw, ch := c.Size()
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := raster.SavePNG(w, c.Snapshot(), cw, ch); err != nil {
		h.log.Warn("encode snapshot", "err", err)
	}
}
