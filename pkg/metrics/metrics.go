// Package metrics implements Prometheus instruments for canvas traffic,
// shared by the client and the mock server.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transfer is the byte accounting of one command.
type Transfer struct {
	Op        string
	BytesSent int64 // frame + body
	BytesRecv int64 // reply
	Pixels    int   // colors moved in either direction
	Flushes   int   // writes issued through the transfer buffer
	Chunks    int   // reads issued through the transfer buffer
}

func (t *Transfer) String() string {
	return fmt.Sprintf("Op: %s, BytesSent: %d, BytesRecv: %d, Pixels: %d, Flushes: %d, Chunks: %d",
		t.Op, t.BytesSent, t.BytesRecv, t.Pixels, t.Flushes, t.Chunks)
}

type Config struct {
	// Namespace is the metrics namespace (default: "pixelflut").
	Namespace string
	// Subsystem, e.g. "client" or "server".
	Subsystem   string
	ConstLabels prometheus.Labels
	// Buckets for command duration. Default: prometheus.DefBuckets
	Buckets []float64
	// Registry defaults to prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

type Option func(*Config)

func WithNamespace(ns string) Option { return func(c *Config) { c.Namespace = ns } }
func WithSubsystem(s string) Option  { return func(c *Config) { c.Subsystem = s } }
func WithConstLabels(l prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = l }
}
func WithBuckets(b []float64) Option { return func(c *Config) { c.Buckets = b } }
func WithRegistry(r prometheus.Registerer) Option {
	return func(c *Config) { c.Registry = r }
}

func defaultConfig() Config {
	return Config{
		Namespace: "pixelflut",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	commands  *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	bytesSent prometheus.Counter
	bytesRecv prometheus.Counter
	pixels    *prometheus.CounterVec
	flushes   prometheus.Counter
}

// New registers the instruments. Registering twice on the same registry
// panics, as promauto does.
func New(opts ...Option) *Metrics {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	factory := promauto.With(cfg.Registry)
	return &Metrics{
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "commands_total",
			Help:        "Commands completed, by opcode",
			ConstLabels: cfg.ConstLabels,
		}, []string{"op"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "command_errors_total",
			Help:        "Failed commands, by opcode and error kind",
			ConstLabels: cfg.ConstLabels,
		}, []string{"op", "kind"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "command_duration_seconds",
			Help:        "Command duration in seconds, including reply",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"op"}),
		bytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "bytes_sent_total",
			Help:        "Bytes written to the stream",
			ConstLabels: cfg.ConstLabels,
		}),
		bytesRecv: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "bytes_received_total",
			Help:        "Bytes read from the stream",
			ConstLabels: cfg.ConstLabels,
		}),
		pixels: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "pixels_total",
			Help:        "Pixels transferred, by direction",
			ConstLabels: cfg.ConstLabels,
		}, []string{"dir"}),
		flushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "buffer_flushes_total",
			Help:        "Writes issued through the transfer buffer",
			ConstLabels: cfg.ConstLabels,
		}),
	}
}

// Observe records a finished command. kind is empty on success.
func (m *Metrics) Observe(t Transfer, d time.Duration, kind string) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(t.Op).Observe(d.Seconds())
	m.bytesSent.Add(float64(t.BytesSent))
	m.bytesRecv.Add(float64(t.BytesRecv))
	m.flushes.Add(float64(t.Flushes))
	if kind != "" {
		m.failures.WithLabelValues(t.Op, kind).Inc()
		return
	}
	m.commands.WithLabelValues(t.Op).Inc()
	if t.Pixels > 0 {
		dir := "out"
		if t.BytesRecv > 0 {
			dir = "in"
		}
		m.pixels.WithLabelValues(dir).Add(float64(t.Pixels))
	}
}

// Commands returns the counter for op, for tests and status output.
func (m *Metrics) Commands(op string) prometheus.Counter {
	return m.commands.WithLabelValues(op)
}

func (m *Metrics) Failures(op, kind string) prometheus.Counter {
	return m.failures.WithLabelValues(op, kind)
}

func (m *Metrics) BytesSent() prometheus.Counter { return m.bytesSent }
func (m *Metrics) BytesRecv() prometheus.Counter { return m.bytesRecv }
