package client

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/juanpablocruz/pixelflut/pkg/metrics"
)

// Option configures a Client in New and Dial.
type Option func(*Client)

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithEvents makes the client report every command on ch. Events are
// dropped when ch is full.
func WithEvents(ch chan Event) Option {
	return func(c *Client) { c.events = ch }
}
