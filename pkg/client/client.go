// Package client speaks the canvas protocol over a borrowed byte stream.
//
// Every command is written and, when it has a reply, fully read before
// the next command starts. Rect transfers stream through two fixed
// buffers of Config.BufferSize bytes, so memory use does not grow with
// the rect.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/juanpablocruz/pixelflut/pkg/metrics"
	"github.com/juanpablocruz/pixelflut/pkg/protoport"
	"github.com/juanpablocruz/pixelflut/pkg/transport"
	"github.com/juanpablocruz/pixelflut/pkg/wire"
)

const tracerName = "github.com/juanpablocruz/pixelflut/pkg/client"

type Client struct {
	cfg Config
	s   transport.Stream
	id  string

	log     *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	events  chan Event

	// mu serializes commands; everything below is owned by the command
	// holding it.
	mu      sync.Mutex
	wbuf    []byte
	rbuf    []byte
	info    wire.ServerInfo
	hasInfo bool
	closed  bool
}

// New wraps an established stream. The client does not own s until
// Close is called.
func New(s transport.Stream, cfg Config, opts ...Option) (*Client, error) {
	if s == nil {
		return nil, errors.New("client: nil stream")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("client config: %w", err)
	}
	c := &Client{
		cfg:    cfg,
		s:      s,
		id:     uuid.NewString(),
		log:    slog.Default(),
		tracer: otel.Tracer(tracerName),
		wbuf:   make([]byte, cfg.BufferSize),
		rbuf:   make([]byte, cfg.BufferSize),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.log = c.log.With("session", c.id)
	return c, nil
}

// Dial connects to cfg.Addr over TCP.
func Dial(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("client dial: %w", errNoAddr)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("client config: %w", err)
	}
	conn, err := transport.DialTCP(ctx, cfg.Addr, cfg.DialTimeout)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}
	c, err := New(conn, cfg, opts...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	c.log.Info("connected", "addr", cfg.Addr)
	return c, nil
}

func (c *Client) Session() string { return c.id }
func (c *Client) Config() Config  { return c.cfg }

// ServerInfo returns the reply of the last successful QueryInfo.
func (c *Client) ServerInfo() (wire.ServerInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info, c.hasInfo
}

// Close closes the stream if it is an io.Closer. Later commands fail
// with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.emit(EventClose, nil)
	if cl, ok := c.s.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

// do runs one command under the client lock. fn performs the I/O and
// fills tr; any error it returns that is not a precondition failure is
// reported as a transport failure.
func (c *Client) do(ctx context.Context, cmd protoport.Command, fn func(tr *metrics.Transfer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	op := wire.OpName(cmd.Opcode())

	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "pixelflut."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(commandAttrs(cmd)...))
	defer span.End()

	tr := metrics.Transfer{Op: op}
	start := time.Now()
	var err error
	if c.closed {
		err = &TransportError{Op: op, Err: ErrClosed}
	} else {
		reset := c.applyDeadline(ctx)
		err = fn(&tr)
		if reset {
			transport.SetDeadline(c.s, time.Time{})
		}
		var pe *PreconditionError
		if err != nil && !errors.As(err, &pe) {
			err = &TransportError{Op: op, Err: err}
		}
	}
	dur := time.Since(start)

	kind := errorKind(err)
	c.metrics.Observe(tr, dur, kind)
	span.SetAttributes(
		attribute.Int64("pixelflut.bytes_sent", tr.BytesSent),
		attribute.Int64("pixelflut.bytes_recv", tr.BytesRecv),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		c.log.Warn("command failed", "op", op, "kind", kind, "err", err)
		c.emit(EventError, map[string]any{"op": op, "kind": kind, "err": err.Error()})
		return err
	}
	c.dbg(ctx, "command", "op", op, "transfer", tr.String(), "dur", dur)
	c.emit(EventCommand, map[string]any{
		"op": op, "bytes_sent": tr.BytesSent, "bytes_recv": tr.BytesRecv,
		"pixels": tr.Pixels, "flushes": tr.Flushes, "chunks": tr.Chunks, "dur": dur,
	})
	return nil
}

// applyDeadline sets the earlier of IOTimeout and the context deadline.
func (c *Client) applyDeadline(ctx context.Context) bool {
	var dl time.Time
	if c.cfg.IOTimeout > 0 {
		dl = time.Now().Add(c.cfg.IOTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (dl.IsZero() || d.Before(dl)) {
		dl = d
	}
	if dl.IsZero() {
		return false
	}
	return transport.SetDeadline(c.s, dl)
}

// send writes the complete frame of cmd as one write.
func (c *Client) send(tr *metrics.Transfer, cmd protoport.Command) error {
	frame, ok := protoport.EncodeCommand(cmd)
	if !ok {
		return fmt.Errorf("unencodable command %T", cmd)
	}
	if err := transport.WriteAll(c.s, frame); err != nil {
		return err
	}
	tr.BytesSent += int64(len(frame))
	return nil
}

func (c *Client) recv(tr *metrics.Transfer, p []byte) error {
	if err := transport.ReadExact(c.s, p); err != nil {
		return err
	}
	tr.BytesRecv += int64(len(p))
	return nil
}

func (c *Client) dbg(ctx context.Context, msg string, args ...any) {
	if c.log.Enabled(ctx, slog.LevelDebug) {
		c.log.DebugContext(ctx, msg, args...)
	}
}

func (c *Client) emit(t EventType, f map[string]any) {
	if c.events == nil {
		return
	}
	select {
	case c.events <- Event{Time: time.Now(), Session: c.id, Type: t, Fields: f}:
	default: // drop if the consumer is slow
	}
}

func commandAttrs(cmd protoport.Command) []attribute.KeyValue {
	rectAttrs := func(r wire.Rect) []attribute.KeyValue {
		return []attribute.KeyValue{
			attribute.Int("pixelflut.rect.x", int(r.X)),
			attribute.Int("pixelflut.rect.y", int(r.Y)),
			attribute.Int("pixelflut.rect.w", int(r.W)),
			attribute.Int("pixelflut.rect.h", int(r.H)),
		}
	}
	switch x := cmd.(type) {
	case protoport.PutPixelCmd:
		return []attribute.KeyValue{attribute.Int("pixelflut.x", int(x.P.X)), attribute.Int("pixelflut.y", int(x.P.Y))}
	case protoport.GetPixelCmd:
		return []attribute.KeyValue{attribute.Int("pixelflut.x", int(x.X)), attribute.Int("pixelflut.y", int(x.Y))}
	case protoport.FillRectCmd:
		return rectAttrs(x.R)
	case protoport.PrintRectCmd:
		return rectAttrs(x.R)
	case protoport.GetRectCmd:
		return rectAttrs(x.R)
	default:
		return nil
	}
}
