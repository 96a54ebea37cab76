package mockcanvas

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/juanpablocruz/pixelflut/pkg/eventbus"
	"github.com/juanpablocruz/pixelflut/pkg/metrics"
	"github.com/juanpablocruz/pixelflut/pkg/protoport"
	"github.com/juanpablocruz/pixelflut/pkg/wire"
)

type Config struct {
	// Buffer sizes reported in the info reply and used for the
	// per-connection bufio reader and writer.
	RecvBufferSize int
	SendBufferSize int
	// MaxConns caps concurrent connections; extra ones are closed
	// right after accept. 0 means unlimited.
	MaxConns int
	// IdleTimeout closes a connection that sends nothing for this long.
	// 0 disables it.
	IdleTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{RecvBufferSize: 1024, SendBufferSize: 1024, MaxConns: 10}
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option      { return func(s *Server) { s.log = l } }
func WithMetrics(m *metrics.Metrics) Option { return func(s *Server) { s.metrics = m } }

// WithActivity publishes connection and command activity on bus. The
// caller starts and stops the bus.
func WithActivity(bus *eventbus.Bus[Activity]) Option {
	return func(s *Server) { s.activity = bus }
}

type ActivityKind string

const (
	ActivityOpen    ActivityKind = "open"
	ActivityReject  ActivityKind = "reject"
	ActivityCommand ActivityKind = "command"
	ActivityClose   ActivityKind = "close"
)

// Activity is one server-side happening. Op, Rect and Pixels are set for
// commands; Err is set when a command or connection failed.
type Activity struct {
	Time   time.Time
	Kind   ActivityKind
	Remote string
	Op     string
	Rect   wire.Rect
	Pixels int
	Err    string
}

// ActivityRecord is the JSON form of an Activity.
type ActivityRecord struct {
	Time   time.Time `json:"time"`
	Kind   string    `json:"kind"`
	Remote string    `json:"remote,omitempty"`
	Op     string    `json:"op,omitempty"`
	Rect   string    `json:"rect,omitempty"`
	Pixels int       `json:"pixels,omitempty"`
	Err    string    `json:"err,omitempty"`
}

func (a Activity) Record() ActivityRecord {
	r := ActivityRecord{Time: a.Time, Kind: string(a.Kind), Remote: a.Remote, Op: a.Op, Pixels: a.Pixels, Err: a.Err}
	if a.Kind == ActivityCommand {
		r.Rect = a.Rect.String()
	}
	return r
}

type Server struct {
	canvas   *Canvas
	cfg      Config
	log      *slog.Logger
	metrics  *metrics.Metrics
	activity *eventbus.Bus[Activity]

	mu     sync.Mutex
	lns    map[net.Listener]struct{}
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

func NewServer(c *Canvas, cfg Config, opts ...Option) *Server {
	if cfg.RecvBufferSize < wire.FillFrameSize {
		cfg.RecvBufferSize = DefaultConfig().RecvBufferSize
	}
	if cfg.SendBufferSize < wire.InfoReplySize {
		cfg.SendBufferSize = DefaultConfig().SendBufferSize
	}
	s := &Server{
		canvas: c,
		cfg:    cfg,
		log:    slog.Default(),
		lns:    make(map[net.Listener]struct{}),
		conns:  make(map[net.Conn]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) Canvas() *Canvas { return s.canvas }

func (s *Server) Info() wire.ServerInfo {
	w, h := s.canvas.Size()
	return wire.ServerInfo{
		Width:          uint32(w),
		Height:         uint32(h),
		RecvBufferSize: uint32(s.cfg.RecvBufferSize),
		SendBufferSize: uint32(s.cfg.SendBufferSize),
	}
}

// Serve accepts connections until ln fails or the server is closed.
// It returns nil after Close.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.lns[ln] = struct{}{}
	s.mu.Unlock()

	for {
		c, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			delete(s.lns, ln)
			s.mu.Unlock()
			if closed {
				return nil
			}
			return err
		}
		if !s.track(c) {
			s.log.Warn("no free slot", "remote", c.RemoteAddr(), "max_conns", s.cfg.MaxConns)
			s.publish(Activity{Kind: ActivityReject, Remote: c.RemoteAddr().String()})
			_ = c.Close()
			continue
		}
		s.wg.Add(1)
		go s.handleConn(c)
	}
}

func (s *Server) track(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || (s.cfg.MaxConns > 0 && len(s.conns) >= s.cfg.MaxConns) {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

// Close stops all listeners and connections and waits for the handlers.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for ln := range s.lns {
		_ = ln.Close()
	}
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

// tracker is the per-connection accounting logged on close.
type tracker struct {
	start    time.Time
	commands map[string]int
	outside  int
	bytesIn  int64
	bytesOut int64
	remote   string
	err      error
}

func (s *Server) handleConn(c net.Conn) {
	defer s.wg.Done()
	tk := &tracker{start: time.Now(), commands: make(map[string]int), remote: c.RemoteAddr().String()}
	r := bufio.NewReaderSize(c, s.cfg.RecvBufferSize)
	w := bufio.NewWriterSize(c, s.cfg.SendBufferSize)

	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		_ = c.Close()
		s.log.Info("connection closed", "remote", tk.remote, "dur", time.Since(tk.start),
			"commands", tk.commands, "outside", tk.outside, "bytes_in", tk.bytesIn, "bytes_out", tk.bytesOut)
		a := Activity{Kind: ActivityClose, Remote: tk.remote}
		if tk.err != nil {
			a.Err = tk.err.Error()
		}
		s.publish(a)
	}()
	s.log.Info("connection accepted", "remote", tk.remote)
	s.publish(Activity{Kind: ActivityOpen, Remote: tk.remote})

	for {
		if s.cfg.IdleTimeout > 0 {
			_ = c.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		}
		if err := s.step(r, w, tk); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				tk.err = err
				s.log.Warn("connection error", "remote", tk.remote, "err", err)
			}
			return
		}
	}
}

// step reads and executes one command. io.EOF on a frame boundary is a
// clean disconnect.
func (s *Server) step(r *bufio.Reader, w *bufio.Writer, tk *tracker) error {
	var frame [wire.FrameSize]byte
	if _, err := io.ReadFull(r, frame[:]); err != nil {
		return err
	}
	start := time.Now()
	cmd, err := protoport.DecodeCommand(frame[:])
	if err != nil {
		op := wire.OpName(frame[0])
		s.metrics.Observe(metrics.Transfer{Op: op, BytesRecv: wire.FrameSize}, time.Since(start), "protocol")
		s.publish(Activity{Kind: ActivityCommand, Remote: tk.remote, Op: op, Err: err.Error()})
		return err
	}
	tr := metrics.Transfer{Op: wire.OpName(cmd.Opcode()), BytesRecv: wire.FrameSize}
	err = s.exec(cmd, r, w, &tr, tk)
	kind := ""
	if err != nil {
		kind = "transport"
	}
	s.metrics.Observe(tr, time.Since(start), kind)
	a := Activity{Kind: ActivityCommand, Remote: tk.remote, Op: tr.Op, Rect: commandRect(cmd), Pixels: tr.Pixels}
	if err != nil {
		a.Err = err.Error()
	}
	s.publish(a)
	tk.commands[tr.Op]++
	tk.bytesIn += tr.BytesRecv
	tk.bytesOut += tr.BytesSent
	return err
}

func (s *Server) exec(cmd protoport.Command, r *bufio.Reader, w *bufio.Writer, tr *metrics.Transfer, tk *tracker) error {
	var group [wire.GroupSize]byte
	switch x := cmd.(type) {
	case protoport.InfoCmd:
		reply := wire.EncodeInfoReply(s.Info())
		tr.BytesSent = int64(len(reply))
		if _, err := w.Write(reply); err != nil {
			return err
		}
		return w.Flush()

	case protoport.PutPixelCmd:
		tr.Pixels = 1
		if !s.canvas.Set(int(x.P.X), int(x.P.Y), x.P.Color) {
			tk.outside++
		}
		return nil

	case protoport.GetPixelCmd:
		s.encodePixel(int(x.X), int(x.Y), group[:], tk)
		tr.BytesSent, tr.Pixels = wire.GroupSize, 1
		if _, err := w.Write(group[:]); err != nil {
			return err
		}
		return w.Flush()

	case protoport.FillRectCmd:
		if _, err := io.ReadFull(r, group[:]); err != nil {
			return err
		}
		tr.BytesRecv += wire.GroupSize
		n := s.canvas.Fill(x.R, wire.ColorFromGroup(group[:]))
		tr.Pixels = n
		tk.outside += x.R.Area() - n
		return nil

	case protoport.PrintRectCmd:
		for it := newRectIter(x.R); !it.done(); {
			if _, err := io.ReadFull(r, group[:]); err != nil {
				return err
			}
			tr.BytesRecv += wire.GroupSize
			tr.Pixels++
			px, py := it.next()
			if !s.canvas.Set(px, py, wire.ColorFromGroup(group[:])) {
				tk.outside++
			}
		}
		return nil

	case protoport.GetRectCmd:
		for it := newRectIter(x.R); !it.done(); {
			px, py := it.next()
			s.encodePixel(px, py, group[:], tk)
			if _, err := w.Write(group[:]); err != nil {
				return err
			}
			tr.BytesSent += wire.GroupSize
			tr.Pixels++
		}
		return w.Flush()
	}
	return protoport.ErrUnknownOpcode
}

func (s *Server) publish(a Activity) {
	if s.activity == nil {
		return
	}
	a.Time = time.Now()
	s.activity.Publish(a)
}

func commandRect(cmd protoport.Command) wire.Rect {
	switch x := cmd.(type) {
	case protoport.PutPixelCmd:
		return wire.Rect{X: x.P.X, Y: x.P.Y, W: 1, H: 1}
	case protoport.GetPixelCmd:
		return wire.Rect{X: x.X, Y: x.Y, W: 1, H: 1}
	case protoport.FillRectCmd:
		return x.R
	case protoport.PrintRectCmd:
		return x.R
	case protoport.GetRectCmd:
		return x.R
	default:
		return wire.Rect{}
	}
}

// encodePixel writes r, g, b and a 4th byte that is 1 when (x, y) is on
// the canvas.
func (s *Server) encodePixel(x, y int, b []byte, tk *tracker) {
	col, inside := s.canvas.Get(x, y)
	wire.PutColorGroup(b, col)
	if inside {
		b[3] = 1
	} else {
		tk.outside++
	}
}
