package client

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/juanpablocruz/pixelflut/pkg/wire"
)

const (
	DefaultBufferSize  = 1024
	DefaultDialTimeout = 2 * time.Second
)

// Config is the explicit configuration handed to New and Dial.
type Config struct {
	// Addr is the TCP endpoint Dial connects to.
	Addr string
	// BufferSize is the capacity of the transfer buffers used by PrintRect
	// and GetRect. It bounds memory per command regardless of rect size.
	BufferSize int
	// DialTimeout bounds connection setup in Dial.
	DialTimeout time.Duration
	// IOTimeout, when positive, is a per-command deadline on streams that
	// support deadlines. Zero means commands block until the stream fails.
	IOTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Addr:        net.JoinHostPort("127.0.0.1", strconv.Itoa(wire.DefaultPort)),
		BufferSize:  DefaultBufferSize,
		DialTimeout: DefaultDialTimeout,
	}
}

func (cfg Config) Validate() error {
	if cfg.BufferSize < wire.FrameSize {
		return fmt.Errorf("buffer size must be at least %d, got %d", wire.FrameSize, cfg.BufferSize)
	}
	if cfg.BufferSize%wire.GroupSize != 0 {
		return fmt.Errorf("buffer size must be a multiple of %d, got %d", wire.GroupSize, cfg.BufferSize)
	}
	if cfg.DialTimeout < 0 {
		return fmt.Errorf("dial timeout cannot be negative, got %v", cfg.DialTimeout)
	}
	if cfg.IOTimeout < 0 {
		return fmt.Errorf("io timeout cannot be negative, got %v", cfg.IOTimeout)
	}
	return nil
}

var errNoAddr = errors.New("no address configured")
