package transport

import (
	"errors"
	"io"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

var ErrLinkDown = errors.New("transport: link down")

type ChaosConfig struct {
	// Fragmentation: max bytes per Read/Write call, 0 = unlimited.
	// Short writes are returned with a nil error.
	ReadChunk  int
	WriteChunk int
	// Random picks each fragment size uniformly in [1, chunk].
	Random bool

	// Cut the link once this many bytes went through, 0 = never.
	FailReadAfter  int64
	FailWriteAfter int64

	// Link toggle
	Up bool

	// Seed (optional). If 0, uses time.Now().UnixNano()
	Seed int64
}

// ChaosStream wraps a Stream and fragments or cuts its traffic. It is
// used to prove that framing never depends on how the transport splits
// bytes.
type ChaosStream struct {
	under Stream

	up atomic.Bool

	mu       sync.Mutex
	cfg      ChaosConfig
	rng      *rand.Rand
	nread    int64
	nwritten int64
	writes   int
}

func WrapChaos(under Stream, cfg ChaosConfig) *ChaosStream {
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	cs := &ChaosStream{
		under: under,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
	}
	cs.up.Store(cfg.Up)
	return cs
}

func (c *ChaosStream) Read(p []byte) (int, error) {
	if !c.up.Load() {
		return 0, ErrLinkDown
	}
	c.mu.Lock()
	n := c.fragment(len(p), c.cfg.ReadChunk)
	n, cut := limit(n, c.nread, c.cfg.FailReadAfter)
	c.mu.Unlock()
	if n == 0 && cut {
		return 0, ErrLinkDown
	}
	got, err := c.under.Read(p[:n])
	c.mu.Lock()
	c.nread += int64(got)
	c.mu.Unlock()
	return got, err
}

func (c *ChaosStream) Write(p []byte) (int, error) {
	if !c.up.Load() {
		return 0, ErrLinkDown
	}
	c.mu.Lock()
	n := c.fragment(len(p), c.cfg.WriteChunk)
	n, cut := limit(n, c.nwritten, c.cfg.FailWriteAfter)
	c.writes++
	c.mu.Unlock()
	var (
		put int
		err error
	)
	if n > 0 {
		put, err = c.under.Write(p[:n])
	}
	c.mu.Lock()
	c.nwritten += int64(put)
	c.mu.Unlock()
	if err == nil && cut {
		err = ErrLinkDown
	}
	return put, err
}

func (c *ChaosStream) Close() error {
	if cl, ok := c.under.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

// --- controls ---

func (c *ChaosStream) SetUp(up bool) { c.up.Store(up) }

// Stats returns bytes read, bytes written and Write calls seen.
func (c *ChaosStream) Stats() (read, written int64, writes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nread, c.nwritten, c.writes
}

func (c *ChaosStream) fragment(n, chunk int) int {
	if chunk <= 0 || n <= chunk {
		if chunk > 0 && c.cfg.Random && n > 1 {
			return 1 + c.rng.Intn(n)
		}
		return n
	}
	if c.cfg.Random {
		return 1 + c.rng.Intn(chunk)
	}
	return chunk
}

// limit caps n so that done+n never passes failAfter. cut reports that
// the cap was hit.
func limit(n int, done, failAfter int64) (int, bool) {
	if failAfter <= 0 {
		return n, false
	}
	left := failAfter - done
	if left <= 0 {
		return 0, true
	}
	if int64(n) >= left {
		return int(left), true
	}
	return n, false
}
