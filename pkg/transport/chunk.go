package transport

import (
	"errors"
	"fmt"
	"io"
)

var ErrChunkTooLarge = errors.New("transport: chunk larger than buffer")

// ChunkWriter accumulates bytes in a fixed, caller-owned buffer and writes
// the used part as one write whenever the next reservation does not fit.
// The bytes reaching the underlying writer are the same as one unbounded
// write; only the write boundaries depend on the buffer size.
type ChunkWriter struct {
	w   io.Writer
	buf []byte
	n   int

	flushes int
	written int64
}

func NewChunkWriter(w io.Writer, buf []byte) *ChunkWriter {
	return &ChunkWriter{w: w, buf: buf}
}

func (c *ChunkWriter) Cap() int       { return len(c.buf) }
func (c *ChunkWriter) Buffered() int  { return c.n }
func (c *ChunkWriter) Flushes() int   { return c.flushes }
func (c *ChunkWriter) Written() int64 { return c.written }

// Reserve hands out the next n bytes of the buffer, flushing first if
// fewer than n bytes are free.
func (c *ChunkWriter) Reserve(n int) ([]byte, error) {
	if n > len(c.buf) {
		return nil, fmt.Errorf("%w: %d > %d", ErrChunkTooLarge, n, len(c.buf))
	}
	if len(c.buf)-c.n < n {
		if err := c.Flush(); err != nil {
			return nil, err
		}
	}
	p := c.buf[c.n : c.n+n]
	c.n += n
	return p, nil
}

func (c *ChunkWriter) Append(p []byte) error {
	b, err := c.Reserve(len(p))
	if err != nil {
		return err
	}
	copy(b, p)
	return nil
}

// Flush writes the buffered bytes, if any, and rewinds to offset 0.
func (c *ChunkWriter) Flush() error {
	if c.n == 0 {
		return nil
	}
	n := c.n
	c.n = 0
	c.flushes++
	if err := WriteAll(c.w, c.buf[:n]); err != nil {
		return err
	}
	c.written += int64(n)
	return nil
}

// ChunkReader reads a known number of bytes through a fixed buffer and
// hands every chunk to a callback before reading the next one.
type ChunkReader struct {
	r   io.Reader
	buf []byte

	chunks int
	read   int64
}

func NewChunkReader(r io.Reader, buf []byte) *ChunkReader {
	return &ChunkReader{r: r, buf: buf}
}

func (c *ChunkReader) Chunks() int       { return c.chunks }
func (c *ChunkReader) BytesRead() int64 { return c.read }

// ReadGroups reads exactly total bytes. Chunks hold whole groups: each is
// at most len(buf) rounded down to a multiple of group.
func (c *ChunkReader) ReadGroups(total, group int, fn func(chunk []byte) error) error {
	if group <= 0 || total < 0 || total%group != 0 {
		return fmt.Errorf("transport: %d bytes is not a whole number of %d-byte groups", total, group)
	}
	step := len(c.buf) - len(c.buf)%group
	if step == 0 && total > 0 {
		return fmt.Errorf("%w: group %d > %d", ErrChunkTooLarge, group, len(c.buf))
	}
	for total > 0 {
		n := min(total, step)
		if err := ReadExact(c.r, c.buf[:n]); err != nil {
			return err
		}
		c.chunks++
		c.read += int64(n)
		if err := fn(c.buf[:n]); err != nil {
			return err
		}
		total -= n
	}
	return nil
}
