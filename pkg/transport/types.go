package transport

import (
	"errors"
	"io"
	"time"
)

// Stream is the byte pipe a canvas client drives. Writes go through
// WriteAll and reads through ReadExact, so a partial transfer is always
// reported as an error.
type Stream interface {
	io.Reader
	io.Writer
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// WriteAll writes p completely or returns the error that stopped it.
func WriteAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

// ReadExact fills p or fails. A stream that ends before the first byte
// yields io.ErrUnexpectedEOF as well, since the caller always expects
// len(p) bytes.
func ReadExact(r io.Reader, p []byte) error {
	_, err := io.ReadFull(r, p)
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// SetDeadline applies t to s when the stream supports deadlines and
// reports whether it did.
func SetDeadline(s Stream, t time.Time) bool {
	d, ok := s.(deadliner)
	if !ok {
		return false
	}
	return d.SetDeadline(t) == nil
}
