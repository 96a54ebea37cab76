package transport

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

type loopback struct {
	r *bytes.Reader
	w bytes.Buffer
}

func (l *loopback) Read(p []byte) (int, error)  { return l.r.Read(p) }
func (l *loopback) Write(p []byte) (int, error) { return l.w.Write(p) }

func TestChaosUpDown(t *testing.T) {
	lb := &loopback{r: bytes.NewReader([]byte("hi"))}
	cs := WrapChaos(lb, ChaosConfig{Up: false, Seed: 1})
	if err := WriteAll(cs, []byte("x")); !errors.Is(err, ErrLinkDown) {
		t.Fatalf("expected ErrLinkDown when link down, got %v", err)
	}
	if _, err := cs.Read(make([]byte, 1)); !errors.Is(err, ErrLinkDown) {
		t.Fatalf("expected ErrLinkDown on read, got %v", err)
	}
	cs.SetUp(true)
	if err := WriteAll(cs, []byte("x")); err != nil {
		t.Fatalf("write after SetUp: %v", err)
	}
}

func TestChaosFragmentsButDelivers(t *testing.T) {
	src := make([]byte, 300)
	for i := range src {
		src[i] = byte(i)
	}
	lb := &loopback{r: bytes.NewReader(src)}
	cs := WrapChaos(lb, ChaosConfig{Up: true, ReadChunk: 7, WriteChunk: 5, Random: true, Seed: 42})

	if err := WriteAll(cs, src); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !bytes.Equal(lb.w.Bytes(), src) {
		t.Fatalf("fragmented write lost bytes")
	}
	_, written, writes := cs.Stats()
	if written != 300 || writes < 60 {
		t.Fatalf("expected many short writes, got written=%d writes=%d", written, writes)
	}

	got := make([]byte, len(src))
	if err := ReadExact(cs, got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Fatalf("fragmented read mismatch")
	}
}

func TestChaosCutsAfterBytes(t *testing.T) {
	lb := &loopback{r: bytes.NewReader(make([]byte, 64))}
	cs := WrapChaos(lb, ChaosConfig{Up: true, FailWriteAfter: 10, FailReadAfter: 6})

	if err := WriteAll(cs, make([]byte, 16)); !errors.Is(err, ErrLinkDown) {
		t.Fatalf("expected ErrLinkDown on write, got %v", err)
	}
	if lb.w.Len() != 10 {
		t.Fatalf("expected exactly 10 bytes through, got %d", lb.w.Len())
	}

	err := ReadExact(cs, make([]byte, 8))
	if !errors.Is(err, ErrLinkDown) {
		t.Fatalf("expected ErrLinkDown on read, got %v", err)
	}
	if read, _, _ := cs.Stats(); read != 6 {
		t.Fatalf("expected 6 bytes read, got %d", read)
	}
}

func TestReadExactEmptyStream(t *testing.T) {
	if err := ReadExact(bytes.NewReader(nil), make([]byte, 4)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

type zeroWriter struct{}

func (zeroWriter) Write([]byte) (int, error) { return 0, nil }

func TestWriteAllZeroProgress(t *testing.T) {
	if err := WriteAll(zeroWriter{}, []byte{1}); !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("expected ErrShortWrite, got %v", err)
	}
}
