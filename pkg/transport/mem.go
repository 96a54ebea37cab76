package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
)

// MemAddr names an in-memory listener.
type MemAddr string

func (a MemAddr) Network() string { return "mem" }
func (a MemAddr) String() string  { return string(a) }

var ErrListenerClosed = errors.New("transport: listener closed")

// Switch connects in-memory dialers to in-memory listeners. Each
// connection is a synchronous net.Pipe pair.
type Switch struct {
	mu        sync.RWMutex
	listeners map[MemAddr]*MemListener
}

func NewSwitch() *Switch {
	return &Switch{listeners: make(map[MemAddr]*MemListener)}
}

// MemListener implements net.Listener for a Switch address.
type MemListener struct {
	sw     *Switch
	addr   MemAddr
	in     chan net.Conn
	closed chan struct{}
	once   sync.Once
}

func (s *Switch) Listen(addr MemAddr) (*MemListener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.listeners[addr]; exists {
		return nil, fmt.Errorf("address already in use: %s", addr)
	}
	l := &MemListener{
		sw: s, addr: addr, in: make(chan net.Conn, 16), closed: make(chan struct{}),
	}
	s.listeners[addr] = l
	return l, nil
}

// Dial returns the client end of a fresh pipe whose server end is queued
// on the listener at addr.
func (s *Switch) Dial(ctx context.Context, addr MemAddr) (net.Conn, error) {
	s.mu.RLock()
	l, ok := s.listeners[addr]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("dial %s: unknown destination", addr)
	}
	client, server := net.Pipe()
	select {
	case l.in <- server:
		return client, nil
	case <-l.closed:
	case <-ctx.Done():
	}
	_ = client.Close()
	_ = server.Close()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrListenerClosed
}

func (l *MemListener) Accept() (net.Conn, error) {
	select {
	case <-l.closed:
		return nil, ErrListenerClosed
	case c := <-l.in:
		return c, nil
	}
}

func (l *MemListener) Close() error {
	l.once.Do(func() {
		close(l.closed)
		l.sw.mu.Lock()
		delete(l.sw.listeners, l.addr)
		l.sw.mu.Unlock()
	})
	return nil
}

func (l *MemListener) Addr() net.Addr { return l.addr }
