package transport

import (
	"context"
	"net"
	"time"
)

const defaultDialTimeout = 2 * time.Second

// DialTCP connects to a canvas server. Commands are small frames, so
// Nagle is disabled.
func DialTCP(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	d := net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return c, nil
}

func ListenTCP(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}
