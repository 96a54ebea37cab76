package transport

import (
	"context"
	"testing"
	"time"
)

func TestTCPDialLoopback(t *testing.T) {
	ln, err := ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	done := make(chan []byte, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			done <- nil
			return
		}
		defer c.Close()
		buf := make([]byte, 8)
		if err := ReadExact(c, buf); err != nil {
			done <- nil
			return
		}
		done <- buf
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c, err := DialTCP(ctx, ln.Addr().String(), 0)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	if !SetDeadline(c, time.Now().Add(time.Second)) {
		t.Fatalf("tcp conn should accept deadlines")
	}
	if err := WriteAll(c, []byte{'I', 0, 0, 0, 0, 0, 0, 0}); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case got := <-done:
		if got == nil || got[0] != 'I' {
			t.Fatalf("server got %v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("server never received the frame")
	}
}
