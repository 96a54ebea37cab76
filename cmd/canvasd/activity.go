package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/juanpablocruz/pixelflut/pkg/mockcanvas"
)

// activityLog writes server activity as JSON lines.
type activityLog struct {
	mu  sync.Mutex
	f   *os.File
	w   *bufio.Writer
	enc *json.Encoder
}

func newActivityLog(path string) (*activityLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open activity log: %w", err)
	}
	w := bufio.NewWriterSize(f, 64<<10)
	return &activityLog{f: f, w: w, enc: json.NewEncoder(w)}, nil
}

func (l *activityLog) OnActivity(a mockcanvas.Activity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.enc.Encode(a.Record())
	// Connection boundaries are rare enough to flush on.
	if a.Kind != mockcanvas.ActivityCommand {
		_ = l.w.Flush()
	}
}

func (l *activityLog) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.w.Flush()
	_ = l.f.Close()
}
