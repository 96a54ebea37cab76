package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/juanpablocruz/pixelflut/pkg/client"
)

// eventLog drains client events into a JSON lines file and hands each
// one to tap. Either may be absent.
type eventLog struct {
	events chan client.Event
	tap    func(client.Event)
	f      *os.File
	w      *bufio.Writer
	done   chan struct{}
	once   sync.Once
}

type jsonEvent struct {
	Kind    string         `json:"kind"`
	Time    time.Time      `json:"time"`
	Session string         `json:"session"`
	Type    string         `json:"type"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func openEventLog(path string, tap func(client.Event)) (*eventLog, error) {
	l := &eventLog{
		events: make(chan client.Event, 1024),
		tap:    tap,
		done:   make(chan struct{}),
	}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open events file: %w", err)
		}
		l.f = f
		l.w = bufio.NewWriterSize(f, 64<<10)
	}
	go l.loop()
	return l, nil
}

func (l *eventLog) loop() {
	defer close(l.done)
	var enc *json.Encoder
	if l.w != nil {
		enc = json.NewEncoder(l.w)
	}
	for e := range l.events {
		if l.tap != nil {
			l.tap(e)
		}
		if enc == nil {
			continue
		}
		fields := make(map[string]any, len(e.Fields))
		for k, v := range e.Fields {
			if d, ok := v.(time.Duration); ok {
				v = d.Seconds()
			}
			fields[k] = v
		}
		_ = enc.Encode(jsonEvent{Kind: "event", Time: e.Time, Session: e.Session, Type: string(e.Type), Fields: fields})
	}
}

// Close must run after the client is closed so nothing sends on events.
func (l *eventLog) Close() {
	l.once.Do(func() {
		close(l.events)
		<-l.done
		if l.f != nil {
			_ = l.w.Flush()
			_ = l.f.Close()
		}
	})
}
