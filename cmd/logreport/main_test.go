package main

import (
	"bytes"
	"strings"
	"testing"
)

const eventsJSONL = `{"kind":"event","time":"2024-01-01T00:00:00Z","session":"a","type":"command","fields":{"op":"get_rect","bytes_sent":8,"bytes_recv":400,"pixels":100,"dur":0.002}}
{"kind":"event","time":"2024-01-01T00:00:01Z","session":"a","type":"error","fields":{"op":"print_rect","kind":"precondition"}}
not json
{"kind":"event","time":"2024-01-01T00:00:02Z","session":"b","type":"close"}
`

const activityJSONL = `{"time":"2024-01-01T00:00:00Z","kind":"open","remote":"127.0.0.1:5000"}
{"time":"2024-01-01T00:00:01Z","kind":"command","remote":"127.0.0.1:5000","op":"fill_rect","rect":"10x10+0+0","pixels":100}
{"time":"2024-01-01T00:00:03Z","kind":"close","remote":"127.0.0.1:5000","err":"protoport: unknown opcode: 0x5a"}
`

func TestEventsReport(t *testing.T) {
	events, err := readLines[eventLine](strings.NewReader(eventsJSONL))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("parsed %d lines, want 3", len(events))
	}
	var out bytes.Buffer
	printEvents(&out, events)
	s := out.String()
	for _, want := range []string{"Sessions: 2", "get_rect   n=    1", "print_rect n=    0 fail=  1", "precondition"} {
		if !strings.Contains(s, want) {
			t.Fatalf("report lacks %q:\n%s", want, s)
		}
	}
}

func TestActivityReport(t *testing.T) {
	acts, err := readLines[activityLine](strings.NewReader(activityJSONL))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var out bytes.Buffer
	printActivity(&out, acts)
	s := out.String()
	for _, want := range []string{"fill_rect", "px=100", "Connections: 1 closed  avg=3s", "unknown opcode"} {
		if !strings.Contains(s, want) {
			t.Fatalf("report lacks %q:\n%s", want, s)
		}
	}
}
