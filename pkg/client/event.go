package client

import "time"

type EventType string

const (
	EventInfo    EventType = "info"
	EventCommand EventType = "command"
	EventError   EventType = "error"
	EventClose   EventType = "close"
)

type Event struct {
	Time    time.Time
	Session string
	Type    EventType
	Fields  map[string]any
}
