package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Event is the canonical audit record for session lifecycle transitions.
//
// Sequence is assigned by the Dispatcher and increases per instance; a gap
// means events were dropped. Generation identifies the session the event
// belongs to: it changes on every login and every logout, so events of one
// sign-in share a Generation and a late result from an old session is
// recognisable in the trail.
type Event struct {
	ID          string            `json:"id"`
	Sequence    uint64            `json:"seq"`
	Timestamp   time.Time         `json:"timestamp"`
	EventType   string            `json:"event_type"`
	InstanceID  string            `json:"instance_id,omitempty"`
	Generation  uint64            `json:"generation"`
	UserID      string            `json:"user_id,omitempty"`
	AccessLevel string            `json:"access_level,omitempty"`
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// SameSession reports whether e and other were recorded on the same
// instance during the same session.
func (e Event) SameSession(other Event) bool {
	return e.InstanceID == other.InstanceID && e.Generation == other.Generation
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
}
