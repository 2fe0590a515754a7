package domain

import "time"

// EventType distinguishes the kinds of progress events
type EventType string

const (
	EventLog      EventType = "log"
	EventProgress EventType = "progress"
	EventResult   EventType = "result"
	EventError    EventType = "error"
)

// ProgressEvent is one entry in the ordered stream emitted during verification.
// Exactly one terminal event (result or error) ends the stream.
type ProgressEvent struct {
	Type     EventType           `json:"type"`
	Time     time.Time           `json:"time"`
	Message  string              `json:"message,omitempty"`
	Found    int                 `json:"found,omitempty"`
	Required int                 `json:"required,omitempty"`
	Result   *VerificationResult `json:"result,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// EventSinkFunc adapts a plain function to the EventSink interface
type EventSinkFunc func(ProgressEvent)

// Emit calls f(event)
func (f EventSinkFunc) Emit(event ProgressEvent) {
	f(event)
}

// DiscardEvents is an EventSink that drops everything
var DiscardEvents EventSink = EventSinkFunc(func(ProgressEvent) {})
