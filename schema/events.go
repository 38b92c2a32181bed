package schema

import "encoding/json"

// EventType is the top-level type emitted by the engine on stdout.
type EventType string

const (
	// EventInit carries the initial display contents after startup.
	EventInit EventType = "init"
	// EventSnapshot answers a takeSnapshot command.
	EventSnapshot EventType = "snapshot"
	// EventOutput carries raw output captured from the target command.
	EventOutput EventType = "output"
	// EventResize confirms a terminal resize.
	EventResize EventType = "resize"
	// EventPid reports the pid of the target command.
	EventPid EventType = "pid"
	// EventExited reports that the target command finished.
	EventExited EventType = "exited"
	// EventError is a stream-level error from the engine.
	EventError EventType = "error"
)

// Event is the normalized shape of one incoming protocol line.
// Snapshot, output, resize, pid and init payloads arrive nested under
// "data"; exited carries its code at the top level.
type Event struct {
	Type    EventType       `json:"type"`
	Data    *EventData      `json:"data,omitempty"`
	Code    *int            `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// EventData is the nested payload of data-bearing events.
type EventData struct {
	Text string `json:"text,omitempty"`
	Seq  string `json:"seq,omitempty"`
	Pid  int    `json:"pid,omitempty"`
	Rows int    `json:"rows,omitempty"`
	Cols int    `json:"cols,omitempty"`
}

// ExitCode returns the reported exit code for exited events.
func (e Event) ExitCode() int {
	if e.Code != nil {
		return *e.Code
	}
	return 0
}

// OutputEvent is fanned out to session subscribers for captured output.
type OutputEvent struct {
	SessionID SessionID
	Seq       string
}

// TargetExitEvent is fanned out when the target command finishes.
type TargetExitEvent struct {
	SessionID SessionID
	Code      int
}

// ResizeEvent is fanned out when the terminal dimensions change.
type ResizeEvent struct {
	SessionID SessionID
	Rows      int
	Cols      int
}
