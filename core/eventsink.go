package core

import "pkt.systems/htx/schema"

// EventSink receives asynchronous session events: output captured from
// the target, terminal resizes, and the target's exit. Methods are
// called from the session's reader loop and must not block.
type EventSink interface {
	OnOutput(event schema.OutputEvent)
	OnResize(event schema.ResizeEvent)
	OnTargetExit(event schema.TargetExitEvent)
}
