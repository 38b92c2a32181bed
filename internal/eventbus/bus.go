// Package eventbus fans session events out to subscribers. It
// implements core.EventSink so a session's reader loop can publish
// without blocking.
package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"

	"pkt.systems/htx/schema"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventOutput carries captured target output.
	EventOutput EventType = "output"
	// EventResize carries terminal dimension changes.
	EventResize EventType = "resize"
	// EventTargetExit carries the target's exit notification.
	EventTargetExit EventType = "target_exit"
)

// Event represents one fanned-out session event.
type Event struct {
	Type       EventType
	Output     schema.OutputEvent
	Resize     schema.ResizeEvent
	TargetExit schema.TargetExitEvent
}

// Bus fans events out to per-session subscribers.
type Bus struct {
	mu    sync.Mutex
	subs  map[schema.SessionID]map[chan Event]struct{}
	all   map[chan Event]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[schema.SessionID]map[chan Event]struct{}),
		all:   make(map[chan Event]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for a session and returns a channel
// plus a cancel function.
func (b *Bus) Subscribe(sessionID schema.SessionID) (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	sessionSubs := b.subs[sessionID]
	if sessionSubs == nil {
		sessionSubs = make(map[chan Event]struct{})
		b.subs[sessionID] = sessionSubs
	}
	sessionSubs[ch] = struct{}{}
	count := len(sessionSubs)
	b.mu.Unlock()
	if b.log != nil {
		b.log.With("session", sessionID).Debug("eventbus subscribe", "subs", count)
	}
	return ch, func() {
		b.mu.Lock()
		if subs := b.subs[sessionID]; subs != nil {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(b.subs, sessionID)
			}
		}
		b.mu.Unlock()
		close(ch)
		if b.log != nil {
			b.log.With("session", sessionID).Debug("eventbus unsubscribe")
		}
	}
}

// SubscribeAll registers a subscriber for every session, which lets a
// caller listen before the session id is known.
func (b *Bus) SubscribeAll() (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	b.all[ch] = struct{}{}
	b.mu.Unlock()
	return ch, func() {
		b.mu.Lock()
		delete(b.all, ch)
		b.mu.Unlock()
		close(ch)
	}
}

// OnOutput publishes captured output.
func (b *Bus) OnOutput(event schema.OutputEvent) {
	b.publish(event.SessionID, Event{Type: EventOutput, Output: event})
}

// OnResize publishes a terminal resize.
func (b *Bus) OnResize(event schema.ResizeEvent) {
	b.publish(event.SessionID, Event{Type: EventResize, Resize: event})
}

// OnTargetExit publishes the target's exit.
func (b *Bus) OnTargetExit(event schema.TargetExitEvent) {
	b.publish(event.SessionID, Event{Type: EventTargetExit, TargetExit: event})
}

func (b *Bus) publish(sessionID schema.SessionID, event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	sessionSubs := b.subs[sessionID]
	subs := make([]chan Event, 0, len(sessionSubs)+len(b.all))
	for sub := range sessionSubs {
		subs = append(subs, sub)
	}
	for sub := range b.all {
		subs = append(subs, sub)
	}
	b.mu.Unlock()
	if len(subs) == 0 {
		return
	}
	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 && b.log != nil {
		b.log.With("session", sessionID).Trace("eventbus dropped", "count", dropped)
	}
}
