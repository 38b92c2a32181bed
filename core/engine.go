package core

import (
	"context"

	"pkt.systems/htx/schema"
)

// Engine spawns headless-terminal processes and exposes their protocol.
type Engine interface {
	Spawn(ctx context.Context, req SpawnRequest) (Handle, error)
}

// SpawnRequest describes one engine invocation.
type SpawnRequest struct {
	// Command is the target program and its arguments, run inside the
	// virtual terminal.
	Command []string
	Rows    int
	Cols    int
	// NoExit keeps the engine alive after the target command finishes,
	// so late snapshots remain possible.
	NoExit     bool
	WorkingDir string
	// Subscribe lists the event types the engine should emit. Empty
	// means the default set.
	Subscribe []string
}

// Handle exposes the protocol channel and process lifecycle controls
// for one spawned engine.
type Handle interface {
	// Send serializes one command as a single line on the engine's
	// stdin. Writes from concurrent callers never interleave.
	Send(ctx context.Context, cmd schema.Command) error
	Events() EventStream
	Alive() bool
	Signal(ctx context.Context, sig ProcessSignal) error
	Wait(ctx context.Context) (ExitStatus, error)
	Close() error
}

// EventStream yields normalized events from the engine's stdout.
type EventStream interface {
	Next(ctx context.Context) (schema.Event, error)
	Close() error
}

// ExitStatus describes the engine process outcome.
type ExitStatus struct {
	Code int
}

// ProcessSignal indicates which signal to send to a process.
type ProcessSignal string

const (
	// ProcessSignalTERM requests a graceful termination signal.
	ProcessSignalTERM ProcessSignal = "TERM"
	// ProcessSignalKILL requests an immediate kill signal.
	ProcessSignalKILL ProcessSignal = "KILL"
)
