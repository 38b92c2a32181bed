package schema

import "errors"

var (
	// ErrSpawn indicates the engine binary could not be started.
	ErrSpawn = errors.New("engine spawn failed")
	// ErrProtocol indicates a malformed or unexpected protocol line.
	ErrProtocol = errors.New("protocol error")
	// ErrEngine indicates the engine reported an error.
	ErrEngine = errors.New("engine error")
	// ErrSnapshotTimeout indicates a snapshot wait exceeded its bound.
	ErrSnapshotTimeout = errors.New("snapshot timed out")
	// ErrRequestPending indicates a second request was issued while one
	// was still outstanding. This is a programmer error, not a protocol
	// condition: the wire protocol carries no request identifiers.
	ErrRequestPending = errors.New("request already pending")
	// ErrSessionClosed indicates an operation on an exited session.
	ErrSessionClosed = errors.New("session closed")
	// ErrChannelClosed indicates the protocol channel has shut down.
	ErrChannelClosed = errors.New("protocol channel closed")
	// ErrExitFatal indicates a process survived force-kill.
	ErrExitFatal = errors.New("process did not terminate after force kill")
	// ErrNoTargetPid indicates the target pid was never reported.
	ErrNoTargetPid = errors.New("target pid unknown")
	// ErrEmptyCommand indicates a start request without a target command.
	ErrEmptyCommand = errors.New("empty target command")
)
