package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"pkt.systems/htx/schema"
)

// target controls the command running inside the virtual terminal. The
// engine owns the process; we only know its pid from the handshake, so
// liveness checks and signals go straight to the OS.
type target struct {
	pid int32
}

func newTarget(pid int) *target {
	if pid <= 0 {
		return nil
	}
	return &target{pid: int32(pid)}
}

// Alive reports whether the target process still exists.
func (t *target) Alive() bool {
	if t == nil {
		return false
	}
	ok, err := process.PidExists(t.pid)
	return err == nil && ok
}

// Terminate sends a graceful termination signal and waits up to grace
// for the process to disappear, polling at a short interval.
func (t *target) Terminate(ctx context.Context, grace time.Duration) error {
	if t == nil {
		return schema.ErrNoTargetPid
	}
	proc, err := process.NewProcess(t.pid)
	if err != nil {
		// Already gone.
		return nil
	}
	if err := proc.TerminateWithContext(ctx); err != nil {
		if !t.Alive() {
			return nil
		}
		return fmt.Errorf("terminate pid %d: %w", t.pid, err)
	}
	return t.waitGone(ctx, grace)
}

// Kill force-kills the target and confirms it is gone.
func (t *target) Kill(ctx context.Context, grace time.Duration) error {
	if t == nil {
		return schema.ErrNoTargetPid
	}
	proc, err := process.NewProcess(t.pid)
	if err != nil {
		return nil
	}
	if err := proc.KillWithContext(ctx); err != nil && t.Alive() {
		return fmt.Errorf("kill pid %d: %w", t.pid, err)
	}
	if err := t.waitGone(ctx, grace); err != nil {
		return fmt.Errorf("%w: pid %d", schema.ErrExitFatal, t.pid)
	}
	return nil
}

func (t *target) waitGone(ctx context.Context, grace time.Duration) error {
	deadline := time.Now().Add(grace)
	for {
		if !t.Alive() {
			return nil
		}
		if time.Now().After(deadline) {
			return context.DeadlineExceeded
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
