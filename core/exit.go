package core

import (
	"context"
	"errors"
	"time"

	"pkt.systems/pslog"

	"pkt.systems/htx/schema"
)

// ExitResult reports the outcome of a coordinated shutdown.
type ExitResult struct {
	// EngineExitCode is the engine process exit code, when observed.
	EngineExitCode int
	// Forced is true when either process needed a force-kill.
	Forced bool
}

// exitCoordinator tears a session down in order: target first, then
// the engine, escalating from graceful signal to force-kill at each
// step so shutdown always finishes in bounded time.
type exitCoordinator struct {
	handle       Handle
	target       *target
	targetExited bool
	grace        time.Duration
	exitWait     time.Duration
}

// run walks the shutdown sequence. It returns an error wrapping
// ErrExitFatal only when the OS refuses to terminate a process even
// after force-kill; every other failure along the way is tolerated
// and escalates to the next step.
func (c *exitCoordinator) run(ctx context.Context) (ExitResult, error) {
	log := pslog.Ctx(ctx)
	var res ExitResult

	if !c.targetExited && c.target.Alive() {
		if err := c.target.Terminate(ctx, c.grace); err != nil {
			log.Debug("target did not stop gracefully, force-killing", "error", err)
			res.Forced = true
			if err := c.target.Kill(ctx, c.grace); err != nil {
				return res, err
			}
		}
	}

	// Ask the engine to shut itself down. The write can fail when the
	// engine already followed its target out; that is fine, the wait
	// below settles it either way.
	if err := c.handle.Send(ctx, schema.ExitCommand()); err != nil {
		log.Debug("exit command not delivered", "error", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.exitWait)
	status, err := c.handle.Wait(waitCtx)
	cancel()
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			log.Debug("engine wait failed, escalating", "error", err)
		}
		res.Forced = true
		if status, err = c.forceEngine(ctx); err != nil {
			return res, err
		}
	}
	res.EngineExitCode = status.Code

	if err := c.handle.Close(); err != nil {
		log.Debug("handle close", "error", err)
	}
	return res, nil
}

func (c *exitCoordinator) forceEngine(ctx context.Context) (ExitStatus, error) {
	log := pslog.Ctx(ctx)
	if err := c.handle.Signal(ctx, ProcessSignalTERM); err != nil {
		log.Debug("engine TERM failed", "error", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, c.grace)
	status, err := c.handle.Wait(waitCtx)
	cancel()
	if err == nil {
		return status, nil
	}
	if err := c.handle.Signal(ctx, ProcessSignalKILL); err != nil {
		log.Debug("engine KILL failed", "error", err)
	}
	waitCtx, cancel = context.WithTimeout(ctx, c.grace)
	status, err = c.handle.Wait(waitCtx)
	cancel()
	if err != nil && c.handle.Alive() {
		return status, schema.ErrExitFatal
	}
	return status, nil
}
