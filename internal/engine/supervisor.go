// Package engine runs the external headless-terminal binary and
// implements core.Engine over its stdio protocol.
package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"pkt.systems/pslog"

	"pkt.systems/htx/core"
	"pkt.systems/htx/schema"
)

// Config controls how the engine binary is invoked.
type Config struct {
	BinaryPath string
	ExtraArgs  []string
	Env        []string
	// Subscribe overrides the default event subscription set.
	Subscribe []string
}

// Supervisor implements core.Engine by spawning the engine binary.
type Supervisor struct {
	cfg Config
}

// NewSupervisor constructs an engine supervisor.
func NewSupervisor(cfg Config) (*Supervisor, error) {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = schema.DefaultEngineBinary
	}
	return &Supervisor{cfg: cfg}, nil
}

// Spawn starts one engine process around the target command. The
// returned handle owns the process and its protocol channel.
func (s *Supervisor) Spawn(ctx context.Context, req core.SpawnRequest) (core.Handle, error) {
	if len(req.Command) == 0 {
		return nil, schema.ErrEmptyCommand
	}
	args := buildArgs(s.cfg, req)
	log := pslog.Ctx(ctx)
	log.Debug("engine spawn",
		"binary", s.cfg.BinaryPath,
		"args", args,
		"workdir", req.WorkingDir,
	)

	cmd := exec.CommandContext(ctx, s.cfg.BinaryPath, args...)
	if req.WorkingDir != "" {
		cmd.Dir = req.WorkingDir
	}
	cmd.Env = append(os.Environ(), s.cfg.Env...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdin pipe: %v", schema.ErrSpawn, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", schema.ErrSpawn, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stderr pipe: %v", schema.ErrSpawn, err)
	}

	if err := cmd.Start(); err != nil {
		log.Error("engine spawn failed", "binary", s.cfg.BinaryPath, "err", err)
		return nil, fmt.Errorf("%w: %s: %v", schema.ErrSpawn, s.cfg.BinaryPath, err)
	}
	log.Info("engine started", "pid", cmd.Process.Pid)

	return &handle{
		cmd:     cmd,
		channel: newChannel(ctx, stdin, stdout, stderr),
		log:     log,
		started: time.Now(),
	}, nil
}

func buildArgs(cfg Config, req core.SpawnRequest) []string {
	subscribe := req.Subscribe
	if len(subscribe) == 0 {
		subscribe = cfg.Subscribe
	}
	if len(subscribe) == 0 {
		subscribe = schema.DefaultSubscribe()
	}
	args := []string{"--subscribe", strings.Join(subscribe, ",")}
	if req.Rows > 0 && req.Cols > 0 {
		args = append(args, "--size", fmt.Sprintf("%dx%d", req.Cols, req.Rows))
	}
	if req.NoExit {
		args = append(args, "--no-exit")
	}
	args = append(args, cfg.ExtraArgs...)
	args = append(args, req.Command...)
	return args
}

type handle struct {
	cmd     *exec.Cmd
	channel *channel
	log     pslog.Logger
	started time.Time

	waitOnce sync.Once
	waitDone chan struct{}
	status   core.ExitStatus
	waitErr  error
}

func (h *handle) Send(ctx context.Context, cmd schema.Command) error {
	return h.channel.Send(ctx, cmd)
}

func (h *handle) Events() core.EventStream {
	return h.channel
}

func (h *handle) Alive() bool {
	if h.cmd == nil || h.cmd.Process == nil {
		return false
	}
	select {
	case <-h.waitChan():
		return false
	default:
	}
	// Signal 0 probes existence without delivering anything.
	return h.cmd.Process.Signal(syscall.Signal(0)) == nil
}

func (h *handle) Signal(ctx context.Context, sig core.ProcessSignal) error {
	_ = ctx
	if h.cmd == nil || h.cmd.Process == nil {
		return fmt.Errorf("process not started")
	}
	switch sig {
	case core.ProcessSignalTERM:
		return h.cmd.Process.Signal(syscall.SIGTERM)
	case core.ProcessSignalKILL:
		return h.cmd.Process.Signal(syscall.SIGKILL)
	default:
		return fmt.Errorf("unsupported signal: %s", sig)
	}
}

// waitChan runs cmd.Wait exactly once in the background so Wait can be
// called repeatedly and honor its context.
func (h *handle) waitChan() chan struct{} {
	h.waitOnce.Do(func() {
		h.waitDone = make(chan struct{})
		go func() {
			defer close(h.waitDone)
			err := h.cmd.Wait()
			exitCode := 0
			if err != nil {
				if exitErr, ok := err.(*exec.ExitError); ok {
					exitCode = exitErr.ExitCode()
				} else {
					h.waitErr = err
				}
			}
			h.status = core.ExitStatus{Code: exitCode}
			h.log.Debug("engine finished",
				"exit_code", exitCode,
				"duration_ms", time.Since(h.started).Milliseconds(),
			)
		}()
	})
	return h.waitDone
}

func (h *handle) Wait(ctx context.Context) (core.ExitStatus, error) {
	select {
	case <-h.waitChan():
		return h.status, h.waitErr
	case <-ctx.Done():
		return core.ExitStatus{}, ctx.Err()
	}
}

func (h *handle) Close() error {
	return h.channel.Close()
}
