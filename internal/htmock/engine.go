// Package htmock is an in-process stand-in for the external
// headless-terminal engine. It speaks the same command/event contract
// over a core.Engine implementation, backed by a real child process
// for the target command and a simplified screen model. Tests use it
// directly; the ht-mock CLI subcommand bridges it onto real stdio.
package htmock

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"

	"pkt.systems/htx/core"
	"pkt.systems/htx/schema"
)

// Engine implements core.Engine without spawning an engine binary.
type Engine struct{}

// NewEngine returns a mock engine.
func NewEngine() *Engine { return &Engine{} }

// Spawn starts the target command and wires it to a mock terminal.
func (e *Engine) Spawn(ctx context.Context, req core.SpawnRequest) (core.Handle, error) {
	if len(req.Command) == 0 {
		return nil, schema.ErrEmptyCommand
	}
	rows, cols := req.Rows, req.Cols
	if rows <= 0 {
		rows = schema.DefaultRows
	}
	if cols <= 0 {
		cols = schema.DefaultCols
	}

	cmd := exec.Command(req.Command[0], req.Command[1:]...)
	if req.WorkingDir != "" {
		cmd.Dir = req.WorkingDir
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdin pipe: %v", schema.ErrSpawn, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", schema.ErrSpawn, err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", schema.ErrSpawn, req.Command[0], err)
	}

	h := &mockHandle{
		screen:      newScreen(rows, cols),
		cmd:         cmd,
		targetStdin: stdin,
		noExit:      req.NoExit,
		events:      make(chan schema.Event, 256),
		done:        make(chan struct{}),
		pumpDone:    make(chan struct{}),
		targetDone:  make(chan struct{}),
	}
	h.emit(schema.Event{Type: schema.EventPid, Data: &schema.EventData{Pid: cmd.Process.Pid}})
	text, seq := h.screen.Render()
	h.emit(schema.Event{Type: schema.EventInit, Data: &schema.EventData{Text: text, Seq: seq}})

	go h.pumpOutput(stdout)
	go h.reapTarget()
	_ = ctx
	return h, nil
}

type mockHandle struct {
	screen      *screen
	cmd         *exec.Cmd
	targetStdin io.WriteCloser
	noExit      bool

	mu         sync.Mutex
	closed     bool
	targetCode int

	events     chan schema.Event
	closeOnce  sync.Once
	done       chan struct{}
	pumpDone   chan struct{}
	targetDone chan struct{}
}

func (h *mockHandle) emit(ev schema.Event) {
	select {
	case h.events <- ev:
	case <-h.done:
	}
}

func (h *mockHandle) pumpOutput(r io.Reader) {
	defer close(h.pumpDone)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			h.screen.Feed(chunk)
			h.emit(schema.Event{Type: schema.EventOutput, Data: &schema.EventData{Seq: chunk}})
		}
		if err != nil {
			return
		}
	}
}

func (h *mockHandle) reapTarget() {
	// Drain stdout fully before reaping; Wait closes the read side of
	// the pipe and would race the pump otherwise.
	<-h.pumpDone
	err := h.cmd.Wait()
	code := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	}
	h.mu.Lock()
	h.targetCode = code
	h.mu.Unlock()
	close(h.targetDone)
	h.emit(schema.Event{Type: schema.EventExited, Code: &code})
	if !h.noExit {
		h.shutdown()
	}
}

// shutdown ends the mock engine itself. The events channel is never
// closed; the stream drains it and then reports EOF once done closes.
func (h *mockHandle) shutdown() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.mu.Unlock()
		close(h.done)
	})
}

// Send handles one command synchronously, emitting response events in
// order, which preserves the request/response ordering guarantee.
func (h *mockHandle) Send(ctx context.Context, cmd schema.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return schema.ErrChannelClosed
	}
	switch cmd.Type {
	case schema.CommandSendKeys:
		h.sendKeys(cmd.Keys)
	case schema.CommandTakeSnapshot:
		text, seq := h.screen.Render()
		h.emit(schema.Event{Type: schema.EventSnapshot, Data: &schema.EventData{Text: text, Seq: seq}})
	case schema.CommandResize:
		h.screen.Resize(cmd.Rows, cmd.Cols)
		h.emit(schema.Event{Type: schema.EventResize, Data: &schema.EventData{Rows: cmd.Rows, Cols: cmd.Cols}})
	case schema.CommandExit:
		h.shutdown()
	default:
		return fmt.Errorf("%w: unknown command %q", schema.ErrProtocol, cmd.Type)
	}
	return nil
}

// sendKeys echoes printable keys onto the screen and forwards input to
// the target's stdin. Control keys map to signals or control bytes.
func (h *mockHandle) sendKeys(keys []string) {
	for _, key := range keys {
		switch key {
		case "Enter":
			h.screen.Echo("\n")
			_, _ = io.WriteString(h.targetStdin, "\n")
		case "C-c":
			if h.cmd.Process != nil {
				_ = h.cmd.Process.Signal(syscall.SIGINT)
			}
		case "C-d":
			_ = h.targetStdin.Close()
		case "Space":
			h.screen.Echo(" ")
			_, _ = io.WriteString(h.targetStdin, " ")
		default:
			if len([]rune(key)) == 1 {
				h.screen.Echo(key)
				_, _ = io.WriteString(h.targetStdin, key)
			}
		}
	}
}

func (h *mockHandle) Events() core.EventStream {
	return &mockStream{h: h}
}

func (h *mockHandle) Alive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.closed
}

func (h *mockHandle) Signal(ctx context.Context, sig core.ProcessSignal) error {
	_ = ctx
	// Signals aimed at the engine end the mock outright.
	if sig == core.ProcessSignalTERM || sig == core.ProcessSignalKILL {
		h.shutdown()
		return nil
	}
	return fmt.Errorf("unsupported signal: %s", sig)
}

func (h *mockHandle) Wait(ctx context.Context) (core.ExitStatus, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return core.ExitStatus{Code: 0}, nil
	case <-ctx.Done():
		return core.ExitStatus{}, ctx.Err()
	}
}

func (h *mockHandle) Close() error {
	h.shutdown()
	_ = h.targetStdin.Close()
	if h.cmd.Process != nil {
		select {
		case <-h.targetDone:
		default:
			_ = h.cmd.Process.Kill()
		}
	}
	return nil
}

type mockStream struct {
	h *mockHandle
}

func (s *mockStream) Next(ctx context.Context) (schema.Event, error) {
	select {
	case <-ctx.Done():
		return schema.Event{}, ctx.Err()
	case ev := <-s.h.events:
		return ev, nil
	case <-s.h.done:
		// Drain events emitted before shutdown.
		select {
		case ev := <-s.h.events:
			return ev, nil
		default:
			return schema.Event{}, io.EOF
		}
	}
}

func (s *mockStream) Close() error { return nil }
