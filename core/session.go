package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pkt.systems/pslog"

	"pkt.systems/htx/internal/keys"
	"pkt.systems/htx/schema"
)

// Timeouts bounds the waits a session performs. Zero fields fall back
// to the package defaults.
type Timeouts struct {
	Snapshot       time.Duration
	Handshake      time.Duration
	TerminateGrace time.Duration
	ExitWait       time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Snapshot <= 0 {
		t.Snapshot = schema.DefaultSnapshotTimeout
	}
	if t.Handshake <= 0 {
		t.Handshake = schema.DefaultHandshakeTimeout
	}
	if t.TerminateGrace <= 0 {
		t.TerminateGrace = schema.DefaultTerminateGrace
	}
	if t.ExitWait <= 0 {
		t.ExitWait = schema.DefaultExitWait
	}
	return t
}

// Options configures a session start.
type Options struct {
	// Command is the target program and its arguments. Required.
	Command []string
	Rows    int
	Cols    int
	// NoExit keeps the engine alive after the target finishes.
	NoExit     bool
	WorkingDir string
	// KeyDelimiter separates segments in SendKeys input. Empty means
	// the default comma.
	KeyDelimiter       string
	ScrollbackMaxLines int
	// Sink, when set, receives asynchronous session events.
	Sink     EventSink
	Timeouts Timeouts
}

// Session drives one target command inside one engine process. All
// command issuance is synchronous from the caller's side; a dedicated
// reader goroutine consumes the engine's event stream for the
// session's whole lifetime.
type Session struct {
	id     schema.SessionID
	handle Handle
	router *router
	scroll *scrollback
	sink   EventSink
	delim  string
	tmo    Timeouts

	mu         sync.Mutex
	state      schema.SessionState
	rows       int
	cols       int
	target     *target
	targetCode int

	handshake  chan struct{}
	hsOnce     sync.Once
	targetDone chan struct{}
	tdOnce     sync.Once
	readerDone chan struct{}

	exitOnce sync.Once
	exitRes  ExitResult
	exitErr  error
}

// Start spawns the engine around the target command and waits for the
// startup handshake. On spawn failure no process is left running.
func Start(ctx context.Context, engine Engine, opts Options) (*Session, error) {
	if len(opts.Command) == 0 {
		return nil, schema.ErrEmptyCommand
	}
	if opts.Rows <= 0 {
		opts.Rows = schema.DefaultRows
	}
	if opts.Cols <= 0 {
		opts.Cols = schema.DefaultCols
	}
	tmo := opts.Timeouts.withDefaults()

	id := newSessionID()
	log := pslog.Ctx(ctx).With("session", id)
	log.Debug("spawning engine",
		"command", opts.Command, "rows", opts.Rows, "cols", opts.Cols)

	handle, err := engine.Spawn(ctx, SpawnRequest{
		Command:    opts.Command,
		Rows:       opts.Rows,
		Cols:       opts.Cols,
		NoExit:     opts.NoExit,
		WorkingDir: opts.WorkingDir,
	})
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:         id,
		handle:     handle,
		router:     newRouter(),
		scroll:     newScrollback(opts.ScrollbackMaxLines),
		sink:       opts.Sink,
		delim:      opts.KeyDelimiter,
		tmo:        tmo,
		state:      schema.StateStarting,
		rows:       opts.Rows,
		cols:       opts.Cols,
		handshake:  make(chan struct{}),
		targetDone: make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	go s.readLoop(pslog.ContextWithLogger(context.Background(), log))

	select {
	case <-s.handshake:
	case <-time.After(tmo.Handshake):
		// Engines built without pid reporting never complete the
		// handshake. The session still works; target control is
		// limited to what the engine itself provides.
		log.Warn("no pid event within handshake window, continuing")
	case <-ctx.Done():
		_, _ = s.Exit(context.WithoutCancel(ctx))
		return nil, ctx.Err()
	}

	s.mu.Lock()
	if s.state == schema.StateStarting {
		s.state = schema.StateRunning
	}
	s.mu.Unlock()
	log.Info("session running", "pid", s.TargetPid())
	return s, nil
}

// ID returns the session identifier used in logs and fanned-out events.
func (s *Session) ID() schema.SessionID { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() schema.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Size returns the current terminal dimensions.
func (s *Session) Size() (rows, cols int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows, s.cols
}

// TargetPid returns the pid reported by the engine, or 0 when the
// handshake never delivered one.
func (s *Session) TargetPid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target == nil {
		return 0
	}
	return int(s.target.pid)
}

// Scrollback returns the output lines captured so far.
func (s *Session) Scrollback() []string { return s.scroll.Lines() }

// SendKeys encodes input and delivers it to the target. Fire and
// forget: the protocol defines no response for key delivery.
func (s *Session) SendKeys(ctx context.Context, input string) error {
	return s.SendKeyTokens(ctx, keys.Encode(input, s.delim))
}

// SendKeyNames delivers already-resolved named keys.
func (s *Session) SendKeyNames(ctx context.Context, names ...schema.KeyName) error {
	return s.SendKeyTokens(ctx, keys.EncodeNames(names))
}

// SendKeyTokens delivers pre-encoded tokens.
func (s *Session) SendKeyTokens(ctx context.Context, tokens []schema.KeyToken) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}
	if err := s.handle.Send(ctx, schema.SendKeysCommand(tokens)); err != nil {
		return fmt.Errorf("send keys: %w", err)
	}
	return nil
}

// Snapshot captures the current terminal display. It blocks until the
// engine answers or the snapshot timeout elapses; a timeout leaves the
// channel in an unknown state and fails the session.
func (s *Session) Snapshot(ctx context.Context) (schema.Snapshot, error) {
	if err := s.checkOpen(); err != nil {
		return schema.Snapshot{}, err
	}
	ch, err := s.router.arm()
	if err != nil {
		return schema.Snapshot{}, err
	}
	if err := s.handle.Send(ctx, schema.TakeSnapshotCommand()); err != nil {
		s.router.disarm()
		return schema.Snapshot{}, fmt.Errorf("send snapshot request: %w", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, s.tmo.Snapshot)
	defer cancel()
	snap, err := s.router.await(waitCtx, ch)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			// A response may still arrive for this request and be
			// mistaken for the next one; the channel can no longer be
			// trusted.
			s.failSession(schema.ErrSnapshotTimeout)
			return schema.Snapshot{}, schema.ErrSnapshotTimeout
		}
		return schema.Snapshot{}, err
	}
	return snap, nil
}

// Resize asks the engine to change the virtual terminal dimensions.
// The stored size updates when the engine confirms with a resize event.
func (s *Session) Resize(ctx context.Context, rows, cols int) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("resize to %dx%d: dimensions must be positive", cols, rows)
	}
	if err := s.handle.Send(ctx, schema.ResizeCommand(rows, cols)); err != nil {
		return fmt.Errorf("send resize: %w", err)
	}
	return nil
}

// WaitTarget blocks until the target command finishes and returns its
// exit code.
func (s *Session) WaitTarget(ctx context.Context) (int, error) {
	select {
	case <-s.targetDone:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.targetCode, nil
	case <-s.readerDone:
		select {
		case <-s.targetDone:
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.targetCode, nil
		default:
			return 0, schema.ErrSessionClosed
		}
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// TargetExited reports whether the target command has finished.
func (s *Session) TargetExited() bool {
	select {
	case <-s.targetDone:
		return true
	default:
		return false
	}
}

/// Exit shuts the session down: target first, then the engine, with
// bounded waits and force-kill escalation at each step. Idempotent;
// repeated calls return the first result.
func (s *Session) Exit(ctx context.Context) (ExitResult, error) {
	s.exitOnce.Do(func() {
		log := pslog.Ctx(ctx).With("session", s.id)
		s.mu.Lock()
		prior := s.state
		s.state = schema.StateExiting
		tgt := s.target
		s.mu.Unlock()

		coord := &exitCoordinator{
			handle:       s.handle,
			target:       tgt,
			targetExited: s.TargetExited() || prior == schema.StateTargetExited,
			grace:        s.tmo.TerminateGrace,
			exitWait:     s.tmo.ExitWait,
		}
		s.exitRes, s.exitErr = coord.run(pslog.ContextWithLogger(ctx, log))

		s.mu.Lock()
		if s.exitErr != nil {
			s.state = schema.StateFailed
		} else {
			s.state = schema.StateExited
		}
		s.mu.Unlock()
		<-s.readerDone
		if s.exitErr != nil {
			log.Error("session exit failed", "error", s.exitErr)
		} else {
			log.Info("session exited",
				"engine_exit_code", s.exitRes.EngineExitCode, "forced", s.exitRes.Forced)
		}
	})
	return s.exitRes, s.exitErr
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() || s.state == schema.StateExiting {
		return schema.ErrSessionClosed
	}
	return nil
}

// failSession marks the session compromised and fails any pending
// request. Used for protocol errors and snapshot timeouts.
func (s *Session) failSession(err error) {
	s.mu.Lock()
	if !s.state.Terminal() {
		s.state = schema.StateFailed
	}
	s.mu.Unlock()
	s.router.fail(err)
}

func (s *Session) readLoop(ctx context.Context) {
	defer close(s.readerDone)
	log := pslog.Ctx(ctx)
	stream := s.handle.Events()
	for {
		ev, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, schema.ErrProtocol) {
				log.Error("protocol error, halting reader", "error", err)
				s.failSession(err)
				return
			}
			// Stream end: normal when the engine exits.
			s.router.fail(schema.ErrChannelClosed)
			return
		}
		s.dispatch(ctx, ev)
	}
}

func (s *Session) dispatch(ctx context.Context, ev schema.Event) {
	log := pslog.Ctx(ctx)
	switch ev.Type {
	case schema.EventPid:
		if ev.Data != nil && ev.Data.Pid > 0 {
			s.mu.Lock()
			s.target = newTarget(ev.Data.Pid)
			s.mu.Unlock()
		}
		s.hsOnce.Do(func() { close(s.handshake) })
	case schema.EventInit:
		s.hsOnce.Do(func() { close(s.handshake) })
	case schema.EventSnapshot:
		snap := schema.Snapshot{}
		if ev.Data != nil {
			snap.Text = ev.Data.Text
			snap.Seq = ev.Data.Seq
		}
		snap.Rows, snap.Cols = s.Size()
		if !s.router.fulfill(snap) {
			log.Warn("snapshot event with no pending request")
		}
	case schema.EventOutput:
		if ev.Data == nil {
			return
		}
		s.scroll.Write(ev.Data.Seq)
		if s.sink != nil {
			s.sink.OnOutput(schema.OutputEvent{SessionID: s.id, Seq: ev.Data.Seq})
		}
	case schema.EventResize:
		if ev.Data == nil {
			return
		}
		s.mu.Lock()
		s.rows, s.cols = ev.Data.Rows, ev.Data.Cols
		s.mu.Unlock()
		if s.sink != nil {
			s.sink.OnResize(schema.ResizeEvent{
				SessionID: s.id, Rows: ev.Data.Rows, Cols: ev.Data.Cols,
			})
		}
	case schema.EventExited:
		code := ev.ExitCode()
		s.mu.Lock()
		s.targetCode = code
		if s.state == schema.StateRunning || s.state == schema.StateStarting {
			s.state = schema.StateTargetExited
		}
		s.mu.Unlock()
		s.tdOnce.Do(func() { close(s.targetDone) })
		if s.sink != nil {
			s.sink.OnTargetExit(schema.TargetExitEvent{SessionID: s.id, Code: code})
		}
		log.Debug("target exited", "code", code)
	case schema.EventError:
		err := fmt.Errorf("%w: %s", schema.ErrEngine, ev.Message)
		if !s.router.fail(err) {
			log.Warn("engine error", "message", ev.Message)
		}
	default:
		log.Debug("unhandled event", "type", ev.Type)
	}
}
