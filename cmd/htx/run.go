package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"

	"pkt.systems/htx/core"
	"pkt.systems/htx/internal/appconfig"
	"pkt.systems/htx/internal/engine"
	"pkt.systems/htx/internal/eventbus"
	"pkt.systems/htx/internal/format"
	"pkt.systems/htx/internal/logx"
	"pkt.systems/htx/schema"
)

const snapshotSeparator = "----"

// exitCodeError carries a process exit code through cobra's error path.
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

func exitCodeFromErr(err error) (int, bool) {
	var ec exitCodeError
	if errors.As(err, &ec) {
		return ec.code, true
	}
	return 0, false
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [-r rows] [-c cols] [-d delimiter] [--no-exit] [-k KEYS]... [--snapshot]... -- command [args...]",
		Short: "Run a command in a virtual terminal and script its input",
		Long: `Run a command inside the headless terminal engine. The -k and
--snapshot options may repeat and are performed in order: -k sends a
comma-delimited key sequence, --snapshot prints the current display
followed by a "----" separator. When no --snapshot is given the command
runs to completion and its final display is printed.`,
		Example: `  htx run -- echo hello
  htx run -k "hello,Enter" --snapshot -- cat
  htx run -r 30 -c 80 --snapshot -k "ihello,Escape" --snapshot -- vim`,
		SilenceErrors:      true,
		SilenceUsage:       true,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := parseRunArgs(args)
			if err != nil {
				return err
			}
			return runSession(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

type runAction struct {
	kind string // "keys" or "snapshot"
	keys string
}

type runOptions struct {
	configPath string
	rows       int
	cols       int
	delimiter  string
	noExit     bool
	follow     bool
	settle     time.Duration
	actions    []runAction
	command    []string
}

// parseRunArgs splits args at "--" and accepts -k/--snapshot
// interleaved with the other flags, preserving their order.
func parseRunArgs(args []string) (runOptions, error) {
	opts := runOptions{
		settle: 250 * time.Millisecond,
	}

	var before []string
	for i, arg := range args {
		if arg == "--" {
			before = args[:i]
			opts.command = args[i+1:]
			break
		}
	}
	if opts.command == nil {
		return opts, errors.New("no command specified after --")
	}
	if len(opts.command) == 0 {
		return opts, schema.ErrEmptyCommand
	}

	needValue := func(i int) (string, error) {
		if i+1 >= len(before) {
			return "", fmt.Errorf("%s requires a value", before[i])
		}
		return before[i+1], nil
	}

	for i := 0; i < len(before); {
		switch arg := before[i]; arg {
		case "-r", "--rows":
			val, err := needValue(i)
			if err != nil {
				return opts, err
			}
			rows, err := strconv.Atoi(val)
			if err != nil || rows <= 0 {
				return opts, fmt.Errorf("invalid rows: %q", val)
			}
			opts.rows = rows
			i += 2
		case "-c", "--cols":
			val, err := needValue(i)
			if err != nil {
				return opts, err
			}
			cols, err := strconv.Atoi(val)
			if err != nil || cols <= 0 {
				return opts, fmt.Errorf("invalid cols: %q", val)
			}
			opts.cols = cols
			i += 2
		case "-d", "--delimiter":
			val, err := needValue(i)
			if err != nil {
				return opts, err
			}
			opts.delimiter = val
			i += 2
		case "--config":
			val, err := needValue(i)
			if err != nil {
				return opts, err
			}
			opts.configPath = val
			i += 2
		case "--settle-ms":
			val, err := needValue(i)
			if err != nil {
				return opts, err
			}
			ms, err := strconv.Atoi(val)
			if err != nil || ms < 0 {
				return opts, fmt.Errorf("invalid --settle-ms: %q", val)
			}
			opts.settle = time.Duration(ms) * time.Millisecond
			i += 2
		case "--no-exit":
			opts.noExit = true
			i++
		case "--follow":
			opts.follow = true
			i++
		case "-k", "--keys":
			val, err := needValue(i)
			if err != nil {
				return opts, err
			}
			opts.actions = append(opts.actions, runAction{kind: "keys", keys: val})
			i += 2
		case "--snapshot":
			opts.actions = append(opts.actions, runAction{kind: "snapshot"})
			i++
		default:
			return opts, fmt.Errorf("unknown argument: %s", arg)
		}
	}
	return opts, nil
}

func runSession(ctx context.Context, opts runOptions, stdout, stderr io.Writer) error {
	cfg, err := appconfig.Load(opts.configPath)
	if err != nil {
		return err
	}
	sup, err := engine.NewSupervisor(engine.Config{
		BinaryPath: cfg.Engine.Binary,
		ExtraArgs:  cfg.Engine.Args,
		Env:        cfg.Engine.Env,
		Subscribe:  cfg.Engine.Subscribe,
	})
	if err != nil {
		return err
	}
	return driveSession(ctx, sup, cfg, opts, stdout, stderr)
}

func driveSession(ctx context.Context, eng core.Engine, cfg appconfig.Config, opts runOptions, stdout, stderr io.Writer) error {
	log := pslog.Ctx(ctx)

	if opts.rows <= 0 {
		opts.rows = cfg.Terminal.Rows
	}
	if opts.cols <= 0 {
		opts.cols = cfg.Terminal.Cols
	}
	if opts.delimiter == "" {
		opts.delimiter = cfg.Session.KeyDelimiter
	}

	implicitSnapshot := true
	for _, action := range opts.actions {
		if action.kind == "snapshot" {
			implicitSnapshot = false
		}
	}

	startOpts := core.Options{
		Command: opts.command,
		Rows:    opts.rows,
		Cols:    opts.cols,
		// The implicit final snapshot is taken after the target finishes,
		// so the engine has to outlive its target.
		NoExit:             opts.noExit || implicitSnapshot,
		KeyDelimiter:       opts.delimiter,
		ScrollbackMaxLines: cfg.Session.ScrollbackMaxLines,
		Timeouts: core.Timeouts{
			Snapshot:       cfg.Timeouts.Snapshot(),
			Handshake:      cfg.Timeouts.Handshake(),
			TerminateGrace: cfg.Timeouts.TerminateGrace(),
			ExitWait:       cfg.Timeouts.ExitWait(),
		},
	}
	var events <-chan eventbus.Event
	if opts.follow {
		bus := eventbus.New(log)
		startOpts.Sink = bus
		// Listening starts before the spawn so no early output is lost.
		ch, cancel := bus.SubscribeAll()
		defer cancel()
		events = ch
	}
	sess, err := core.Start(ctx, eng, startOpts)
	if err != nil {
		return err
	}
	ctx = logx.ContextWithSessionLogger(ctx, logx.WithSession(ctx, sess.ID()), sess.ID())
	log = pslog.Ctx(ctx)

	renderer := format.NewPlainRenderer()
	if opts.follow {
		return followSession(ctx, sess, events, renderer, stdout, stderr)
	}
	settle(ctx, opts.settle)

	for _, action := range opts.actions {
		switch action.kind {
		case "keys":
			if err := sess.SendKeys(ctx, action.keys); err != nil {
				log.Warn("failed to send keys", "keys", action.keys, "err", err)
			} else {
				settle(ctx, opts.settle)
			}
		case "snapshot":
			printSnapshot(ctx, sess, renderer, stdout)
		}
	}

	// No explicit snapshot means run to completion: wait for the target
	// to finish, then print its final display.
	if implicitSnapshot {
		if _, err := sess.WaitTarget(ctx); err != nil {
			log.Warn("waiting for target", "err", err)
		}
		printSnapshot(ctx, sess, renderer, stdout)
	}

	if _, err := sess.Exit(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	if sess.TargetExited() {
		code, err := sess.WaitTarget(ctx)
		// Negative codes mean signal death, usually our own teardown
		// terminating a still-running target; those are not the target's
		// exit status.
		if err == nil && code > 0 {
			return exitCodeError{code: code}
		}
	}
	return nil
}

// followSession streams raw target output to stdout as it arrives and
// returns once the target finishes, propagating its exit code. Resize
// and exit notices render to stderr so stdout stays pure output.
func followSession(ctx context.Context, sess *core.Session, events <-chan eventbus.Event, renderer *format.PlainRenderer, stdout, stderr io.Writer) error {
	notice := func(event schema.Event) {
		for _, line := range renderer.FormatEvent(event) {
			fmt.Fprintln(stderr, line)
		}
	}

	code := 0
loop:
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				break loop
			}
			switch ev.Type {
			case eventbus.EventOutput:
				_, _ = io.WriteString(stdout, ev.Output.Seq)
			case eventbus.EventResize:
				notice(schema.Event{Type: schema.EventResize, Data: &schema.EventData{
					Rows: ev.Resize.Rows,
					Cols: ev.Resize.Cols,
				}})
			case eventbus.EventTargetExit:
				code = ev.TargetExit.Code
				notice(schema.Event{Type: schema.EventExited, Code: &ev.TargetExit.Code})
				break loop
			}
		case <-ctx.Done():
			_, _ = sess.Exit(context.WithoutCancel(ctx))
			return ctx.Err()
		}
	}

	if _, err := sess.Exit(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	if code != 0 {
		return exitCodeError{code: code}
	}
	return nil
}

// printSnapshot writes the display plus the separator. Failure to
// capture still emits the separator so output stays parseable.
func printSnapshot(ctx context.Context, sess *core.Session, renderer *format.PlainRenderer, stdout io.Writer) {
	snap, err := sess.Snapshot(ctx)
	if err != nil {
		pslog.Ctx(ctx).Warn("failed to take snapshot", "err", err)
		fmt.Fprintln(stdout, snapshotSeparator)
		return
	}
	for _, line := range renderer.FormatSnapshot(snap) {
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintln(stdout, snapshotSeparator)
}

func settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
