package htmock

import (
	"context"
	"errors"
	"io"
	"runtime"
	"strings"
	"testing"
	"time"

	"pkt.systems/htx/core"
	"pkt.systems/htx/schema"
)

func requirePOSIX(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("mock targets require a POSIX shell")
	}
}

func waitFor(t *testing.T, stream core.EventStream, typ schema.EventType) schema.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		ev, err := stream.Next(ctx)
		if err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if ev.Type == typ {
			return ev
		}
	}
}

func TestSpawnEmitsPidAndInit(t *testing.T) {
	requirePOSIX(t)
	handle, err := NewEngine().Spawn(context.Background(), core.SpawnRequest{
		Command: []string{"sh", "-c", "read line"},
		Rows:    5, Cols: 10,
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	defer handle.Close()

	stream := handle.Events()
	ev := waitFor(t, stream, schema.EventPid)
	if ev.Data == nil || ev.Data.Pid <= 0 {
		t.Fatalf("pid event = %+v", ev)
	}
	ev = waitFor(t, stream, schema.EventInit)
	if ev.Data == nil {
		t.Fatalf("init event = %+v", ev)
	}
	lines := strings.Split(ev.Data.Text, "\n")
	if len(lines) != 5 || len(lines[0]) != 10 {
		t.Fatalf("init grid = %dx%d lines", len(lines), len(lines[0]))
	}
}

func TestSnapshotReflectsOutputAndEcho(t *testing.T) {
	requirePOSIX(t)
	ctx := context.Background()
	handle, err := NewEngine().Spawn(ctx, core.SpawnRequest{
		Command: []string{"sh", "-c", "printf Welcome; read line"},
		Rows:    5, Cols: 20,
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	defer handle.Close()
	stream := handle.Events()
	waitFor(t, stream, schema.EventOutput)

	if err := handle.Send(ctx, schema.TakeSnapshotCommand()); err != nil {
		t.Fatalf("send snapshot: %v", err)
	}
	ev := waitFor(t, stream, schema.EventSnapshot)
	first := strings.Split(ev.Data.Text, "\n")[0]
	if first != "Welcome             " {
		t.Fatalf("first line = %q", first)
	}

	if err := handle.Send(ctx, schema.SendKeysCommand([]schema.KeyToken{schema.LiteralKey('q')})); err != nil {
		t.Fatalf("send keys: %v", err)
	}
	if err := handle.Send(ctx, schema.TakeSnapshotCommand()); err != nil {
		t.Fatalf("send snapshot: %v", err)
	}
	second := waitFor(t, stream, schema.EventSnapshot)
	if second.Data.Text == ev.Data.Text {
		t.Fatal("snapshot unchanged after keystroke")
	}
}

func TestTargetExitEmitsExitedAndEndsStream(t *testing.T) {
	requirePOSIX(t)
	handle, err := NewEngine().Spawn(context.Background(), core.SpawnRequest{
		Command: []string{"sh", "-c", "exit 3"},
		Rows:    2, Cols: 4,
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	defer handle.Close()
	stream := handle.Events()
	ev := waitFor(t, stream, schema.EventExited)
	if ev.ExitCode() != 3 {
		t.Fatalf("exit code = %d", ev.ExitCode())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("draining: %v", err)
		}
	}
	if handle.Alive() {
		t.Fatal("mock engine should shut down with its target")
	}
}

func TestNoExitKeepsEngineAlive(t *testing.T) {
	requirePOSIX(t)
	ctx := context.Background()
	handle, err := NewEngine().Spawn(ctx, core.SpawnRequest{
		Command: []string{"sh", "-c", "printf done"},
		Rows:    2, Cols: 10,
		NoExit:  true,
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	defer handle.Close()
	stream := handle.Events()
	waitFor(t, stream, schema.EventExited)

	// Late snapshot still answered.
	if err := handle.Send(ctx, schema.TakeSnapshotCommand()); err != nil {
		t.Fatalf("send snapshot after target exit: %v", err)
	}
	ev := waitFor(t, stream, schema.EventSnapshot)
	if !strings.HasPrefix(ev.Data.Text, "done") {
		t.Fatalf("snapshot = %q", ev.Data.Text)
	}
	if !handle.Alive() {
		t.Fatal("engine should stay alive with no-exit")
	}
}

func TestResizeRoundTrip(t *testing.T) {
	requirePOSIX(t)
	ctx := context.Background()
	handle, err := NewEngine().Spawn(ctx, core.SpawnRequest{
		Command: []string{"sh", "-c", "read line"},
		Rows:    5, Cols: 10,
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	defer handle.Close()
	stream := handle.Events()

	if err := handle.Send(ctx, schema.ResizeCommand(10, 30)); err != nil {
		t.Fatalf("send resize: %v", err)
	}
	ev := waitFor(t, stream, schema.EventResize)
	if ev.Data.Rows != 10 || ev.Data.Cols != 30 {
		t.Fatalf("resize event = %+v", ev.Data)
	}
	if err := handle.Send(ctx, schema.TakeSnapshotCommand()); err != nil {
		t.Fatalf("send snapshot: %v", err)
	}
	snap := waitFor(t, stream, schema.EventSnapshot)
	lines := strings.Split(snap.Data.Text, "\n")
	if len(lines) != 10 || len(lines[0]) != 30 {
		t.Fatalf("grid after resize = %dx%d", len(lines), len(lines[0]))
	}
}

func TestRunStdinEOFShutsDown(t *testing.T) {
	requirePOSIX(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var stdout, stderr strings.Builder
	done := make(chan int, 1)
	go func() {
		done <- Run(ctx, []string{"--size", "20x5", "cat"}, strings.NewReader(""), &stdout, &stderr)
	}()
	select {
	case code := <-done:
		if code != 0 {
			t.Fatalf("Run = %d, stderr: %s", code, stderr.String())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after stdin EOF")
	}
	if !strings.Contains(stdout.String(), `"type":"pid"`) {
		t.Fatalf("missing pid event in output: %s", stdout.String())
	}
}

func TestParseArgs(t *testing.T) {
	req, err := parseArgs([]string{
		"--subscribe", "init,snapshot,pid",
		"--size", "50x20",
		"--no-exit",
		"vim", "notes.txt",
	})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if req.Cols != 50 || req.Rows != 20 {
		t.Fatalf("size = %dx%d", req.Cols, req.Rows)
	}
	if !req.NoExit {
		t.Fatal("no-exit not set")
	}
	if len(req.Command) != 2 || req.Command[0] != "vim" {
		t.Fatalf("command = %v", req.Command)
	}
	if len(req.Subscribe) != 3 {
		t.Fatalf("subscribe = %v", req.Subscribe)
	}
}

func TestParseArgsErrors(t *testing.T) {
	if _, err := parseArgs([]string{"--size", "bogus", "sh"}); err == nil {
		t.Fatal("bad size accepted")
	}
	if _, err := parseArgs([]string{"--size", "50x20"}); !errors.Is(err, schema.ErrEmptyCommand) {
		t.Fatalf("missing command: %v", err)
	}
	if _, err := parseArgs([]string{"--bogus", "sh"}); err == nil {
		t.Fatal("unknown flag accepted")
	}
}
