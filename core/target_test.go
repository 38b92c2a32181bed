package core

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"pkt.systems/htx/schema"
)

func spawnSleeper(t *testing.T) (*exec.Cmd, *target) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("sleep target requires a POSIX system")
	}
	cmd := exec.Command("sleep", "60")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start sleeper: %v", err)
	}
	// Reap in the background so a signaled sleeper does not linger as
	// a zombie and keep reporting as alive.
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		<-done
	})
	return cmd, newTarget(cmd.Process.Pid)
}

func TestTargetAlive(t *testing.T) {
	_, tgt := spawnSleeper(t)
	if !tgt.Alive() {
		t.Fatal("running process reported dead")
	}
	var nilTarget *target
	if nilTarget.Alive() {
		t.Fatal("nil target reported alive")
	}
	if newTarget(0) != nil {
		t.Fatal("pid 0 should yield nil target")
	}
}

func TestTargetTerminate(t *testing.T) {
	_, tgt := spawnSleeper(t)
	if err := tgt.Terminate(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if tgt.Alive() {
		t.Fatal("process alive after terminate")
	}
	// Terminating an already-dead process is not an error.
	if err := tgt.Terminate(context.Background(), time.Second); err != nil {
		t.Fatalf("terminate dead process: %v", err)
	}
}

func TestTargetKill(t *testing.T) {
	_, tgt := spawnSleeper(t)
	if err := tgt.Kill(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if tgt.Alive() {
		t.Fatal("process alive after kill")
	}
}

func TestNilTargetSignals(t *testing.T) {
	var tgt *target
	if err := tgt.Terminate(context.Background(), time.Second); !errors.Is(err, schema.ErrNoTargetPid) {
		t.Fatalf("terminate nil target: %v", err)
	}
	if err := tgt.Kill(context.Background(), time.Second); !errors.Is(err, schema.ErrNoTargetPid) {
		t.Fatalf("kill nil target: %v", err)
	}
}
