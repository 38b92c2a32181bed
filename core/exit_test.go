package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"pkt.systems/htx/schema"
)

type exitFake struct {
	sent      []schema.Command
	signals   []ProcessSignal
	closed    bool
	waitCount int
	// waitFailures is the number of Wait calls that block until the
	// caller's context expires before Wait starts succeeding.
	waitFailures int
	alive        bool
	code         int
}

func (h *exitFake) Send(ctx context.Context, cmd schema.Command) error {
	_ = ctx
	h.sent = append(h.sent, cmd)
	return nil
}

func (h *exitFake) Events() EventStream { return nil }

func (h *exitFake) Alive() bool { return h.alive }

func (h *exitFake) Signal(ctx context.Context, sig ProcessSignal) error {
	_ = ctx
	h.signals = append(h.signals, sig)
	return nil
}

func (h *exitFake) Wait(ctx context.Context) (ExitStatus, error) {
	h.waitCount++
	if h.waitCount <= h.waitFailures {
		<-ctx.Done()
		return ExitStatus{}, ctx.Err()
	}
	h.alive = false
	return ExitStatus{Code: h.code}, nil
}

func (h *exitFake) Close() error {
	h.closed = true
	return nil
}

func TestExitCoordinatorCleanShutdown(t *testing.T) {
	h := &exitFake{alive: true, code: 0}
	coord := &exitCoordinator{
		handle:       h,
		targetExited: true,
		grace:        50 * time.Millisecond,
		exitWait:     time.Second,
	}
	res, err := coord.run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Forced {
		t.Fatal("clean shutdown should not be forced")
	}
	if len(h.sent) != 1 || h.sent[0].Type != schema.CommandExit {
		t.Fatalf("sent = %+v", h.sent)
	}
	if len(h.signals) != 0 {
		t.Fatalf("signals = %v", h.signals)
	}
	if !h.closed {
		t.Fatal("handle not closed")
	}
}

func TestExitCoordinatorEscalatesToTerm(t *testing.T) {
	h := &exitFake{alive: true, waitFailures: 1}
	coord := &exitCoordinator{
		handle:       h,
		targetExited: true,
		grace:        50 * time.Millisecond,
		exitWait:     50 * time.Millisecond,
	}
	res, err := coord.run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Forced {
		t.Fatal("escalated shutdown should report forced")
	}
	if len(h.signals) != 1 || h.signals[0] != ProcessSignalTERM {
		t.Fatalf("signals = %v", h.signals)
	}
}

func TestExitCoordinatorEscalatesToKill(t *testing.T) {
	h := &exitFake{alive: true, waitFailures: 2}
	coord := &exitCoordinator{
		handle:       h,
		targetExited: true,
		grace:        50 * time.Millisecond,
		exitWait:     50 * time.Millisecond,
	}
	res, err := coord.run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Forced {
		t.Fatal("escalated shutdown should report forced")
	}
	if len(h.signals) != 2 || h.signals[1] != ProcessSignalKILL {
		t.Fatalf("signals = %v", h.signals)
	}
}

func TestExitCoordinatorFatalWhenKillIgnored(t *testing.T) {
	h := &exitFake{alive: true, waitFailures: 100}
	coord := &exitCoordinator{
		handle:       h,
		targetExited: true,
		grace:        20 * time.Millisecond,
		exitWait:     20 * time.Millisecond,
	}
	_, err := coord.run(context.Background())
	if !errors.Is(err, schema.ErrExitFatal) {
		t.Fatalf("got %v, want ErrExitFatal", err)
	}
}

func TestExitCoordinatorSkipsDeadTarget(t *testing.T) {
	h := &exitFake{alive: true}
	// A pid that was never reported leaves target nil; the coordinator
	// must go straight to the engine shutdown.
	coord := &exitCoordinator{
		handle:   h,
		target:   nil,
		grace:    50 * time.Millisecond,
		exitWait: time.Second,
	}
	if _, err := coord.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(h.sent) != 1 || h.sent[0].Type != schema.CommandExit {
		t.Fatalf("sent = %+v", h.sent)
	}
}
