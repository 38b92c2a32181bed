package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"pkt.systems/htx/schema"
)

func TestRouterSingleSlot(t *testing.T) {
	r := newRouter()
	ch, err := r.arm()
	if err != nil {
		t.Fatalf("arm: %v", err)
	}
	if _, err := r.arm(); !errors.Is(err, schema.ErrRequestPending) {
		t.Fatalf("second arm: got %v, want ErrRequestPending", err)
	}
	if !r.fulfill(schema.Snapshot{Text: "hello"}) {
		t.Fatal("fulfill reported no waiter")
	}
	snap, err := r.await(context.Background(), ch)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if snap.Text != "hello" {
		t.Fatalf("snapshot text = %q", snap.Text)
	}
	// Slot is free again after delivery.
	if _, err := r.arm(); err != nil {
		t.Fatalf("re-arm after delivery: %v", err)
	}
}

func TestRouterFailDeliversError(t *testing.T) {
	r := newRouter()
	ch, err := r.arm()
	if err != nil {
		t.Fatalf("arm: %v", err)
	}
	go r.fail(schema.ErrProtocol)
	if _, err := r.await(context.Background(), ch); !errors.Is(err, schema.ErrProtocol) {
		t.Fatalf("await: got %v, want ErrProtocol", err)
	}
}

func TestRouterAwaitTimeout(t *testing.T) {
	r := newRouter()
	ch, err := r.arm()
	if err != nil {
		t.Fatalf("arm: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := r.await(ctx, ch); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("await: got %v, want deadline exceeded", err)
	}
	// Timeout clears the slot.
	if _, err := r.arm(); err != nil {
		t.Fatalf("arm after timeout: %v", err)
	}
}

func TestRouterDeliverWithoutWaiter(t *testing.T) {
	r := newRouter()
	if r.fulfill(schema.Snapshot{}) {
		t.Fatal("fulfill with no pending request should report false")
	}
	if r.fail(schema.ErrProtocol) {
		t.Fatal("fail with no pending request should report false")
	}
}

func TestRouterDisarmOnWriteFailure(t *testing.T) {
	r := newRouter()
	if _, err := r.arm(); err != nil {
		t.Fatalf("arm: %v", err)
	}
	r.disarm()
	if _, err := r.arm(); err != nil {
		t.Fatalf("arm after disarm: %v", err)
	}
}
