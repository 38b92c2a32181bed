package core

import (
	"context"
	"sync"

	"pkt.systems/htx/schema"
)

// router holds the single pending-response slot for a session. The
// wire protocol carries no request identifiers, so at most one
// response-bearing request may be outstanding; arming a second wait
// while one is active is rejected as a programmer error.
type router struct {
	mu      sync.Mutex
	pending chan routerResult
}

type routerResult struct {
	snapshot schema.Snapshot
	err      error
}

func newRouter() *router {
	return &router{}
}

// arm reserves the pending slot before the command is written, so the
// reader loop can never observe a response without a waiter.
func (r *router) arm() (<-chan routerResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending != nil {
		return nil, schema.ErrRequestPending
	}
	ch := make(chan routerResult, 1)
	r.pending = ch
	return ch, nil
}

// disarm releases the slot without delivering, used when the command
// write itself fails.
func (r *router) disarm() {
	r.mu.Lock()
	r.pending = nil
	r.mu.Unlock()
}

// fulfill delivers a snapshot to the pending waiter. Returns false
// when no request is outstanding.
func (r *router) fulfill(snap schema.Snapshot) bool {
	return r.deliver(routerResult{snapshot: snap})
}

// fail delivers an error to the pending waiter, if any.
func (r *router) fail(err error) bool {
	return r.deliver(routerResult{err: err})
}

func (r *router) deliver(res routerResult) bool {
	r.mu.Lock()
	ch := r.pending
	r.pending = nil
	r.mu.Unlock()
	if ch == nil {
		return false
	}
	ch <- res
	return true
}

// await blocks until the reader loop delivers, or ctx expires. On ctx
// expiry the slot is cleared so the session can decide how to treat
// the abandoned request.
func (r *router) await(ctx context.Context, ch <-chan routerResult) (schema.Snapshot, error) {
	select {
	case res := <-ch:
		return res.snapshot, res.err
	case <-ctx.Done():
		r.disarm()
		// A late response may have raced the disarm; drain it so the
		// channel is not left holding a stale result.
		select {
		case res := <-ch:
			return res.snapshot, res.err
		default:
		}
		return schema.Snapshot{}, ctx.Err()
	}
}
