package logx

import (
	"context"
	"testing"
)

func TestContextWithSessionRoundTrip(t *testing.T) {
	ctx := ContextWithSession(context.Background(), "abc123")
	if ctx.Value(sessionKey) == nil {
		t.Fatal("session marker not stored")
	}
	if WithSession(ctx, "abc123") == nil {
		t.Fatal("expected logger")
	}
	if WithSession(context.Background(), "") == nil {
		t.Fatal("expected logger for empty session")
	}
}
