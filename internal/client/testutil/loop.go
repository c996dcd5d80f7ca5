package testutil

import (
	"context"
	"testing"

	"cabconnect/internal/shared/eventloop"
	"cabconnect/internal/shared/logger"
)

// StartLoop runs an event loop for the duration of the test.
func StartLoop(t testing.TB) *eventloop.Loop {
	t.Helper()
	l := eventloop.New(logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l
}

// Sync waits until everything posted to l so far has run.
func Sync(t testing.TB, l *eventloop.Loop) {
	t.Helper()
	if err := l.Call(context.Background(), func() {}); err != nil {
		t.Fatalf("sync event loop: %v", err)
	}
}

// OnLoop runs fn on l and waits for it.
func OnLoop(t testing.TB, l *eventloop.Loop, fn func()) {
	t.Helper()
	if err := l.Call(context.Background(), fn); err != nil {
		t.Fatalf("run on event loop: %v", err)
	}
}
