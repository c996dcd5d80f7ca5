package eventloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cabconnect/internal/shared/logger"
)

func startLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	l := New(logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l, cancel
}

func TestPostRunsInOrder(t *testing.T) {
	l, _ := startLoop(t)

	var mu sync.Mutex
	var got []int
	for i := range 50 {
		require.True(t, l.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	require.NoError(t, l.Call(context.Background(), func() {}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestCallWaitsForResult(t *testing.T) {
	l, _ := startLoop(t)
	x := 0
	require.NoError(t, l.Call(context.Background(), func() { x = 42 }))
	assert.Equal(t, 42, x)
}

func TestPanicDoesNotKillLoop(t *testing.T) {
	l, _ := startLoop(t)
	l.Post(func() { panic("boom") })
	ran := false
	require.NoError(t, l.Call(context.Background(), func() { ran = true }))
	assert.True(t, ran)
}

func TestPostAfterStop(t *testing.T) {
	l, cancel := startLoop(t)
	cancel()
	<-l.Done()

	assert.False(t, l.Post(func() {}))
	assert.ErrorIs(t, l.Call(context.Background(), func() {}), ErrClosed)
}

func TestCallRespectsContext(t *testing.T) {
	l := New(nil) // never run
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Call(ctx, func() {}), context.DeadlineExceeded)
}
