package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRun_ExecutesImmediately(t *testing.T) {
	var mu sync.Mutex
	runs := 0
	s := New(time.Minute, func(ctx context.Context) {
		mu.Lock()
		runs++
		mu.Unlock()
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// the interval is a minute, so the only run observable here is the
	// immediate one
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestShutdown_StopsRun(t *testing.T) {
	s := New(time.Minute, func(ctx context.Context) {}, nil)

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	s.Shutdown()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after Shutdown")
	}
	s.Shutdown() // idempotent
}
