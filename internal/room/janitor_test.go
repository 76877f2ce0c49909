package room

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestJanitorSweepsOnTick(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	s := NewStore(Options{Clock: clock, InactivityTimeout: 10 * time.Second})
	createRoom(t, s, "host")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RunJanitor(ctx, 30*time.Second)
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	if err := clock.BlockUntilContext(waitCtx, 1); err != nil {
		t.Fatalf("janitor never started its ticker: %v", err)
	}

	clock.Advance(30 * time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for s.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected janitor to sweep the idle room, %d rooms left", s.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}

func TestJanitorDisabledWithoutInterval(t *testing.T) {
	s := NewStore(Options{})
	finished := make(chan struct{})
	go func() {
		s.RunJanitor(context.Background(), 0)
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("expected RunJanitor to return immediately for a zero interval")
	}
}
