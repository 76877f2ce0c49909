package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"pomodoro/collab/internal/model"
)

// scriptedServer answers GET /api/rooms/ABC234 with whatever status is set.
type scriptedServer struct {
	mu      sync.Mutex
	status  int
	version int
}

func (s *scriptedServer) set(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *scriptedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := s.status
	s.version++
	version := s.version
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"code": "room_not_found", "message": "room not found"},
		})
		return
	}
	_ = json.NewEncoder(w).Encode(snapshot(version, model.PhaseWork, model.StatusRunning, 1500-version, 0))
}

func nextUpdate(t *testing.T, updates <-chan Update) Update {
	t.Helper()
	select {
	case u := <-updates:
		return u
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for update")
		return Update{}
	}
}

func TestPollerConnectionStates(t *testing.T) {
	script := &scriptedServer{status: http.StatusOK}
	srv := httptest.NewServer(script)
	defer srv.Close()

	clock := clockwork.NewFakeClockAt(trackerEpoch)
	poller := NewPoller(New(srv.URL), "abc234", PollerOptions{Interval: time.Second, Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := make(chan Update)
	done := make(chan error, 1)
	go func() {
		done <- poller.Run(ctx, updates)
	}()

	first := nextUpdate(t, updates)
	if first.State != Connected || first.Room.ID != "ABC234" {
		t.Fatalf("unexpected first update: %+v", first)
	}

	script.set(http.StatusInternalServerError)
	want := []ConnState{Reconnecting, Reconnecting, Lost, Lost}
	for i, state := range want {
		clock.Advance(time.Second)
		u := nextUpdate(t, updates)
		if u.State != state || u.Err == nil {
			t.Fatalf("failure %d: expected %s with error, got %s (%v)", i+1, state, u.State, u.Err)
		}
		if u.Room.Version != first.Room.Version {
			t.Fatalf("expected last good snapshot to be kept, got version %d", u.Room.Version)
		}
	}

	script.set(http.StatusOK)
	clock.Advance(time.Second)
	if u := nextUpdate(t, updates); u.State != Connected || u.Err != nil {
		t.Fatalf("expected reconnect, got %+v", u)
	}

	script.set(http.StatusNotFound)
	clock.Advance(time.Second)
	select {
	case err := <-done:
		if !errors.Is(err, ErrRoomClosed) {
			t.Fatalf("expected ErrRoomClosed, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop on a closed room")
	}
}

func TestPollerStopsOnCancel(t *testing.T) {
	script := &scriptedServer{status: http.StatusOK}
	srv := httptest.NewServer(script)
	defer srv.Close()

	poller := NewPoller(New(srv.URL), "ABC234", PollerOptions{Clock: clockwork.NewFakeClock()})
	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan Update, 1)
	done := make(chan error, 1)
	go func() {
		done <- poller.Run(ctx, updates)
	}()

	nextUpdate(t, updates)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop on cancel")
	}
}
