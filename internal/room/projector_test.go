package room

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"pomodoro/collab/internal/model"
	"pomodoro/collab/internal/timer"
)

func TestProjectResolvesAndComputesRemaining(t *testing.T) {
	settings := model.DefaultTimerSettings()
	startedAt := epoch
	r := &model.Room{
		ID:       "ABCDEF",
		Settings: settings,
		TimerState: model.RoomTimerState{
			Phase:     model.PhaseWork,
			Status:    model.StatusRunning,
			Duration:  timer.DurationFor(model.PhaseWork, settings),
			Elapsed:   100,
			StartedAt: &startedAt,
		},
		Participants: []model.Participant{{ID: "host", Name: "Host", JoinedAt: epoch}},
		Version:      3,
	}

	mid := Project(r, epoch.Add(400*time.Second))
	if mid.TimerState.TimeRemaining != 1000 || mid.Version != 3 {
		t.Fatalf("expected 1000 remaining at v3, got %d at v%d", mid.TimerState.TimeRemaining, mid.Version)
	}

	expired := Project(r, epoch.Add(1400*time.Second))
	if expired.TimerState.Phase != model.PhaseShortBreak || expired.TimerState.TimeRemaining != 300 || expired.Version != 4 {
		t.Fatalf("expected resolved short break at v4, got %+v v%d", expired.TimerState, expired.Version)
	}

	expired.Participants[0].Name = "mutated"
	if r.Participants[0].Name != "Host" {
		t.Fatal("projection aliases the room's participants")
	}
}

func TestProjectionHidesBookkeeping(t *testing.T) {
	r := &model.Room{ID: "ABCDEF", Settings: model.DefaultTimerSettings(), TimerState: timer.Initial(model.DefaultTimerSettings())}
	raw, err := json.Marshal(Project(r, epoch))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(raw)
	for _, field := range []string{`"elapsed"`, `"duration"`, `"startedAt"`} {
		if strings.Contains(body, field) {
			t.Fatalf("projection leaks %s: %s", field, body)
		}
	}
	if !strings.Contains(body, `"timeRemaining":1500`) {
		t.Fatalf("projection lacks timeRemaining: %s", body)
	}
}

func TestRandomCodeUsesUnambiguousAlphabet(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := RandomCode()
		if err != nil {
			t.Fatalf("random code: %v", err)
		}
		if !ValidCode(code) {
			t.Fatalf("invalid code %q", code)
		}
		if strings.ContainsAny(code, "01IO") {
			t.Fatalf("code %q contains an ambiguous glyph", code)
		}
	}
	if ValidCode("ABC") || ValidCode("ABCDE0") {
		t.Fatal("ValidCode accepted a malformed code")
	}
}
