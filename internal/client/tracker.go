package client

import (
	"math"
	"sync"
	"time"

	"pomodoro/collab/internal/model"
	"pomodoro/collab/internal/timer"
)

// PhaseChange describes a phase the server moved past, as the tracker last
// saw it before the boundary.
type PhaseChange struct {
	RoomID        string
	From          model.Phase
	To            model.Phase
	PomodoroCount int
	Planned       int
	// LastRemaining is the countdown of the previous snapshot, not an
	// extrapolation.
	LastRemaining int
	At            time.Time
}

// Completed reports whether the phase ran out rather than being skipped or
// reset. A phase counts as run out when the last snapshot before the boundary
// was within one poll of zero.
func (c PhaseChange) Completed(interval time.Duration) bool {
	return c.LastRemaining <= pollSeconds(interval)
}

// Tracker holds the newest room snapshot and interpolates its countdown
// between polls. It never invents a phase change: phase, status and count
// only ever come from the server.
type Tracker struct {
	interval time.Duration

	mu         sync.Mutex
	last       *model.RoomResponse
	receivedAt time.Time
}

func NewTracker(interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Tracker{interval: interval}
}

// Apply adopts snap unless it is older than the snapshot already held. It
// returns whether snap was applied and, when the server crossed a phase
// boundary since the previous snapshot, the change.
func (t *Tracker) Apply(snap model.RoomResponse, receivedAt time.Time) (bool, *PhaseChange) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.last != nil && snap.Version < t.last.Version {
		return false, nil
	}

	var change *PhaseChange
	if prev := t.last; prev != nil && crossedBoundary(prev.TimerState, snap.TimerState) {
		change = &PhaseChange{
			RoomID:        snap.ID,
			From:          prev.TimerState.Phase,
			To:            snap.TimerState.Phase,
			PomodoroCount: prev.TimerState.PomodoroCount,
			Planned:       timer.DurationFor(prev.TimerState.Phase, prev.Settings),
			LastRemaining: prev.TimerState.TimeRemaining,
			At:            receivedAt,
		}
	}

	snapCopy := snap
	t.last = &snapCopy
	t.receivedAt = receivedAt
	return true, change
}

// crossedBoundary is true when a started phase was left: by expiry, skip or
// reset. Moves out of an idle timer end nothing.
func crossedBoundary(prev, next model.TimerView) bool {
	if prev.Status == model.StatusIdle {
		return false
	}
	if prev.Phase != next.Phase || prev.PomodoroCount != next.PomodoroCount {
		return true
	}
	return next.Status == model.StatusIdle
}

func (t *Tracker) Current() (model.RoomResponse, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return model.RoomResponse{}, false
	}
	return *t.last, true
}

// Remaining is the countdown to display at now. While running it counts down
// from the last snapshot but never more than one poll interval below it, and
// never below zero; otherwise it is the snapshot's value.
func (t *Tracker) Remaining(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return 0
	}

	last := t.last.TimerState.TimeRemaining
	if t.last.TimerState.Status != model.StatusRunning {
		return last
	}

	elapsed := int(now.Sub(t.receivedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	floor := last - pollSeconds(t.interval)
	if floor < 0 {
		floor = 0
	}
	remaining := last - elapsed
	if remaining < floor {
		remaining = floor
	}
	return remaining
}

// SessionRecord turns a phase change into an analytics session. It returns
// false when nothing of the phase was actually spent.
func SessionRecord(change PhaseChange, interval time.Duration) (model.PomodoroSession, bool) {
	if change.Planned <= 0 {
		return model.PomodoroSession{}, false
	}

	completed := change.Completed(interval)
	actual := change.Planned - change.LastRemaining
	if completed {
		actual = change.Planned
	}
	if actual <= 0 {
		return model.PomodoroSession{}, false
	}

	endedAt := change.At.UTC()
	return model.PomodoroSession{
		RoomID:               change.RoomID,
		Phase:                change.From,
		StartedAt:            endedAt.Add(-time.Duration(actual) * time.Second),
		EndedAt:              &endedAt,
		PlannedDuration:      change.Planned,
		ActualDuration:       actual,
		Completed:            completed,
		CompletionPercentage: actual * 100 / change.Planned,
	}, true
}

func pollSeconds(interval time.Duration) int {
	return int(math.Ceil(interval.Seconds()))
}
