// Package timer derives pomodoro timer progress from wall-clock instants.
// Nothing in here ticks: remaining time and phase expiry are recomputed from
// the recorded start instant every time they are asked for.
package timer

import (
	"time"

	"pomodoro/collab/internal/model"
)

// DurationFor returns the planned length of phase in seconds.
func DurationFor(phase model.Phase, settings model.TimerSettings) int {
	switch phase {
	case model.PhaseShortBreak:
		return settings.ShortBreakDuration * 60
	case model.PhaseLongBreak:
		return settings.LongBreakDuration * 60
	default:
		return settings.WorkDuration * 60
	}
}

// Initial is the state of a fresh cycle: first work phase, not started.
func Initial(settings model.TimerSettings) model.RoomTimerState {
	return model.RoomTimerState{
		Phase:    model.PhaseWork,
		Status:   model.StatusIdle,
		Duration: DurationFor(model.PhaseWork, settings),
	}
}

// LiveElapsed is the whole seconds accrued since StartedAt, or zero when the
// timer is not running.
func LiveElapsed(state model.RoomTimerState, now time.Time) int {
	if state.Status != model.StatusRunning || state.StartedAt == nil {
		return 0
	}
	elapsed := int(now.Sub(*state.StartedAt) / time.Second)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Remaining returns the seconds left in the current phase at now. It never
// returns a negative value.
func Remaining(state model.RoomTimerState, now time.Time) int {
	remaining := state.Duration - state.Elapsed - LiveElapsed(state, now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// NextPhase returns the phase following phase and the pomodoro count after
// leaving it.
func NextPhase(phase model.Phase, pomodoroCount, longBreakInterval int) (model.Phase, int) {
	if phase != model.PhaseWork {
		return model.PhaseWork, pomodoroCount
	}
	pomodoroCount++
	if longBreakInterval > 0 && pomodoroCount%longBreakInterval == 0 {
		return model.PhaseLongBreak, pomodoroCount
	}
	return model.PhaseShortBreak, pomodoroCount
}

// Advance moves state to the next phase and leaves it idle.
func Advance(state *model.RoomTimerState, settings model.TimerSettings) {
	state.Phase, state.PomodoroCount = NextPhase(state.Phase, state.PomodoroCount, settings.LongBreakInterval)
	state.Duration = DurationFor(state.Phase, settings)
	state.Status = model.StatusIdle
	state.StartedAt = nil
	state.Elapsed = 0
}

// ResolveIfExpired advances a running timer whose phase has run out and
// reports whether it did. A second call on the result is a no-op because the
// advanced state is idle.
func ResolveIfExpired(state *model.RoomTimerState, settings model.TimerSettings, now time.Time) bool {
	if state.Status != model.StatusRunning {
		return false
	}
	if Remaining(*state, now) > 0 {
		return false
	}
	Advance(state, settings)
	return true
}

// FromInherited rebuilds bookkeeping from a client-reported timer. Idle input
// yields Initial(settings).
func FromInherited(inherited model.InheritedTimerState, settings model.TimerSettings, now time.Time) model.RoomTimerState {
	if inherited.Status == model.StatusIdle || !inherited.Status.Valid() || !inherited.Phase.Valid() {
		return Initial(settings)
	}

	duration := DurationFor(inherited.Phase, settings)
	elapsed := duration - inherited.TimeRemaining
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > duration {
		elapsed = duration
	}
	count := inherited.PomodoroCount
	if count < 0 {
		count = 0
	}

	state := model.RoomTimerState{
		Phase:         inherited.Phase,
		Status:        inherited.Status,
		Duration:      duration,
		Elapsed:       elapsed,
		PomodoroCount: count,
	}
	if inherited.Status == model.StatusRunning {
		startedAt := now
		state.StartedAt = &startedAt
	}
	return state
}
