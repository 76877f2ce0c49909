package room

import (
	"time"

	"github.com/rs/zerolog/log"

	"pomodoro/collab/internal/model"
	"pomodoro/collab/internal/timer"
)

// resolve applies a pending phase transition to r and bumps its version when
// one happened.
func resolve(r *model.Room, now time.Time) bool {
	from := r.TimerState.Phase
	if !timer.ResolveIfExpired(&r.TimerState, r.Settings, now) {
		return false
	}
	r.Version++
	log.Debug().
		Str("room_id", r.ID).
		Str("from", string(from)).
		Str("to", string(r.TimerState.Phase)).
		Int("pomodoro_count", r.TimerState.PomodoroCount).
		Msg("room phase resolved")
	return true
}

// Project resolves any expired phase on r and returns the client-facing view
// with the time remaining at now. Callers must hold the room's lock.
func Project(r *model.Room, now time.Time) model.RoomResponse {
	resolve(r, now)

	participants := make([]model.Participant, len(r.Participants))
	copy(participants, r.Participants)

	return model.RoomResponse{
		ID:             r.ID,
		Name:           r.Name,
		HostID:         r.HostID,
		HostName:       r.HostName,
		CreatedAt:      r.CreatedAt,
		LastActivityAt: r.LastActivityAt,
		Settings:       r.Settings,
		TimerState: model.TimerView{
			Phase:         r.TimerState.Phase,
			Status:        r.TimerState.Status,
			TimeRemaining: timer.Remaining(r.TimerState, now),
			PomodoroCount: r.TimerState.PomodoroCount,
		},
		Participants: participants,
		Version:      r.Version,
		ServerTime:   now,
	}
}
