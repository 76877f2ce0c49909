package model

import "time"

// RoomTimerState is the authoritative timer bookkeeping of a room. StartedAt
// is non-nil exactly when Status is StatusRunning. Elapsed holds the seconds
// accrued before StartedAt.
type RoomTimerState struct {
	Phase         Phase
	Status        RunStatus
	Duration      int
	StartedAt     *time.Time
	Elapsed       int
	PomodoroCount int
}

type Participant struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

type Room struct {
	ID             string
	Name           string
	HostID         string
	HostName       string
	CreatedAt      time.Time
	LastActivityAt time.Time
	Settings       TimerSettings
	TimerState     RoomTimerState
	Participants   []Participant
	Version        int
}

func (r *Room) HasParticipant(id string) bool {
	for _, p := range r.Participants {
		if p.ID == id {
			return true
		}
	}
	return false
}

type TimerView struct {
	Phase         Phase     `json:"phase"`
	Status        RunStatus `json:"status"`
	TimeRemaining int       `json:"timeRemaining"`
	PomodoroCount int       `json:"pomodoroCount"`
}

// RoomResponse is the only shape in which room state leaves the store.
type RoomResponse struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	HostID         string        `json:"hostId"`
	HostName       string        `json:"hostName"`
	CreatedAt      time.Time     `json:"createdAt"`
	LastActivityAt time.Time     `json:"lastActivityAt"`
	Settings       TimerSettings `json:"settings"`
	TimerState     TimerView     `json:"timerState"`
	Participants   []Participant `json:"participants"`
	Version        int           `json:"version"`
	ServerTime     time.Time     `json:"serverTime"`
}

// InheritedTimerState is a solo timer handed over when its owner opens a room.
type InheritedTimerState struct {
	Phase         Phase          `json:"phase"`
	Status        RunStatus      `json:"status"`
	TimeRemaining int            `json:"timeRemaining"`
	PomodoroCount int            `json:"pomodoroCount"`
	Settings      *SettingsPatch `json:"settings,omitempty"`
}
