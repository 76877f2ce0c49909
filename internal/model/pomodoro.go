package model

import "time"

type Phase string

const (
	PhaseWork       Phase = "work"
	PhaseShortBreak Phase = "shortBreak"
	PhaseLongBreak  Phase = "longBreak"
)

func (p Phase) Valid() bool {
	return p == PhaseWork || p == PhaseShortBreak || p == PhaseLongBreak
}

type RunStatus string

const (
	StatusIdle    RunStatus = "idle"
	StatusRunning RunStatus = "running"
	StatusPaused  RunStatus = "paused"
)

func (s RunStatus) Valid() bool {
	return s == StatusIdle || s == StatusRunning || s == StatusPaused
}

const (
	DefaultWorkMinutes       = 25
	DefaultShortBreakMinutes = 5
	DefaultLongBreakMinutes  = 15
	DefaultLongBreakInterval = 4

	MaxDurationMinutes   = 24 * 60
	MaxLongBreakInterval = 100
)

// TimerSettings durations are whole minutes. LongBreakInterval is the number of
// completed work phases between long breaks.
type TimerSettings struct {
	WorkDuration       int `json:"workDuration" yaml:"work_duration"`
	ShortBreakDuration int `json:"shortBreakDuration" yaml:"short_break_duration"`
	LongBreakDuration  int `json:"longBreakDuration" yaml:"long_break_duration"`
	LongBreakInterval  int `json:"longBreakInterval" yaml:"long_break_interval"`
}

func DefaultTimerSettings() TimerSettings {
	return TimerSettings{
		WorkDuration:       DefaultWorkMinutes,
		ShortBreakDuration: DefaultShortBreakMinutes,
		LongBreakDuration:  DefaultLongBreakMinutes,
		LongBreakInterval:  DefaultLongBreakInterval,
	}
}

// Valid bounds every duration to (0, MaxDurationMinutes] so seconds never
// overflow, and the interval to [2, MaxLongBreakInterval].
func (s TimerSettings) Valid() bool {
	return validMinutes(s.WorkDuration) &&
		validMinutes(s.ShortBreakDuration) &&
		validMinutes(s.LongBreakDuration) &&
		s.LongBreakInterval >= 2 && s.LongBreakInterval <= MaxLongBreakInterval
}

func validMinutes(m int) bool {
	return m > 0 && m <= MaxDurationMinutes
}

// SettingsPatch is a partial TimerSettings as sent by clients. Nil fields keep
// the value they are merged over.
type SettingsPatch struct {
	WorkDuration       *int `json:"workDuration,omitempty"`
	ShortBreakDuration *int `json:"shortBreakDuration,omitempty"`
	LongBreakDuration  *int `json:"longBreakDuration,omitempty"`
	LongBreakInterval  *int `json:"longBreakInterval,omitempty"`
}

func (p *SettingsPatch) ApplyTo(base TimerSettings) TimerSettings {
	if p == nil {
		return base
	}
	if p.WorkDuration != nil {
		base.WorkDuration = *p.WorkDuration
	}
	if p.ShortBreakDuration != nil {
		base.ShortBreakDuration = *p.ShortBreakDuration
	}
	if p.LongBreakDuration != nil {
		base.LongBreakDuration = *p.LongBreakDuration
	}
	if p.LongBreakInterval != nil {
		base.LongBreakInterval = *p.LongBreakInterval
	}
	return base
}

type PomodoroSession struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"userId"`
	RoomID               string     `json:"roomId,omitempty"`
	Phase                Phase      `json:"phase"`
	StartedAt            time.Time  `json:"startedAt"`
	EndedAt              *time.Time `json:"endedAt,omitempty"`
	PlannedDuration      int        `json:"plannedDuration"`
	ActualDuration       int        `json:"actualDuration"`
	Completed            bool       `json:"completed"`
	CompletionPercentage int        `json:"completionPercentage"`
	Date                 string     `json:"date"`
	CreatedAt            time.Time  `json:"createdAt"`
}

type DailyAnalytics struct {
	Date               string            `json:"date"`
	TotalPomodoros     int               `json:"totalPomodoros"`
	CompletedPomodoros int               `json:"completedPomodoros"`
	PartialPomodoros   int               `json:"partialPomodoros"`
	TotalFocusMinutes  float64           `json:"totalFocusMinutes"`
	CompletionRate     int               `json:"completionRate"`
	Sessions           []PomodoroSession `json:"sessions"`
}
