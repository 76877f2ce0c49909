package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	apperrors "pomodoro/collab/internal/errors"
	"pomodoro/collab/internal/model"
	"pomodoro/collab/internal/repository"
)

const (
	dateLayout        = "2006-01-02"
	defaultDailyDays  = 7
	maxDailyDays      = 90
	maxPercentage     = 100
	focusMinutesScale = 10
)

type AnalyticsService struct {
	repo  *repository.SessionRepository
	clock clockwork.Clock
}

type RecordSessionInput struct {
	RoomID               string
	Phase                model.Phase
	StartedAt            time.Time
	EndedAt              *time.Time
	PlannedDuration      int
	ActualDuration       int
	Completed            bool
	CompletionPercentage int
}

func NewAnalyticsService(repo *repository.SessionRepository, clock clockwork.Clock) *AnalyticsService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AnalyticsService{repo: repo, clock: clock}
}

// Record stores one finished or abandoned phase for userID. The server owns
// the id, the user and the grouping date.
func (s *AnalyticsService) Record(ctx context.Context, userID string, input RecordSessionInput) (*model.PomodoroSession, *apperrors.APIError) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.Unauthorized("")
	}
	if !input.Phase.Valid() {
		return nil, apperrors.BadRequest("invalid_phase", "phase must be one of work, shortBreak, longBreak")
	}
	if input.StartedAt.IsZero() {
		return nil, apperrors.BadRequest("invalid_session", "startedAt is required")
	}
	if input.PlannedDuration <= 0 || input.ActualDuration < 0 {
		return nil, apperrors.BadRequest("invalid_duration", "plannedDuration must be positive and actualDuration non-negative")
	}

	actual := input.ActualDuration
	if actual > input.PlannedDuration {
		actual = input.PlannedDuration
	}
	percentage := input.CompletionPercentage
	switch {
	case input.Completed:
		percentage = maxPercentage
	case percentage <= 0:
		percentage = actual * maxPercentage / input.PlannedDuration
	case percentage > maxPercentage:
		percentage = maxPercentage
	}

	session := model.PomodoroSession{
		ID:                   uuid.NewString(),
		UserID:               userID,
		RoomID:               strings.ToUpper(strings.TrimSpace(input.RoomID)),
		Phase:                input.Phase,
		StartedAt:            input.StartedAt.UTC(),
		EndedAt:              input.EndedAt,
		PlannedDuration:      input.PlannedDuration,
		ActualDuration:       actual,
		Completed:            input.Completed,
		CompletionPercentage: percentage,
		Date:                 input.StartedAt.UTC().Format(dateLayout),
		CreatedAt:            s.clock.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, &session); err != nil {
		return nil, apperrors.Internal("failed to record session").WithCause(err)
	}
	return &session, nil
}

// Daily returns one entry per day for the last days days, oldest first,
// counting work sessions only.
func (s *AnalyticsService) Daily(ctx context.Context, userID string, days int) ([]model.DailyAnalytics, *apperrors.APIError) {
	if days <= 0 {
		days = defaultDailyDays
	}
	if days > maxDailyDays {
		days = maxDailyDays
	}

	today := s.clock.Now().UTC()
	from := today.AddDate(0, 0, -(days - 1)).Format(dateLayout)
	to := today.Format(dateLayout)

	sessions, err := s.repo.ListByDateRange(ctx, userID, from, to)
	if err != nil {
		return nil, apperrors.Internal("failed to load sessions").WithCause(err)
	}

	byDate := make(map[string][]model.PomodoroSession)
	for _, session := range sessions {
		if session.Phase != model.PhaseWork {
			continue
		}
		byDate[session.Date] = append(byDate[session.Date], session)
	}

	analytics := make([]model.DailyAnalytics, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := today.AddDate(0, 0, -i).Format(dateLayout)
		analytics = append(analytics, summarizeDay(date, byDate[date]))
	}
	return analytics, nil
}

func summarizeDay(date string, sessions []model.PomodoroSession) model.DailyAnalytics {
	day := model.DailyAnalytics{
		Date:           date,
		TotalPomodoros: len(sessions),
		Sessions:       sessions,
	}
	if day.Sessions == nil {
		day.Sessions = []model.PomodoroSession{}
	}

	var focusSeconds int
	var partialCredit float64
	for _, session := range sessions {
		focusSeconds += session.ActualDuration
		switch {
		case session.Completed:
			day.CompletedPomodoros++
		case session.CompletionPercentage > 0:
			day.PartialPomodoros++
			partialCredit += float64(session.CompletionPercentage) / maxPercentage
		}
	}

	day.TotalFocusMinutes = math.Round(float64(focusSeconds)/60*focusMinutesScale) / focusMinutesScale
	if day.TotalPomodoros > 0 {
		credit := float64(day.CompletedPomodoros) + partialCredit
		day.CompletionRate = int(math.Round(credit / float64(day.TotalPomodoros) * maxPercentage))
	}
	return day
}
