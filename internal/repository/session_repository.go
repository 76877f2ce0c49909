package repository

import (
	"context"
	"database/sql"
	"fmt"

	"pomodoro/collab/internal/model"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Insert(ctx context.Context, session *model.PomodoroSession) error {
	var endedAt interface{}
	if session.EndedAt != nil {
		endedAt = formatTime(*session.EndedAt)
	}
	var roomID interface{}
	if session.RoomID != "" {
		roomID = session.RoomID
	}

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO pomodoro_sessions (
			id, user_id, room_id, phase, planned_duration_seconds, actual_duration_seconds,
			started_at, ended_at, completed, completion_percentage, session_date, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		roomID,
		string(session.Phase),
		session.PlannedDuration,
		session.ActualDuration,
		formatTime(session.StartedAt),
		endedAt,
		session.Completed,
		session.CompletionPercentage,
		session.Date,
		formatTime(session.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// ListByDateRange returns the user's sessions whose date falls in [from, to],
// both formatted YYYY-MM-DD, oldest first.
func (r *SessionRepository) ListByDateRange(ctx context.Context, userID, from, to string) ([]model.PomodoroSession, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, user_id, room_id, phase, planned_duration_seconds, actual_duration_seconds,
		        started_at, ended_at, completed, completion_percentage, session_date, created_at
		 FROM pomodoro_sessions
		 WHERE user_id = ? AND session_date >= ? AND session_date <= ?
		 ORDER BY started_at ASC`,
		userID,
		from,
		to,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.PomodoroSession, 0)
	for rows.Next() {
		session, scanErr := scanPomodoroSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPomodoroSession(s scanner) (*model.PomodoroSession, error) {
	session := model.PomodoroSession{}
	var roomID sql.NullString
	var phase string
	var startedAt string
	var endedAt sql.NullString
	var createdAt string
	err := s.Scan(
		&session.ID,
		&session.UserID,
		&roomID,
		&phase,
		&session.PlannedDuration,
		&session.ActualDuration,
		&startedAt,
		&endedAt,
		&session.Completed,
		&session.CompletionPercentage,
		&session.Date,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	session.Phase = model.Phase(phase)
	if roomID.Valid {
		session.RoomID = roomID.String
	}

	parsedStartedAt, err := parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse session started_at: %w", err)
	}
	session.StartedAt = parsedStartedAt

	if endedAt.Valid {
		parsedEndedAt, parseErr := parseTime(endedAt.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse session ended_at: %w", parseErr)
		}
		session.EndedAt = &parsedEndedAt
	}

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse session created_at: %w", err)
	}
	session.CreatedAt = parsedCreatedAt

	return &session, nil
}
