package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	apperrors "pomodoro/collab/internal/errors"
	"pomodoro/collab/internal/model"
	"pomodoro/collab/internal/room"
)

const anonymousName = "Anonymous"

type Action string

const (
	ActionJoin  Action = "join"
	ActionLeave Action = "leave"
	ActionStart Action = "start"
	ActionPause Action = "pause"
	ActionReset Action = "reset"
	ActionSkip  Action = "skip"
	ActionEnd   Action = "end"
)

// hostOnly actions change the shared timer or the room's existence.
func (a Action) hostOnly() bool {
	switch a {
	case ActionStart, ActionPause, ActionReset, ActionSkip, ActionEnd:
		return true
	default:
		return false
	}
}

type RoomService struct {
	store *room.Store
}

type CreateRoomInput struct {
	HostID    string
	HostName  string
	Name      string
	Settings  *model.SettingsPatch
	Inherited *model.InheritedTimerState
}

type ActionInput struct {
	Action      Action
	UserID      string
	UserName    string
	BaseVersion int
}

// ActionResult carries the room after the action, or only Success for
// actions after which the caller may no longer see the room.
type ActionResult struct {
	Room    *model.RoomResponse
	Success bool
}

func NewRoomService(store *room.Store) *RoomService {
	return &RoomService{store: store}
}

func (s *RoomService) Create(ctx context.Context, input CreateRoomInput) (*model.RoomResponse, *apperrors.APIError) {
	hostID := strings.TrimSpace(input.HostID)
	name := strings.TrimSpace(input.Name)
	if hostID == "" || name == "" {
		return nil, apperrors.BadRequest("invalid_request", "hostId and name are required")
	}
	if input.Inherited != nil {
		if !input.Inherited.Phase.Valid() || !input.Inherited.Status.Valid() || input.Inherited.TimeRemaining < 0 {
			return nil, apperrors.BadRequest("invalid_timer_state", "inherited timer state is malformed")
		}
	}

	created, err := s.store.Create(room.CreateParams{
		HostID:    hostID,
		HostName:  displayName(input.HostName),
		Name:      name,
		Settings:  input.Settings,
		Inherited: input.Inherited,
	})
	if err != nil {
		return nil, roomError(err, nil)
	}

	zerolog.Ctx(ctx).Info().
		Str("room_id", created.ID).
		Str("host_id", created.HostID).
		Bool("inherited", input.Inherited != nil).
		Msg("room created")
	return &created, nil
}

func (s *RoomService) Get(_ context.Context, roomID string) (*model.RoomResponse, *apperrors.APIError) {
	roomID = normalizeRoomID(roomID)
	if !room.ValidCode(roomID) {
		return nil, roomError(room.ErrNotFound, nil)
	}
	got, err := s.store.Get(roomID)
	if err != nil {
		return nil, roomError(err, nil)
	}
	return &got, nil
}

func (s *RoomService) List(_ context.Context) []model.RoomResponse {
	return s.store.List()
}

// Act applies one room action on behalf of input.UserID. Timer controls and
// end are reserved to the current host.
func (s *RoomService) Act(ctx context.Context, roomID string, input ActionInput) (*ActionResult, *apperrors.APIError) {
	roomID = normalizeRoomID(roomID)
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, apperrors.BadRequest("invalid_request", "userId is required")
	}
	if input.Action != ActionLeave && !room.ValidCode(roomID) {
		return nil, roomError(room.ErrNotFound, nil)
	}

	logger := zerolog.Ctx(ctx).With().
		Str("room_id", roomID).
		Str("user_id", userID).
		Str("action", string(input.Action)).
		Logger()

	var checks []room.Check
	if input.Action.hostOnly() {
		checks = append(checks, room.RequireHost(userID), room.ExpectVersion(input.BaseVersion))
	}

	var (
		resp model.RoomResponse
		err  error
	)
	switch input.Action {
	case ActionJoin:
		resp, err = s.store.Join(roomID, userID, displayName(input.UserName))
	case ActionLeave:
		closed, leaveErr := s.store.Leave(roomID, userID)
		if leaveErr != nil && !errors.Is(leaveErr, room.ErrNotFound) {
			return nil, roomError(leaveErr, nil)
		}
		logger.Info().Bool("room_closed", closed).Msg("participant left room")
		return &ActionResult{Success: true}, nil
	case ActionStart:
		resp, err = s.store.Start(roomID, checks...)
	case ActionPause:
		resp, err = s.store.Pause(roomID, checks...)
	case ActionReset:
		resp, err = s.store.Reset(roomID, checks...)
	case ActionSkip:
		resp, err = s.store.Skip(roomID, checks...)
	case ActionEnd:
		resp, err = s.store.End(roomID, checks...)
		if err == nil {
			logger.Info().Msg("room ended by host")
			return &ActionResult{Success: true}, nil
		}
	default:
		return nil, apperrors.BadRequest("invalid_action", "action must be one of join, leave, start, pause, reset, skip, end")
	}

	if err != nil {
		logger.Debug().Err(err).Msg("room action rejected")
		return nil, roomError(err, &resp)
	}

	logger.Debug().
		Str("phase", string(resp.TimerState.Phase)).
		Str("status", string(resp.TimerState.Status)).
		Int("version", resp.Version).
		Msg("room action applied")
	return &ActionResult{Room: &resp, Success: true}, nil
}

// roomError maps store failures onto API errors. current, when set, is the
// room as it stood when the action was refused.
func roomError(err error, current *model.RoomResponse) *apperrors.APIError {
	switch {
	case errors.Is(err, room.ErrNotFound):
		return apperrors.NotFound("room_not_found", "room not found").WithCause(err)
	case errors.Is(err, room.ErrFull):
		return apperrors.Forbidden("room_full", "room is full").WithCause(err)
	case errors.Is(err, room.ErrForbidden):
		return apperrors.Forbidden("forbidden", "only the host can control the timer").WithCause(err)
	case errors.Is(err, room.ErrConflict):
		apiErr := apperrors.Conflict("state_conflict", "room changed since your last update", nil).WithCause(err)
		if current != nil && current.ID != "" {
			apiErr.Details = map[string]interface{}{"room": current}
		}
		return apiErr
	case errors.Is(err, room.ErrInvalid):
		return apperrors.BadRequest("invalid_settings", err.Error()).WithCause(err)
	case errors.Is(err, room.ErrCodeSpaceExhausted):
		return apperrors.Unavailable("room_capacity", "no room codes available, try again").WithCause(err)
	default:
		return apperrors.Internal("room operation failed").WithCause(err)
	}
}

func normalizeRoomID(roomID string) string {
	return strings.ToUpper(strings.TrimSpace(roomID))
}

func displayName(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return anonymousName
}
