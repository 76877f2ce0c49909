package room

import (
	"fmt"

	"pomodoro/collab/internal/model"
)

// Check is a precondition evaluated inside a room's critical section, after
// pending phase transitions are resolved and before the mutation runs.
type Check func(r *model.Room) error

func RequireHost(userID string) Check {
	return func(r *model.Room) error {
		if userID == "" || r.HostID != userID {
			return ErrForbidden
		}
		return nil
	}
}

// ExpectVersion fails with ErrConflict when the room moved past version.
// A zero version disables the check.
func ExpectVersion(version int) Check {
	return func(r *model.Room) error {
		if version <= 0 || version == r.Version {
			return nil
		}
		return fmt.Errorf("%w: expected version %d, room is at %d", ErrConflict, version, r.Version)
	}
}
