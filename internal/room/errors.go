package room

import "errors"

var (
	ErrNotFound           = errors.New("room not found")
	ErrFull               = errors.New("room is full")
	ErrForbidden          = errors.New("only the host can do that")
	ErrConflict           = errors.New("room state changed")
	ErrInvalid            = errors.New("invalid room input")
	ErrCodeSpaceExhausted = errors.New("no free room code")
)
