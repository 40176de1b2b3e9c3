package domain

import "errors"

var (
	ErrDuplicateRule       = errors.New("duplicate rule")
	ErrInvalidRule         = errors.New("invalid rule")
	ErrInvalidDevice       = errors.New("invalid device descriptor")
	ErrSessionNotFound     = errors.New("live-sync session not found")
	ErrNotificationTimeout = errors.New("notification timeout")
	ErrDebuggerPortTimeout = errors.New("debugger port timeout")
)
