package domain

import "errors"

var (
	ErrUnknownMood      = errors.New("unknown mood")
	ErrInvalidSignals   = errors.New("invalid signal payload")
	ErrSessionNotFound  = errors.New("session not found")
	ErrStateUnavailable = errors.New("persisted state unavailable")
)
