package model

import "errors"

var (
	// ErrNameRequired is returned when a session creation request is missing the name.
	ErrNameRequired = errors.New("name is required")

	// ErrSessionNotFound is returned when a session is not found.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionBusy is returned when a session is already executing a command.
	ErrSessionBusy = errors.New("session is busy")

	// ErrTabNotFound is returned when a tab is not found in a session.
	ErrTabNotFound = errors.New("tab not found")
)
