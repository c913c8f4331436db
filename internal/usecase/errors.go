package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUserNotFound    = errors.New("user not found")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrPollInactive    = errors.New("poll is not active")

	ErrPollNotFound         = fmt.Errorf("poll %w", ErrNotFound)
	ErrOptionNotFound       = fmt.Errorf("option for this poll %w", ErrNotFound)
	ErrPresentationNotFound = fmt.Errorf("presentation state %w", ErrNotFound)

	ErrInvalidTransition  = errors.New("invalid presentation transition")
	ErrSessionEnded       = fmt.Errorf("session has ended: %w", ErrInvalidTransition)
	ErrAlreadyInitialized = errors.New("presentation state already initialized")
)

// Store invariant violations. They never reach callers under correct allocation.
var (
	ErrDuplicateKey = errors.New("duplicate primary key")
	ErrRowNotFound  = errors.New("row to update not found")
)

// IsInternal reports whether err is a store invariant violation rather than a validation failure.
func IsInternal(err error) bool {
	return errors.Is(err, ErrDuplicateKey) || errors.Is(err, ErrRowNotFound)
}
