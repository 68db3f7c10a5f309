package scheduler

import "errors"

// ErrSchedulerStopped is returned by schedule calls made after Stop.
var ErrSchedulerStopped = errors.New("scheduler is stopped")

// ErrTickDriverUnavailable is returned when a scheduler is asked to
// advance but has no active tick driver wired in.
var ErrTickDriverUnavailable = errors.New("tick driver unavailable")

// ErrInvalidDelay is returned for a negative schedule delay/interval.
var ErrInvalidDelay = errors.New("delay or interval must be non-negative")
