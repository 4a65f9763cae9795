package model

import "errors"

// Callers classify failures with errors.Is against these.
var (
	ErrValidation = errors.New("validation failed")
	ErrPastDate   = errors.New("cannot book meetings in the past")
	ErrOutOfHours = errors.New("selected time is not within available hours")
	ErrConflict   = errors.New("time slot is already booked")
	ErrNotFound   = errors.New("not found")
	ErrTransient  = errors.New("temporarily unavailable, retry")
)
