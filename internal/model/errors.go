package model

import "errors"

var (
	ErrInvalidInterval = errors.New("interval start must be before end")
	ErrOverlap         = errors.New("interval overlaps an existing one")
	ErrPastDate        = errors.New("cannot edit a past date")
	ErrPersistence     = errors.New("schedule store unavailable")
)
