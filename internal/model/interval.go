package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Interval is a contiguous time-of-day range on HH:MM granularity.
type Interval struct {
	ID    string `json:"id"`
	Start string `json:"start"` // "09:00"
	End   string `json:"end"`   // "17:00"
}

// NewInterval builds an interval with a fresh id.
// Returns ErrInvalidInterval unless start < end.
func NewInterval(start, end string) (Interval, error) {
	if err := ValidateClockRange(start, end); err != nil {
		return Interval{}, err
	}
	return Interval{ID: uuid.NewString(), Start: start, End: end}, nil
}

// Overlaps reports whether the two intervals intersect.
// Touching intervals (a.End == b.Start) do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	a1, _ := ClockMinutes(iv.Start)
	a2, _ := ClockMinutes(iv.End)
	b1, _ := ClockMinutes(other.Start)
	b2, _ := ClockMinutes(other.End)
	return a1 < b2 && b1 < a2
}

// ClockMinutes converts an "HH:MM" string to minutes since midnight.
func ClockMinutes(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// ValidateClockRange checks that both times parse and start < end.
func ValidateClockRange(start, end string) error {
	s, err := ClockMinutes(start)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInterval, err)
	}
	e, err := ClockMinutes(end)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInterval, err)
	}
	if s >= e {
		return fmt.Errorf("%w: %s >= %s", ErrInvalidInterval, start, end)
	}
	return nil
}
