package model

import (
	"fmt"
	"sort"
)

// DayRecord is the availability state of one calendar date.
//
// Invariants: when Available is false, Intervals is empty; when Available is
// true, Intervals is non-empty, pairwise non-overlapping and sorted by start.
type DayRecord struct {
	Date      Date       `json:"date"`
	Available bool       `json:"available"`
	Intervals []Interval `json:"intervals,omitempty"`
}

// NewDayRecord returns an empty record for date.
func NewDayRecord(date Date) DayRecord {
	return DayRecord{Date: date}
}

// Clone returns a deep copy of the record.
func (r DayRecord) Clone() DayRecord {
	out := r
	if r.Intervals != nil {
		out.Intervals = append([]Interval(nil), r.Intervals...)
	}
	return out
}

// Empty reports whether the record carries no intervals.
func (r DayRecord) Empty() bool {
	return len(r.Intervals) == 0
}

// SetUnavailable marks the day as explicitly not available and drops all
// intervals. Always succeeds.
func (r *DayRecord) SetUnavailable() {
	r.Available = false
	r.Intervals = nil
}

// AddInterval inserts iv keeping the interval set sorted by start time.
// Returns ErrOverlap when iv intersects an existing interval; an interval
// with the same id is excluded from the check so in-place resize works.
func (r *DayRecord) AddInterval(iv Interval) error {
	for _, existing := range r.Intervals {
		if existing.ID == iv.ID {
			continue
		}
		if existing.Overlaps(iv) {
			return fmt.Errorf("%w: %s-%s intersects %s-%s",
				ErrOverlap, iv.Start, iv.End, existing.Start, existing.End)
		}
	}
	r.Intervals = append(r.Intervals, iv)
	r.sortIntervals()
	r.Available = true
	return nil
}

// RemoveInterval removes the interval with the given id. The caller is
// responsible for deleting the whole record when it becomes empty.
func (r *DayRecord) RemoveInterval(id string) bool {
	for i, iv := range r.Intervals {
		if iv.ID == id {
			r.Intervals = append(r.Intervals[:i], r.Intervals[i+1:]...)
			return true
		}
	}
	return false
}

// UpdateInterval resizes the interval with the given id. The overlap check
// excludes the interval itself; on failure the record is left unchanged.
func (r *DayRecord) UpdateInterval(id, newStart, newEnd string) error {
	if err := ValidateClockRange(newStart, newEnd); err != nil {
		return err
	}
	idx := -1
	for i, iv := range r.Intervals {
		if iv.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("interval %s not found on %s", id, r.Date)
	}
	candidate := Interval{ID: id, Start: newStart, End: newEnd}
	for i, existing := range r.Intervals {
		if i == idx {
			continue
		}
		if existing.Overlaps(candidate) {
			return fmt.Errorf("%w: %s-%s intersects %s-%s",
				ErrOverlap, newStart, newEnd, existing.Start, existing.End)
		}
	}
	r.Intervals[idx] = candidate
	r.sortIntervals()
	return nil
}

func (r *DayRecord) sortIntervals() {
	sort.Slice(r.Intervals, func(i, j int) bool {
		a, _ := ClockMinutes(r.Intervals[i].Start)
		b, _ := ClockMinutes(r.Intervals[j].Start)
		return a < b
	})
}
