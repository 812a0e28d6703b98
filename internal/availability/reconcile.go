package availability

import "smena/internal/model"

// DayStatus is the presentation-level state of one calendar date.
type DayStatus string

const (
	StatusBusy        DayStatus = "busy"        // confirmed job assignment
	StatusAvailable   DayStatus = "available"   // declared available
	StatusUnavailable DayStatus = "unavailable" // explicitly not available
	StatusPast        DayStatus = "past"        // before today, no record
	StatusUnset       DayStatus = "unset"       // nothing declared
)

// Decorate resolves the displayed status for a date. An assignment always
// wins over stored availability; stored records are never mutated here and
// assignment dates are never written back as availability.
func Decorate(date model.Date, rec *model.DayRecord, assignments map[model.Date]model.Assignment, today model.Date) DayStatus {
	if _, busy := assignments[date]; busy {
		return StatusBusy
	}
	if rec != nil {
		if rec.Available {
			return StatusAvailable
		}
		return StatusUnavailable
	}
	if date.Before(today) {
		return StatusPast
	}
	return StatusUnset
}
