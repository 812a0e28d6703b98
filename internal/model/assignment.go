package model

// Assignment is a date the worker is already committed to through a
// confirmed job. Read-only data from the platform; never stored as
// availability.
type Assignment struct {
	Date  Date   `json:"date"`
	Label string `json:"label"`
}

// AssignmentIndex builds a by-date lookup. The last assignment wins when the
// platform reports several for one date.
func AssignmentIndex(list []Assignment) map[Date]Assignment {
	idx := make(map[Date]Assignment, len(list))
	for _, a := range list {
		idx[a.Date] = a
	}
	return idx
}
