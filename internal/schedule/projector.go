// Package schedule holds the weekly-template side of the availability
// engine: projecting the template onto concrete months and persisting it
// through the schedule store.
package schedule

import (
	"time"

	"smena/internal/model"
)

// ProjectMonth expands the weekly template onto every date of the month.
// Dates strictly before today are never projected; disabled weekdays emit no
// record at all, which is distinct from explicit unavailability. Each emitted
// record carries one copy of the slot's interval with a fresh id.
//
// Projection is idempotent for a fixed template and today: the caller merges
// the result by overwriting exactly the produced dates and nothing else.
func ProjectMonth(tmpl model.WeekTemplate, year int, month time.Month, today model.Date) []model.DayRecord {
	days := model.DaysInMonth(year, month)
	out := make([]model.DayRecord, 0, days)

	for day := 1; day <= days; day++ {
		date := model.Date{Year: year, Month: month, Day: day}
		if date.Before(today) {
			continue
		}
		slot := tmpl[date.Weekday()]
		if !slot.Enabled {
			continue
		}
		iv, err := model.NewInterval(slot.Start, slot.End)
		if err != nil {
			// Enabled slots are validated on the way in; skip rather
			// than emit a corrupt record.
			continue
		}
		out = append(out, model.DayRecord{
			Date:      date,
			Available: true,
			Intervals: []model.Interval{iv},
		})
	}
	return out
}
