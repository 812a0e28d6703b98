package model

import (
	"fmt"
	"time"
)

// TemplateSlot is one day-of-week entry of the weekly template: either
// disabled, or enabled with a single default interval.
type TemplateSlot struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
}

// WeekTemplate is the recurring default schedule, indexed by time.Weekday
// (0 = Sunday).
type WeekTemplate [7]TemplateSlot

// SetDay enables or disables one weekday. When enabling, start < end is
// required and ErrInvalidInterval is returned otherwise.
func (t *WeekTemplate) SetDay(dow time.Weekday, enabled bool, start, end string) error {
	if dow < time.Sunday || dow > time.Saturday {
		return fmt.Errorf("invalid day of week %d", dow)
	}
	if !enabled {
		t[dow] = TemplateSlot{}
		return nil
	}
	if err := ValidateClockRange(start, end); err != nil {
		return err
	}
	t[dow] = TemplateSlot{Enabled: true, Start: start, End: end}
	return nil
}

// ScheduleRow is the per-weekday shape exchanged with the schedule store.
type ScheduleRow struct {
	DayOfWeek   int     `json:"day_of_week"` // 0-6, Sunday first
	IsAvailable bool    `json:"is_available"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
}

// ToRows emits exactly one row per weekday, null times when disabled.
func (t WeekTemplate) ToRows() []ScheduleRow {
	rows := make([]ScheduleRow, 0, 7)
	for dow, slot := range t {
		row := ScheduleRow{DayOfWeek: dow, IsAvailable: slot.Enabled}
		if slot.Enabled {
			start, end := slot.Start, slot.End
			row.StartTime = &start
			row.EndTime = &end
		}
		rows = append(rows, row)
	}
	return rows
}

// TemplateFromRows rebuilds a template from schedule store rows. Missing or
// malformed days default to disabled.
func TemplateFromRows(rows []ScheduleRow) WeekTemplate {
	var t WeekTemplate
	for _, row := range rows {
		if row.DayOfWeek < 0 || row.DayOfWeek > 6 {
			continue
		}
		if !row.IsAvailable || row.StartTime == nil || row.EndTime == nil {
			continue
		}
		if err := ValidateClockRange(*row.StartTime, *row.EndTime); err != nil {
			continue
		}
		t[row.DayOfWeek] = TemplateSlot{Enabled: true, Start: *row.StartTime, End: *row.EndTime}
	}
	return t
}

// QuickPickTimes is the bounded set of times offered by the template quick
// editor, every half hour from 06:00 through 23:00.
var QuickPickTimes = buildQuickPickTimes()

func buildQuickPickTimes() []string {
	out := make([]string, 0, 35)
	for m := 6 * 60; m <= 23*60; m += 30 {
		out = append(out, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return out
}
