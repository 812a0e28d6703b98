package export

import (
	"fmt"
	"strings"
	"time"

	"smena/internal/availability"
	"smena/internal/engine"
)

var statusLabels = map[availability.DayStatus]string{
	availability.StatusBusy:        "Занят (смена)",
	availability.StatusAvailable:   "Доступен",
	availability.StatusUnavailable: "Недоступен",
	availability.StatusPast:        "Прошло",
	availability.StatusUnset:       "—",
}

// WriteMonth renders one month of day snapshots onto a fresh sheet.
func WriteMonth(w ExcelWriter, year int, month time.Month, snaps []engine.DaySnapshot) error {
	sheet := fmt.Sprintf("%s %d", MonthNames[month], year)
	if err := w.AddSheet(sheet); err != nil {
		return err
	}
	if err := w.WriteHeader([]string{"Дата", "Статус", "Интервалы", "Смена"}); err != nil {
		return err
	}

	for _, snap := range snaps {
		var spans []string
		for _, iv := range snap.Intervals {
			spans = append(spans, fmt.Sprintf("%s–%s", iv.Start, iv.End))
		}
		row := []interface{}{
			snap.Date.String(),
			statusLabels[snap.Status],
			strings.Join(spans, ", "),
			snap.Label,
		}
		if err := w.WriteRow(row); err != nil {
			return fmt.Errorf("write row %s: %w", snap.Date, err)
		}
	}
	return nil
}
