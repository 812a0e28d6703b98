package bot

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"smena/internal/availability"
	"smena/internal/engine"
	"smena/internal/export"
	"smena/internal/model"
)

// statusMark is the calendar cell prefix for a day status.
func statusMark(st availability.DayStatus) string {
	switch st {
	case availability.StatusBusy:
		return "🔒"
	case availability.StatusAvailable:
		return "✅"
	case availability.StatusUnavailable:
		return "✖"
	default:
		return ""
	}
}

// GenerateCalendarKeyboard builds an inline keyboard for a given month.
// Each cell carries its day status; selected dates (batch mode) get a check
// marker instead.
func GenerateCalendarKeyboard(year int, month time.Month, snaps []engine.DaySnapshot, selected map[model.Date]bool) tgbotapi.InlineKeyboardMarkup {
	firstDay := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	weekdayOffset := int(firstDay.Weekday())
	if weekdayOffset == 0 {
		weekdayOffset = 7 // make Monday-first grid
	}
	daysInMonth := model.DaysInMonth(year, month)

	byDay := make(map[int]engine.DaySnapshot, len(snaps))
	for _, snap := range snaps {
		byDay[snap.Date.Day] = snap
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0)
	// Month header with prev/next navigation
	prev := firstDay.AddDate(0, -1, 0)
	next := firstDay.AddDate(0, 1, 0)
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("‹", fmt.Sprintf("cal:%04d-%02d", prev.Year(), int(prev.Month()))),
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %d", export.MonthNames[month], year), "noop"),
		tgbotapi.NewInlineKeyboardButtonData("›", fmt.Sprintf("cal:%04d-%02d", next.Year(), int(next.Month()))),
	})

	// Weekday header
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("Пн", "noop"),
		tgbotapi.NewInlineKeyboardButtonData("Вт", "noop"),
		tgbotapi.NewInlineKeyboardButtonData("Ср", "noop"),
		tgbotapi.NewInlineKeyboardButtonData("Чт", "noop"),
		tgbotapi.NewInlineKeyboardButtonData("Пт", "noop"),
		tgbotapi.NewInlineKeyboardButtonData("Сб", "noop"),
		tgbotapi.NewInlineKeyboardButtonData("Вс", "noop"),
	})

	day := 1
	for day <= daysInMonth {
		row := make([]tgbotapi.InlineKeyboardButton, 0, 7)
		for col := 1; col <= 7; col++ {
			if len(rows) == 2 && col < weekdayOffset {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", "noop"))
				continue
			}
			if day > daysInMonth {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", "noop"))
				continue
			}
			date := model.Date{Year: year, Month: month, Day: day}
			label := fmt.Sprintf("%d", day)
			if selected[date] {
				label = "☑" + label
			} else if mark := statusMark(byDay[day].Status); mark != "" {
				label = mark + label
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("date:%s", date)))
			day++
		}
		rows = append(rows, row)
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Меню", "menu"),
	})

	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// GenerateTimeKeyboard builds an inline keyboard over the bounded quick-pick
// times, grouped in rows of 4.
func GenerateTimeKeyboard(prefix string, times []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0)
	var currentRow []tgbotapi.InlineKeyboardButton
	for _, t := range times {
		currentRow = append(currentRow, tgbotapi.NewInlineKeyboardButtonData(t, fmt.Sprintf("%s:%s", prefix, t)))
		if len(currentRow) == 4 {
			rows = append(rows, currentRow)
			currentRow = nil
		}
	}
	if len(currentRow) > 0 {
		rows = append(rows, currentRow)
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", "cancel"),
	})
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// LaterTimes returns quick-pick times strictly after start, for end pickers.
func LaterTimes(start string) []string {
	cutoff, err := model.ClockMinutes(start)
	if err != nil {
		return model.QuickPickTimes
	}
	var out []string
	for _, t := range model.QuickPickTimes {
		if m, err := model.ClockMinutes(t); err == nil && m > cutoff {
			out = append(out, t)
		}
	}
	return out
}
