// Package engine ties the availability store, the weekly template and the
// busy-date overlay into the command/query surface the calendar picker
// drives. One Engine serves one user session and dies with it.
package engine

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"

	"smena/internal/availability"
	"smena/internal/metrics"
	"smena/internal/model"
	"smena/internal/schedule"
)

// AssignmentSource supplies dates the worker is already committed to.
// Polled on screen entry; results are overlay-only and never persisted.
type AssignmentSource interface {
	Assignments(ctx context.Context, from, to model.Date) ([]model.Assignment, error)
}

// DaySnapshot is what the picker renders for one date.
type DaySnapshot struct {
	Date      model.Date             `json:"date"`
	Status    availability.DayStatus `json:"status"`
	Intervals []model.Interval       `json:"intervals,omitempty"`
	Label     string                 `json:"label,omitempty"` // assignment label when busy
}

// Engine is single-threaded by construction: all calls arrive from the one
// chat-update goroutine that owns the session, so no internal locking.
type Engine struct {
	store       *availability.Store
	template    model.WeekTemplate
	adapter     *schedule.Adapter
	source      AssignmentSource
	assignments map[model.Date]model.Assignment
	today       func() model.Date
	logger      zerolog.Logger
}

// New builds an engine with an empty store and a disabled template. source
// may be nil when the platform is not configured; no busy overlay then.
func New(adapter *schedule.Adapter, source AssignmentSource, today func() model.Date, logger zerolog.Logger) *Engine {
	return &Engine{
		store:       availability.NewStore(today),
		adapter:     adapter,
		source:      source,
		assignments: map[model.Date]model.Assignment{},
		today:       today,
		logger:      logger,
	}
}

// LoadTemplate refreshes the weekly template from the schedule store. On
// failure the in-memory template keeps its previous value and the error is
// returned for the caller to surface.
func (e *Engine) LoadTemplate(ctx context.Context) error {
	tmpl, err := e.adapter.Load(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("template load failed, keeping previous")
		return err
	}
	e.template = tmpl
	return nil
}

// SaveTemplate writes the current template through. Local edits are kept on
// failure (optimistic); the caller surfaces the error and may retry.
func (e *Engine) SaveTemplate(ctx context.Context) error {
	if err := e.adapter.Save(ctx, e.template); err != nil {
		metrics.IncTemplateSave("error")
		return err
	}
	metrics.IncTemplateSave("ok")
	return nil
}

// Template returns a copy of the weekly template.
func (e *Engine) Template() model.WeekTemplate {
	return e.template
}

// SetTemplateDay edits one weekday of the template in memory.
func (e *Engine) SetTemplateDay(dow time.Weekday, enabled bool, start, end string) error {
	return e.template.SetDay(dow, enabled, start, end)
}

// RefreshAssignments polls the assignment source for the given range. The
// previous overlay is kept when the poll fails.
func (e *Engine) RefreshAssignments(ctx context.Context, from, to model.Date) error {
	if e.source == nil {
		return nil
	}
	list, err := e.source.Assignments(ctx, from, to)
	if err != nil {
		e.logger.Warn().Err(err).Msg("assignment poll failed, keeping previous overlay")
		return fmt.Errorf("%w: assignments: %v", model.ErrPersistence, err)
	}
	e.assignments = model.AssignmentIndex(list)
	return nil
}

// DayStatus resolves the presentation state of one date.
func (e *Engine) DayStatus(date model.Date) DaySnapshot {
	var recPtr *model.DayRecord
	if rec, ok := e.store.Get(date); ok {
		recPtr = &rec
	}
	snap := DaySnapshot{
		Date:   date,
		Status: availability.Decorate(date, recPtr, e.assignments, e.today()),
	}
	if recPtr != nil {
		snap.Intervals = recPtr.Intervals
	}
	if a, ok := e.assignments[date]; ok {
		snap.Label = a.Label
	}
	return snap
}

// MonthStatuses resolves every date of a month, for calendar rendering.
func (e *Engine) MonthStatuses(year int, month time.Month) []DaySnapshot {
	days := model.DaysInMonth(year, month)
	out := make([]DaySnapshot, 0, days)
	for day := 1; day <= days; day++ {
		out = append(out, e.DayStatus(model.Date{Year: year, Month: month, Day: day}))
	}
	return out
}

// AddInterval adds a slot to a date, creating the day record on first edit.
func (e *Engine) AddInterval(date model.Date, start, end string) (DaySnapshot, error) {
	rec, ok := e.store.Get(date)
	if !ok {
		rec = model.NewDayRecord(date)
	}
	iv, err := model.NewInterval(start, end)
	if err != nil {
		metrics.IncEditRejected("invalid_interval")
		return e.DayStatus(date), err
	}
	if err := rec.AddInterval(iv); err != nil {
		metrics.IncEditRejected("overlap")
		return e.DayStatus(date), err
	}
	if err := e.store.SetDate(date, rec); err != nil {
		metrics.IncEditRejected("past_date")
		return e.DayStatus(date), err
	}
	metrics.IncDayEdit("add_interval")
	return e.DayStatus(date), nil
}

// UpdateInterval resizes one slot in place; no partial update on failure.
func (e *Engine) UpdateInterval(date model.Date, id, start, end string) (DaySnapshot, error) {
	rec, ok := e.store.Get(date)
	if !ok {
		return e.DayStatus(date), fmt.Errorf("no availability declared on %s", date)
	}
	if err := rec.UpdateInterval(id, start, end); err != nil {
		metrics.IncEditRejected("overlap")
		return e.DayStatus(date), err
	}
	if err := e.store.SetDate(date, rec); err != nil {
		metrics.IncEditRejected("past_date")
		return e.DayStatus(date), err
	}
	metrics.IncDayEdit("update_interval")
	return e.DayStatus(date), nil
}

// RemoveInterval drops one slot; when the last slot goes, the whole day
// record is deleted rather than left available with nothing in it.
func (e *Engine) RemoveInterval(date model.Date, id string) (DaySnapshot, error) {
	rec, ok := e.store.Get(date)
	if !ok {
		return e.DayStatus(date), fmt.Errorf("no availability declared on %s", date)
	}
	if !rec.RemoveInterval(id) {
		return e.DayStatus(date), fmt.Errorf("interval %s not found on %s", id, date)
	}
	var err error
	if rec.Empty() {
		err = e.store.ClearDate(date)
	} else {
		err = e.store.SetDate(date, rec)
	}
	if err != nil {
		metrics.IncEditRejected("past_date")
		return e.DayStatus(date), err
	}
	metrics.IncDayEdit("remove_interval")
	return e.DayStatus(date), nil
}

// MarkUnavailable writes an explicit not-available record for the date.
func (e *Engine) MarkUnavailable(date model.Date) (DaySnapshot, error) {
	rec := model.NewDayRecord(date)
	rec.SetUnavailable()
	if err := e.store.SetDate(date, rec); err != nil {
		metrics.IncEditRejected("past_date")
		return e.DayStatus(date), err
	}
	metrics.IncDayEdit("mark_unavailable")
	return e.DayStatus(date), nil
}

// ClearDay deletes the record, returning the date to the unset state.
func (e *Engine) ClearDay(date model.Date) error {
	if err := e.store.ClearDate(date); err != nil {
		metrics.IncEditRejected("past_date")
		return err
	}
	metrics.IncDayEdit("clear_day")
	return nil
}

// BatchMarkAvailable applies one interval to every selected date; failures
// are collected per date, the rest still apply.
func (e *Engine) BatchMarkAvailable(dates []model.Date, start, end string) (availability.BatchResult, error) {
	res, err := e.store.BatchMarkAvailable(dates, start, end)
	if err != nil {
		metrics.IncEditRejected("invalid_interval")
		return res, err
	}
	metrics.AddBatchDates("applied", len(res.Applied))
	metrics.AddBatchDates("failed", len(res.Failed))
	return res, nil
}

// BatchMarkUnavailable marks every selected date explicitly unavailable.
func (e *Engine) BatchMarkUnavailable(dates []model.Date) availability.BatchResult {
	res := e.store.BatchMarkUnavailable(dates)
	metrics.AddBatchDates("applied", len(res.Applied))
	metrics.AddBatchDates("failed", len(res.Failed))
	return res
}

// ApplyTemplateToMonth projects the weekly template onto the month and
// merges the result, overwriting exactly the projected dates. Hand edits on
// those dates are overwritten by design.
func (e *Engine) ApplyTemplateToMonth(year int, month time.Month) int {
	projected := schedule.ProjectMonth(e.template, year, month, e.today())
	merged := e.store.MergeProjection(projected)
	metrics.AddBatchDates("projected", merged)
	return merged
}

// Upcoming yields the next available day records from today on.
func (e *Engine) Upcoming(limit int) iter.Seq[model.DayRecord] {
	return e.store.Upcoming(e.today(), limit)
}
