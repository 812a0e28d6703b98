// Package availability owns the per-date availability state of one worker
// session and reconciles it with externally-imposed busy dates.
package availability

import (
	"fmt"
	"iter"
	"sort"

	"smena/internal/model"
)

// Store maps calendar dates to day records. One instance belongs to one
// active user session; it is mutated only by synchronous calls and is not
// shared across goroutines.
type Store struct {
	days  map[model.Date]model.DayRecord
	today func() model.Date
}

// NewStore builds an empty store. today supplies the immutability cutoff for
// edits; it is a func so tests can pin it.
func NewStore(today func() model.Date) *Store {
	return &Store{
		days:  make(map[model.Date]model.DayRecord),
		today: today,
	}
}

// Get returns a copy of the record for date, if one exists.
func (s *Store) Get(date model.Date) (model.DayRecord, bool) {
	rec, ok := s.days[date]
	if !ok {
		return model.DayRecord{}, false
	}
	return rec.Clone(), true
}

// Len returns the number of dates holding a record.
func (s *Store) Len() int {
	return len(s.days)
}

// SetDate upserts the record for date. Dates strictly before today are
// immutable and rejected with model.ErrPastDate.
func (s *Store) SetDate(date model.Date, rec model.DayRecord) error {
	if err := s.checkEditable(date); err != nil {
		return err
	}
	rec.Date = date
	s.days[date] = rec.Clone()
	return nil
}

// ClearDate deletes the record entirely, leaving the date unset. This is
// distinct from marking it unavailable, which keeps an explicit record.
func (s *Store) ClearDate(date model.Date) error {
	if err := s.checkEditable(date); err != nil {
		return err
	}
	delete(s.days, date)
	return nil
}

// BatchFailure reports one date that a batch operation could not apply.
type BatchFailure struct {
	Date model.Date
	Err  error
}

// BatchResult collects the outcome of a batch edit. Each date is processed
// independently; failures never abort the rest of the set.
type BatchResult struct {
	Applied []model.Date
	Failed  []BatchFailure
}

// BatchMarkAvailable marks every date in the set available with a single
// interval spanning start-end. Every date gets its own interval id.
func (s *Store) BatchMarkAvailable(dates []model.Date, start, end string) (BatchResult, error) {
	if err := model.ValidateClockRange(start, end); err != nil {
		return BatchResult{}, err
	}
	var res BatchResult
	for _, date := range sortedDates(dates) {
		iv, err := model.NewInterval(start, end)
		if err != nil {
			return res, err
		}
		rec := model.NewDayRecord(date)
		if err := rec.AddInterval(iv); err != nil {
			return res, err
		}
		if err := s.SetDate(date, rec); err != nil {
			res.Failed = append(res.Failed, BatchFailure{Date: date, Err: err})
			continue
		}
		res.Applied = append(res.Applied, date)
	}
	return res, nil
}

// BatchMarkUnavailable writes an explicit not-available record for every
// date in the set.
func (s *Store) BatchMarkUnavailable(dates []model.Date) BatchResult {
	var res BatchResult
	for _, date := range sortedDates(dates) {
		rec := model.NewDayRecord(date)
		rec.SetUnavailable()
		if err := s.SetDate(date, rec); err != nil {
			res.Failed = append(res.Failed, BatchFailure{Date: date, Err: err})
			continue
		}
		res.Applied = append(res.Applied, date)
	}
	return res
}

// MergeProjection installs the projector's output, overwriting exactly the
// supplied dates and leaving every other record untouched.
func (s *Store) MergeProjection(records []model.DayRecord) int {
	merged := 0
	for _, rec := range records {
		if err := s.SetDate(rec.Date, rec); err != nil {
			// The projector never emits past dates; skip defensively.
			continue
		}
		merged++
	}
	return merged
}

// Upcoming yields available day records with date >= from in ascending date
// order, at most limit of them. The sequence is lazy and finite.
func (s *Store) Upcoming(from model.Date, limit int) iter.Seq[model.DayRecord] {
	return func(yield func(model.DayRecord) bool) {
		if limit <= 0 {
			return
		}
		dates := make([]model.Date, 0, len(s.days))
		for date := range s.days {
			dates = append(dates, date)
		}
		emitted := 0
		for _, date := range sortedDates(dates) {
			if date.Before(from) {
				continue
			}
			rec := s.days[date]
			if !rec.Available {
				continue
			}
			if !yield(rec.Clone()) {
				return
			}
			emitted++
			if emitted >= limit {
				return
			}
		}
	}
}

// Snapshot returns a copy of every stored record, keyed by date.
func (s *Store) Snapshot() map[model.Date]model.DayRecord {
	out := make(map[model.Date]model.DayRecord, len(s.days))
	for date, rec := range s.days {
		out[date] = rec.Clone()
	}
	return out
}

func (s *Store) checkEditable(date model.Date) error {
	if date.Before(s.today()) {
		return fmt.Errorf("%w: %s", model.ErrPastDate, date)
	}
	return nil
}

func sortedDates(dates []model.Date) []model.Date {
	out := append([]model.Date(nil), dates...)
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
