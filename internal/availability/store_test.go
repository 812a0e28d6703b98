package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smena/internal/model"
	"smena/internal/schedule"
)

func fixedToday(s string) func() model.Date {
	d := model.MustDate(s)
	return func() model.Date { return d }
}

func availableRecord(t *testing.T, date string, start, end string) model.DayRecord {
	t.Helper()
	iv, err := model.NewInterval(start, end)
	require.NoError(t, err)
	rec := model.NewDayRecord(model.MustDate(date))
	require.NoError(t, rec.AddInterval(iv))
	return rec
}

func TestStore_SetDateRejectsPast(t *testing.T) {
	store := NewStore(fixedToday("2025-08-10"))

	err := store.SetDate(model.MustDate("2025-08-09"), availableRecord(t, "2025-08-09", "09:00", "12:00"))
	assert.ErrorIs(t, err, model.ErrPastDate)
	assert.Equal(t, 0, store.Len())

	// Today itself is editable.
	require.NoError(t, store.SetDate(model.MustDate("2025-08-10"), availableRecord(t, "2025-08-10", "09:00", "12:00")))
	assert.Equal(t, 1, store.Len())
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store := NewStore(fixedToday("2025-08-01"))
	require.NoError(t, store.SetDate(model.MustDate("2025-08-04"), availableRecord(t, "2025-08-04", "09:00", "12:00")))

	rec, ok := store.Get(model.MustDate("2025-08-04"))
	require.True(t, ok)
	rec.SetUnavailable()

	again, ok := store.Get(model.MustDate("2025-08-04"))
	require.True(t, ok)
	assert.True(t, again.Available)
}

func TestStore_BatchMarkAvailable_PartialFailure(t *testing.T) {
	store := NewStore(fixedToday("2025-08-10"))
	dates := []model.Date{
		model.MustDate("2025-08-12"),
		model.MustDate("2025-08-05"), // past
		model.MustDate("2025-08-11"),
	}

	res, err := store.BatchMarkAvailable(dates, "09:00", "17:00")
	require.NoError(t, err)
	require.Len(t, res.Applied, 2)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, model.MustDate("2025-08-05"), res.Failed[0].Date)
	assert.ErrorIs(t, res.Failed[0].Err, model.ErrPastDate)

	// Applied dates each carry their own interval id.
	a, _ := store.Get(model.MustDate("2025-08-11"))
	b, _ := store.Get(model.MustDate("2025-08-12"))
	assert.NotEqual(t, a.Intervals[0].ID, b.Intervals[0].ID)

	_, err = store.BatchMarkAvailable(dates, "17:00", "09:00")
	assert.ErrorIs(t, err, model.ErrInvalidInterval)
}

func TestStore_BatchMarkUnavailable(t *testing.T) {
	store := NewStore(fixedToday("2025-08-10"))
	res := store.BatchMarkUnavailable([]model.Date{
		model.MustDate("2025-08-11"),
		model.MustDate("2025-08-01"), // past
	})
	require.Len(t, res.Applied, 1)
	require.Len(t, res.Failed, 1)

	rec, ok := store.Get(model.MustDate("2025-08-11"))
	require.True(t, ok)
	assert.False(t, rec.Available)
	assert.Empty(t, rec.Intervals)
}

func TestStore_ClearDate(t *testing.T) {
	store := NewStore(fixedToday("2025-08-01"))
	date := model.MustDate("2025-08-04")
	require.NoError(t, store.SetDate(date, availableRecord(t, "2025-08-04", "09:00", "12:00")))

	require.NoError(t, store.ClearDate(date))
	_, ok := store.Get(date)
	assert.False(t, ok)

	assert.ErrorIs(t, store.ClearDate(model.MustDate("2025-07-01")), model.ErrPastDate)
}

func TestStore_MergeProjection_OverwritesOnlyProjectedDates(t *testing.T) {
	store := NewStore(fixedToday("2025-08-01"))

	// Hand-edited Tuesday stays; projected Mondays get overwritten.
	handEdited := model.MustDate("2025-08-05")
	require.NoError(t, store.SetDate(handEdited, availableRecord(t, "2025-08-05", "20:00", "22:00")))

	var tmpl model.WeekTemplate
	require.NoError(t, tmpl.SetDay(time.Monday, true, "09:00", "17:00"))

	merged := store.MergeProjection(schedule.ProjectMonth(tmpl, 2025, time.August, model.MustDate("2025-08-01")))
	assert.Equal(t, 4, merged)
	assert.Equal(t, 5, store.Len())

	rec, ok := store.Get(handEdited)
	require.True(t, ok)
	assert.Equal(t, "20:00", rec.Intervals[0].Start)
}

func TestStore_MergeProjection_Idempotent(t *testing.T) {
	store := NewStore(fixedToday("2025-08-01"))
	var tmpl model.WeekTemplate
	require.NoError(t, tmpl.SetDay(time.Monday, true, "09:00", "17:00"))
	today := model.MustDate("2025-08-01")

	store.MergeProjection(schedule.ProjectMonth(tmpl, 2025, time.August, today))
	once := store.Len()
	store.MergeProjection(schedule.ProjectMonth(tmpl, 2025, time.August, today))

	assert.Equal(t, once, store.Len())
	for date, rec := range store.Snapshot() {
		assert.True(t, rec.Available, "date %s", date)
		assert.Len(t, rec.Intervals, 1)
	}
}

func TestStore_Upcoming(t *testing.T) {
	store := NewStore(fixedToday("2025-08-01"))
	for _, d := range []string{"2025-08-20", "2025-08-04", "2025-08-12"} {
		require.NoError(t, store.SetDate(model.MustDate(d), availableRecord(t, d, "09:00", "12:00")))
	}
	unavailable := model.NewDayRecord(model.MustDate("2025-08-06"))
	unavailable.SetUnavailable()
	require.NoError(t, store.SetDate(model.MustDate("2025-08-06"), unavailable))

	var got []string
	for rec := range store.Upcoming(model.MustDate("2025-08-05"), 2) {
		got = append(got, rec.Date.String())
	}
	assert.Equal(t, []string{"2025-08-12", "2025-08-20"}, got)

	// Early break is honored.
	count := 0
	for range store.Upcoming(model.MustDate("2025-01-01"), 10) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}
