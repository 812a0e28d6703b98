package bot

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smena/internal/availability"
	"smena/internal/engine"
	"smena/internal/model"
	"smena/internal/schedule"
)

type fakeTelegramClient struct {
	sent []tgbotapi.Chattable
}

func (c *fakeTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	c.sent = append(c.sent, msg)
	return tgbotapi.Message{MessageID: len(c.sent)}, nil
}

func (c *fakeTelegramClient) Request(msg tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (c *fakeTelegramClient) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (c *fakeTelegramClient) SelfUser() tgbotapi.User {
	return tgbotapi.User{UserName: "smena_test_bot"}
}

func (c *fakeTelegramClient) lastText() string {
	for i := len(c.sent) - 1; i >= 0; i-- {
		switch m := c.sent[i].(type) {
		case tgbotapi.MessageConfig:
			return m.Text
		case tgbotapi.EditMessageTextConfig:
			return m.Text
		}
	}
	return ""
}

type rowStore struct {
	rows []model.ScheduleRow
}

func (s *rowStore) LoadRows(ctx context.Context) ([]model.ScheduleRow, error) {
	return s.rows, nil
}

func (s *rowStore) SaveRows(ctx context.Context, rows []model.ScheduleRow) error {
	s.rows = rows
	return nil
}

func testToday() model.Date { return model.MustDate("2025-08-01") }

func newTestBot(t *testing.T) (*Bot, *fakeTelegramClient) {
	t.Helper()
	tg := &fakeTelegramClient{}
	logger := zerolog.Nop()
	factory := func() *engine.Engine {
		return engine.New(schedule.NewAdapter(&rowStore{}), nil, testToday, logger)
	}
	b, err := NewWithTelegramClient(tg, factory, Defaults{Start: "09:00", End: "18:00"}, testToday, &logger)
	require.NoError(t, err)
	return b, tg
}

func message(userID, chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: text,
	}
}

func callback(userID, chatID int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{
			MessageID: 42,
			Chat:      &tgbotapi.Chat{ID: chatID},
		},
		Data: data,
	}
}

func TestBot_StartShowsMenu(t *testing.T) {
	b, tg := newTestBot(t)
	b.handleMessage(context.Background(), message(1, 1, "/start"))

	require.Len(t, tg.sent, 1)
	msg, ok := tg.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Contains(t, msg.Text, "смены")
	assert.NotNil(t, msg.ReplyMarkup)
}

func TestBot_AddIntervalFlow(t *testing.T) {
	b, _ := newTestBot(t)
	ctx := context.Background()

	b.handleCallback(ctx, callback(1, 1, "date:2025-08-10"))
	b.handleCallback(ctx, callback(1, 1, "day:add"))
	b.handleCallback(ctx, callback(1, 1, "t:09:00"))
	b.handleCallback(ctx, callback(1, 1, "t:13:00"))

	snap := b.engines[1].DayStatus(model.MustDate("2025-08-10"))
	assert.Equal(t, availability.StatusAvailable, snap.Status)
	require.Len(t, snap.Intervals, 1)
	assert.Equal(t, "09:00", snap.Intervals[0].Start)
	assert.Equal(t, "13:00", snap.Intervals[0].End)
}

func TestBot_QuickAddUsesDefaults(t *testing.T) {
	b, _ := newTestBot(t)
	ctx := context.Background()

	b.handleCallback(ctx, callback(1, 1, "date:2025-08-12"))
	b.handleCallback(ctx, callback(1, 1, "day:quick"))

	snap := b.engines[1].DayStatus(model.MustDate("2025-08-12"))
	require.Len(t, snap.Intervals, 1)
	assert.Equal(t, "09:00", snap.Intervals[0].Start)
	assert.Equal(t, "18:00", snap.Intervals[0].End)
}

func TestBot_PastDateRejected(t *testing.T) {
	b, tg := newTestBot(t)
	ctx := context.Background()

	b.handleCallback(ctx, callback(1, 1, "date:2025-07-15"))
	b.handleCallback(ctx, callback(1, 1, "day:quick"))

	assert.Zero(t, b.engines[1].DayStatus(model.MustDate("2025-07-15")).Intervals)

	found := false
	for _, sent := range tg.sent {
		if m, ok := sent.(tgbotapi.MessageConfig); ok && m.Text == "Прошедшие даты изменить нельзя." {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBot_BatchFlow(t *testing.T) {
	b, _ := newTestBot(t)
	ctx := context.Background()

	b.handleCallback(ctx, callback(1, 1, "batch"))
	b.handleCallback(ctx, callback(1, 1, "date:2025-08-20"))
	b.handleCallback(ctx, callback(1, 1, "date:2025-08-21"))
	b.handleCallback(ctx, callback(1, 1, "batch:avail"))
	b.handleCallback(ctx, callback(1, 1, "t:10:00"))
	b.handleCallback(ctx, callback(1, 1, "t:16:00"))

	e := b.engines[1]
	for _, raw := range []string{"2025-08-20", "2025-08-21"} {
		snap := e.DayStatus(model.MustDate(raw))
		assert.Equal(t, availability.StatusAvailable, snap.Status, raw)
	}
	// Flow state is cleared after apply.
	assert.Equal(t, stepNone, b.state.get(1).Step)
	assert.Nil(t, b.state.get(1).Selection)
}

func TestBot_BatchSelectionTogglesOff(t *testing.T) {
	b, _ := newTestBot(t)
	ctx := context.Background()

	b.handleCallback(ctx, callback(1, 1, "batch"))
	b.handleCallback(ctx, callback(1, 1, "date:2025-08-20"))
	b.handleCallback(ctx, callback(1, 1, "date:2025-08-20"))

	assert.Empty(t, b.state.get(1).Selection)
}

func TestBot_TemplateEditAndSave(t *testing.T) {
	b, tg := newTestBot(t)
	ctx := context.Background()

	b.handleCallback(ctx, callback(1, 1, "tmpl:d:1")) // Monday
	b.handleCallback(ctx, callback(1, 1, "tt:08:00"))
	b.handleCallback(ctx, callback(1, 1, "tt:17:00"))

	slot := b.engines[1].Template()[time.Monday]
	require.True(t, slot.Enabled)
	assert.Equal(t, "08:00", slot.Start)
	assert.Equal(t, "17:00", slot.End)

	b.handleCallback(ctx, callback(1, 1, "tmpl:save"))
	assert.Contains(t, collectTexts(tg), "Шаблон сохранён.")

	// Tapping an enabled day disables it.
	b.handleCallback(ctx, callback(1, 1, "tmpl:d:1"))
	assert.False(t, b.engines[1].Template()[time.Monday].Enabled)
}

func TestBot_ApplyTemplateToMonth(t *testing.T) {
	b, _ := newTestBot(t)
	ctx := context.Background()

	b.handleCallback(ctx, callback(1, 1, "tmpl:d:1"))
	b.handleCallback(ctx, callback(1, 1, "tt:09:00"))
	b.handleCallback(ctx, callback(1, 1, "tt:18:00"))
	b.handleCallback(ctx, callback(1, 1, "apply"))

	// Mondays in August 2025 on or after the 1st: 4, 11, 18, 25.
	e := b.engines[1]
	for _, raw := range []string{"2025-08-04", "2025-08-11", "2025-08-18", "2025-08-25"} {
		assert.Equal(t, availability.StatusAvailable, e.DayStatus(model.MustDate(raw)).Status, raw)
	}
}

func TestBot_UnavailableAndClear(t *testing.T) {
	b, _ := newTestBot(t)
	ctx := context.Background()

	b.handleCallback(ctx, callback(1, 1, "date:2025-08-15"))
	b.handleCallback(ctx, callback(1, 1, "day:unavail"))
	e := b.engines[1]
	assert.Equal(t, availability.StatusUnavailable, e.DayStatus(model.MustDate("2025-08-15")).Status)

	b.handleCallback(ctx, callback(1, 1, "date:2025-08-15"))
	b.handleCallback(ctx, callback(1, 1, "day:clear"))
	assert.Equal(t, availability.StatusUnset, e.DayStatus(model.MustDate("2025-08-15")).Status)
}

func collectTexts(tg *fakeTelegramClient) []string {
	var out []string
	for _, sent := range tg.sent {
		switch m := sent.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}
