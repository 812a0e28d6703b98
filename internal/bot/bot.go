// Package bot is the Telegram calendar surface of the availability engine.
// It owns no scheduling logic: every command is forwarded to the per-session
// engine and every render reads back a snapshot.
package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"smena/internal/availability"
	"smena/internal/engine"
	"smena/internal/export"
	"smena/internal/model"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	SelfUser() tgbotapi.User
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) Request(msg tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return c.api.Request(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) SelfUser() tgbotapi.User {
	return c.api.Self
}

// EngineFactory builds one engine per chat session.
type EngineFactory func() *engine.Engine

// Defaults are the prefilled times for quick availability marking.
type Defaults struct {
	Start string
	End   string
}

// Bot wires Telegram updates to per-session engines.
type Bot struct {
	tg        telegramClient
	state     *stateStore
	engines   map[int64]*engine.Engine
	newEngine EngineFactory
	defaults  Defaults
	today     func() model.Date
	logger    *zerolog.Logger
}

func New(token string, factory EngineFactory, defaults Defaults, today func() model.Date, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newBot(&realTelegramClient{api: api}, factory, defaults, today, logger)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(tg telegramClient, factory EngineFactory, defaults Defaults, today func() model.Date, logger *zerolog.Logger) (*Bot, error) {
	return newBot(tg, factory, defaults, today, logger)
}

func newBot(tg telegramClient, factory EngineFactory, defaults Defaults, today func() model.Date, logger *zerolog.Logger) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	if factory == nil {
		return nil, fmt.Errorf("engine factory is nil")
	}
	if defaults.Start == "" {
		defaults.Start = "09:00"
	}
	if defaults.End == "" {
		defaults.End = "18:00"
	}
	if today == nil {
		today = func() model.Date { return model.DateOf(time.Now()) }
	}
	return &Bot{
		tg:        tg,
		state:     newStateStore(today),
		engines:   make(map[int64]*engine.Engine),
		newEngine: factory,
		defaults:  defaults,
		today:     today,
		logger:    logger,
	}, nil
}

// engineFor returns the session engine for a user, creating and hydrating it
// on first contact: template from the schedule store, assignments polled for
// the visible horizon. Both failures are soft; the session starts from the
// last good (or empty) state.
func (b *Bot) engineFor(ctx context.Context, userID int64) *engine.Engine {
	if e, ok := b.engines[userID]; ok {
		return e
	}
	e := b.newEngine()
	if err := e.LoadTemplate(ctx); err != nil {
		b.logger.Warn().Int64("user_id", userID).Err(err).Msg("template load failed on session start")
	}
	b.refreshAssignments(ctx, e)
	b.engines[userID] = e
	return e
}

func (b *Bot) refreshAssignments(ctx context.Context, e *engine.Engine) {
	from := b.today()
	to := from.AddDays(90)
	if err := e.RefreshAssignments(ctx, from, to); err != nil {
		b.logger.Warn().Err(err).Msg("assignment refresh failed")
	}
}

var mainMenu = tgbotapi.NewReplyKeyboard(
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton("🗓 Календарь"),
		tgbotapi.NewKeyboardButton("📋 Шаблон недели"),
	),
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton("📌 Ближайшие дни"),
		tgbotapi.NewKeyboardButton("📤 Экспорт"),
	),
)

// Start begins polling updates and handles commands.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("availability bot authorized")

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			updateCtx := l.WithContext(ctx)
			b.handleUpdate(updateCtx, &update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	l := zerolog.Ctx(ctx)
	if update.CallbackQuery != nil {
		l.Debug().
			Int64("user_id", update.CallbackQuery.From.ID).
			Str("data", update.CallbackQuery.Data).
			Msg("handling callback query")
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.From == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)

	switch {
	case strings.HasPrefix(text, "/start"):
		b.state.reset(msg.From.ID)
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Отметьте дни, когда вы готовы выходить на смены:")
		reply.ReplyMarkup = mainMenu
		_, _ = b.tg.Send(reply)
	case text == "🗓 Календарь" || strings.HasPrefix(text, "/calendar"):
		st := b.state.get(msg.From.ID)
		st.resetFlow()
		e := b.engineFor(ctx, msg.From.ID)
		b.refreshAssignments(ctx, e) // screen entry: re-poll busy dates
		b.showCalendar(ctx, msg.Chat.ID, msg.From.ID, 0)
	case text == "📋 Шаблон недели" || strings.HasPrefix(text, "/template"):
		b.showTemplate(ctx, msg.Chat.ID, msg.From.ID, 0)
	case text == "📌 Ближайшие дни" || strings.HasPrefix(text, "/upcoming"):
		b.showUpcoming(ctx, msg.Chat.ID, msg.From.ID)
	case text == "📤 Экспорт" || strings.HasPrefix(text, "/export"):
		b.sendExport(ctx, msg.Chat.ID, msg.From.ID)
	case strings.HasPrefix(text, "/cancel"):
		b.state.get(msg.From.ID).resetFlow()
		b.reply(msg.Chat.ID, "Операция отменена.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	defer func() {
		_, _ = b.tg.Request(tgbotapi.NewCallback(cb.ID, ""))
	}()
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID
	userID := cb.From.ID
	st := b.state.get(userID)
	data := cb.Data

	switch {
	case data == "noop":
	case data == "menu":
		st.resetFlow()
		b.reply(chatID, "Выберите действие в меню.")
	case data == "cancel":
		st.resetFlow()
		b.showCalendar(ctx, chatID, userID, messageID)
	case strings.HasPrefix(data, "cal:"):
		if t, err := time.Parse("2006-01", data[len("cal:"):]); err == nil {
			st.Year, st.Month = t.Year(), t.Month()
		}
		b.showCalendar(ctx, chatID, userID, messageID)
	case strings.HasPrefix(data, "date:"):
		date, err := model.ParseDate(data[len("date:"):])
		if err != nil {
			return
		}
		if st.Step == stepBatchSelect {
			b.toggleSelection(ctx, st, chatID, userID, messageID, date)
			return
		}
		st.Date = date
		b.showDay(ctx, chatID, userID, messageID, date)
	case data == "day:add":
		st.Step = stepPickStart
		b.editKeyboard(chatID, messageID, "Начало интервала:", GenerateTimeKeyboard("t", model.QuickPickTimes))
	case data == "day:quick":
		e := b.engineFor(ctx, userID)
		if _, err := e.AddInterval(st.Date, b.defaults.Start, b.defaults.End); err != nil {
			b.replyError(chatID, err)
		}
		b.showDay(ctx, chatID, userID, messageID, st.Date)
	case strings.HasPrefix(data, "day:del:"):
		e := b.engineFor(ctx, userID)
		if _, err := e.RemoveInterval(st.Date, data[len("day:del:"):]); err != nil {
			b.replyError(chatID, err)
		}
		b.showDay(ctx, chatID, userID, messageID, st.Date)
	case data == "day:unavail":
		e := b.engineFor(ctx, userID)
		if _, err := e.MarkUnavailable(st.Date); err != nil {
			b.replyError(chatID, err)
		}
		b.showCalendar(ctx, chatID, userID, messageID)
	case data == "day:clear":
		e := b.engineFor(ctx, userID)
		if err := e.ClearDay(st.Date); err != nil {
			b.replyError(chatID, err)
		}
		b.showCalendar(ctx, chatID, userID, messageID)
	case strings.HasPrefix(data, "t:"):
		b.handleTimePick(ctx, st, chatID, userID, messageID, data[len("t:"):])
	case data == "batch":
		st.Step = stepBatchSelect
		st.Selection = make(map[model.Date]bool)
		b.showCalendar(ctx, chatID, userID, messageID)
	case data == "batch:avail":
		if len(st.Selection) == 0 {
			b.reply(chatID, "Сначала выберите даты в календаре.")
			return
		}
		st.Step = stepBatchStart
		b.editKeyboard(chatID, messageID, "Начало интервала для выбранных дат:", GenerateTimeKeyboard("t", model.QuickPickTimes))
	case data == "batch:unavail":
		e := b.engineFor(ctx, userID)
		res := e.BatchMarkUnavailable(selectionDates(st.Selection))
		st.resetFlow()
		b.reply(chatID, batchSummary(res))
		b.showCalendar(ctx, chatID, userID, messageID)
	case data == "batch:cancel":
		st.resetFlow()
		b.showCalendar(ctx, chatID, userID, messageID)
	case data == "apply":
		e := b.engineFor(ctx, userID)
		n := e.ApplyTemplateToMonth(st.Year, st.Month)
		b.reply(chatID, fmt.Sprintf("Шаблон применён: %d дат.", n))
		b.showCalendar(ctx, chatID, userID, messageID)
	case strings.HasPrefix(data, "tmpl:d:"):
		b.handleTemplateDay(ctx, st, chatID, userID, messageID, data[len("tmpl:d:"):])
	case strings.HasPrefix(data, "tt:"):
		b.handleTemplateTimePick(ctx, st, chatID, userID, messageID, data[len("tt:"):])
	case data == "tmpl:save":
		b.saveTemplate(ctx, st, chatID, userID, messageID)
	}
}

func (b *Bot) handleTimePick(ctx context.Context, st *userState, chatID, userID int64, messageID int, clock string) {
	switch st.Step {
	case stepPickStart:
		st.PendingStart = clock
		st.Step = stepPickEnd
		b.editKeyboard(chatID, messageID, "Конец интервала:", GenerateTimeKeyboard("t", LaterTimes(clock)))
	case stepPickEnd:
		e := b.engineFor(ctx, userID)
		_, err := e.AddInterval(st.Date, st.PendingStart, clock)
		if err != nil {
			b.replyError(chatID, err)
		}
		st.Step = stepNone
		st.PendingStart = ""
		b.showDay(ctx, chatID, userID, messageID, st.Date)
	case stepBatchStart:
		st.PendingStart = clock
		st.Step = stepBatchEnd
		b.editKeyboard(chatID, messageID, "Конец интервала:", GenerateTimeKeyboard("t", LaterTimes(clock)))
	case stepBatchEnd:
		e := b.engineFor(ctx, userID)
		res, err := e.BatchMarkAvailable(selectionDates(st.Selection), st.PendingStart, clock)
		if err != nil {
			b.replyError(chatID, err)
		} else {
			b.reply(chatID, batchSummary(res))
		}
		st.resetFlow()
		b.showCalendar(ctx, chatID, userID, messageID)
	}
}

func (b *Bot) toggleSelection(ctx context.Context, st *userState, chatID, userID int64, messageID int, date model.Date) {
	if date.Before(b.today()) {
		b.reply(chatID, "Прошедшие даты изменить нельзя.")
		return
	}
	if st.Selection[date] {
		delete(st.Selection, date)
	} else {
		st.Selection[date] = true
	}
	b.showCalendar(ctx, chatID, userID, messageID)
}

func (b *Bot) showCalendar(ctx context.Context, chatID, userID int64, messageID int) {
	st := b.state.get(userID)
	e := b.engineFor(ctx, userID)
	snaps := e.MonthStatuses(st.Year, st.Month)

	keyboard := GenerateCalendarKeyboard(st.Year, st.Month, snaps, st.Selection)
	var actions []tgbotapi.InlineKeyboardButton
	if st.Step == stepBatchSelect {
		actions = []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("✅ Доступен", "batch:avail"),
			tgbotapi.NewInlineKeyboardButtonData("✖ Недоступен", "batch:unavail"),
			tgbotapi.NewInlineKeyboardButtonData("Отмена", "batch:cancel"),
		}
	} else {
		actions = []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("☑ Выбрать даты", "batch"),
			tgbotapi.NewInlineKeyboardButtonData("📋 Применить шаблон", "apply"),
		}
	}
	keyboard.InlineKeyboard = append(keyboard.InlineKeyboard, actions)

	title := "Календарь доступности\n🔒 смена · ✅ доступен · ✖ недоступен"
	if st.Step == stepBatchSelect {
		title = fmt.Sprintf("Выбор дат: %d", len(st.Selection))
	}
	b.editOrSend(chatID, messageID, title, keyboard)
}

func (b *Bot) showDay(ctx context.Context, chatID, userID int64, messageID int, date model.Date) {
	e := b.engineFor(ctx, userID)
	snap := e.DayStatus(date)

	var text strings.Builder
	fmt.Fprintf(&text, "%s\n", date)
	rows := make([][]tgbotapi.InlineKeyboardButton, 0)

	switch snap.Status {
	case availability.StatusBusy:
		fmt.Fprintf(&text, "🔒 Назначена смена: %s\n", snap.Label)
		if len(snap.Intervals) > 0 {
			text.WriteString("Заявленная доступность сохранена, но в этот день не действует.\n")
		}
	case availability.StatusPast:
		text.WriteString("Дата прошла, редактирование недоступно.\n")
	default:
		for _, iv := range snap.Intervals {
			rows = append(rows, []tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("❌ %s–%s", iv.Start, iv.End),
					fmt.Sprintf("day:del:%s", iv.ID),
				),
			})
		}
		if snap.Status == availability.StatusUnavailable {
			text.WriteString("✖ Отмечен как недоступный.\n")
		}
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("➕ Интервал", "day:add"),
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("⚡ %s–%s", b.defaults.Start, b.defaults.End), "day:quick"),
		})
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("✖ Недоступен", "day:unavail"),
		})
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("🧹 Сбросить день", "day:clear"),
		})
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", "cancel"),
	})

	b.editOrSend(chatID, messageID, text.String(), tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (b *Bot) showTemplate(ctx context.Context, chatID, userID int64, messageID int) {
	e := b.engineFor(ctx, userID)
	tmpl := e.Template()
	st := b.state.get(userID)

	names := []string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 8)
	// Monday-first listing, Sunday last.
	for i := 1; i <= 7; i++ {
		dow := time.Weekday(i % 7)
		slot := tmpl[dow]
		label := fmt.Sprintf("%s: —", names[dow])
		if slot.Enabled {
			label = fmt.Sprintf("%s: %s–%s", names[dow], slot.Start, slot.End)
		}
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("tmpl:d:%d", int(dow))),
		})
	}
	saveLabel := "💾 Сохранить"
	if st.Saving {
		saveLabel = "⏳ Сохранение..."
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData(saveLabel, "tmpl:save"),
	})

	b.editOrSend(chatID, messageID,
		"Шаблон недели. Нажмите на день, чтобы включить или выключить его.",
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (b *Bot) handleTemplateDay(ctx context.Context, st *userState, chatID, userID int64, messageID int, raw string) {
	var dow int
	if _, err := fmt.Sscanf(raw, "%d", &dow); err != nil || dow < 0 || dow > 6 {
		return
	}
	e := b.engineFor(ctx, userID)
	day := time.Weekday(dow)
	if e.Template()[day].Enabled {
		_ = e.SetTemplateDay(day, false, "", "")
		b.showTemplate(ctx, chatID, userID, messageID)
		return
	}
	st.TemplateDow = day
	st.Step = stepTemplateStart
	b.editKeyboard(chatID, messageID, "Начало рабочего времени:", GenerateTimeKeyboard("tt", model.QuickPickTimes))
}

func (b *Bot) handleTemplateTimePick(ctx context.Context, st *userState, chatID, userID int64, messageID int, clock string) {
	switch st.Step {
	case stepTemplateStart:
		st.PendingStart = clock
		st.Step = stepTemplateEnd
		b.editKeyboard(chatID, messageID, "Конец рабочего времени:", GenerateTimeKeyboard("tt", LaterTimes(clock)))
	case stepTemplateEnd:
		e := b.engineFor(ctx, userID)
		if err := e.SetTemplateDay(st.TemplateDow, true, st.PendingStart, clock); err != nil {
			b.replyError(chatID, err)
		}
		st.Step = stepNone
		st.PendingStart = ""
		b.showTemplate(ctx, chatID, userID, messageID)
	}
}

func (b *Bot) saveTemplate(ctx context.Context, st *userState, chatID, userID int64, messageID int) {
	if st.Saving {
		return
	}
	st.Saving = true
	b.showTemplate(ctx, chatID, userID, messageID)

	e := b.engineFor(ctx, userID)
	err := e.SaveTemplate(ctx)
	st.Saving = false
	if err != nil {
		// Local edits are kept; the user can retry.
		b.reply(chatID, "Не удалось сохранить шаблон, изменения остались локально. Попробуйте ещё раз.")
	} else {
		b.reply(chatID, "Шаблон сохранён.")
	}
	b.showTemplate(ctx, chatID, userID, 0)
}

func (b *Bot) showUpcoming(ctx context.Context, chatID, userID int64) {
	e := b.engineFor(ctx, userID)
	var text strings.Builder
	text.WriteString("Ближайшие дни доступности:\n")
	n := 0
	for rec := range e.Upcoming(10) {
		var spans []string
		for _, iv := range rec.Intervals {
			spans = append(spans, fmt.Sprintf("%s–%s", iv.Start, iv.End))
		}
		fmt.Fprintf(&text, "• %s: %s\n", rec.Date, strings.Join(spans, ", "))
		n++
	}
	if n == 0 {
		text.WriteString("пока ничего не отмечено")
	}
	b.reply(chatID, text.String())
}

func (b *Bot) sendExport(ctx context.Context, chatID, userID int64) {
	st := b.state.get(userID)
	e := b.engineFor(ctx, userID)

	w := export.NewExcelizeWriter()
	defer w.Close()
	if err := export.WriteMonth(w, st.Year, st.Month, e.MonthStatuses(st.Year, st.Month)); err != nil {
		b.replyError(chatID, err)
		return
	}
	var buf bytes.Buffer
	if err := w.Save(&buf); err != nil {
		b.replyError(chatID, err)
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  export.Filename(st.Year, st.Month),
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("Доступность за %s %d", export.MonthNames[st.Month], st.Year)
	if _, err := b.tg.Send(doc); err != nil {
		b.logger.Error().Err(err).Msg("export send failed")
	}
}

func (b *Bot) editOrSend(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if messageID != 0 {
		msg := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
		if _, err := b.tg.Send(msg); err == nil {
			return
		}
		// Fall through to a fresh message when the edit is rejected
		// (e.g. identical content).
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	_, _ = b.tg.Send(msg)
}

func (b *Bot) editKeyboard(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	b.editOrSend(chatID, messageID, text, keyboard)
}

func (b *Bot) reply(chatID int64, text string) {
	_, _ = b.tg.Send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) replyError(chatID int64, err error) {
	switch {
	case errors.Is(err, model.ErrOverlap):
		b.reply(chatID, "Интервал пересекается с уже добавленным.")
	case errors.Is(err, model.ErrInvalidInterval):
		b.reply(chatID, "Начало интервала должно быть раньше конца.")
	case errors.Is(err, model.ErrPastDate):
		b.reply(chatID, "Прошедшие даты изменить нельзя.")
	case errors.Is(err, model.ErrPersistence):
		b.reply(chatID, "Сервис недоступен, попробуйте позже.")
	default:
		b.reply(chatID, "Что-то пошло не так, попробуйте ещё раз.")
	}
}

func selectionDates(sel map[model.Date]bool) []model.Date {
	out := make([]model.Date, 0, len(sel))
	for date := range sel {
		out = append(out, date)
	}
	return out
}

func batchSummary(res availability.BatchResult) string {
	if len(res.Failed) == 0 {
		return fmt.Sprintf("Готово: %d дат обновлено.", len(res.Applied))
	}
	return fmt.Sprintf("Обновлено %d дат, пропущено %d (прошедшие даты).",
		len(res.Applied), len(res.Failed))
}
