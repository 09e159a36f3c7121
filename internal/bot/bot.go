// Package bot is the Telegram presentation layer. It collects the date,
// hour, name and phone of a reservation and invokes the booking engine
// with fully-formed requests; all invariants live in the engine.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"stadion/internal/booking"
	"stadion/internal/export"
	"stadion/internal/models"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
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

// Bot wires Telegram updates to the booking engine.
type Bot struct {
	tg      telegramClient
	svc     *booking.Service
	admins  map[int64]struct{}
	state   *stateStore
	limiter *rate.Limiter
	logger  *zerolog.Logger
}

func New(token string, debug bool, svc *booking.Service, admins []int64, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	return newBot(&realTelegramClient{api: api}, svc, admins, logger)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(tg telegramClient, svc *booking.Service, admins []int64, logger *zerolog.Logger) (*Bot, error) {
	return newBot(tg, svc, admins, logger)
}

func newBot(tg telegramClient, svc *booking.Service, admins []int64, logger *zerolog.Logger) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	if svc == nil {
		return nil, fmt.Errorf("booking service is nil")
	}
	adm := make(map[int64]struct{}, len(admins))
	for _, id := range admins {
		adm[id] = struct{}{}
	}
	return &Bot{
		tg:     tg,
		svc:    svc,
		admins: adm,
		state:  newStateStore(),
		// Telegram caps bots around 30 messages per second.
		limiter: rate.NewLimiter(rate.Limit(20), 30),
		logger:  logger,
	}, nil
}

func (b *Bot) isAdmin(userID int64) bool {
	_, ok := b.admins[userID]
	return ok
}

// Start polls updates until ctx is canceled.
func (b *Bot) Start(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.tg.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	switch {
	case msg.IsCommand() && msg.Command() == "start":
		b.state.reset(msg.From.ID)
		out := tgbotapi.NewMessage(msg.Chat.ID,
			"Salom! Stadion band qilish botiga xush kelibsiz 👋\nSana tanlang:")
		out.ReplyMarkup = dayPickerKeyboard(b.isAdmin(msg.From.ID))
		b.send(ctx, out)
	case msg.Contact != nil:
		b.handleContact(ctx, msg)
	case msg.Text != "":
		b.handleText(ctx, msg)
	}
}

// handleText collects the full name when the dialog expects one.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	st := b.state.get(msg.From.ID)
	if st.Step != stepFullName {
		return
	}

	text := strings.TrimSpace(msg.Text)
	if len(strings.Fields(text)) < 2 {
		b.send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "Iltimos, to‘liq Ism Familiyani yuboring."))
		return
	}

	st.Draft.FullName = text
	st.Step = stepPhone

	out := tgbotapi.NewMessage(msg.Chat.ID, "Rahmat! Endi telefon raqamingizni ulashing:")
	out.ReplyMarkup = contactKeyboard()
	b.send(ctx, out)
}

// handleContact finalizes the reservation with the shared phone number.
func (b *Bot) handleContact(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	st := b.state.get(userID)
	defer b.state.reset(userID)

	if st.Step != stepPhone || st.Draft.Date == "" {
		b.sendPlain(ctx, msg.Chat.ID, "Avval sana va soatni tanlang.")
		return
	}

	draft := st.Draft
	bk, err := b.svc.Reserve(ctx, userID, draft.Date, draft.Hour, draft.FullName, msg.Contact.PhoneNumber)
	switch {
	case errors.Is(err, booking.ErrSlotExpired):
		b.sendPlain(ctx, msg.Chat.ID, "Bu vaqt allaqachon o‘tib ketgan. Iltimos, boshqa vaqt tanlang.")
		b.sendSlotList(ctx, msg.Chat.ID, draft.Date)
	case errors.Is(err, booking.ErrSlotUnavailable):
		b.sendPlain(ctx, msg.Chat.ID, "Afsus, bu soat band bo‘lib qoldi. Iltimos, boshqa vaqt tanlang.")
		b.sendSlotList(ctx, msg.Chat.ID, draft.Date)
	case err != nil:
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("reserve failed")
		b.sendPlain(ctx, msg.Chat.ID, "Xatolik yuz berdi. Iltimos, qayta urinib ko‘ring.")
	default:
		b.sendPlain(ctx, msg.Chat.ID, fmt.Sprintf(
			"✅ Band qilindi:\n📅 %s  🕒 %s\n👤 %s\n📞 %s",
			bk.Date, bk.Hour, bk.FullName, bk.Phone))
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// Callbacks only arrive from inline keyboards on the bot's own
	// messages; stale ones without a message are dropped.
	if cb.Message == nil {
		b.answerCallback(ctx, cb.ID, "", false)
		return
	}

	data := cb.Data
	switch {
	case data == "help":
		b.answerCallback(ctx, cb.ID, "", false)
		out := tgbotapi.NewMessage(cb.Message.Chat.ID,
			"Qanday ishlaydi?\n\n"+
				"1) Sana va soatni tanlang.\n"+
				"2) Ism Familiya yuboring.\n"+
				"3) Keyin telefon raqamingizni ulashing.\n\n"+
				"Bekor qilish: boshlanishiga kamida 3 soat qolganda, \"Mening bandlarim\" → ❌ orqali bekor qilishingiz mumkin.")
		out.ReplyMarkup = backKeyboard("back:root")
		b.send(ctx, out)

	case strings.HasPrefix(data, "day:"):
		add, err := strconv.Atoi(strings.TrimPrefix(data, "day:"))
		if err != nil {
			return
		}
		b.answerCallback(ctx, cb.ID, "", false)
		b.showSlotList(ctx, cb, b.svc.Schedule().DateFrom(add))

	case strings.HasPrefix(data, "days:"):
		n, err := strconv.Atoi(strings.TrimPrefix(data, "days:"))
		if err != nil {
			return
		}
		b.answerCallback(ctx, cb.ID, "", false)
		dates := make([]string, 0, n)
		for i := 0; i < n; i++ {
			dates = append(dates, b.svc.Schedule().DateFrom(i))
		}
		b.editOrSend(ctx, cb, "Sana tanlang:", dayListKeyboard(dates, "pickday:", "back:root"))

	case strings.HasPrefix(data, "pickday:"):
		b.answerCallback(ctx, cb.ID, "", false)
		b.showSlotList(ctx, cb, strings.TrimPrefix(data, "pickday:"))

	case strings.HasPrefix(data, "pick:"):
		b.handlePick(ctx, cb)

	case data == "my:bookings":
		b.handleMyBookings(ctx, cb)

	case strings.HasPrefix(data, "cancel:"):
		b.handleCancel(ctx, cb)

	case data == "admin:menu":
		if !b.requireAdmin(ctx, cb) {
			return
		}
		b.answerCallback(ctx, cb.ID, "", false)
		b.editOrSend(ctx, cb, "Admin menyusi:", adminMenuKeyboard(b.svc.Schedule().Today()))

	case data == "admin:pickday":
		if !b.requireAdmin(ctx, cb) {
			return
		}
		b.answerCallback(ctx, cb.ID, "", false)
		dates := make([]string, 0, 14)
		for i := 0; i < 14; i++ {
			dates = append(dates, b.svc.Schedule().DateFrom(i))
		}
		b.editOrSend(ctx, cb, "Sana tanlang:", dayListKeyboard(dates, "admin:list:", "back:admin"))

	case strings.HasPrefix(data, "admin:list:"):
		if !b.requireAdmin(ctx, cb) {
			return
		}
		b.answerCallback(ctx, cb.ID, "", false)
		b.showAdminDay(ctx, cb, strings.TrimPrefix(data, "admin:list:"))

	case strings.HasPrefix(data, "admin:block:"):
		b.handleAdminBlock(ctx, cb)

	case strings.HasPrefix(data, "admin:export:"):
		b.handleAdminExport(ctx, cb)

	case data == "back:root":
		b.answerCallback(ctx, cb.ID, "", false)
		b.editOrSend(ctx, cb, "Sana tanlang:", dayPickerKeyboard(b.isAdmin(cb.From.ID)))

	case data == "back:admin":
		if !b.requireAdmin(ctx, cb) {
			return
		}
		b.answerCallback(ctx, cb.ID, "", false)
		b.editOrSend(ctx, cb, "Admin menyusi:", adminMenuKeyboard(b.svc.Schedule().Today()))
	}
}

// handlePick starts the dialog for a chosen (date, hour). Keyboards go
// stale, so the slot is re-checked here and once more inside Reserve.
func (b *Bot) handlePick(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	parts := strings.SplitN(strings.TrimPrefix(cb.Data, "pick:"), ":", 2)
	if len(parts) != 2 {
		return
	}
	date, hour := parts[0], parts[1]

	if !b.svc.Schedule().IsFuture(date, hour) {
		b.answerCallback(ctx, cb.ID, "Bu soat allaqachon o‘tib ketgan.", true)
		b.showSlotList(ctx, cb, date)
		return
	}

	st := b.state.get(cb.From.ID)
	st.Step = stepFullName
	st.Draft = ReservationDraft{Date: date, Hour: hour}

	b.answerCallback(ctx, cb.ID, "", false)
	b.sendPlain(ctx, cb.Message.Chat.ID, "Ism Familiyangizni yuboring (masalan: \"Ali Valiyev\").")
}

func (b *Bot) handleMyBookings(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	bookings, err := b.svc.ListUserBookings(ctx, cb.From.ID)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", cb.From.ID).Msg("list user bookings failed")
		b.answerCallback(ctx, cb.ID, "Xatolik yuz berdi.", true)
		return
	}
	if len(bookings) == 0 {
		b.answerCallback(ctx, cb.ID, "Sizda faol bandlar yo‘q.", true)
		return
	}

	b.answerCallback(ctx, cb.ID, "", false)
	var sb strings.Builder
	sb.WriteString("Sizning bandlaringiz:\n")
	for _, bk := range bookings {
		fmt.Fprintf(&sb, "• %s %s\n", bk.Date, bk.Hour)
	}
	out := tgbotapi.NewMessage(cb.Message.Chat.ID, sb.String())
	out.ReplyMarkup = myBookingsKeyboard(bookings)
	b.send(ctx, out)
}

func (b *Bot) handleCancel(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	id, err := strconv.ParseInt(strings.TrimPrefix(cb.Data, "cancel:"), 10, 64)
	if err != nil {
		return
	}

	err = b.svc.Cancel(ctx, id, cb.From.ID, false)
	switch {
	case errors.Is(err, booking.ErrBookingNotFound), errors.Is(err, booking.ErrAlreadyCanceled):
		b.answerCallback(ctx, cb.ID, "Topilmadi yoki allaqachon bekor qilingan.", true)
	case errors.Is(err, booking.ErrForbidden):
		b.answerCallback(ctx, cb.ID, "Bu band sizniki emas.", true)
	case errors.Is(err, booking.ErrCancellationClosed):
		b.answerCallback(ctx, cb.ID, "Kech: bekor qilish faqat 3 soat oldin mumkin.", true)
	case err != nil:
		b.logger.Error().Err(err).Int64("booking_id", id).Msg("cancel failed")
		b.answerCallback(ctx, cb.ID, "Xatolik yuz berdi.", true)
	default:
		b.answerCallback(ctx, cb.ID, "", false)
		b.sendPlain(ctx, cb.Message.Chat.ID, "✅ Band bekor qilindi.")
	}
}

func (b *Bot) handleAdminBlock(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if !b.requireAdmin(ctx, cb) {
		return
	}
	parts := strings.SplitN(strings.TrimPrefix(cb.Data, "admin:block:"), ":", 2)
	if len(parts) != 2 {
		return
	}
	date, hour := parts[0], parts[1]

	blocked, err := b.svc.ToggleBlock(ctx, date, hour, cb.From.ID)
	switch {
	case errors.Is(err, booking.ErrSlotNotFound):
		b.answerCallback(ctx, cb.ID, "Slot topilmadi.", true)
		return
	case err != nil:
		b.logger.Error().Err(err).Str("date", date).Str("hour", hour).Msg("toggle block failed")
		b.answerCallback(ctx, cb.ID, "Xatolik yuz berdi.", true)
		return
	}

	if blocked {
		b.answerCallback(ctx, cb.ID, "⛔ Bloklandi", false)
	} else {
		b.answerCallback(ctx, cb.ID, "✅ Ochildi", false)
	}
	b.showAdminDay(ctx, cb, date)
}

func (b *Bot) handleAdminExport(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if !b.requireAdmin(ctx, cb) {
		return
	}
	date := strings.TrimPrefix(cb.Data, "admin:export:")

	bookings, err := b.svc.ListDateBookings(ctx, date)
	if err != nil {
		b.answerCallback(ctx, cb.ID, "Xatolik yuz berdi.", true)
		return
	}
	report, err := export.DayReportBytes(date, bookings)
	if err != nil {
		b.logger.Error().Err(err).Str("date", date).Msg("build day report failed")
		b.answerCallback(ctx, cb.ID, "Xatolik yuz berdi.", true)
		return
	}

	b.answerCallback(ctx, cb.ID, "", false)
	doc := tgbotapi.NewDocument(cb.Message.Chat.ID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("bandlar_%s.xlsx", date),
		Bytes: report,
	})
	b.send(ctx, doc)
}

// showSlotList renders the future slots of a date (edit-in-place when the
// callback message allows it).
func (b *Bot) showSlotList(ctx context.Context, cb *tgbotapi.CallbackQuery, date string) {
	slots, err := b.svc.ListSlots(ctx, date)
	if err != nil {
		b.logger.Error().Err(err).Str("date", date).Msg("list slots failed")
		b.sendPlain(ctx, cb.Message.Chat.ID, "Xatolik yuz berdi.")
		return
	}
	text := fmt.Sprintf("Sana: %s\nSoat tanlang:", date)
	b.editOrSend(ctx, cb, text, slotKeyboard(date, b.futureOnly(date, slots)))
}

// sendSlotList is showSlotList without a callback message to edit.
func (b *Bot) sendSlotList(ctx context.Context, chatID int64, date string) {
	slots, err := b.svc.ListSlots(ctx, date)
	if err != nil {
		return
	}
	out := tgbotapi.NewMessage(chatID, fmt.Sprintf("Sana: %s\nSoat tanlang:", date))
	out.ReplyMarkup = slotKeyboard(date, b.futureOnly(date, slots))
	b.send(ctx, out)
}

func (b *Bot) futureOnly(date string, slots []models.Slot) []models.Slot {
	visible := make([]models.Slot, 0, len(slots))
	for _, s := range slots {
		if b.svc.Schedule().IsFuture(date, s.Hour) {
			visible = append(visible, s)
		}
	}
	return visible
}

// showAdminDay renders a date's ledger plus slot management keyboard.
func (b *Bot) showAdminDay(ctx context.Context, cb *tgbotapi.CallbackQuery, date string) {
	slots, err := b.svc.ListSlots(ctx, date)
	if err != nil {
		b.sendPlain(ctx, cb.Message.Chat.ID, "Xatolik yuz berdi.")
		return
	}
	bookings, err := b.svc.ListDateBookings(ctx, date)
	if err != nil {
		b.sendPlain(ctx, cb.Message.Chat.ID, "Xatolik yuz berdi.")
		return
	}

	var sb strings.Builder
	if len(bookings) == 0 {
		fmt.Fprintf(&sb, "📅 %s: bandlar yo‘q.", date)
	} else {
		fmt.Fprintf(&sb, "📅 %s bandlar:\n", date)
		for _, bk := range bookings {
			fmt.Fprintf(&sb, "#%d %s — %s (%s) [%s]\n", bk.ID, bk.Hour, bk.FullName, bk.Phone, bk.Status)
		}
	}
	b.editOrSend(ctx, cb, sb.String(), adminDayKeyboard(date, slots))
}

func (b *Bot) requireAdmin(ctx context.Context, cb *tgbotapi.CallbackQuery) bool {
	if b.isAdmin(cb.From.ID) {
		return true
	}
	b.answerCallback(ctx, cb.ID, "Ruxsat yo‘q.", true)
	return false
}

func backKeyboard(target string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Orqaga", target),
		),
	)
}

// editOrSend edits the callback's message in place, falling back to a new
// message when the edit is rejected (deleted or unchanged message).
func (b *Bot) editOrSend(ctx context.Context, cb *tgbotapi.CallbackQuery, text string, markup tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(cb.Message.Chat.ID, cb.Message.MessageID, text, markup)
	if _, err := b.tg.Send(edit); err == nil {
		return
	}
	out := tgbotapi.NewMessage(cb.Message.Chat.ID, text)
	out.ReplyMarkup = markup
	b.send(ctx, out)
}

func (b *Bot) sendPlain(ctx context.Context, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	b.send(ctx, msg)
}

func (b *Bot) send(ctx context.Context, msg tgbotapi.Chattable) {
	if err := b.limiter.Wait(ctx); err != nil {
		return
	}
	if _, err := b.tg.Send(msg); err != nil {
		b.logger.Error().Err(err).Msg("telegram send failed")
	}
}

func (b *Bot) answerCallback(ctx context.Context, id, text string, alert bool) {
	cb := tgbotapi.NewCallback(id, text)
	if alert {
		cb = tgbotapi.NewCallbackWithAlert(id, text)
	}
	if _, err := b.tg.Request(cb); err != nil {
		b.logger.Warn().Err(err).Msg("answer callback failed")
	}
}
