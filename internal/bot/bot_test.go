package bot

import (
	"context"
	"io"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stadion/internal/booking"
	"stadion/internal/db"
	"stadion/internal/schedule"
)

type fakeTelegram struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeTelegram) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegram) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

// lastMessageText returns the text of the most recent plain message sent.
func (f *fakeTelegram) lastMessageText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if msg, ok := f.sent[i].(tgbotapi.MessageConfig); ok {
			return msg.Text
		}
	}
	return ""
}

// lastCallbackAnswer returns the text and alert flag of the most recent
// callback answer.
func (f *fakeTelegram) lastCallbackAnswer() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if cb, ok := f.requests[i].(tgbotapi.CallbackConfig); ok {
			return cb.Text, cb.ShowAlert
		}
	}
	return "", false
}

func newTestBot(t *testing.T, admins []int64) (*Bot, *fakeTelegram, *booking.Service) {
	t.Helper()

	logger := zerolog.New(io.Discard)

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), 2, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	sched, err := schedule.New("Asia/Tashkent", 9, 12)
	require.NoError(t, err)
	loc := time.FixedZone("UZT", 5*3600)
	sched = sched.WithNow(func() time.Time {
		return time.Date(2026, 9, 1, 10, 0, 0, 0, loc)
	})

	svc := booking.NewService(database, sched, nil, 3*time.Hour, &logger)

	tg := &fakeTelegram{}
	b, err := NewWithTelegramClient(tg, svc, admins, &logger)
	require.NoError(t, err)
	return b, tg, svc
}

func messageUpdate(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}}
}

func callbackUpdate(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: userID},
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: 10,
			Chat:      &tgbotapi.Chat{ID: userID},
		},
	}}
}

func TestStartCommand_ShowsDayPicker(t *testing.T) {
	b, tg, _ := newTestBot(t, nil)

	upd := messageUpdate(1, "/start")
	upd.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}
	b.handleUpdate(context.Background(), upd)

	assert.Contains(t, tg.lastMessageText(), "Sana tanlang")
}

func TestReservationFlow(t *testing.T) {
	b, tg, svc := newTestBot(t, nil)
	ctx := context.Background()
	userID := int64(500)

	b.handleUpdate(ctx, callbackUpdate(userID, "pick:2026-09-02:11:00"))
	assert.Contains(t, tg.lastMessageText(), "Ism Familiyangizni")

	b.handleUpdate(ctx, messageUpdate(userID, "Ali Valiyev"))
	assert.Contains(t, tg.lastMessageText(), "telefon")

	contact := messageUpdate(userID, "")
	contact.Message.Contact = &tgbotapi.Contact{PhoneNumber: "+998901234567"}
	b.handleUpdate(ctx, contact)
	assert.Contains(t, tg.lastMessageText(), "✅ Band qilindi")

	bookings, err := svc.ListUserBookings(ctx, userID)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "2026-09-02", bookings[0].Date)
	assert.Equal(t, "11:00", bookings[0].Hour)
	assert.Equal(t, "Ali Valiyev", bookings[0].FullName)
	assert.Equal(t, "+998901234567", bookings[0].Phone)
}

func TestFullName_RequiresTwoWords(t *testing.T) {
	b, tg, _ := newTestBot(t, nil)
	ctx := context.Background()

	b.handleUpdate(ctx, callbackUpdate(2, "pick:2026-09-02:11:00"))
	b.handleUpdate(ctx, messageUpdate(2, "Ali"))

	assert.Contains(t, tg.lastMessageText(), "to‘liq Ism Familiya")
}

func TestPick_PastHourRejected(t *testing.T) {
	b, tg, _ := newTestBot(t, nil)

	// The clock is fixed at 10:00 on 2026-09-01.
	b.handleUpdate(context.Background(), callbackUpdate(3, "pick:2026-09-01:09:00"))

	text, alert := tg.lastCallbackAnswer()
	assert.True(t, alert)
	assert.Contains(t, text, "o‘tib ketgan")
	assert.Equal(t, stepNone, b.state.get(3).Step)
}

func TestContact_WithoutDraft(t *testing.T) {
	b, tg, _ := newTestBot(t, nil)

	contact := messageUpdate(4, "")
	contact.Message.Contact = &tgbotapi.Contact{PhoneNumber: "+998900000000"}
	b.handleUpdate(context.Background(), contact)

	assert.Contains(t, tg.lastMessageText(), "Avval sana va soatni tanlang")
}

func TestContact_SlotTakenOffersFreshList(t *testing.T) {
	b, tg, svc := newTestBot(t, nil)
	ctx := context.Background()

	// Capacity is 2: fill the slot before the dialog completes.
	for _, uid := range []int64{100, 101} {
		_, err := svc.Reserve(ctx, uid, "2026-09-02", "11:00", "Test User", "+998")
		require.NoError(t, err)
	}

	b.handleUpdate(ctx, callbackUpdate(5, "pick:2026-09-02:11:00"))
	b.handleUpdate(ctx, messageUpdate(5, "Vali Aliyev"))
	contact := messageUpdate(5, "")
	contact.Message.Contact = &tgbotapi.Contact{PhoneNumber: "+998911111111"}
	b.handleUpdate(ctx, contact)

	assert.Contains(t, tg.lastMessageText(), "Soat tanlang")

	bookings, err := svc.ListUserBookings(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestCancelCallback_NotOwner(t *testing.T) {
	b, tg, svc := newTestBot(t, nil)
	ctx := context.Background()

	bk, err := svc.Reserve(ctx, 42, "2026-09-02", "11:00", "Owner User", "+998")
	require.NoError(t, err)

	b.handleUpdate(ctx, callbackUpdate(7, "cancel:"+itoa(bk.ID)))

	text, alert := tg.lastCallbackAnswer()
	assert.True(t, alert)
	assert.Contains(t, text, "sizniki emas")
}

func TestCancelCallback_Owner(t *testing.T) {
	b, tg, svc := newTestBot(t, nil)
	ctx := context.Background()

	bk, err := svc.Reserve(ctx, 42, "2026-09-02", "11:00", "Owner User", "+998")
	require.NoError(t, err)

	b.handleUpdate(ctx, callbackUpdate(42, "cancel:"+itoa(bk.ID)))
	assert.Contains(t, tg.lastMessageText(), "bekor qilindi")

	bookings, err := svc.ListUserBookings(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestMyBookings_EmptyShowsAlert(t *testing.T) {
	b, tg, _ := newTestBot(t, nil)

	b.handleUpdate(context.Background(), callbackUpdate(8, "my:bookings"))

	text, alert := tg.lastCallbackAnswer()
	assert.True(t, alert)
	assert.Contains(t, text, "faol bandlar yo‘q")
}

func TestAdminMenu_RequiresAdmin(t *testing.T) {
	b, tg, _ := newTestBot(t, []int64{99})

	b.handleUpdate(context.Background(), callbackUpdate(7, "admin:menu"))
	text, alert := tg.lastCallbackAnswer()
	assert.True(t, alert)
	assert.Contains(t, text, "Ruxsat yo‘q")

	b.handleUpdate(context.Background(), callbackUpdate(99, "admin:menu"))
	text, _ = tg.lastCallbackAnswer()
	assert.Empty(t, text)
}

func TestAdminBlock_TogglesSlot(t *testing.T) {
	b, tg, svc := newTestBot(t, []int64{99})
	ctx := context.Background()

	// Materialize the day's rows first.
	_, err := svc.ListSlots(ctx, "2026-09-02")
	require.NoError(t, err)

	b.handleUpdate(ctx, callbackUpdate(99, "admin:block:2026-09-02:11:00"))

	text, _ := tg.lastCallbackAnswer()
	assert.Contains(t, text, "Bloklandi")

	slots, err := svc.ListSlots(ctx, "2026-09-02")
	require.NoError(t, err)
	for _, s := range slots {
		if s.Hour == "11:00" {
			assert.True(t, s.IsBlocked)
		}
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
