package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"stadion/internal/models"
)

// StartReminders pings every user with an active reservation for the next
// day. Fires once a day at the given local hour until ctx is canceled.
func (b *Bot) StartReminders(ctx context.Context, atHour int) {
	go func() {
		timer := time.NewTimer(b.untilNextHour(atHour))
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				b.sendTomorrowReminders(ctx)
				timer.Reset(b.untilNextHour(atHour))
			}
		}
	}()
}

func (b *Bot) sendTomorrowReminders(ctx context.Context) {
	date := b.svc.Schedule().DateFrom(1)

	bookings, err := b.svc.ListDateBookings(ctx, date)
	if err != nil {
		b.logger.Error().Err(err).Str("date", date).Msg("reminder: list bookings failed")
		return
	}

	sent := 0
	for _, bk := range bookings {
		if !bk.IsActive() {
			continue
		}
		b.send(ctx, tgbotapi.NewMessage(bk.UserID, reminderText(bk)))
		sent++
	}
	if sent > 0 {
		b.logger.Info().Str("date", date).Int("count", sent).Msg("reminders sent")
	}
}

func reminderText(bk models.Booking) string {
	return fmt.Sprintf("Eslatma: ertaga %s kuni soat %s da stadion band qilingan. 🏟", bk.Date, bk.Hour)
}

func (b *Bot) untilNextHour(hour int) time.Duration {
	now := b.svc.Schedule().Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
