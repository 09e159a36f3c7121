package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"stadion/internal/models"
)

// dayPickerKeyboard is the root menu: quick day choices plus user actions.
func dayPickerKeyboard(showAdmin bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData("Bugun", "day:0"),
			tgbotapi.NewInlineKeyboardButtonData("Ertaga", "day:1"),
		},
		{tgbotapi.NewInlineKeyboardButtonData("Keyingi 7 kun", "days:7")},
		{tgbotapi.NewInlineKeyboardButtonData("Mening bandlarim", "my:bookings")},
		{tgbotapi.NewInlineKeyboardButtonData("Yordam", "help")},
	}
	if showAdmin {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("Admin", "admin:menu"),
		})
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// slotMark renders the availability badge of a slot.
func slotMark(s models.Slot) string {
	switch {
	case s.IsBlocked:
		return "⛔️"
	case s.Remaining >= 2:
		return fmt.Sprintf("🟢%d", s.Remaining)
	case s.Remaining == 1:
		return "🟡1"
	default:
		return "🔴0"
	}
}

// slotKeyboard lists the given (already future-filtered) slots of a date,
// two columns per row.
func slotKeyboard(date string, slots []models.Slot) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0)
	var row []tgbotapi.InlineKeyboardButton
	for _, s := range slots {
		label := fmt.Sprintf("%s %s", s.Hour, slotMark(s))
		data := fmt.Sprintf("pick:%s:%s", date, s.Hour)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, data))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("◀️ Orqaga", "back:root"),
	})
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// dayListKeyboard offers the next n dates, one per row.
func dayListKeyboard(dates []string, callbackPrefix, back string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(dates)+1)
	for _, d := range dates {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(d, callbackPrefix+d),
		})
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("◀️ Orqaga", back),
	})
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// myBookingsKeyboard adds a cancel button per active booking.
func myBookingsKeyboard(bookings []models.Booking) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(bookings)+1)
	for _, b := range bookings {
		label := fmt.Sprintf("❌ %s %s", b.Date, b.Hour)
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("cancel:%d", b.ID)),
		})
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("◀️ Orqaga", "back:root"),
	})
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// adminMenuKeyboard is the admin entry menu.
func adminMenuKeyboard(today string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
		{tgbotapi.NewInlineKeyboardButtonData("Bugungi bandlar", "admin:list:"+today)},
		{tgbotapi.NewInlineKeyboardButtonData("Sana tanlash", "admin:pickday")},
		{tgbotapi.NewInlineKeyboardButtonData("◀️ Orqaga", "back:root")},
	}}
}

// adminDayKeyboard offers per-slot block toggles and the export action for
// one date.
func adminDayKeyboard(date string, slots []models.Slot) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0)
	var row []tgbotapi.InlineKeyboardButton
	for _, s := range slots {
		label := fmt.Sprintf("%s %s", s.Hour, slotMark(s))
		data := fmt.Sprintf("admin:block:%s:%s", date, s.Hour)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, data))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows,
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("📊 Excel hisobot", "admin:export:"+date),
		},
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("◀️ Orqaga", "back:admin"),
		},
	)
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// contactKeyboard requests the user's phone number.
func contactKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonContact("📞 Telefonni ulashish"),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}
