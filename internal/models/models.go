package models

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusCanceled  BookingStatus = "canceled"
)

// CanceledBy identifies who canceled a booking.
type CanceledBy string

const (
	CanceledByUser  CanceledBy = "user"
	CanceledByAdmin CanceledBy = "admin"
)

// Slot represents bookable capacity for one hour of one calendar day.
type Slot struct {
	ID        int64  `json:"id"`
	Date      string `json:"date"` // YYYY-MM-DD
	Hour      string `json:"hour"` // HH:00
	Capacity  int    `json:"capacity"`
	Remaining int    `json:"remaining"`
	IsBlocked bool   `json:"is_blocked"`
}

// Booking represents one reservation of one slot by one requester.
// A booking consumes one unit of the slot's capacity at creation and
// returns it on cancellation; it is never deleted.
type Booking struct {
	ID         int64         `json:"id"`
	UserID     int64         `json:"user_id"`
	FullName   string        `json:"full_name"`
	Phone      string        `json:"phone"`
	Date       string        `json:"date"` // YYYY-MM-DD
	Hour       string        `json:"hour"` // HH:00
	Status     BookingStatus `json:"status"`
	CanceledBy CanceledBy    `json:"canceled_by,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// IsActive reports whether the booking still holds a capacity unit.
func (b *Booking) IsActive() bool {
	return b.Status == StatusConfirmed
}
