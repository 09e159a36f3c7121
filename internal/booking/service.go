// Package booking implements the reservation engine: time eligibility,
// ownership and deadline rules on top of the store's atomic reserve and
// cancel transactions.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"stadion/internal/cache"
	"stadion/internal/db"
	"stadion/internal/metrics"
	"stadion/internal/models"
	"stadion/internal/schedule"
)

var (
	// ErrSlotExpired means the slot's start time has already passed.
	ErrSlotExpired = errors.New("slot already started")
	// ErrForbidden means a non-admin tried to cancel someone else's booking.
	ErrForbidden = errors.New("not the booking owner")
	// ErrCancellationClosed means the cancellation deadline has passed.
	ErrCancellationClosed = errors.New("cancellation window closed")

	// Store-level failures surfaced unchanged.
	ErrSlotUnavailable = db.ErrSlotUnavailable
	ErrSlotNotFound    = db.ErrSlotNotFound
	ErrBookingNotFound = db.ErrBookingNotFound
	ErrAlreadyCanceled = db.ErrAlreadyCanceled
)

// Service orchestrates reservations over the inventory store and the
// booking ledger. All engine failures are terminal for the call; there
// are no internal retries.
type Service struct {
	db           *db.DB
	sched        *schedule.Schedule
	slotCache    *cache.SlotCache
	cancelWindow time.Duration
	logger       *zerolog.Logger
}

func NewService(
	database *db.DB,
	sched *schedule.Schedule,
	slotCache *cache.SlotCache,
	cancelWindow time.Duration,
	logger *zerolog.Logger,
) *Service {
	if cancelWindow <= 0 {
		cancelWindow = 3 * time.Hour
	}
	return &Service{
		db:           database,
		sched:        sched,
		slotCache:    slotCache,
		cancelWindow: cancelWindow,
		logger:       logger,
	}
}

// Schedule exposes the engine's clock adapter to the presentation layer.
func (s *Service) Schedule() *schedule.Schedule {
	return s.sched
}

// ListSlots returns all slots for date ordered by hour, materializing
// missing rows. Listings are served from the cache when configured;
// every mutation invalidates the date's entry.
func (s *Service) ListSlots(ctx context.Context, date string) ([]models.Slot, error) {
	if _, err := s.sched.ParseDate(date); err != nil {
		return nil, err
	}
	if slots, ok := s.slotCache.Get(ctx, date); ok {
		return slots, nil
	}
	slots, err := s.db.ListSlots(ctx, date, s.sched.HourLabels())
	if err != nil {
		return nil, err
	}
	s.slotCache.Set(ctx, date, slots)
	return slots, nil
}

// Reserve atomically claims one capacity unit of (date, hour) and appends
// a confirmed booking. ErrSlotExpired when the slot start has passed (no
// mutation occurs), ErrSlotUnavailable when capacity is exhausted or the
// slot is blocked.
func (s *Service) Reserve(ctx context.Context, userID int64, date, hour, fullName, phone string) (*models.Booking, error) {
	if _, err := s.sched.ParseDate(date); err != nil {
		return nil, err
	}
	if !s.sched.IsValidHour(hour) {
		return nil, fmt.Errorf("unknown hour label %q", hour)
	}
	if !s.sched.IsFuture(date, hour) {
		metrics.IncReserve("expired")
		return nil, ErrSlotExpired
	}

	b, err := s.db.ReserveSlot(ctx, db.ReserveRequest{
		UserID:   userID,
		FullName: fullName,
		Phone:    phone,
		Date:     date,
		Hour:     hour,
		Hours:    s.sched.HourLabels(),
	})
	if err != nil {
		if errors.Is(err, db.ErrSlotUnavailable) {
			metrics.IncReserve("unavailable")
			return nil, err
		}
		metrics.IncReserve("error")
		return nil, fmt.Errorf("reserve %s %s: %w", date, hour, err)
	}

	metrics.IncReserve("confirmed")
	s.slotCache.Invalidate(ctx, date)
	s.audit(ctx, db.AuditEntry{
		Action: db.AuditReserve, ActorID: userID, BookingID: b.ID,
		Date: date, Hour: hour,
	})
	s.logger.Info().
		Int64("booking_id", b.ID).
		Int64("user_id", userID).
		Str("date", date).
		Str("hour", hour).
		Msg("booking confirmed")
	return b, nil
}

// Cancel reverses a reservation. Non-admin callers must own the booking
// and be outside the cancellation window: a cancel is accepted up to and
// including exactly cancelWindow before slot start. Admins bypass both
// checks. The ledger update and the capacity release are atomic.
func (s *Service) Cancel(ctx context.Context, bookingID, actingUserID int64, isAdmin bool) error {
	actor := models.CanceledByUser
	if isAdmin {
		actor = models.CanceledByAdmin
	}

	b, err := s.db.GetBooking(ctx, bookingID)
	if err != nil {
		metrics.IncCancel(string(actor), "not_found")
		return err
	}
	if !b.IsActive() {
		metrics.IncCancel(string(actor), "already_canceled")
		return db.ErrAlreadyCanceled
	}

	if !isAdmin {
		if b.UserID != actingUserID {
			metrics.IncCancel(string(actor), "forbidden")
			return ErrForbidden
		}
		start, err := s.sched.SlotStart(b.Date, b.Hour)
		if err != nil {
			return fmt.Errorf("slot start for booking %d: %w", bookingID, err)
		}
		if s.sched.Now().Add(s.cancelWindow).After(start) {
			metrics.IncCancel(string(actor), "window_closed")
			return ErrCancellationClosed
		}
	}

	if err := s.db.CancelBooking(ctx, bookingID, actor); err != nil {
		metrics.IncCancel(string(actor), "error")
		return err
	}

	metrics.IncCancel(string(actor), "ok")
	s.slotCache.Invalidate(ctx, b.Date)
	action := db.AuditCancel
	if isAdmin {
		action = db.AuditAdminCancel
	}
	s.audit(ctx, db.AuditEntry{
		Action: action, ActorID: actingUserID, BookingID: bookingID,
		Date: b.Date, Hour: b.Hour,
	})
	s.logger.Info().
		Int64("booking_id", bookingID).
		Int64("user_id", actingUserID).
		Bool("admin", isAdmin).
		Msg("booking canceled")
	return nil
}

// ListUserBookings returns the user's confirmed bookings ordered by
// (date, hour).
func (s *Service) ListUserBookings(ctx context.Context, userID int64) ([]models.Booking, error) {
	return s.db.ListUserActiveBookings(ctx, userID)
}

// ListDateBookings returns all bookings for a date, canceled included.
func (s *Service) ListDateBookings(ctx context.Context, date string) ([]models.Booking, error) {
	if _, err := s.sched.ParseDate(date); err != nil {
		return nil, err
	}
	return s.db.ListBookingsByDate(ctx, date)
}

// ToggleBlock flips the administrative block flag of (date, hour) and
// returns the new state. ErrSlotNotFound when the slot row was never
// materialized.
func (s *Service) ToggleBlock(ctx context.Context, date, hour string, actorID int64) (bool, error) {
	blocked, err := s.db.ToggleBlock(ctx, date, hour)
	if err != nil {
		return false, err
	}
	metrics.IncBlockToggled()
	s.slotCache.Invalidate(ctx, date)
	details := "unblocked"
	if blocked {
		details = "blocked"
	}
	s.audit(ctx, db.AuditEntry{
		Action: db.AuditToggleBlock, ActorID: actorID,
		Date: date, Hour: hour, Details: details,
	})
	return blocked, nil
}

func (s *Service) audit(ctx context.Context, e db.AuditEntry) {
	if err := s.db.RecordAudit(ctx, e); err != nil {
		s.logger.Warn().Err(err).Str("action", e.Action).Msg("audit record failed")
	}
}
