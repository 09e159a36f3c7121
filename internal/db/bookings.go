package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stadion/internal/models"
)

// ReserveRequest carries the fields of a new reservation.
type ReserveRequest struct {
	UserID   int64
	FullName string
	Phone    string
	Date     string
	Hour     string
	Hours    []string // hour labels of the day, for lazy slot materialization
}

// ReserveSlot atomically claims one capacity unit and appends a confirmed
// booking. Either both happen or neither: the conditional decrement and the
// ledger insert share one transaction, so concurrent reservations of the
// last unit are linearized by the decrement and losers get
// ErrSlotUnavailable with no state change.
func (db *DB) ReserveSlot(ctx context.Context, req ReserveRequest) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := ensureSlotsTx(ctx, tx, req.Date, req.Hours, db.capacity); err != nil {
		return nil, err
	}

	if err := reserveUnitTx(ctx, tx, req.Date, req.Hour); err != nil {
		return nil, err
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO bookings (user_id, full_name, phone, date, hour, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		req.UserID, req.FullName, req.Phone, req.Date, req.Hour,
		string(models.StatusConfirmed), now)
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &models.Booking{
		ID:        id,
		UserID:    req.UserID,
		FullName:  req.FullName,
		Phone:     req.Phone,
		Date:      req.Date,
		Hour:      req.Hour,
		Status:    models.StatusConfirmed,
		CreatedAt: now,
	}, nil
}

// CancelBooking atomically marks a confirmed booking canceled and returns
// its capacity unit to the slot. ErrBookingNotFound when the id is unknown,
// ErrAlreadyCanceled on a repeated cancel.
func (db *DB) CancelBooking(ctx context.Context, id int64, by models.CanceledBy) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var date, hour string
	err = tx.QueryRowContext(ctx,
		"SELECT date, hour FROM bookings WHERE id = ?", id,
	).Scan(&date, &hour)
	if err == sql.ErrNoRows {
		return ErrBookingNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup booking: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE bookings SET status = ?, canceled_by = ?
		WHERE id = ? AND status = ?`,
		string(models.StatusCanceled), string(by), id, string(models.StatusConfirmed))
	if err != nil {
		return fmt.Errorf("mark canceled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyCanceled
	}

	if err := releaseUnitTx(ctx, tx, date, hour); err != nil {
		return err
	}

	return tx.Commit()
}

// GetBooking returns the booking with the given id.
func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, user_id, full_name, phone, date, hour, status, canceled_by, created_at
		FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListUserActiveBookings returns a user's confirmed bookings ordered by
// (date, hour).
func (db *DB) ListUserActiveBookings(ctx context.Context, userID int64) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, full_name, phone, date, hour, status, canceled_by, created_at
		FROM bookings WHERE user_id = ? AND status = ?
		ORDER BY date, hour`,
		userID, string(models.StatusConfirmed))
	if err != nil {
		return nil, fmt.Errorf("list user bookings: %w", err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

// ListBookingsByDate returns all bookings for a date, any status, ordered
// by (hour, created_at). Canceled rows stay visible for admin review.
func (db *DB) ListBookingsByDate(ctx context.Context, date string) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, full_name, phone, date, hour, status, canceled_by, created_at
		FROM bookings WHERE date = ?
		ORDER BY hour, created_at`, date)
	if err != nil {
		return nil, fmt.Errorf("list bookings by date: %w", err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row scannable) (*models.Booking, error) {
	var b models.Booking
	var canceledBy sql.NullString
	err := row.Scan(&b.ID, &b.UserID, &b.FullName, &b.Phone, &b.Date, &b.Hour,
		&b.Status, &canceledBy, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	if canceledBy.Valid {
		b.CanceledBy = models.CanceledBy(canceledBy.String)
	}
	return &b, nil
}

func collectBookings(rows *sql.Rows) ([]models.Booking, error) {
	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}
