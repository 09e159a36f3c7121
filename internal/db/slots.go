package db

import (
	"context"
	"database/sql"
	"fmt"

	"stadion/internal/models"
)

// EnsureSlots materializes one slot row per hour label for date, with
// remaining = capacity and is_blocked = false. Existing rows are left
// untouched, so repeated calls never reset capacity or block state.
func (db *DB) EnsureSlots(ctx context.Context, date string, hours []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := ensureSlotsTx(ctx, tx, date, hours, db.capacity); err != nil {
		return err
	}
	return tx.Commit()
}

func ensureSlotsTx(ctx context.Context, tx *sql.Tx, date string, hours []string, capacity int) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO slots (date, hour, capacity, remaining)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, hour := range hours {
		if _, err := stmt.ExecContext(ctx, date, hour, capacity, capacity); err != nil {
			return fmt.Errorf("ensure slot %s %s: %w", date, hour, err)
		}
	}
	return nil
}

// ListSlots returns all slots for date ordered by hour, materializing the
// rows first so callers never observe a missing slot.
func (db *DB) ListSlots(ctx context.Context, date string, hours []string) ([]models.Slot, error) {
	if err := db.EnsureSlots(ctx, date, hours); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, date, hour, capacity, remaining, is_blocked
		FROM slots WHERE date = ? ORDER BY hour`, date)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []models.Slot
	for rows.Next() {
		var s models.Slot
		if err := rows.Scan(&s.ID, &s.Date, &s.Hour, &s.Capacity, &s.Remaining, &s.IsBlocked); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// GetSlot returns the slot row for (date, hour).
func (db *DB) GetSlot(ctx context.Context, date, hour string) (*models.Slot, error) {
	var s models.Slot
	err := db.QueryRowContext(ctx, `
		SELECT id, date, hour, capacity, remaining, is_blocked
		FROM slots WHERE date = ? AND hour = ?`, date, hour,
	).Scan(&s.ID, &s.Date, &s.Hour, &s.Capacity, &s.Remaining, &s.IsBlocked)
	if err == sql.ErrNoRows {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// reserveUnitTx claims one capacity unit with a single conditional update.
// The affected-row count is the only availability check: zero rows means
// the slot is missing, exhausted or blocked, reported uniformly as
// ErrSlotUnavailable.
func reserveUnitTx(ctx context.Context, tx *sql.Tx, date, hour string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE slots SET remaining = remaining - 1
		WHERE date = ? AND hour = ? AND remaining > 0 AND is_blocked = 0`,
		date, hour)
	if err != nil {
		return fmt.Errorf("reserve unit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSlotUnavailable
	}
	return nil
}

// releaseUnitTx returns one capacity unit, clamped to the slot's recorded
// capacity so repeated releases can never overfill the slot.
func releaseUnitTx(ctx context.Context, tx *sql.Tx, date, hour string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE slots SET remaining = MIN(remaining + 1, capacity)
		WHERE date = ? AND hour = ?`,
		date, hour)
	if err != nil {
		return fmt.Errorf("release unit: %w", err)
	}
	return nil
}

// ToggleBlock flips the administrative block flag for (date, hour) and
// returns the new state. ErrSlotNotFound when the row does not exist.
func (db *DB) ToggleBlock(ctx context.Context, date, hour string) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE slots SET is_blocked = NOT is_blocked
		WHERE date = ? AND hour = ?`,
		date, hour)
	if err != nil {
		return false, fmt.Errorf("toggle block: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, ErrSlotNotFound
	}

	var blocked bool
	err = db.QueryRowContext(ctx,
		"SELECT is_blocked FROM slots WHERE date = ? AND hour = ?",
		date, hour,
	).Scan(&blocked)
	if err != nil {
		return false, err
	}
	return blocked, nil
}
