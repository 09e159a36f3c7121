package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded for reservations and administrative changes.
const (
	AuditReserve     = "reserve"
	AuditCancel      = "cancel"
	AuditAdminCancel = "admin_cancel"
	AuditToggleBlock = "toggle_block"
)

// AuditEntry is one audit trail record.
type AuditEntry struct {
	ID        string
	Action    string
	ActorID   int64
	BookingID int64
	Date      string
	Hour      string
	Details   string
	CreatedAt time.Time
}

// RecordAudit appends an audit trail entry. Audit failures are logged and
// swallowed by callers; they must never fail a booking operation.
func (db *DB) RecordAudit(ctx context.Context, e AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO audit_log (id, action, actor_id, booking_id, date, hour, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Action, e.ActorID, e.BookingID, e.Date, e.Hour, e.Details, e.CreatedAt)
	return err
}

// ListAuditByDate returns audit entries for a slot date, oldest first.
func (db *DB) ListAuditByDate(ctx context.Context, date string) ([]AuditEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, action, actor_id, COALESCE(booking_id, 0), COALESCE(date, ''),
		       COALESCE(hour, ''), COALESCE(details, ''), created_at
		FROM audit_log WHERE date = ? ORDER BY created_at`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.ActorID, &e.BookingID,
			&e.Date, &e.Hour, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
