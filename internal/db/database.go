package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB is the slot inventory and booking ledger store.
type DB struct {
	*sql.DB
	path     string
	capacity int
	logger   *zerolog.Logger
}

var (
	ErrSlotUnavailable = errors.New("slot unavailable")
	ErrSlotNotFound    = errors.New("slot not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrAlreadyCanceled = errors.New("booking already canceled")
)

// New opens the database at path and creates tables if they don't exist.
// capacity is the per-slot capacity recorded when slot rows are materialized.
func New(path string, capacity int, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	instance := &DB{
		DB:       sqlDB,
		path:     path,
		capacity: capacity,
		logger:   logger,
	}

	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.Info().Str("path", path).Int("capacity", capacity).Msg("Database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		// Slot inventory: one row per (date, hour), materialized lazily.
		`CREATE TABLE IF NOT EXISTS slots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL,
			hour TEXT NOT NULL,
			capacity INTEGER NOT NULL,
			remaining INTEGER NOT NULL,
			is_blocked BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(date, hour)
		)`,

		// Booking ledger: append-mostly, rows are never deleted.
		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			full_name TEXT NOT NULL,
			phone TEXT NOT NULL,
			date TEXT NOT NULL,
			hour TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'confirmed',
			canceled_by TEXT,
			created_at DATETIME NOT NULL
		)`,

		// Audit trail for reservations and administrative actions.
		`CREATE TABLE IF NOT EXISTS audit_log (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			actor_id INTEGER NOT NULL,
			booking_id INTEGER,
			date TEXT,
			hour TEXT,
			details TEXT,
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_slots_date ON slots(date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user_status ON bookings(user_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_date ON bookings(date)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// Path returns the database file path (used by the backup service).
func (db *DB) Path() string {
	return db.path
}

// Capacity returns the configured per-slot capacity for new slot rows.
func (db *DB) Capacity() int {
	return db.capacity
}

func (db *DB) Close() error {
	return db.DB.Close()
}
