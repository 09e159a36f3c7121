package db

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// BackupConfig controls the periodic file backup of the SQLite database.
type BackupConfig struct {
	Enabled       bool
	IntervalHours int
	Path          string
	RetentionDays int
}

// BackupService copies the database file on a fixed interval and prunes
// old copies past the retention window.
type BackupService struct {
	db     *DB
	config BackupConfig
	logger *zerolog.Logger
}

func NewBackupService(db *DB, cfg BackupConfig, logger *zerolog.Logger) *BackupService {
	if cfg.IntervalHours <= 0 {
		cfg.IntervalHours = 24
	}
	return &BackupService{db: db, config: cfg, logger: logger}
}

// Start runs the backup loop until ctx is canceled.
func (s *BackupService) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info().Msg("Backup service is disabled")
		return
	}

	interval := time.Duration(s.config.IntervalHours) * time.Hour
	s.logger.Info().Dur("interval", interval).Str("path", s.config.Path).Msg("Backup service started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.PerformBackup(); err != nil {
		s.logger.Error().Err(err).Msg("Initial backup failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.PerformBackup(); err != nil {
				s.logger.Error().Err(err).Msg("Scheduled backup failed")
			}
			s.CleanupOldBackups()
		}
	}
}

// PerformBackup copies the database file into the backup directory.
func (s *BackupService) PerformBackup() error {
	if err := os.MkdirAll(s.config.Path, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	backupPath := filepath.Join(s.config.Path, fmt.Sprintf("backup_%s.db", timestamp))

	s.logger.Info().Str("path", backupPath).Msg("Performing database backup")

	source, err := os.Open(s.db.Path())
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(backupPath)
	if err != nil {
		return err
	}
	defer destination.Close()

	if _, err := io.Copy(destination, source); err != nil {
		return err
	}

	s.logger.Info().Msg("Backup completed")
	return nil
}

// CleanupOldBackups deletes backups older than the retention window.
func (s *BackupService) CleanupOldBackups() {
	if s.config.RetentionDays <= 0 {
		return
	}

	files, err := os.ReadDir(s.config.Path)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read backup directory for cleanup")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", file.Name()).Msg("Deleting old backup")
			os.Remove(filepath.Join(s.config.Path, file.Name()))
		}
	}
}
