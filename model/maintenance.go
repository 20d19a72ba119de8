package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RunMaintenance executes housekeeping tasks.
// Make sure tasks are idempotent and safe to run multiple times.
func RunMaintenance(ctx context.Context, s *Store) error {
	start := time.Now()
	slog.Info("maintenance: start")

	// Try to acquire a DB-level singleton lock (Postgres only).
	unlock, err := tryAcquireLock(ctx, s)
	if err != nil {
		return err
	}
	if unlock != nil {
		defer unlock()
	}

	// 1) Hash credentials that are still stored in plaintext
	n, err := upgradeLegacyCredentials(ctx, s)
	if err != nil {
		return fmt.Errorf("upgrade legacy credentials: %w", err)
	}
	slog.Info("maintenance: legacy credentials upgraded", "count", n)

	// 2) Run VACUUM/ANALYZE depending on the DB engine
	if err := vacuumAnalyze(ctx, s); err != nil {
		return fmt.Errorf("vacuum/analyze: %w", err)
	}

	slog.Info("maintenance: done", "duration", time.Since(start).Truncate(time.Millisecond))
	return nil
}

// --------------------------------------------------------------------
// DB locking (only relevant for Postgres, safe no-op for SQLite)
// --------------------------------------------------------------------

const maintenanceLockID = 20250415

func tryAcquireLock(ctx context.Context, s *Store) (func(), error) {
	if !s.isPostgres() {
		// No locking available in SQLite
		return nil, nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, err
	}
	var got bool
	if err := sqlDB.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", maintenanceLockID).Scan(&got); err != nil {
		return nil, err
	}
	if !got {
		return nil, errors.New("another maintenance run is in progress")
	}
	return func() {
		_, _ = sqlDB.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", maintenanceLockID)
	}, nil
}

// --------------------------------------------------------------------
// Maintenance tasks
// --------------------------------------------------------------------

// upgradeLegacyCredentials replaces every plaintext credential by its bcrypt
// hash, so accounts that never log in again do not keep a readable password.
// It returns the number of upgraded accounts.
func upgradeLegacyCredentials(ctx context.Context, s *Store) (int, error) {
	var users []User
	err := s.db.WithContext(ctx).
		Select("id", "password").
		Where("password NOT LIKE ? AND password NOT LIKE ? AND password NOT LIKE ? AND password <> ''", "$2a$%", "$2b$%", "$2y$%").
		Find(&users).Error
	if err != nil {
		return 0, err
	}
	for _, u := range users {
		hash, err := HashPassword(u.Password)
		if err != nil {
			return 0, err
		}
		// the WHERE on the old value keeps a concurrent login upgrade intact
		err = s.db.WithContext(ctx).Model(&User{}).
			Where("id = ? AND password = ?", u.ID, u.Password).
			Update("password", hash).Error
		if err != nil {
			return 0, err
		}
	}
	return len(users), nil
}

// vacuumAnalyze runs database cleanup commands depending on DB engine.
func vacuumAnalyze(ctx context.Context, s *Store) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if s.isPostgres() {
		_, err = sqlDB.ExecContext(ctx, "VACUUM (ANALYZE)")
		return err
	}
	_, err = sqlDB.ExecContext(ctx, "VACUUM")
	if err == nil {
		_, _ = sqlDB.ExecContext(ctx, "PRAGMA optimize")
	}
	return err
}
