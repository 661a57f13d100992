package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lojf/habits/internal/models"
)

// DSNParams enables WAL, waits on a busy writer and turns on FK enforcement,
// which CASCADE / SET NULL on habits depend on.
const DSNParams = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

type Options struct {
	// Silent disables GORM's SQL logging.
	Silent bool
}

// Open opens (creating if needed) the SQLite database at path and migrates it.
func Open(path string, opts Options) (*gorm.DB, error) {
	cfg := &gorm.Config{TranslateError: true}
	if opts.Silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	} else {
		cfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	conn, err := gorm.Open(sqlite.Open(path+DSNParams), cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// SQLite works best with a single writer; cap the pool accordingly.
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := Migrate(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

func Migrate(conn *gorm.DB) error {
	// reminders used to be unique per habit and day
	if m := conn.Migrator(); m.HasIndex(&models.Reminder{}, "idx_reminder_habit_day") {
		if err := m.DropIndex(&models.Reminder{}, "idx_reminder_habit_day"); err != nil {
			return fmt.Errorf("drop index: %w", err)
		}
	}
	if err := conn.AutoMigrate(
		&models.User{},
		&models.Habit{},
		&models.LinkCode{},
		&models.Reminder{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	// Composite indexes that GORM doesn't auto-create from struct tags.
	for _, stmt := range []string{
		"CREATE INDEX IF NOT EXISTS idx_habits_user_created ON habits(user_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_habits_public_created ON habits(is_public, created_at)",
	} {
		if err := conn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
