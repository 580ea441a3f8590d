// Package db opens the gorm connection and migrates the schema.
package db

import (
	"fmt"
	"strings"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/suPer8Hu/mirror/internal/chat"
	"github.com/suPer8Hu/mirror/internal/memory"
	"github.com/suPer8Hu/mirror/internal/models"
)

// Dialector picks a driver from the DSN:
//
//	postgres://... or postgresql://...   PostgreSQL (pgx)
//	sqlite://path                        SQLite (pure Go)
//	anything else                        MySQL
func Dialector(dsn string) gorm.Dialector {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.Open(dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		return gormsqlite.Open(strings.TrimPrefix(dsn, "sqlite://"))
	default:
		return mysql.Open(dsn)
	}
}

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(Dialector(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return gdb, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&models.User{},
		&chat.Session{},
		&chat.Message{},
		&memory.Memory{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
