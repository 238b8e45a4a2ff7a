// internal/database/memory.go
package database

import (
	"gorm.io/gorm"

	"github.com/apexchain/apex-backend/internal/config"
)

// OpenMemory opens a private in-memory sqlite database with all migrations applied.
// The pool is pinned to one connection so every query sees the same database.
func OpenMemory() (*gorm.DB, error) {
	db, err := Initialize(config.DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   "file::memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(db); err != nil {
		Close(db)
		return nil, err
	}
	return db, nil
}
