package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const maxAttempts = 3

// Connect opens the Postgres handle, retrying a fixed number of times
// before giving up (delay = attempt * 2s).
func Connect(dsn string) (*gorm.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			return gdb, nil
		}
		lastErr = err
		log.Printf("db connect attempt %d/%d failed: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			time.Sleep(time.Duration(attempt) * 2 * time.Second)
		}
	}
	return nil, fmt.Errorf("db connect failed after %d attempts: %w", maxAttempts, lastErr)
}
