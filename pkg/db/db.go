package db

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open connects to Postgres or dies. Services treat a missing database
// at boot the same as a missing config value.
func Open(dsn string) *gorm.DB {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	return gdb
}
