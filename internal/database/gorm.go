package database

import (
	"log"

	"whatsapp-composer/internal/config"
	"whatsapp-composer/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init connects to PostgreSQL when DATABASE_URL is set, otherwise to the
// local SQLite file, and runs migrations. Failures are fatal: the server
// cannot run without its store.
func Init(cfg *config.Config) {
	var err error
	if cfg.DatabaseURL != "" {
		DB, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		log.Println("Connected to PostgreSQL")
	} else {
		DB, err = gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err != nil {
			log.Fatalf("Failed to connect to SQLite: %v", err)
		}
		log.Printf("Connected to SQLite at %s", cfg.DBPath)
	}

	err = DB.AutoMigrate(
		&models.Session{},
		&models.Draft{},
		&models.GeneratorLog{},
		&models.FinalizedTemplate{},
	)
	if err != nil {
		log.Fatalf("Failed to run auto-migration: %v", err)
	}
	log.Println("Database migration completed")
}
