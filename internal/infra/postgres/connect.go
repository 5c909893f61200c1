package postgres

import (
	"context"
	"fmt"
	"log"

	"github.com/vogiaan1904/ticketbottle-boxoffice/config"
	repo "github.com/vogiaan1904/ticketbottle-boxoffice/internal/repository/postgres"
	pkgPostgres "github.com/vogiaan1904/ticketbottle-boxoffice/pkg/postgres"
	"gorm.io/gorm"
)

func Connect(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := pkgPostgres.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := repo.AutoMigrate(db); err != nil {
			return nil, err
		}
		log.Println("Database schema migrated.")
	}

	log.Printf("Connected to %s database.", cfg.Driver)

	return db, nil
}

func Disconnect(db *gorm.DB) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	sqlDB.Close()

	log.Println("Connection to database closed.")
}
