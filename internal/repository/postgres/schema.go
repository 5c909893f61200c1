package postgres

import (
	"fmt"

	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	"gorm.io/gorm"
)

// AutoMigrate creates the sale schema from the models. Production databases
// use the SQL files under migrations/ instead.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Event{},
		&models.TicketCategory{},
		&models.PaymentMethod{},
		&models.Transaction{},
		&models.Ticket{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	// A seat can be issued at most once per category while its ticket stands.
	return db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_issued_seat
		ON tickets (category_id, seat_no)
		WHERE status = 'issued'
	`).Error
}
