package postgres

import (
	"context"
	"fmt"

	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	"gorm.io/gorm"
)

type SaleRepository interface {
	CreateTransaction(ctx context.Context, tx *gorm.DB, txn *models.Transaction) error
	CreateTickets(ctx context.Context, tx *gorm.DB, tickets []models.Ticket) error
	ListByUser(ctx context.Context, userID string) ([]models.Transaction, error)
	CountIssued(ctx context.Context, catID string) (int64, error)
	MaxSeatNo(ctx context.Context, catID string) (int, error)
	GetDB() *gorm.DB
}

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *saleRepository) CreateTransaction(ctx context.Context, tx *gorm.DB, txn *models.Transaction) error {
	return tx.WithContext(ctx).Omit("Tickets").Create(txn).Error
}

func (r *saleRepository) CreateTickets(ctx context.Context, tx *gorm.DB, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&tickets).Error
}

// ListByUser returns the user's completed transactions, newest first.
func (r *saleRepository) ListByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := r.db.WithContext(ctx).
		Preload("Tickets", func(db *gorm.DB) *gorm.DB {
			return db.Order("category_id ASC, seat_no ASC")
		}).
		Where("user_id = ? AND status = ?", userID, models.TransactionStatusCompleted).
		Order("created_at DESC, id ASC").
		Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", userID, err)
	}
	return txns, nil
}

func (r *saleRepository) CountIssued(ctx context.Context, catID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("category_id = ? AND status = ?", catID, models.TicketStatusIssued).
		Count(&count).Error
	return count, err
}

func (r *saleRepository) MaxSeatNo(ctx context.Context, catID string) (int, error) {
	var maxSeat int
	err := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("category_id = ?", catID).
		Select("COALESCE(MAX(seat_no), 0)").
		Scan(&maxSeat).Error
	return maxSeat, err
}
