package postgres

import (
	"context"

	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, pm *models.PaymentMethod) error
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, tx *gorm.DB, pm *models.PaymentMethod) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(pm).Error
}
