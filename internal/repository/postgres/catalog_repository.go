package postgres

import (
	"context"
	"errors"
	"fmt"

	errs "github.com/vogiaan1904/ticketbottle-boxoffice/internal/errors"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	"gorm.io/gorm"
)

type CatalogRepository interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	GetTicketCategories(ctx context.Context, eventID string) ([]models.TicketCategory, error)
	GetCategory(ctx context.Context, catID string) (*models.TicketCategory, error)
	GetCategoryPrice(ctx context.Context, catID string) (int64, error)
	CreateEvent(ctx context.Context, event *models.Event) error

	// DecrementSeats lowers seats_available by qty only if that many remain.
	// It reports false when the guard rejected the update.
	DecrementSeats(ctx context.Context, tx *gorm.DB, catID string, qty int) (bool, error)
	Restock(ctx context.Context, tx *gorm.DB, catID string, qty int) error
	SetSeatsAvailable(ctx context.Context, tx *gorm.DB, catID string, available int) error
	GetDB() *gorm.DB
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *catalogRepository) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event %s: %w", eventID, err)
	}
	return &event, nil
}

func (r *catalogRepository) ListEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := r.db.WithContext(ctx).Order("starts_at ASC, id ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (r *catalogRepository) GetTicketCategories(ctx context.Context, eventID string) ([]models.TicketCategory, error) {
	var cats []models.TicketCategory
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("price DESC, id ASC").
		Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("get categories for %s: %w", eventID, err)
	}
	return cats, nil
}

func (r *catalogRepository) GetCategory(ctx context.Context, catID string) (*models.TicketCategory, error) {
	var cat models.TicketCategory
	if err := r.db.WithContext(ctx).First(&cat, "id = ?", catID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrInvalidCategory
		}
		return nil, fmt.Errorf("get category %s: %w", catID, err)
	}
	return &cat, nil
}

func (r *catalogRepository) GetCategoryPrice(ctx context.Context, catID string) (int64, error) {
	cat, err := r.GetCategory(ctx, catID)
	if err != nil {
		return 0, err
	}
	return cat.Price, nil
}

func (r *catalogRepository) CreateEvent(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(event).Error
	})
}

func (r *catalogRepository) DecrementSeats(ctx context.Context, tx *gorm.DB, catID string, qty int) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&models.TicketCategory{}).
		Where("id = ? AND seats_available >= ?", catID, qty).
		Update("seats_available", gorm.Expr("seats_available - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *catalogRepository) Restock(ctx context.Context, tx *gorm.DB, catID string, qty int) error {
	res := tx.WithContext(ctx).
		Model(&models.TicketCategory{}).
		Where("id = ?", catID).
		Updates(map[string]any{
			"capacity":        gorm.Expr("capacity + ?", qty),
			"seats_available": gorm.Expr("seats_available + ?", qty),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrInvalidCategory
	}
	return nil
}

func (r *catalogRepository) SetSeatsAvailable(ctx context.Context, tx *gorm.DB, catID string, available int) error {
	res := tx.WithContext(ctx).
		Model(&models.TicketCategory{}).
		Where("id = ?", catID).
		Update("seats_available", available)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrInvalidCategory
	}
	return nil
}
