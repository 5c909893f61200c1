package service

import (
	"context"

	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	pgRepo "github.com/vogiaan1904/ticketbottle-boxoffice/internal/repository/postgres"
)

// AuthSession resolves the calling user. Absence means unauthenticated.
type AuthSession interface {
	CurrentUserID(ctx context.Context) (string, bool)
}

// CatalogStore is the read side of the event catalog.
type CatalogStore interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	GetTicketCategories(ctx context.Context, eventID string) ([]models.TicketCategory, error)
	GetCategory(ctx context.Context, catID string) (*models.TicketCategory, error)
	GetCategoryPrice(ctx context.Context, catID string) (int64, error)
}

var _ CatalogStore = (pgRepo.CatalogRepository)(nil)

// PaymentCapture records the card a purchase was made with. Nothing is
// charged.
type PaymentCapture interface {
	RecordPaymentMethod(ctx context.Context, userID string, details models.PaymentDetails) (string, error)
}

// ExpiryScheduler arranges for the window to be re-examined at its expiry.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, w *models.AdmissionWindow) error
}

type PassIssuer interface {
	IssuePurchasePass(w *models.AdmissionWindow) (string, error)
}
