package service

import (
	"context"

	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	pgRepo "github.com/vogiaan1904/ticketbottle-boxoffice/internal/repository/postgres"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/clock"
)

type paymentCapture struct {
	repo pgRepo.PaymentRepository
	tx   pgRepo.TxManager
	clk  clock.Clock
}

// NewPaymentCapture stores payment methods in the sale database, inside the
// caller's transaction when there is one.
func NewPaymentCapture(repo pgRepo.PaymentRepository, tx pgRepo.TxManager, clk clock.Clock) PaymentCapture {
	return &paymentCapture{repo: repo, tx: tx, clk: clk}
}

func (p *paymentCapture) RecordPaymentMethod(ctx context.Context, userID string, details models.PaymentDetails) (string, error) {
	pm := models.NewPaymentMethod(userID, details, p.clk.Now())
	if err := p.repo.Create(ctx, p.tx.DB(ctx), pm); err != nil {
		return "", err
	}
	return pm.ID, nil
}
