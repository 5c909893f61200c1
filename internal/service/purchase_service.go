package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/delivery/kafka"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/delivery/kafka/producer"
	errs "github.com/vogiaan1904/ticketbottle-boxoffice/internal/errors"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/metrics"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	pgRepo "github.com/vogiaan1904/ticketbottle-boxoffice/internal/repository/postgres"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/clock"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
)

// errSeatsGuard means the durable seats_available row refused a decrement
// the ledger had already allowed.
var errSeatsGuard = errors.New("seats_available guard rejected decrement")

type PurchaseService interface {
	Purchase(ctx context.Context, req *models.PurchaseRequest) (*models.PurchaseResult, error)
}

type PurchaseConfig struct {
	MaxPerPurchase int
}

type purchaseService struct {
	admSvc    AdmissionService
	ledgerSvc LedgerService
	catalog   pgRepo.CatalogRepository
	sales     pgRepo.SaleRepository
	payments  PaymentCapture
	tx        pgRepo.TxManager
	prod      producer.Producer
	clk       clock.Clock
	cfg       PurchaseConfig
	m         *metrics.Metrics
	l         logger.Logger
}

func NewPurchaseService(
	admSvc AdmissionService,
	ledgerSvc LedgerService,
	catalog pgRepo.CatalogRepository,
	sales pgRepo.SaleRepository,
	payments PaymentCapture,
	tx pgRepo.TxManager,
	prod producer.Producer,
	clk clock.Clock,
	cfg PurchaseConfig,
	m *metrics.Metrics,
	l logger.Logger,
) PurchaseService {
	return &purchaseService{
		admSvc:    admSvc,
		ledgerSvc: ledgerSvc,
		catalog:   catalog,
		sales:     sales,
		payments:  payments,
		tx:        tx,
		prod:      prod,
		clk:       clk,
		cfg:       cfg,
		m:         m,
		l:         l,
	}
}

func (s *purchaseService) Purchase(ctx context.Context, req *models.PurchaseRequest) (*models.PurchaseResult, error) {
	start := time.Now()
	defer func() {
		s.m.PurchaseDuration.Observe(time.Since(start).Seconds())
	}()

	res, err := s.purchase(ctx, req)
	s.m.Purchases.WithLabelValues(req.EventID, purchaseResult(err)).Inc()
	return res, err
}

func purchaseResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultCompleted
	case errors.Is(err, errs.ErrInsufficientSeats):
		return metrics.ResultSoldOut
	case errors.Is(err, errs.ErrNotYourTurn), errors.Is(err, errs.ErrExpired):
		return metrics.ResultNotYourTurn
	case errors.Is(err, errs.ErrLedgerCorruption):
		return metrics.ResultCorruption
	case errors.Is(err, errs.ErrInvalidCategory),
		errors.Is(err, errs.ErrInvalidQuantity),
		errors.Is(err, errs.ErrQuantityTooLarge):
		return metrics.ResultInvalid
	default:
		return metrics.ResultFailed
	}
}

func (s *purchaseService) purchase(ctx context.Context, req *models.PurchaseRequest) (*models.PurchaseResult, error) {
	if req.Quantity < 1 {
		return nil, errs.ErrInvalidQuantity
	}
	if s.cfg.MaxPerPurchase > 0 && req.Quantity > s.cfg.MaxPerPurchase {
		return nil, errs.ErrQuantityTooLarge
	}

	if _, err := s.admSvc.Holds(ctx, req.EventID, req.UserID); err != nil {
		return nil, err
	}

	cat, err := s.catalog.GetCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if !cat.BelongsTo(req.EventID) {
		return nil, errs.ErrInvalidCategory
	}

	seats, err := s.ledgerSvc.Reserve(ctx, cat.ID, req.Quantity)
	if err != nil {
		if errors.Is(err, errs.ErrInsufficientSeats) || errors.Is(err, errs.ErrLedgerCorruption) {
			return nil, err
		}
		s.l.Errorf(ctx, "service.purchaseService.Purchase: reserve: %v", err)
		return nil, fmt.Errorf("%w: reserve seats", errs.ErrPurchaseFailed)
	}

	now := s.clk.Now()
	var (
		txn     *models.Transaction
		tickets []models.Ticket
	)
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		pmID, err := s.payments.RecordPaymentMethod(ctx, req.UserID, req.Payment)
		if err != nil {
			return fmt.Errorf("record payment method: %w", err)
		}

		txn = models.NewTransaction(req.UserID, req.EventID, pmID, cat.Price, req.Quantity, now)
		if err := s.sales.CreateTransaction(ctx, s.tx.DB(ctx), txn); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}

		tickets = models.NewTickets(txn, cat, seats, now)
		if err := s.sales.CreateTickets(ctx, s.tx.DB(ctx), tickets); err != nil {
			return fmt.Errorf("create tickets: %w", err)
		}

		ok, err := s.catalog.DecrementSeats(ctx, s.tx.DB(ctx), cat.ID, req.Quantity)
		if err != nil {
			return fmt.Errorf("decrement seats: %w", err)
		}
		if !ok {
			return errSeatsGuard
		}
		return nil
	})
	if err != nil {
		return nil, s.rollback(ctx, req, cat, seats, err)
	}

	s.m.SeatsSold.WithLabelValues(cat.ID).Add(float64(req.Quantity))
	s.l.Infow(ctx, "Purchase completed",
		"event_id", req.EventID,
		"user_id", req.UserID,
		"category_id", cat.ID,
		"transaction_id", txn.ID,
		"seats", seats.Seats(),
	)

	// The sale is committed; a window that expired meanwhile is simply left as is.
	if _, err := s.admSvc.Complete(ctx, req.EventID, req.UserID, models.OutcomeCompleted); err != nil {
		s.l.Errorf(ctx, "service.purchaseService.Purchase: complete window: %v", err)
	}

	ev := kafka.PurchaseCompletedEvent{
		TransactionID: txn.ID,
		UserID:        req.UserID,
		EventID:       req.EventID,
		CategoryID:    cat.ID,
		Amount:        txn.Amount,
	}
	for _, t := range tickets {
		ev.Tickets = append(ev.Tickets, kafka.Ticket{ID: t.ID, SeatNo: t.SeatNo})
	}
	if err := s.prod.PublishPurchaseCompleted(ctx, ev); err != nil {
		s.l.Errorf(ctx, "service.purchaseService.Purchase: %v", err)
	}

	return &models.PurchaseResult{
		TransactionID: txn.ID,
		Amount:        txn.Amount,
		Seats:         seats.Seats(),
		Tickets:       tickets,
	}, nil
}

// rollback undoes the reservation after the durable write failed and
// reports the attempt as failed. The admission window stays active.
func (s *purchaseService) rollback(ctx context.Context, req *models.PurchaseRequest, cat *models.TicketCategory, seats models.SeatRange, cause error) error {
	if errors.Is(cause, errSeatsGuard) {
		// Ledger and durable state disagree; neither can be trusted to release.
		if err := s.ledgerSvc.Halt(ctx, cat.ID, cause.Error()); err != nil {
			s.l.Errorf(ctx, "service.purchaseService.rollback: halt: %v", err)
		}
		return errs.ErrLedgerCorruption
	}

	s.l.Errorw(ctx, "Purchase rolled back",
		"event_id", req.EventID,
		"user_id", req.UserID,
		"category_id", cat.ID,
		"error", cause,
	)

	if err := s.ledgerSvc.Release(ctx, cat.ID, seats); err != nil {
		s.l.Errorf(ctx, "service.purchaseService.rollback: release: %v", err)
		if errors.Is(err, errs.ErrLedgerCorruption) {
			return errs.ErrLedgerCorruption
		}
	}

	audit := models.NewTransaction(req.UserID, req.EventID, "", cat.Price, req.Quantity, s.clk.Now())
	audit.Status = models.TransactionStatusRolledBack
	if err := s.sales.CreateTransaction(ctx, s.tx.DB(ctx), audit); err != nil {
		s.l.Warnf(ctx, "service.purchaseService.rollback: audit row: %v", err)
	}

	return fmt.Errorf("%w: %v", errs.ErrPurchaseFailed, cause)
}
