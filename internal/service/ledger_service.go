package service

import (
	"context"
	"errors"
	"fmt"

	errs "github.com/vogiaan1904/ticketbottle-boxoffice/internal/errors"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/metrics"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	pgRepo "github.com/vogiaan1904/ticketbottle-boxoffice/internal/repository/postgres"
	repository "github.com/vogiaan1904/ticketbottle-boxoffice/internal/repository/redis"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
)

type LedgerService interface {
	Reserve(ctx context.Context, catID string, qty int) (models.SeatRange, error)
	Release(ctx context.Context, catID string, seats models.SeatRange) error
	Restock(ctx context.Context, catID string, qty int) (int, error)
	// Load rebuilds the category's ledger from issued tickets, replacing any
	// live state and clearing a halt.
	Load(ctx context.Context, cat *models.TicketCategory) error
	// Reconcile rewrites the stored seat count from issued tickets and then
	// reloads the ledger. It is the only way a halted category resumes sales.
	Reconcile(ctx context.Context, catID string) (*models.LedgerSnapshot, error)
	Halt(ctx context.Context, catID, reason string) error
	Snapshot(ctx context.Context, catID string) (*models.LedgerSnapshot, error)
}

type ledgerService struct {
	repo    repository.LedgerRepository
	catalog pgRepo.CatalogRepository
	sales   pgRepo.SaleRepository
	tx      pgRepo.TxManager
	m       *metrics.Metrics
	l       logger.Logger
}

func NewLedgerService(
	repo repository.LedgerRepository,
	catalog pgRepo.CatalogRepository,
	sales pgRepo.SaleRepository,
	tx pgRepo.TxManager,
	m *metrics.Metrics,
	l logger.Logger,
) LedgerService {
	return &ledgerService{
		repo:    repo,
		catalog: catalog,
		sales:   sales,
		tx:      tx,
		m:       m,
		l:       l,
	}
}

func (s *ledgerService) Reserve(ctx context.Context, catID string, qty int) (models.SeatRange, error) {
	if qty < 1 {
		return models.SeatRange{}, errs.ErrInvalidQuantity
	}

	seats, err := s.repo.Reserve(ctx, catID, qty)
	if errors.Is(err, repository.ErrLedgerNotLoaded) {
		if err := s.initFromStore(ctx, catID); err != nil {
			return models.SeatRange{}, err
		}
		seats, err = s.repo.Reserve(ctx, catID, qty)
	}

	return seats, err
}

// initFromStore loads a missing ledger without clobbering one that a
// concurrent caller created first.
func (s *ledgerService) initFromStore(ctx context.Context, catID string) error {
	cat, err := s.catalog.GetCategory(ctx, catID)
	if err != nil {
		return err
	}

	available, allocated, err := s.durableState(ctx, cat)
	if err != nil {
		return err
	}

	if _, err := s.repo.Init(ctx, catID, cat.Capacity, available, allocated); err != nil {
		return err
	}

	return nil
}

func (s *ledgerService) durableState(ctx context.Context, cat *models.TicketCategory) (available, allocated int, err error) {
	issued, err := s.sales.CountIssued(ctx, cat.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("count issued %s: %w", cat.ID, err)
	}

	allocated, err = s.sales.MaxSeatNo(ctx, cat.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("max seat %s: %w", cat.ID, err)
	}

	available = cat.Capacity - int(issued)
	if available < 0 {
		s.l.Errorw(ctx, "More tickets issued than capacity",
			"category_id", cat.ID,
			"capacity", cat.Capacity,
			"issued", issued,
		)
		available = 0
	}
	if available != cat.SeatsAvailable {
		s.l.Warnw(ctx, "Stored seats_available disagrees with issued tickets",
			"category_id", cat.ID,
			"seats_available", cat.SeatsAvailable,
			"derived", available,
		)
	}

	return available, allocated, nil
}

func (s *ledgerService) Release(ctx context.Context, catID string, seats models.SeatRange) error {
	err := s.repo.Release(ctx, catID, seats)
	if errors.Is(err, errs.ErrLedgerCorruption) {
		s.m.LedgerCorruptions.WithLabelValues(catID).Inc()
		s.l.Errorw(ctx, "Seat release would exceed capacity, category halted",
			"category_id", catID,
			"base", seats.Base,
			"quantity", seats.Quantity,
		)
	}

	return err
}

func (s *ledgerService) Restock(ctx context.Context, catID string, qty int) (int, error) {
	if qty < 1 {
		return 0, errs.ErrInvalidQuantity
	}

	snap, err := s.Snapshot(ctx, catID)
	if err != nil && !errors.Is(err, repository.ErrLedgerNotLoaded) {
		return 0, err
	}
	if snap != nil && snap.Halted {
		return 0, errs.ErrLedgerCorruption
	}

	if err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.catalog.Restock(ctx, s.tx.DB(ctx), catID, qty)
	}); err != nil {
		s.l.Errorf(ctx, "service.ledgerService.Restock: %v", err)
		return 0, err
	}

	available, err := s.repo.Restock(ctx, catID, qty)
	if errors.Is(err, repository.ErrLedgerNotLoaded) {
		cat, err := s.catalog.GetCategory(ctx, catID)
		if err != nil {
			return 0, err
		}
		if err := s.Load(ctx, cat); err != nil {
			return 0, err
		}
		snap, err := s.repo.Snapshot(ctx, catID)
		if err != nil {
			return 0, err
		}
		return snap.Available, nil
	}
	if err != nil {
		// The durable row is ahead of the ledger until the next reload.
		s.l.Errorf(ctx, "service.ledgerService.Restock: %v", err)
		return 0, err
	}

	s.l.Infow(ctx, "Category restocked",
		"category_id", catID,
		"quantity", qty,
		"available", available,
	)

	return available, nil
}

func (s *ledgerService) Load(ctx context.Context, cat *models.TicketCategory) error {
	available, allocated, err := s.durableState(ctx, cat)
	if err != nil {
		return err
	}

	return s.repo.Load(ctx, cat.ID, cat.Capacity, available, allocated)
}

func (s *ledgerService) Reconcile(ctx context.Context, catID string) (*models.LedgerSnapshot, error) {
	cat, err := s.catalog.GetCategory(ctx, catID)
	if err != nil {
		return nil, err
	}

	available, allocated, err := s.durableState(ctx, cat)
	if err != nil {
		return nil, err
	}

	if err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.catalog.SetSeatsAvailable(ctx, s.tx.DB(ctx), catID, available)
	}); err != nil {
		s.l.Errorf(ctx, "service.ledgerService.Reconcile: %v", err)
		return nil, err
	}

	if err := s.repo.Load(ctx, catID, cat.Capacity, available, allocated); err != nil {
		s.l.Errorf(ctx, "service.ledgerService.Reconcile: %v", err)
		return nil, err
	}

	s.l.Infow(ctx, "Seat ledger reconciled",
		"category_id", catID,
		"available", available,
		"allocated", allocated,
	)

	return s.repo.Snapshot(ctx, catID)
}

func (s *ledgerService) Halt(ctx context.Context, catID, reason string) error {
	s.m.LedgerCorruptions.WithLabelValues(catID).Inc()
	s.l.Errorw(ctx, "Halting seat ledger",
		"category_id", catID,
		"reason", reason,
	)

	return s.repo.Halt(ctx, catID)
}

func (s *ledgerService) Snapshot(ctx context.Context, catID string) (*models.LedgerSnapshot, error) {
	return s.repo.Snapshot(ctx, catID)
}
