package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	pgRepo "github.com/vogiaan1904/ticketbottle-boxoffice/internal/repository/postgres"
	repository "github.com/vogiaan1904/ticketbottle-boxoffice/internal/repository/redis"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
)

// RecoveryService puts the live admission and ledger state back in line with
// durable state after a restart.
type RecoveryService interface {
	Recover(ctx context.Context) error
}

type recoveryService struct {
	catalog   pgRepo.CatalogRepository
	qRepo     repository.QueueRepository
	admRepo   repository.AdmissionRepository
	admSvc    AdmissionService
	ledgerSvc LedgerService
	sched     ExpiryScheduler
	l         logger.Logger
}

func NewRecoveryService(
	catalog pgRepo.CatalogRepository,
	qRepo repository.QueueRepository,
	admRepo repository.AdmissionRepository,
	admSvc AdmissionService,
	ledgerSvc LedgerService,
	sched ExpiryScheduler,
	l logger.Logger,
) RecoveryService {
	return &recoveryService{
		catalog:   catalog,
		qRepo:     qRepo,
		admRepo:   admRepo,
		admSvc:    admSvc,
		ledgerSvc: ledgerSvc,
		sched:     sched,
		l:         l,
	}
}

// Recover must run before the service takes traffic: ledgers are replaced
// outright, except halted ones, which stay halted until reconciled.
func (s *recoveryService) Recover(ctx context.Context) error {
	events, err := s.catalog.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	ids := make(map[string]struct{}, len(events))
	for _, ev := range events {
		ids[ev.ID] = struct{}{}

		cats, err := s.catalog.GetTicketCategories(ctx, ev.ID)
		if err != nil {
			return fmt.Errorf("categories for %s: %w", ev.ID, err)
		}
		for i := range cats {
			if err := s.loadLedger(ctx, &cats[i]); err != nil {
				return err
			}
		}
	}

	active, err := s.admRepo.ActiveEvents(ctx)
	if err != nil {
		return fmt.Errorf("active events: %w", err)
	}
	for _, eID := range active {
		ids[eID] = struct{}{}
	}

	for eID := range ids {
		if err := s.recoverEvent(ctx, eID); err != nil {
			return err
		}
	}

	s.l.Infow(ctx, "Recovery completed",
		"events", len(ids),
		"active", len(active),
	)

	return nil
}

func (s *recoveryService) loadLedger(ctx context.Context, cat *models.TicketCategory) error {
	snap, err := s.ledgerSvc.Snapshot(ctx, cat.ID)
	if err != nil && !errors.Is(err, repository.ErrLedgerNotLoaded) {
		return fmt.Errorf("snapshot ledger %s: %w", cat.ID, err)
	}
	if snap != nil && snap.Halted {
		s.l.Warnw(ctx, "Seat ledger halted, skipping reload",
			"category_id", cat.ID,
		)
		return nil
	}

	if err := s.ledgerSvc.Load(ctx, cat); err != nil {
		return fmt.Errorf("load ledger %s: %w", cat.ID, err)
	}
	return nil
}

func (s *recoveryService) recoverEvent(ctx context.Context, eID string) error {
	maxSeq, err := s.qRepo.MaxSequence(ctx, eID)
	if err != nil {
		return err
	}

	w, err := s.admRepo.GetWindow(ctx, eID)
	if err != nil {
		return err
	}
	if w != nil && w.SequenceNumber > maxSeq {
		maxSeq = w.SequenceNumber
	}

	if maxSeq > 0 {
		if _, err := s.qRepo.EnsureSequenceAtLeast(ctx, eID, maxSeq); err != nil {
			return err
		}
	}

	p, err := s.admSvc.Advance(ctx, eID)
	if err != nil {
		return err
	}

	// A window that survived the restart lost its timer with the old process.
	if p.Granted == nil && w != nil && s.sched != nil {
		if cur, err := s.admRepo.GetWindow(ctx, eID); err == nil && cur != nil && cur.State == models.WindowStateActive {
			if err := s.sched.ScheduleExpiry(ctx, cur); err != nil {
				s.l.Warnf(ctx, "service.recoveryService.recoverEvent: %v", err)
			}
		}
	}

	return nil
}
