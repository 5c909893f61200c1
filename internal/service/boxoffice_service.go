package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/delivery/kafka"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/delivery/kafka/producer"
	errs "github.com/vogiaan1904/ticketbottle-boxoffice/internal/errors"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	pgRepo "github.com/vogiaan1904/ticketbottle-boxoffice/internal/repository/postgres"
	repository "github.com/vogiaan1904/ticketbottle-boxoffice/internal/repository/redis"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/clock"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// BoxOfficeService is what the transports call.
type BoxOfficeService interface {
	JoinQueue(ctx context.Context, eID, uID string) (*JoinQueueOutput, error)
	GetStatus(ctx context.Context, eID, uID string) (models.AdmissionStatus, error)
	LeaveQueue(ctx context.Context, eID, uID string) error
	Purchase(ctx context.Context, in PurchaseInput) (*models.PurchaseResult, error)

	ListUserTickets(ctx context.Context, uID string) ([]models.UserTicket, error)
	GetAvailability(ctx context.Context, eID string) (*models.EventAvailability, error)
	CreateEvent(ctx context.Context, in CreateEventInput) (*models.Event, error)
	Restock(ctx context.Context, in RestockInput) (int, error)
	ReconcileCategory(ctx context.Context, catID string) (*models.LedgerSnapshot, error)
}

type boxOfficeService struct {
	qSvc      QueueService
	admSvc    AdmissionService
	ledgerSvc LedgerService
	pSvc      PurchaseService
	catalog   pgRepo.CatalogRepository
	sales     pgRepo.SaleRepository
	prod      producer.Producer
	clk       clock.Clock
	v         *validator.Validate
	l         logger.Logger
}

func NewBoxOfficeService(
	qSvc QueueService,
	admSvc AdmissionService,
	ledgerSvc LedgerService,
	pSvc PurchaseService,
	catalog pgRepo.CatalogRepository,
	sales pgRepo.SaleRepository,
	prod producer.Producer,
	clk clock.Clock,
	l logger.Logger,
) BoxOfficeService {
	return &boxOfficeService{
		qSvc:      qSvc,
		admSvc:    admSvc,
		ledgerSvc: ledgerSvc,
		pSvc:      pSvc,
		catalog:   catalog,
		sales:     sales,
		prod:      prod,
		clk:       clk,
		v:         validator.New(),
		l:         l,
	}
}

func (s *boxOfficeService) JoinQueue(ctx context.Context, eID, uID string) (*JoinQueueOutput, error) {
	if _, err := s.catalog.GetEvent(ctx, eID); err != nil {
		if !errors.Is(err, errs.ErrEventNotFound) {
			s.l.Errorf(ctx, "service.boxOfficeService.JoinQueue: %v", err)
		}
		return nil, err
	}

	// A lapsed window is recorded as expired before its holder rejoins.
	if _, err := s.admSvc.Advance(ctx, eID); err != nil {
		s.l.Warnf(ctx, "service.boxOfficeService.JoinQueue: advance: %v", err)
	}

	seq, err := s.qSvc.Enqueue(ctx, eID, uID)
	if err != nil {
		return nil, err
	}

	st, err := s.admSvc.Status(ctx, eID, uID)
	if err != nil {
		// Joined regardless; the next poll reports the real state.
		s.l.Warnf(ctx, "service.boxOfficeService.JoinQueue: status: %v", err)
		st = models.AdmissionStatus{Kind: models.AdmissionQueued}
	}

	if err := s.prod.PublishQueueJoined(ctx, kafka.QueueJoinedEvent{
		UserID:         uID,
		EventID:        eID,
		SequenceNumber: seq,
		Position:       st.Rank,
		JoinedAt:       s.clk.Now(),
	}); err != nil {
		s.l.Errorf(ctx, "service.boxOfficeService.JoinQueue: %v", err)
	}

	return &JoinQueueOutput{
		SequenceNumber: seq,
		Status:         st,
	}, nil
}

func (s *boxOfficeService) GetStatus(ctx context.Context, eID, uID string) (models.AdmissionStatus, error) {
	return s.admSvc.Status(ctx, eID, uID)
}

// LeaveQueue removes a waiting user, or abandons the window of the user who
// holds it. Anyone else gets ErrNotFound, every time, including a holder
// whose window has already lapsed.
func (s *boxOfficeService) LeaveQueue(ctx context.Context, eID, uID string) error {
	reason := kafka.LeftReasonUser

	err := s.qSvc.Remove(ctx, eID, uID)
	if errors.Is(err, errs.ErrNotFound) {
		if _, aErr := s.admSvc.Advance(ctx, eID); aErr != nil {
			s.l.Warnf(ctx, "service.boxOfficeService.LeaveQueue: advance: %v", aErr)
		}
		ok, cErr := s.admSvc.Complete(ctx, eID, uID, models.OutcomeAbandoned)
		if cErr != nil {
			return cErr
		}
		if !ok {
			return errs.ErrNotFound
		}
		reason = kafka.LeftReasonAbandoned
		err = nil
	}
	if err != nil {
		return err
	}

	if err := s.prod.PublishQueueLeft(ctx, kafka.QueueLeftEvent{
		UserID:  uID,
		EventID: eID,
		Reason:  reason,
		LeftAt:  s.clk.Now(),
	}); err != nil {
		s.l.Errorf(ctx, "service.boxOfficeService.LeaveQueue: %v", err)
	}

	return nil
}

func (s *boxOfficeService) Purchase(ctx context.Context, in PurchaseInput) (*models.PurchaseResult, error) {
	req, err := models.NewPurchaseRequest(in.EventID, in.UserID, in.CategoryID, in.Quantity, in.Payment)
	if err != nil {
		return nil, err
	}
	if err := s.v.Struct(req.Payment); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPaymentDetailsRequired, err)
	}

	return s.pSvc.Purchase(ctx, req)
}

func (s *boxOfficeService) ListUserTickets(ctx context.Context, uID string) ([]models.UserTicket, error) {
	txns, err := s.sales.ListByUser(ctx, uID)
	if err != nil {
		s.l.Errorf(ctx, "service.boxOfficeService.ListUserTickets: %v", err)
		return nil, err
	}

	names := make(map[string]string)
	out := make([]models.UserTicket, 0, len(txns))
	for _, txn := range txns {
		name, ok := names[txn.EventID]
		if !ok {
			if ev, err := s.catalog.GetEvent(ctx, txn.EventID); err == nil {
				name = ev.Name
			}
			names[txn.EventID] = name
		}

		out = append(out, models.UserTicket{
			TransactionID: txn.ID,
			PurchasedAt:   txn.CreatedAt,
			EventID:       txn.EventID,
			EventName:     name,
			Amount:        txn.Amount,
			Tickets:       txn.Tickets,
		})
	}

	return out, nil
}

func (s *boxOfficeService) GetAvailability(ctx context.Context, eID string) (*models.EventAvailability, error) {
	if _, err := s.catalog.GetEvent(ctx, eID); err != nil {
		return nil, err
	}

	cats, err := s.catalog.GetTicketCategories(ctx, eID)
	if err != nil {
		return nil, err
	}

	out := &models.EventAvailability{
		EventID:    eID,
		Categories: make([]models.CategoryAvailability, len(cats)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i, cat := range cats {
		g.Go(func() error {
			ca := models.CategoryAvailability{
				CategoryID:     cat.ID,
				Name:           cat.Name,
				Price:          cat.Price,
				Capacity:       cat.Capacity,
				SeatsAvailable: cat.SeatsAvailable,
			}

			snap, err := s.ledgerSvc.Snapshot(gctx, cat.ID)
			switch {
			case err == nil:
				ca.Capacity = snap.Capacity
				ca.SeatsAvailable = snap.Available
				ca.Halted = snap.Halted
			case errors.Is(err, repository.ErrLedgerNotLoaded):
				// Nothing sold through the ledger yet; the stored row is current.
			default:
				return err
			}

			mu.Lock()
			out.Categories[i] = ca
			if ca.SeatsAvailable > 0 && !ca.Halted {
				out.AnyAvailable = true
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.l.Errorf(ctx, "service.boxOfficeService.GetAvailability: %v", err)
		return nil, err
	}

	return out, nil
}

func (s *boxOfficeService) CreateEvent(ctx context.Context, in CreateEventInput) (*models.Event, error) {
	if err := s.v.Struct(in); err != nil {
		return nil, err
	}

	event := &models.Event{
		ID:        in.ID,
		Name:      in.Name,
		VenueName: in.VenueName,
		StartsAt:  in.StartsAt,
	}
	for _, c := range in.Categories {
		event.Categories = append(event.Categories, models.TicketCategory{
			ID:             c.ID,
			EventID:        in.ID,
			Name:           c.Name,
			Price:          c.Price,
			Capacity:       c.Capacity,
			SeatsAvailable: c.Capacity,
		})
	}

	if err := s.catalog.CreateEvent(ctx, event); err != nil {
		s.l.Errorf(ctx, "service.boxOfficeService.CreateEvent: %v", err)
		return nil, err
	}

	for i := range event.Categories {
		if err := s.ledgerSvc.Load(ctx, &event.Categories[i]); err != nil {
			s.l.Errorf(ctx, "service.boxOfficeService.CreateEvent: load ledger: %v", err)
			return nil, err
		}
	}

	s.l.Infow(ctx, "Event created",
		"event_id", event.ID,
		"categories", len(event.Categories),
	)

	return event, nil
}

func (s *boxOfficeService) Restock(ctx context.Context, in RestockInput) (int, error) {
	if err := s.v.Struct(in); err != nil {
		return 0, errs.ErrInvalidQuantity
	}
	return s.ledgerSvc.Restock(ctx, in.CategoryID, in.Quantity)
}

func (s *boxOfficeService) ReconcileCategory(ctx context.Context, catID string) (*models.LedgerSnapshot, error) {
	return s.ledgerSvc.Reconcile(ctx, catID)
}
