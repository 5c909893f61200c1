package service

import (
	"context"
	"errors"
	"time"

	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/delivery/kafka"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/delivery/kafka/producer"
	errs "github.com/vogiaan1904/ticketbottle-boxoffice/internal/errors"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/metrics"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	repository "github.com/vogiaan1904/ticketbottle-boxoffice/internal/repository/redis"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/clock"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
)

type AdmissionService interface {
	// Advance expires a stale window and promotes the next user, at most once
	// per transition no matter how many callers race.
	Advance(ctx context.Context, eID string) (*models.Promotion, error)
	// Holds returns uID's active window, or NotYourTurnError / ErrExpired.
	Holds(ctx context.Context, eID, uID string) (*models.AdmissionWindow, error)
	// Complete ends uID's active window and promotes the next user. It
	// reports false when uID held no active window.
	Complete(ctx context.Context, eID, uID string, outcome models.Outcome) (bool, error)
	Status(ctx context.Context, eID, uID string) (models.AdmissionStatus, error)
}

type AdmissionConfig struct {
	GrantDuration time.Duration
}

type admissionService struct {
	repo   repository.AdmissionRepository
	qSvc   QueueService
	prod   producer.Producer
	sched  ExpiryScheduler
	passes PassIssuer
	clk    clock.Clock
	cfg    AdmissionConfig
	m      *metrics.Metrics
	l      logger.Logger
}

// NewAdmissionService builds the admission controller. sched and passes may
// be nil; expiry then relies on the sweep and lazy reads alone.
func NewAdmissionService(
	repo repository.AdmissionRepository,
	qSvc QueueService,
	prod producer.Producer,
	sched ExpiryScheduler,
	passes PassIssuer,
	clk clock.Clock,
	cfg AdmissionConfig,
	m *metrics.Metrics,
	l logger.Logger,
) AdmissionService {
	return &admissionService{
		repo:   repo,
		qSvc:   qSvc,
		prod:   prod,
		sched:  sched,
		passes: passes,
		clk:    clk,
		cfg:    cfg,
		m:      m,
		l:      l,
	}
}

func (s *admissionService) Advance(ctx context.Context, eID string) (*models.Promotion, error) {
	p, err := s.repo.Advance(ctx, eID, s.clk.Now(), s.cfg.GrantDuration)
	if err != nil {
		s.l.Errorf(ctx, "service.admissionService.Advance: %v", err)
		return nil, err
	}

	if p.Expired != nil {
		s.onExpired(ctx, p.Expired)
	}
	if p.Granted != nil {
		s.onGranted(ctx, p.Granted)
	}

	return p, nil
}

func (s *admissionService) onExpired(ctx context.Context, w *models.AdmissionWindow) {
	s.m.AdmissionExpiries.WithLabelValues(w.EventID).Inc()
	s.l.Infow(ctx, "Admission window expired",
		"event_id", w.EventID,
		"user_id", w.UserID,
		"expires_at", w.ExpiresAt,
	)

	if err := s.prod.PublishAdmissionExpired(ctx, kafka.AdmissionExpiredEvent{
		UserID:    w.UserID,
		EventID:   w.EventID,
		ExpiredAt: w.ExpiresAt,
	}); err != nil {
		s.l.Errorf(ctx, "service.admissionService.onExpired: %v", err)
	}
}

func (s *admissionService) onGranted(ctx context.Context, w *models.AdmissionWindow) {
	s.m.AdmissionGrants.WithLabelValues(w.EventID).Inc()
	s.l.Infow(ctx, "Admission window granted",
		"event_id", w.EventID,
		"user_id", w.UserID,
		"seq", w.SequenceNumber,
		"expires_at", w.ExpiresAt,
	)

	if s.sched != nil {
		if err := s.sched.ScheduleExpiry(ctx, w); err != nil {
			s.l.Warnf(ctx, "service.admissionService.onGranted: schedule expiry: %v", err)
		}
	}

	if err := s.prod.PublishAdmissionGranted(ctx, kafka.AdmissionGrantedEvent{
		UserID:         w.UserID,
		EventID:        w.EventID,
		SequenceNumber: w.SequenceNumber,
		GrantedAt:      w.GrantedAt,
		ExpiresAt:      w.ExpiresAt,
	}); err != nil {
		s.l.Errorf(ctx, "service.admissionService.onGranted: %v", err)
	}
}

func (s *admissionService) Holds(ctx context.Context, eID, uID string) (*models.AdmissionWindow, error) {
	if _, err := s.Advance(ctx, eID); err != nil {
		return nil, err
	}

	w, err := s.repo.GetWindow(ctx, eID)
	if err != nil {
		return nil, err
	}
	if w != nil && w.IsHeldBy(uID, s.clk.Now()) {
		return w, nil
	}

	rank, err := s.qSvc.Rank(ctx, eID, uID)
	if err == nil {
		return nil, &errs.NotYourTurnError{Rank: rank}
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	outcome, err := s.repo.GetOutcome(ctx, eID, uID)
	if err != nil {
		return nil, err
	}
	if outcome == models.OutcomeExpired {
		return nil, errs.ErrExpired
	}

	return nil, &errs.NotYourTurnError{}
}

func (s *admissionService) Complete(ctx context.Context, eID, uID string, outcome models.Outcome) (bool, error) {
	ok, err := s.repo.Complete(ctx, eID, uID, outcome, s.clk.Now())
	if err != nil {
		s.l.Errorf(ctx, "service.admissionService.Complete: %v", err)
		return false, err
	}
	if !ok {
		return false, nil
	}

	s.l.Infow(ctx, "Admission window completed",
		"event_id", eID,
		"user_id", uID,
		"outcome", outcome,
	)

	if err := s.prod.PublishAdmissionCompleted(ctx, kafka.AdmissionCompletedEvent{
		UserID:  uID,
		EventID: eID,
		Outcome: string(outcome),
	}); err != nil {
		s.l.Errorf(ctx, "service.admissionService.Complete: %v", err)
	}

	// The window is already closed; a failed promotion is retried by the sweep.
	if _, err := s.Advance(ctx, eID); err != nil {
		s.l.Warnf(ctx, "service.admissionService.Complete: promote next: %v", err)
	}

	return true, nil
}

func (s *admissionService) Status(ctx context.Context, eID, uID string) (models.AdmissionStatus, error) {
	if _, err := s.Advance(ctx, eID); err != nil {
		return models.AdmissionStatus{}, err
	}

	w, err := s.repo.GetWindow(ctx, eID)
	if err != nil {
		return models.AdmissionStatus{}, err
	}
	if w != nil && w.IsHeldBy(uID, s.clk.Now()) {
		st := models.ActiveStatus(w.ExpiresAt)
		if s.passes != nil {
			pass, err := s.passes.IssuePurchasePass(w)
			if err != nil {
				s.l.Warnf(ctx, "service.admissionService.Status: issue pass: %v", err)
			}
			st.PurchasePass = pass
		}
		return st, nil
	}

	rank, err := s.qSvc.Rank(ctx, eID, uID)
	if err == nil {
		length, err := s.qSvc.Length(ctx, eID)
		if err != nil {
			return models.AdmissionStatus{}, err
		}
		return models.QueuedStatus(rank, length), nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return models.AdmissionStatus{}, err
	}

	outcome, err := s.repo.GetOutcome(ctx, eID, uID)
	if err != nil {
		return models.AdmissionStatus{}, err
	}
	if outcome == models.OutcomeExpired {
		return models.ExpiredStatus(), nil
	}

	return models.NotQueuedStatus(), nil
}
