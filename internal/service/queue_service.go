package service

import (
	"context"

	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/metrics"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	repository "github.com/vogiaan1904/ticketbottle-boxoffice/internal/repository/redis"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/clock"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
)

type QueueService interface {
	Enqueue(ctx context.Context, eID, uID string) (int64, error)
	PeekHead(ctx context.Context, eID string) (*models.QueueEntry, error)
	Remove(ctx context.Context, eID, uID string) error
	Rank(ctx context.Context, eID, uID string) (int64, error)
	Length(ctx context.Context, eID string) (int64, error)
}

type queueService struct {
	repo repository.QueueRepository
	clk  clock.Clock
	m    *metrics.Metrics
	l    logger.Logger
}

func NewQueueService(repo repository.QueueRepository, clk clock.Clock, m *metrics.Metrics, l logger.Logger) QueueService {
	return &queueService{
		repo: repo,
		clk:  clk,
		m:    m,
		l:    l,
	}
}

func (s *queueService) Enqueue(ctx context.Context, eID, uID string) (int64, error) {
	seq, err := s.repo.Enqueue(ctx, eID, uID, s.clk.Now())
	if err != nil {
		return 0, err
	}

	s.m.QueueJoins.WithLabelValues(eID).Inc()
	s.l.Infow(ctx, "User joined queue",
		"event_id", eID,
		"user_id", uID,
		"seq", seq,
	)

	return seq, nil
}

func (s *queueService) PeekHead(ctx context.Context, eID string) (*models.QueueEntry, error) {
	return s.repo.PeekHead(ctx, eID)
}

func (s *queueService) Remove(ctx context.Context, eID, uID string) error {
	if err := s.repo.Remove(ctx, eID, uID); err != nil {
		return err
	}

	s.m.QueueLeaves.WithLabelValues(eID).Inc()
	s.l.Infow(ctx, "User left queue",
		"event_id", eID,
		"user_id", uID,
	)

	return nil
}

func (s *queueService) Rank(ctx context.Context, eID, uID string) (int64, error) {
	return s.repo.Rank(ctx, eID, uID)
}

func (s *queueService) Length(ctx context.Context, eID string) (int64, error) {
	return s.repo.Length(ctx, eID)
}
