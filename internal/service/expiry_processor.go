package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	repository "github.com/vogiaan1904/ticketbottle-boxoffice/internal/repository/redis"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
)

// ExpiryProcessor periodically advances every event with a queue or an open
// window, so windows expire and the line moves even when nobody polls.
type ExpiryProcessor interface {
	Start(ctx context.Context) error
	Stop() error
	SweepEvent(ctx context.Context, eventID string) error
	GetStatus() ProcessorStatus
}

type ProcessorStatus struct {
	IsRunning     bool      `json:"is_running"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	LastProcessed time.Time `json:"last_processed,omitempty"`
	EventsActive  int       `json:"events_active"`
	TotalGranted  int64     `json:"total_granted"`
	TotalExpired  int64     `json:"total_expired"`
	ErrorCount    int64     `json:"error_count"`
}

type ProcessorConfig struct {
	ProcessInterval       time.Duration
	RetryAttempts         int
	RetryDelay            time.Duration
	ShutdownTimeout       time.Duration
	MaxProcessingDuration time.Duration
}

type expiryProcessor struct {
	admSvc  AdmissionService
	admRepo repository.AdmissionRepository
	l       logger.Logger
	config  ProcessorConfig

	mu        sync.RWMutex
	isRunning bool
	startedAt time.Time
	stopCh    chan struct{}
	ticker    *time.Ticker
	wg        sync.WaitGroup

	lastProcessed time.Time
	eventsActive  int
	totalGranted  int64
	totalExpired  int64
	errorCount    int64
}

func NewExpiryProcessor(
	admSvc AdmissionService,
	admRepo repository.AdmissionRepository,
	l logger.Logger,
	interval, shutdownTimeout time.Duration,
) ExpiryProcessor {
	return &expiryProcessor{
		admSvc:  admSvc,
		admRepo: admRepo,
		l:       l,
		config: ProcessorConfig{
			ProcessInterval:       interval,
			RetryAttempts:         3,
			RetryDelay:            100 * time.Millisecond,
			ShutdownTimeout:       shutdownTimeout,
			MaxProcessingDuration: 10 * time.Second,
		},
	}
}

func (p *expiryProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning {
		return errors.New("expiry processor is already running")
	}

	p.l.Infow(ctx, "Starting expiry processor",
		"interval", p.config.ProcessInterval,
	)

	p.isRunning = true
	p.startedAt = time.Now()
	p.stopCh = make(chan struct{})
	p.ticker = time.NewTicker(p.config.ProcessInterval)

	p.wg.Add(1)
	go p.processLoop(ctx, p.ticker, p.stopCh)

	return nil
}

func (p *expiryProcessor) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isRunning {
		return errors.New("expiry processor is not running")
	}

	p.l.Info(context.Background(), "Stopping expiry processor...")

	close(p.stopCh)
	p.ticker.Stop()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.l.Info(context.Background(), "Expiry processor stopped gracefully")
	case <-time.After(p.config.ShutdownTimeout):
		p.l.Warn(context.Background(), "Expiry processor shutdown timeout exceeded")
	}

	p.isRunning = false
	return nil
}

func (p *expiryProcessor) processLoop(ctx context.Context, ticker *time.Ticker, stopCh <-chan struct{}) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			p.l.Info(ctx, "Expiry processor stopped due to context cancellation")
			return
		case <-stopCh:
			return
		case <-ticker.C:
			p.sweepAll(ctx)
		}
	}
}

func (p *expiryProcessor) sweepAll(ctx context.Context) {
	startTime := time.Now()
	defer func() {
		p.mu.Lock()
		p.lastProcessed = time.Now()
		p.mu.Unlock()

		if d := time.Since(startTime); d > p.config.MaxProcessingDuration {
			p.l.Warnw(ctx, "Expiry sweep took longer than expected",
				"duration", d,
				"max_duration", p.config.MaxProcessingDuration,
			)
		}
	}()

	events, err := p.admRepo.ActiveEvents(ctx)
	if err != nil {
		p.incrementErrorCount()
		p.l.Errorf(ctx, "service.expiryProcessor.sweepAll: %v", err)
		return
	}

	p.mu.Lock()
	p.eventsActive = len(events)
	p.mu.Unlock()

	for _, eID := range events {
		if err := p.SweepEvent(ctx, eID); err != nil {
			p.incrementErrorCount()
			p.l.Errorw(ctx, "Failed to sweep event",
				"event_id", eID,
				"error", err,
			)
		}
	}
}

func (p *expiryProcessor) SweepEvent(ctx context.Context, eventID string) error {
	sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.withRetry(sweepCtx, func() error {
		pr, err := p.admSvc.Advance(sweepCtx, eventID)
		if err != nil {
			return err
		}

		p.mu.Lock()
		if pr.Expired != nil {
			p.totalExpired++
		}
		if pr.Granted != nil {
			p.totalGranted++
		}
		p.mu.Unlock()
		return nil
	})
}

func (p *expiryProcessor) withRetry(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt < p.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := operation(); err != nil {
			lastErr = err
			p.l.Warnw(ctx, "Sweep failed, retrying",
				"attempt", attempt+1,
				"max_attempts", p.config.RetryAttempts,
				"error", err,
			)
			continue
		}

		return nil
	}

	return fmt.Errorf("operation failed after %d attempts: %w", p.config.RetryAttempts, lastErr)
}

func (p *expiryProcessor) incrementErrorCount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errorCount++
}

func (p *expiryProcessor) GetStatus() ProcessorStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return ProcessorStatus{
		IsRunning:     p.isRunning,
		StartedAt:     p.startedAt,
		LastProcessed: p.lastProcessed,
		EventsActive:  p.eventsActive,
		TotalGranted:  p.totalGranted,
		TotalExpired:  p.totalExpired,
		ErrorCount:    p.errorCount,
	}
}
