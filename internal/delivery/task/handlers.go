package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
)

type admissionAdvancer interface {
	Advance(ctx context.Context, eID string) (*models.Promotion, error)
}

type Handlers struct {
	admSvc admissionAdvancer
	l      logger.Logger
}

func NewHandlers(admSvc admissionAdvancer, l logger.Logger) *Handlers {
	return &Handlers{admSvc: admSvc, l: l}
}

// HandleAdmissionExpire advances the event. When the window was already
// completed or expired by someone else this is a no-op.
func (h *Handlers) HandleAdmissionExpire(ctx context.Context, t *asynq.Task) error {
	var payload AdmissionExpirePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	p, err := h.admSvc.Advance(ctx, payload.EventID)
	if err != nil {
		h.l.Errorf(ctx, "task.Handlers.HandleAdmissionExpire: %v", err)
		return err
	}

	h.l.Debugw(ctx, "Expiry task processed",
		"event_id", payload.EventID,
		"user_id", payload.UserID,
		"changed", p.Changed(),
	)

	return nil
}
