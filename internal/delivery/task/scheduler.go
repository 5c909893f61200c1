package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
)

// expiryLag lets the task land just after the inclusive expiry instant.
const expiryLag = 50 * time.Millisecond

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scheduler enqueues one delayed task per admission window that re-runs the
// admission step when the window runs out.
type Scheduler struct {
	client enqueuer
	l      logger.Logger
}

func NewScheduler(client *asynq.Client, l logger.Logger) *Scheduler {
	return &Scheduler{client: client, l: l}
}

func taskID(w *models.AdmissionWindow) string {
	return fmt.Sprintf("expire:%s:%d", w.EventID, w.SequenceNumber)
}

func (s *Scheduler) ScheduleExpiry(ctx context.Context, w *models.AdmissionWindow) error {
	payload, err := json.Marshal(AdmissionExpirePayload{
		EventID:        w.EventID,
		UserID:         w.UserID,
		SequenceNumber: w.SequenceNumber,
	})
	if err != nil {
		return err
	}

	_, err = s.client.EnqueueContext(ctx,
		asynq.NewTask(TypeAdmissionExpire, payload),
		asynq.TaskID(taskID(w)),
		asynq.ProcessAt(w.ExpiresAt.Add(expiryLag)),
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(3),
		asynq.Retention(time.Hour),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		// Same window scheduled twice, e.g. by recovery.
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue expiry %s: %w", taskID(w), err)
	}

	s.l.Debugw(ctx, "Expiry scheduled",
		"event_id", w.EventID,
		"user_id", w.UserID,
		"process_at", w.ExpiresAt,
	)

	return nil
}
