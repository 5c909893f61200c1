package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/IBM/sarama"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/delivery/kafka"
	errs "github.com/vogiaan1904/ticketbottle-boxoffice/internal/errors"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/service"
)

// HandleInventoryRestock adds seats to a category. Messages that can never
// succeed are logged and dropped.
func (c *Consumer) HandleInventoryRestock(ctx context.Context, message *sarama.ConsumerMessage) error {
	c.l.Info(ctx, "HandleInventoryRestock consumed")

	var e kafka.InventoryRestockEvent
	if err := json.Unmarshal(message.Value, &e); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.handlers.HandleInventoryRestock: %v", err)
		return nil
	}

	available, err := c.svc.Restock(ctx, service.RestockInput{
		CategoryID: e.CategoryID,
		Quantity:   e.Quantity,
	})
	if err != nil {
		if errors.Is(err, errs.ErrInvalidQuantity) ||
			errors.Is(err, errs.ErrInvalidCategory) ||
			errors.Is(err, errs.ErrLedgerCorruption) {
			c.l.Warnw(ctx, "Dropping restock",
				"category_id", e.CategoryID,
				"quantity", e.Quantity,
				"error", err,
			)
			return nil
		}
		c.l.Errorf(ctx, "delivery.kafka.consumer.handlers.HandleInventoryRestock: %v", err)
		return err
	}

	c.l.Infow(ctx, "Restock applied",
		"category_id", e.CategoryID,
		"quantity", e.Quantity,
		"available", available,
	)

	return nil
}
