package producer

import (
	"context"

	kafka "github.com/vogiaan1904/ticketbottle-boxoffice/internal/delivery/kafka"
)

// NewNoopProducer is used when Kafka is disabled. Every publish succeeds and
// goes nowhere.
func NewNoopProducer() Producer {
	return noopProducer{}
}

type noopProducer struct{}

func (noopProducer) PublishQueueJoined(context.Context, kafka.QueueJoinedEvent) error { return nil }
func (noopProducer) PublishQueueLeft(context.Context, kafka.QueueLeftEvent) error     { return nil }
func (noopProducer) PublishAdmissionGranted(context.Context, kafka.AdmissionGrantedEvent) error {
	return nil
}
func (noopProducer) PublishAdmissionExpired(context.Context, kafka.AdmissionExpiredEvent) error {
	return nil
}
func (noopProducer) PublishAdmissionCompleted(context.Context, kafka.AdmissionCompletedEvent) error {
	return nil
}
func (noopProducer) PublishPurchaseCompleted(context.Context, kafka.PurchaseCompletedEvent) error {
	return nil
}
func (noopProducer) Close() error { return nil }
