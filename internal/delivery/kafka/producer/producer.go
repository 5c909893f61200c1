package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	kafka "github.com/vogiaan1904/ticketbottle-boxoffice/internal/delivery/kafka"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
)

type Producer interface {
	PublishQueueJoined(ctx context.Context, event kafka.QueueJoinedEvent) error
	PublishQueueLeft(ctx context.Context, event kafka.QueueLeftEvent) error
	PublishAdmissionGranted(ctx context.Context, event kafka.AdmissionGrantedEvent) error
	PublishAdmissionExpired(ctx context.Context, event kafka.AdmissionExpiredEvent) error
	PublishAdmissionCompleted(ctx context.Context, event kafka.AdmissionCompletedEvent) error
	PublishPurchaseCompleted(ctx context.Context, event kafka.PurchaseCompletedEvent) error
	Close() error
}

type implProducer struct {
	l    logger.Logger
	prod sarama.SyncProducer
}

func NewProducer(prod sarama.SyncProducer, l logger.Logger) Producer {
	return &implProducer{
		l:    l,
		prod: prod,
	}
}

func (p *implProducer) PublishQueueJoined(ctx context.Context, event kafka.QueueJoinedEvent) error {
	event.Timestamp = time.Now()
	return p.send(ctx, kafka.TopicQueueJoined, event.EventID, event)
}

func (p *implProducer) PublishQueueLeft(ctx context.Context, event kafka.QueueLeftEvent) error {
	event.Timestamp = time.Now()
	return p.send(ctx, kafka.TopicQueueLeft, event.EventID, event)
}

func (p *implProducer) PublishAdmissionGranted(ctx context.Context, event kafka.AdmissionGrantedEvent) error {
	event.Timestamp = time.Now()
	return p.send(ctx, kafka.TopicAdmissionGranted, event.EventID, event)
}

func (p *implProducer) PublishAdmissionExpired(ctx context.Context, event kafka.AdmissionExpiredEvent) error {
	event.Timestamp = time.Now()
	return p.send(ctx, kafka.TopicAdmissionExpired, event.EventID, event)
}

func (p *implProducer) PublishAdmissionCompleted(ctx context.Context, event kafka.AdmissionCompletedEvent) error {
	event.Timestamp = time.Now()
	return p.send(ctx, kafka.TopicAdmissionCompleted, event.EventID, event)
}

func (p *implProducer) PublishPurchaseCompleted(ctx context.Context, event kafka.PurchaseCompletedEvent) error {
	event.Timestamp = time.Now()
	return p.send(ctx, kafka.TopicPurchaseCompleted, event.EventID, event)
}

func (p *implProducer) send(ctx context.Context, topic, key string, event any) error {
	val, err := json.Marshal(event)
	if err != nil {
		p.l.Errorf(ctx, "delivery.kafka.producer.send: %s: %v", topic, err)
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key), // Partition by event_id for ordering
		Value: sarama.ByteEncoder(val),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("timestamp"),
				Value: []byte(time.Now().Format(time.RFC3339)),
			},
		},
	}

	_, _, err = p.prod.SendMessage(msg)
	return err
}

func (p *implProducer) Close() error {
	if err := p.prod.Close(); err != nil {
		return err
	}

	return nil
}
