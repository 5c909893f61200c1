package service

import (
	"time"

	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
)

type JoinQueueOutput struct {
	SequenceNumber int64                  `json:"sequence_number"`
	Status         models.AdmissionStatus `json:"status"`
}

type PurchaseInput struct {
	EventID    string                `json:"event_id" validate:"required"`
	UserID     string                `json:"user_id" validate:"required"`
	CategoryID string                `json:"category_id" validate:"required"`
	Quantity   int                   `json:"quantity"`
	Payment    models.PaymentDetails `json:"payment"`
}

type CreateEventInput struct {
	ID         string                `json:"id" validate:"required,max=64"`
	Name       string                `json:"name" validate:"required"`
	VenueName  string                `json:"venue_name"`
	StartsAt   time.Time             `json:"starts_at"`
	Categories []CreateCategoryInput `json:"categories" validate:"required,min=1,dive"`
}

type CreateCategoryInput struct {
	ID       string `json:"id" validate:"required,max=64"`
	Name     string `json:"name" validate:"required"`
	Price    int64  `json:"price" validate:"gte=0"`
	Capacity int    `json:"capacity" validate:"gte=0"`
}

type RestockInput struct {
	CategoryID string `json:"category_id" validate:"required"`
	Quantity   int    `json:"quantity" validate:"gt=0"`
}
