package models

import (
	"strings"

	errs "github.com/vogiaan1904/ticketbottle-boxoffice/internal/errors"
)

type PurchaseRequest struct {
	EventID    string
	UserID     string
	CategoryID string
	Quantity   int
	Payment    PaymentDetails
}

// NewPurchaseRequest checks the parts of a purchase that can be judged without
// touching any store.
func NewPurchaseRequest(eventID, userID, categoryID string, quantity int, payment PaymentDetails) (*PurchaseRequest, error) {
	if quantity < 1 {
		return nil, errs.ErrInvalidQuantity
	}
	if strings.TrimSpace(payment.CardHolderName) == "" || strings.TrimSpace(payment.CardNumber) == "" {
		return nil, errs.ErrPaymentDetailsRequired
	}
	if strings.TrimSpace(categoryID) == "" {
		return nil, errs.ErrInvalidCategory
	}

	return &PurchaseRequest{
		EventID:    eventID,
		UserID:     userID,
		CategoryID: categoryID,
		Quantity:   quantity,
		Payment:    payment,
	}, nil
}

type PurchaseResult struct {
	TransactionID string   `json:"transaction_id"`
	Amount        int64    `json:"amount"`
	Seats         []int    `json:"seats"`
	Tickets       []Ticket `json:"tickets,omitempty"`
}
