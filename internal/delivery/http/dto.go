package http

import (
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/service"
)

type paymentRequest struct {
	CardHolderName string `json:"card_holder_name" validate:"required"`
	CardNumber     string `json:"card_number" validate:"required"`
	CVV            string `json:"cvv" validate:"required"`
	ExpiryMonth    int    `json:"expiry_month" validate:"required"`
	ExpiryYear     int    `json:"expiry_year" validate:"required"`
	BillingAddress string `json:"billing_address"`
}

type purchaseRequest struct {
	CategoryID string         `json:"category_id" validate:"required"`
	Quantity   int            `json:"quantity" validate:"required,min=1"`
	Payment    paymentRequest `json:"payment"`
}

func (r purchaseRequest) toInput(eventID, userID string) service.PurchaseInput {
	return service.PurchaseInput{
		EventID:    eventID,
		UserID:     userID,
		CategoryID: r.CategoryID,
		Quantity:   r.Quantity,
		Payment: models.PaymentDetails{
			CardHolderName: r.Payment.CardHolderName,
			CardNumber:     r.Payment.CardNumber,
			CVV:            r.Payment.CVV,
			ExpiryMonth:    r.Payment.ExpiryMonth,
			ExpiryYear:     r.Payment.ExpiryYear,
			BillingAddress: r.Payment.BillingAddress,
		},
	}
}

type purchaseResponse struct {
	TransactionID string           `json:"transaction_id"`
	Amount        int64            `json:"amount"`
	Seats         []int            `json:"seats"`
	Tickets       []ticketResponse `json:"tickets"`
}

type ticketResponse struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id"`
	SeatNo     int    `json:"seat_no"`
}

func toPurchaseResponse(r *models.PurchaseResult) purchaseResponse {
	resp := purchaseResponse{
		TransactionID: r.TransactionID,
		Amount:        r.Amount,
		Seats:         r.Seats,
		Tickets:       make([]ticketResponse, 0, len(r.Tickets)),
	}
	for _, t := range r.Tickets {
		resp.Tickets = append(resp.Tickets, ticketResponse{ID: t.ID, CategoryID: t.CategoryID, SeatNo: t.SeatNo})
	}
	return resp
}

type restockRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type restockResponse struct {
	CategoryID     string `json:"category_id"`
	SeatsAvailable int    `json:"seats_available"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
