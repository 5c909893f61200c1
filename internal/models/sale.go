package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type TransactionStatus string

const (
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusRolledBack TransactionStatus = "rolled_back"
)

type Transaction struct {
	ID              string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string            `gorm:"not null;index;type:varchar(64)" json:"user_id"`
	EventID         string            `gorm:"not null;type:varchar(64)" json:"event_id"`
	PaymentMethodID string            `gorm:"type:varchar(36)" json:"payment_method_id,omitempty"`
	Amount          int64             `gorm:"not null" json:"amount"`
	Status          TransactionStatus `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt       time.Time         `json:"created_at"`

	Tickets []Ticket `gorm:"foreignKey:TransactionID" json:"tickets,omitempty"`
}

type TicketStatus string

const (
	TicketStatusIssued    TicketStatus = "issued"
	TicketStatusCancelled TicketStatus = "cancelled"
)

// Ticket is one issued seat. (CategoryID, SeatNo) is unique among issued
// tickets; the partial index is created alongside the schema.
type Ticket struct {
	ID            string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CategoryID    string       `gorm:"not null;index;type:varchar(64)" json:"category_id"`
	EventID       string       `gorm:"not null;index;type:varchar(64)" json:"event_id"`
	SeatNo        int          `gorm:"not null" json:"seat_no"`
	Status        TicketStatus `gorm:"type:varchar(20);not null" json:"status"`
	TransactionID string       `gorm:"not null;index;type:varchar(36)" json:"transaction_id"`
	CreatedAt     time.Time    `json:"created_at"`
}

// PaymentMethod is the recorded card. Only the last four digits are kept.
type PaymentMethod struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID         string    `gorm:"not null;index;type:varchar(64)" json:"user_id"`
	CardHolderName string    `gorm:"not null" json:"card_holder_name"`
	CardLast4      string    `gorm:"type:varchar(4)" json:"card_last4"`
	ExpiryMonth    int       `json:"expiry_month"`
	ExpiryYear     int       `json:"expiry_year"`
	BillingAddress string    `json:"billing_address"`
	CreatedAt      time.Time `json:"created_at"`
}

// PaymentDetails are opaque to the sale: they are checked for presence and
// recorded, never charged.
type PaymentDetails struct {
	CardHolderName string `json:"card_holder_name" validate:"required"`
	CardNumber     string `json:"card_number" validate:"required"`
	CVV            string `json:"cvv" validate:"required"`
	ExpiryMonth    int    `json:"expiry_month" validate:"required"`
	ExpiryYear     int    `json:"expiry_year" validate:"required"`
	BillingAddress string `json:"billing_address"`
}

func (d PaymentDetails) CardLast4() string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, d.CardNumber)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

func NewPaymentMethod(userID string, d PaymentDetails, now time.Time) *PaymentMethod {
	return &PaymentMethod{
		ID:             uuid.New().String(),
		UserID:         userID,
		CardHolderName: d.CardHolderName,
		CardLast4:      d.CardLast4(),
		ExpiryMonth:    d.ExpiryMonth,
		ExpiryYear:     d.ExpiryYear,
		BillingAddress: d.BillingAddress,
		CreatedAt:      now,
	}
}

// SeatRange is a contiguous block of seat numbers [Base+1 .. Base+Quantity].
type SeatRange struct {
	Base     int `json:"base"`
	Quantity int `json:"quantity"`
}

func (r SeatRange) First() int { return r.Base + 1 }
func (r SeatRange) Last() int  { return r.Base + r.Quantity }

func (r SeatRange) Seats() []int {
	seats := make([]int, 0, r.Quantity)
	for n := r.First(); n <= r.Last(); n++ {
		seats = append(seats, n)
	}
	return seats
}

func NewTransaction(userID, eventID, paymentMethodID string, price int64, quantity int, now time.Time) *Transaction {
	return &Transaction{
		ID:              uuid.New().String(),
		UserID:          userID,
		EventID:         eventID,
		PaymentMethodID: paymentMethodID,
		Amount:          price * int64(quantity),
		Status:          TransactionStatusCompleted,
		CreatedAt:       now,
	}
}

// NewTickets issues one ticket per seat in r, all linked to txn.
func NewTickets(txn *Transaction, cat *TicketCategory, r SeatRange, now time.Time) []Ticket {
	tickets := make([]Ticket, 0, r.Quantity)
	for _, seat := range r.Seats() {
		tickets = append(tickets, Ticket{
			ID:            uuid.New().String(),
			CategoryID:    cat.ID,
			EventID:       cat.EventID,
			SeatNo:        seat,
			Status:        TicketStatusIssued,
			TransactionID: txn.ID,
			CreatedAt:     now,
		})
	}
	return tickets
}

// UserTicket is one row of a user's purchase history.
type UserTicket struct {
	TransactionID string    `json:"transaction_id"`
	PurchasedAt   time.Time `json:"purchased_at"`
	EventID       string    `json:"event_id"`
	EventName     string    `json:"event_name"`
	Amount        int64     `json:"amount"`
	Tickets       []Ticket  `json:"tickets"`
}
