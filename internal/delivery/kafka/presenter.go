package kafka

import "time"

// Events published BY the box office

type QueueJoinedEvent struct {
	UserID         string    `json:"user_id"`
	EventID        string    `json:"event_id"`
	SequenceNumber int64     `json:"sequence_number"`
	Position       int64     `json:"position"`
	JoinedAt       time.Time `json:"joined_at"`
	Timestamp      time.Time `json:"timestamp"`
}

type QueueLeftEvent struct {
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	Reason    string    `json:"reason"` // user_left, abandoned
	LeftAt    time.Time `json:"left_at"`
	Timestamp time.Time `json:"timestamp"`
}

type AdmissionGrantedEvent struct {
	UserID         string    `json:"user_id"`
	EventID        string    `json:"event_id"`
	SequenceNumber int64     `json:"sequence_number"`
	GrantedAt      time.Time `json:"granted_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	Timestamp      time.Time `json:"timestamp"`
}

type AdmissionExpiredEvent struct {
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	ExpiredAt time.Time `json:"expired_at"`
	Timestamp time.Time `json:"timestamp"`
}

type AdmissionCompletedEvent struct {
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	Outcome   string    `json:"outcome"` // completed, abandoned
	Timestamp time.Time `json:"timestamp"`
}

type PurchaseCompletedEvent struct {
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	EventID       string    `json:"event_id"`
	CategoryID    string    `json:"category_id"`
	Amount        int64     `json:"amount"`
	Tickets       []Ticket  `json:"tickets"`
	Timestamp     time.Time `json:"timestamp"`
}

type Ticket struct {
	ID     string `json:"id"`
	SeatNo int    `json:"seat_no"`
}

// Events consumed BY the box office

type InventoryRestockEvent struct {
	CategoryID string    `json:"category_id"`
	Quantity   int       `json:"quantity"`
	Timestamp  time.Time `json:"timestamp"`
}
