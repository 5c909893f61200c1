package models

import "time"

type Event struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	VenueName string    `json:"venue_name"`
	StartsAt  time.Time `json:"starts_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Categories []TicketCategory `gorm:"foreignKey:EventID" json:"categories,omitempty"`
}

// TicketCategory is a priced block of seats for an event. Price is in minor
// currency units. SeatsAvailable only decreases, except on restock or
// reconciliation.
type TicketCategory struct {
	ID             string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	EventID        string    `gorm:"not null;index;type:varchar(64)" json:"event_id"`
	Name           string    `gorm:"not null" json:"name"`
	Price          int64     `gorm:"not null" json:"price"`
	Capacity       int       `gorm:"not null" json:"capacity"`
	SeatsAvailable int       `gorm:"not null" json:"seats_available"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (c *TicketCategory) BelongsTo(eventID string) bool {
	return c.EventID == eventID
}

// CategoryAvailability is the live view of one category for an event page.
type CategoryAvailability struct {
	CategoryID     string `json:"category_id"`
	Name           string `json:"name"`
	Price          int64  `json:"price"`
	Capacity       int    `json:"capacity"`
	SeatsAvailable int    `json:"seats_available"`
	Halted         bool   `json:"halted,omitempty"`
}

type EventAvailability struct {
	EventID      string                 `json:"event_id"`
	Categories   []CategoryAvailability `json:"categories"`
	AnyAvailable bool                   `json:"any_available"`
}

// LedgerSnapshot is the live seat ledger of one category. Allocated is the
// highest seat number handed out so far.
type LedgerSnapshot struct {
	CategoryID string `json:"category_id"`
	Capacity   int    `json:"capacity"`
	Available  int    `json:"available"`
	Allocated  int    `json:"allocated"`
	Halted     bool   `json:"halted"`
}
