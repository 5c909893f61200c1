package models

import "time"

// QueueEntry is one user's place in an event's waiting line. Entries are
// ordered by SequenceNumber, which is unique per event.
type QueueEntry struct {
	UserID         string    `json:"user_id"`
	EventID        string    `json:"event_id"`
	JoinedAt       time.Time `json:"joined_at"`
	SequenceNumber int64     `json:"sequence_number"`
}

type WindowState string

const (
	WindowStateActive    WindowState = "active"
	WindowStateCompleted WindowState = "completed"
	WindowStateExpired   WindowState = "expired"
)

// AdmissionWindow is the exclusive, time-bounded right of one user to purchase
// tickets for one event.
type AdmissionWindow struct {
	EventID        string      `json:"event_id"`
	UserID         string      `json:"user_id"`
	SequenceNumber int64       `json:"sequence_number"`
	GrantedAt      time.Time   `json:"granted_at"`
	ExpiresAt      time.Time   `json:"expires_at"`
	State          WindowState `json:"state"`
}

func (w *AdmissionWindow) IsActiveAt(now time.Time) bool {
	return w.State == WindowStateActive && !now.After(w.ExpiresAt)
}

func (w *AdmissionWindow) IsHeldBy(userID string, now time.Time) bool {
	return w.UserID == userID && w.IsActiveAt(now)
}

// Outcome records how a user's last admission window ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeAbandoned Outcome = "abandoned"
	OutcomeExpired   Outcome = "expired"
)

// Promotion describes the transitions performed by a single advance of an
// event's admission state. Both fields are nil when nothing changed.
type Promotion struct {
	Expired *AdmissionWindow
	Granted *AdmissionWindow
}

func (p *Promotion) Changed() bool {
	return p != nil && (p.Expired != nil || p.Granted != nil)
}

type AdmissionStatusKind string

const (
	AdmissionNotQueued AdmissionStatusKind = "not_queued"
	AdmissionQueued    AdmissionStatusKind = "queued"
	AdmissionActive    AdmissionStatusKind = "active"
	AdmissionExpired   AdmissionStatusKind = "expired"
)

// AdmissionStatus is what a polling user sees. Rank is set for queued users,
// ExpiresAt for active ones.
type AdmissionStatus struct {
	Kind         AdmissionStatusKind `json:"status"`
	Rank         int64               `json:"rank,omitempty"`
	QueueLength  int64               `json:"queue_length,omitempty"`
	ExpiresAt    *time.Time          `json:"expires_at,omitempty"`
	PurchasePass string              `json:"purchase_pass,omitempty"`
}

func NotQueuedStatus() AdmissionStatus {
	return AdmissionStatus{Kind: AdmissionNotQueued}
}

func QueuedStatus(rank, length int64) AdmissionStatus {
	return AdmissionStatus{Kind: AdmissionQueued, Rank: rank, QueueLength: length}
}

func ActiveStatus(expiresAt time.Time) AdmissionStatus {
	return AdmissionStatus{Kind: AdmissionActive, ExpiresAt: &expiresAt}
}

func ExpiredStatus() AdmissionStatus {
	return AdmissionStatus{Kind: AdmissionExpired}
}
