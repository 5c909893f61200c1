package task

const (
	TypeAdmissionExpire = "admission:expire"

	QueueCritical = "critical"
	QueueDefault  = "default"
)

type AdmissionExpirePayload struct {
	EventID        string `json:"event_id"`
	UserID         string `json:"user_id"`
	SequenceNumber int64  `json:"seq"`
}
