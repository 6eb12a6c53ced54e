package notification

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("notification not found")

// Status tracks a notification through the outbox.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Template names used by the consultation engine.
const (
	TemplateConsultationRequested = "consultation_requested"
	TemplateConsultationSubmitted = "consultation_submitted"
	TemplateStatusChanged         = "consultation_status_changed"
	TemplateConsultationCancelled = "consultation_cancelled"
)

// Notification is one outbox row: a message owed to a recipient. Delivery is
// asynchronous and at-least-once; rows stay pending until a dispatcher run
// succeeds or the attempt budget runs out.
type Notification struct {
	ID          string
	RecipientID string
	Template    string
	Payload     []byte // JSON document for the template
	Status      Status
	Attempts    int
	LastError   *string
	CreatedAt   time.Time
	SentAt      *time.Time
}
