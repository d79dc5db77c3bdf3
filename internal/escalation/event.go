package escalation

import (
	"time"

	"github.com/google/uuid"

	id "taxtrail/pkg/domain"
)

// Event records a transition into escalated so the accountant has a durable
// trail of when and why automated reminders gave up.
type Event struct {
	ID         uuid.UUID   `json:"id"`
	ClientID   id.ClientID `json:"client_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Reason     string      `json:"reason"`
	Notified   bool        `json:"notified"`
}

func NewEvent(clientID id.ClientID, reason string, notified bool, now time.Time) *Event {
	return &Event{
		ID:         uuid.New(),
		ClientID:   clientID,
		OccurredAt: now,
		Reason:     reason,
		Notified:   notified,
	}
}
