package models

import (
	"time"

	id "taxtrail/pkg/domain"
	dErrors "taxtrail/pkg/domain-errors"
)

// Channel is how a reminder reaches the client.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelBoth  Channel = "both"
)

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelBoth:
		return true
	}
	return false
}

// Event is one sent reminder in a client's follow-up ledger. Seq is a dense
// per-client sequence starting at 1; it doubles as the reminder number used
// to pick message templates and enforce the send schedule.
type Event struct {
	ClientID         id.ClientID `json:"client_id"`
	Seq              int         `json:"seq"`
	Channel          Channel     `json:"channel"`
	SentAt           time.Time   `json:"sent_at"`
	Subject          string      `json:"subject"`
	MissingSnapshot  []string    `json:"missing_snapshot"`
	ResponseReceived bool        `json:"response_received"`
	RespondedAt      *time.Time  `json:"responded_at,omitempty"`
	NextScheduledAt  *time.Time  `json:"next_scheduled_at,omitempty"`
	MessageID        string      `json:"message_id,omitempty"`
}

func NewEvent(clientID id.ClientID, seq int, channel Channel, subject string, missing []string, sentAt time.Time) (*Event, error) {
	if seq < 1 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "follow-up sequence must start at 1")
	}
	if !channel.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown reminder channel")
	}
	snapshot := make([]string, len(missing))
	copy(snapshot, missing)
	return &Event{
		ClientID:        clientID,
		Seq:             seq,
		Channel:         channel,
		SentAt:          sentAt,
		Subject:         subject,
		MissingSnapshot: snapshot,
	}, nil
}

// MarkResponded records that the client replied to this reminder.
func (e *Event) MarkResponded(now time.Time) {
	if !e.ResponseReceived {
		e.ResponseReceived = true
		e.RespondedAt = &now
	}
}
