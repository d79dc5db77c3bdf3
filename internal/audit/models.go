package audit

import (
	"time"

	id "taxtrail/pkg/domain"
)

// Category classifies audit events for retention and routing. Compliance
// events are the legally interesting trail (what was requested from a client
// and when); operations events are for debugging and visibility.
type Category string

const (
	CategoryCompliance Category = "compliance"
	CategoryOperations Category = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp    time.Time
	AccountantID id.AccountantID
	ClientID     id.ClientID
	Action       Action
	Detail       string
	RequestID    string
}

type Action string

const (
	EventClientCreated        Action = "client_created"
	EventRequirementAdded     Action = "requirement_added"
	EventRequirementUpdated   Action = "requirement_updated"
	EventRequirementRemoved   Action = "requirement_removed"
	EventRequirementSatisfied Action = "requirement_satisfied"
	EventTemplateApplied      Action = "template_applied"
	EventReminderSent         Action = "reminder_sent"
	EventResponseRecorded     Action = "response_recorded"
	EventClientEscalated      Action = "client_escalated"
	EventUploadLinkIssued     Action = "upload_link_issued"
)

var eventCategories = map[Action]Category{
	EventClientCreated:        CategoryCompliance,
	EventRequirementAdded:     CategoryCompliance,
	EventRequirementUpdated:   CategoryCompliance,
	EventRequirementRemoved:   CategoryCompliance,
	EventRequirementSatisfied: CategoryCompliance,
	EventTemplateApplied:      CategoryOperations,
	EventReminderSent:         CategoryCompliance,
	EventResponseRecorded:     CategoryCompliance,
	EventClientEscalated:      CategoryCompliance,
	EventUploadLinkIssued:     CategoryOperations,
}

// Category resolves the action's category, defaulting to operations for
// unmapped actions.
func (a Action) Category() Category {
	if c, ok := eventCategories[a]; ok {
		return c
	}
	return CategoryOperations
}
