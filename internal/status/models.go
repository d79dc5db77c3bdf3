package status

import (
	"time"

	"taxtrail/internal/escalation"
	id "taxtrail/pkg/domain"
)

// ClientStatus is one client's enriched collection state as reported to the
// accountant. Error marks a client whose state could not be computed; the
// rest of the report is still valid.
type ClientStatus struct {
	ClientID            id.ClientID       `json:"client_id"`
	Name                string            `json:"name"`
	Email               string            `json:"email"`
	TaxYear             int               `json:"tax_year"`
	ClientType          string            `json:"client_type"`
	Status              escalation.Status `json:"status,omitempty"`
	CompletionPct       int               `json:"completion_pct"`
	MissingDocuments    []string          `json:"missing_documents,omitempty"`
	FollowupCount       int               `json:"followup_count"`
	LastFollowupAt      *time.Time        `json:"last_followup_at,omitempty"`
	NextFollowupAt      *time.Time        `json:"next_followup_at,omitempty"`
	DaysUntilEscalation *int              `json:"days_until_escalation,omitempty"`
	NextAction          string            `json:"next_action,omitempty"`
	Error               string            `json:"error,omitempty"`
}

// Summary aggregates the filtered client set.
type Summary struct {
	Total            int `json:"total"`
	Complete         int `json:"complete"`
	Incomplete       int `json:"incomplete"`
	AtRisk           int `json:"at_risk"`
	Escalated        int `json:"escalated"`
	Errors           int `json:"errors"`
	AvgCompletionPct int `json:"avg_completion_pct"`
}

// Report is the aggregator output: per-client statuses sorted most-urgent
// first plus a summary over the same set.
type Report struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Clients     []ClientStatus `json:"clients"`
	Summary     Summary        `json:"summary"`
}

func summarize(clients []ClientStatus) Summary {
	s := Summary{Total: len(clients)}
	pctSum, pctCount := 0, 0
	for _, c := range clients {
		if c.Error != "" {
			s.Errors++
			continue
		}
		pctSum += c.CompletionPct
		pctCount++
		switch c.Status {
		case escalation.StatusComplete:
			s.Complete++
		case escalation.StatusIncomplete:
			s.Incomplete++
		case escalation.StatusAtRisk:
			s.AtRisk++
		case escalation.StatusEscalated:
			s.Escalated++
		}
	}
	if pctCount > 0 {
		s.AvgCompletionPct = pctSum / pctCount
	}
	return s
}
