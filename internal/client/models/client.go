package models

import (
	"strings"
	"time"

	"taxtrail/internal/escalation"
	id "taxtrail/pkg/domain"
	dErrors "taxtrail/pkg/domain-errors"
)

// ClientType selects which standard requirement template applies at intake.
type ClientType string

const (
	TypeIndividual   ClientType = "individual"
	TypeSelfEmployed ClientType = "self_employed"
	TypeBusiness     ClientType = "business"
)

func (t ClientType) IsValid() bool {
	switch t {
	case TypeIndividual, TypeSelfEmployed, TypeBusiness:
		return true
	}
	return false
}

// Client is the aggregate root for one taxpayer in one tax year.
//
// Invariants:
//   - Name and Email are non-empty
//   - TaxYear is a plausible filing year
//   - Status is one of the escalation statuses
//   - Status escalated is terminal until manually cleared by the accountant
//   - AccountantID is immutable after construction
type Client struct {
	ID           id.ClientID       `json:"id"`
	AccountantID id.AccountantID   `json:"accountant_id"`
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone,omitempty"`
	TaxYear      int               `json:"tax_year"`
	ClientType   ClientType        `json:"client_type"`
	Status       escalation.Status `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func NewClient(clientID id.ClientID, accountantID id.AccountantID, name, email, phone string, taxYear int, clientType ClientType, now time.Time) (*Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client name must be 128 characters or less")
	}
	if !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client email is not valid")
	}
	if taxYear < 2000 || taxYear > now.Year()+1 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tax year is out of range")
	}
	if clientType == "" {
		clientType = TypeIndividual
	}
	if !clientType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown client type")
	}
	return &Client{
		ID:           clientID,
		AccountantID: accountantID,
		Name:         name,
		Email:        email,
		Phone:        phone,
		TaxYear:      taxYear,
		ClientType:   clientType,
		Status:       escalation.StatusIncomplete,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// OwnedBy reports whether the client belongs to the given accountant. Every
// query path checks ownership before returning client data.
func (c *Client) OwnedBy(accountantID id.AccountantID) bool {
	return c.AccountantID == accountantID
}

// CanTransitionTo validates an automatic status change. Escalated is sticky:
// once a client escalates, only a manual accountant clear moves it back.
func (c *Client) CanTransitionTo(next escalation.Status) error {
	if !next.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown status")
	}
	if c.Status == escalation.StatusEscalated && next != escalation.StatusEscalated {
		return dErrors.New(dErrors.CodeInvariantViolation, "escalated clients require manual clearing")
	}
	return nil
}

// ApplyStatus records a validated transition.
func (c *Client) ApplyStatus(next escalation.Status, now time.Time) {
	c.Status = next
	c.UpdatedAt = now
}
