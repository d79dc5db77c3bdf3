package models

import (
	"time"

	id "taxtrail/pkg/domain"
	dErrors "taxtrail/pkg/domain-errors"
)

// DocumentType is the canonical name of a tax document ("W-2", "1099-INT", ...).
// Free-form custom types are allowed as long as they pass ValidateDocumentType.
type DocumentType string

const TypeUnknown DocumentType = "Unknown"

// StandardDocumentTypes is the catalog shown to accountants when adding
// requirements. Custom types outside this list are accepted too.
var StandardDocumentTypes = []DocumentType{
	"W-2", "1099-INT", "1099-DIV", "1099-MISC", "1099-NEC", "1099-B", "1099-R",
	"1099-G", "1099-K", "Schedule K-1", "Mortgage Interest Statement (1098)",
	"Student Loan Interest (1098-E)", "Tuition Statement (1098-T)",
	"Health Insurance Form (1095-A/B/C)", "Charitable Donation Receipts",
	"Medical Expense Receipts", "Business Expense Receipts", "Property Tax Statement",
	"Prior Year Tax Return", "Estimated Tax Payment Records",
}

var standardTypeSet = func() map[DocumentType]struct{} {
	set := make(map[DocumentType]struct{}, len(StandardDocumentTypes))
	for _, t := range StandardDocumentTypes {
		set[t] = struct{}{}
	}
	return set
}()

// ValidateDocumentType accepts standard types as-is and restricts custom
// types to a safe charset and length.
func ValidateDocumentType(t DocumentType) error {
	if t == "" {
		return dErrors.New(dErrors.CodeValidation, "document type cannot be empty")
	}
	if _, ok := standardTypeSet[t]; ok {
		return nil
	}
	if len(t) > 100 {
		return dErrors.New(dErrors.CodeValidation, "document type must be 100 characters or less")
	}
	for _, r := range t {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '/':
		default:
			return dErrors.New(dErrors.CodeValidation, "document type contains invalid characters")
		}
	}
	return nil
}

// Requirement is one document a client must (or may optionally) supply.
// Position preserves registry insertion order so missing-document lists are
// stable for presentation.
type Requirement struct {
	ClientID      id.ClientID  `json:"client_id"`
	Type          DocumentType `json:"document_type"`
	Source        string       `json:"source"`
	Required      bool         `json:"required"`
	Satisfied     bool         `json:"satisfied"`
	SatisfiedAt   *time.Time   `json:"satisfied_at,omitempty"`
	LastCheckedAt *time.Time   `json:"last_checked_at,omitempty"`
	Position      int          `json:"-"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func NewRequirement(clientID id.ClientID, docType DocumentType, source string, required bool, now time.Time) (*Requirement, error) {
	if err := ValidateDocumentType(docType); err != nil {
		return nil, err
	}
	if source == "" {
		source = "Unknown"
	}
	return &Requirement{
		ClientID:  clientID,
		Type:      docType,
		Source:    source,
		Required:  required,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// MarkSatisfied records receipt of the document. Idempotent: the first
// satisfaction timestamp wins.
func (r *Requirement) MarkSatisfied(now time.Time) {
	if !r.Satisfied {
		r.Satisfied = true
		r.SatisfiedAt = &now
	}
	r.UpdatedAt = now
}

// MarkUnsatisfied reverts receipt, e.g. when an upload was misclassified.
func (r *Requirement) MarkUnsatisfied(now time.Time) {
	r.Satisfied = false
	r.SatisfiedAt = nil
	r.UpdatedAt = now
}
