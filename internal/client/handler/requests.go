package handler

import (
	"strings"

	"taxtrail/internal/client/models"
	dErrors "taxtrail/pkg/domain-errors"
)

// CreateClientRequest is the HTTP request body for POST /v1/clients.
type CreateClientRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	TaxYear    int    `json:"tax_year"`
	ClientType string `json:"client_type"`
}

func (r *CreateClientRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.TaxYear == 0 {
		return dErrors.New(dErrors.CodeValidation, "tax_year is required")
	}
	if r.ClientType != "" && !models.ClientType(r.ClientType).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "client_type must be individual, self_employed or business")
	}
	return nil
}

// UpdateSettingsRequest is the HTTP request body for PUT /v1/settings.
type UpdateSettingsRequest struct {
	ReminderThreshold int `json:"reminder_threshold"`
	GraceDays         int `json:"grace_days"`
}

func (r *UpdateSettingsRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.ReminderThreshold < 1 {
		return dErrors.New(dErrors.CodeValidation, "reminder_threshold must be at least 1")
	}
	if r.GraceDays < 0 {
		return dErrors.New(dErrors.CodeValidation, "grace_days cannot be negative")
	}
	return nil
}
