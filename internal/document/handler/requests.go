package handler

import (
	"strings"

	"taxtrail/internal/document/models"
	dErrors "taxtrail/pkg/domain-errors"
)

// RequirementRequest is the body for adding or updating a registry entry.
// Document types may contain slashes, so the type always travels in the body
// rather than the path.
type RequirementRequest struct {
	DocumentType string `json:"document_type"`
	Source       string `json:"source"`
	Required     bool   `json:"required"`
}

func (r *RequirementRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.DocumentType = strings.TrimSpace(r.DocumentType)
	return models.ValidateDocumentType(models.DocumentType(r.DocumentType))
}
