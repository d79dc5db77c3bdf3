package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxtrail/internal/escalation"
	id "taxtrail/pkg/domain"
	dErrors "taxtrail/pkg/domain-errors"
)

var now = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

func TestNewClient(t *testing.T) {
	c, err := NewClient(id.NewClientID(), id.NewAccountantID(), "Jane Smith", "jane@example.com", "+15550100", 2025, TypeIndividual, now)
	require.NoError(t, err)
	assert.Equal(t, escalation.StatusIncomplete, c.Status)
	assert.Equal(t, now, c.CreatedAt)
	assert.Equal(t, 2025, c.TaxYear)
}

func TestNewClient_Invariants(t *testing.T) {
	aid := id.NewAccountantID()

	tests := []struct {
		name       string
		clientName string
		email      string
		taxYear    int
		clientType ClientType
	}{
		{"empty name", "", "a@b.com", 2025, TypeIndividual},
		{"invalid email", "Jane", "not-an-email", 2025, TypeIndividual},
		{"ancient tax year", "Jane", "a@b.com", 1999, TypeIndividual},
		{"future tax year", "Jane", "a@b.com", 2030, TypeIndividual},
		{"unknown client type", "Jane", "a@b.com", 2025, ClientType("trust")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(id.NewClientID(), aid, tt.clientName, tt.email, "", tt.taxYear, tt.clientType, now)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		})
	}
}

func TestNewClient_DefaultsToIndividual(t *testing.T) {
	c, err := NewClient(id.NewClientID(), id.NewAccountantID(), "Jane", "a@b.com", "", 2025, "", now)
	require.NoError(t, err)
	assert.Equal(t, TypeIndividual, c.ClientType)
}

func TestClient_EscalatedIsSticky(t *testing.T) {
	c, err := NewClient(id.NewClientID(), id.NewAccountantID(), "Jane", "a@b.com", "", 2025, TypeIndividual, now)
	require.NoError(t, err)

	require.NoError(t, c.CanTransitionTo(escalation.StatusEscalated))
	c.ApplyStatus(escalation.StatusEscalated, now)

	for _, next := range []escalation.Status{escalation.StatusComplete, escalation.StatusIncomplete, escalation.StatusAtRisk} {
		err := c.CanTransitionTo(next)
		require.Error(t, err, "escalated -> %s must be rejected", next)
	}
	assert.NoError(t, c.CanTransitionTo(escalation.StatusEscalated))
}

func TestClient_OwnedBy(t *testing.T) {
	owner := id.NewAccountantID()
	c, err := NewClient(id.NewClientID(), owner, "Jane", "a@b.com", "", 2025, TypeIndividual, now)
	require.NoError(t, err)
	assert.True(t, c.OwnedBy(owner))
	assert.False(t, c.OwnedBy(id.NewAccountantID()))
}
