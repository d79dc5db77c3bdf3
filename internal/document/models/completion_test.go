package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "taxtrail/pkg/domain"
)

var now = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

func req(t *testing.T, docType DocumentType, required, satisfied bool) *Requirement {
	t.Helper()
	r, err := NewRequirement(id.NewClientID(), docType, "test", required, now)
	require.NoError(t, err)
	if satisfied {
		r.MarkSatisfied(now)
	}
	return r
}

func TestCompute_VacuouslyComplete(t *testing.T) {
	// Zero required documents is 100%, not 0%: a client never asked for
	// anything should not block.
	c := Compute(nil)
	assert.Equal(t, 100, c.Percentage)
	assert.Empty(t, c.Missing)

	c = Compute([]*Requirement{req(t, "1099-INT", false, false)})
	assert.Equal(t, 100, c.Percentage, "optional-only registry is vacuously complete")
	assert.Empty(t, c.Missing)
}

func TestCompute_ScenarioNothingReceived(t *testing.T) {
	reqs := []*Requirement{
		req(t, "W-2", true, false),
		req(t, "1099-INT", true, false),
	}
	c := Compute(reqs)
	assert.Equal(t, 0, c.Percentage)
	assert.Equal(t, []string{"W-2", "1099-INT"}, c.MissingTypes())
}

func TestCompute_ScenarioHalfReceived(t *testing.T) {
	reqs := []*Requirement{
		req(t, "W-2", true, true),
		req(t, "1099-INT", true, false),
	}
	c := Compute(reqs)
	assert.Equal(t, 50, c.Percentage)
	assert.Equal(t, []string{"1099-INT"}, c.MissingTypes())
}

func TestCompute_FloorsPercentage(t *testing.T) {
	reqs := []*Requirement{
		req(t, "W-2", true, true),
		req(t, "1099-INT", true, false),
		req(t, "1099-DIV", true, false),
	}
	c := Compute(reqs)
	assert.Equal(t, 33, c.Percentage)
}

func TestCompute_OptionalNeverBlocks(t *testing.T) {
	reqs := []*Requirement{
		req(t, "W-2", true, true),
		req(t, "1099-DIV", false, false),
	}
	c := Compute(reqs)
	assert.Equal(t, 100, c.Percentage)
	assert.Empty(t, c.Missing)
	assert.Equal(t, 1, c.TotalRequired)
}

// Percentage never decreases as more required documents are satisfied.
func TestCompute_MonotonicUnderSatisfaction(t *testing.T) {
	reqs := []*Requirement{
		req(t, "W-2", true, false),
		req(t, "1099-INT", true, false),
		req(t, "1099-NEC", true, false),
		req(t, "Prior Year Tax Return", true, false),
	}
	prev := Compute(reqs).Percentage
	for _, r := range reqs {
		r.MarkSatisfied(now)
		cur := Compute(reqs).Percentage
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
	assert.Equal(t, 100, prev)
}

func TestCompute_MissingPreservesInsertionOrder(t *testing.T) {
	reqs := []*Requirement{
		req(t, "Prior Year Tax Return", true, false),
		req(t, "W-2", true, false),
		req(t, "1099-B", true, false),
	}
	c := Compute(reqs)
	assert.Equal(t, []string{"Prior Year Tax Return", "W-2", "1099-B"}, c.MissingTypes())
}

func TestValidateDocumentType(t *testing.T) {
	assert.NoError(t, ValidateDocumentType("W-2"))
	assert.NoError(t, ValidateDocumentType("Health Insurance Form (1095-A/B/C)"))
	assert.NoError(t, ValidateDocumentType("Custom Receipt 2025"))
	assert.Error(t, ValidateDocumentType(""))
	assert.Error(t, ValidateDocumentType("bad;type"))
	assert.Error(t, ValidateDocumentType(DocumentType(make([]byte, 101))))
}

func TestMarkSatisfied_FirstTimestampWins(t *testing.T) {
	r := req(t, "W-2", true, false)
	r.MarkSatisfied(now)
	first := *r.SatisfiedAt
	r.MarkSatisfied(now.Add(time.Hour))
	assert.Equal(t, first, *r.SatisfiedAt)
}
