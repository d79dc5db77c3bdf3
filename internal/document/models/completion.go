package models

// Completion is the result of measuring a registry against its required
// documents. Optional requirements are tracked but never block completion.
type Completion struct {
	Percentage     int
	TotalRequired  int
	TotalSatisfied int
	Missing        []*Requirement
}

// Compute derives completion from a requirement list.
//
// Percentage is floor(100 * satisfiedRequired / totalRequired). A registry
// with zero required documents is vacuously 100% complete: a client never
// asked for anything should not block on documents. Missing preserves the
// input (insertion) order.
func Compute(requirements []*Requirement) Completion {
	c := Completion{Missing: []*Requirement{}}
	for _, r := range requirements {
		if !r.Required {
			continue
		}
		c.TotalRequired++
		if r.Satisfied {
			c.TotalSatisfied++
		} else {
			c.Missing = append(c.Missing, r)
		}
	}
	if c.TotalRequired == 0 {
		c.Percentage = 100
		return c
	}
	c.Percentage = (100 * c.TotalSatisfied) / c.TotalRequired
	return c
}

// MissingTypes projects Missing onto document type names, the shape reminder
// emails and status payloads want.
func (c Completion) MissingTypes() []string {
	out := make([]string, 0, len(c.Missing))
	for _, r := range c.Missing {
		out = append(out, string(r.Type))
	}
	return out
}
