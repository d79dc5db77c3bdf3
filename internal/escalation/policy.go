// Package escalation decides when a client's document collection needs human
// intervention. Evaluate is a pure function of its inputs so it can be unit
// tested without stores or clocks.
package escalation

import (
	"fmt"
	"time"
)

// Status is the collection state of a client for one tax year.
type Status string

const (
	StatusComplete   Status = "complete"
	StatusIncomplete Status = "incomplete"
	StatusAtRisk     Status = "at_risk"
	StatusEscalated  Status = "escalated"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusComplete, StatusIncomplete, StatusAtRisk, StatusEscalated:
		return true
	}
	return false
}

// Priority orders statuses most-urgent-first for dashboard sorting.
// Lower is more urgent.
func (s Status) Priority() int {
	switch s {
	case StatusEscalated:
		return 0
	case StatusAtRisk:
		return 1
	case StatusIncomplete:
		return 2
	case StatusComplete:
		return 3
	default:
		return 4
	}
}

// Config holds the escalation thresholds. Threshold is the number of
// reminders that must be exhausted before a client can escalate; GraceDays is
// the wait after the last reminder before escalation fires.
type Config struct {
	Threshold int
	GraceDays int
}

// DefaultConfig mirrors the shipped accountant settings.
func DefaultConfig() Config {
	return Config{Threshold: 3, GraceDays: 2}
}

// Inputs captures everything the policy looks at for one client.
type Inputs struct {
	CompletionPct  int
	FollowupCount  int
	LastFollowupAt *time.Time
	NextFollowupAt *time.Time
}

// Outcome is the policy decision. DaysUntilEscalation is nil whenever the
// reminder budget has not been exhausted (FollowupCount < Threshold).
type Outcome struct {
	Status              Status
	DaysUntilEscalation *int
	NextAction          string
}

// Evaluate applies the transition rules in order, first match wins:
//
//  1. completion 100% -> complete
//  2. reminder budget exhausted AND grace period elapsed -> escalated
//  3. one reminder away from the budget (or past it, still in grace) -> at_risk
//  4. otherwise -> incomplete
//
// Both the reminder count and elapsed time are required for escalation: a
// client who went quiet after reminder #1 does not escalate on calendar time
// alone.
func Evaluate(now time.Time, in Inputs, cfg Config) Outcome {
	status := evaluateStatus(now, in, cfg)
	return Outcome{
		Status:              status,
		DaysUntilEscalation: daysUntilEscalation(now, in, cfg),
		NextAction:          nextAction(status, in),
	}
}

func evaluateStatus(now time.Time, in Inputs, cfg Config) Status {
	if in.CompletionPct >= 100 {
		return StatusComplete
	}
	if in.FollowupCount >= cfg.Threshold {
		if in.LastFollowupAt != nil && daysBetween(*in.LastFollowupAt, now) >= cfg.GraceDays {
			return StatusEscalated
		}
		return StatusAtRisk
	}
	if in.FollowupCount >= cfg.Threshold-1 {
		return StatusAtRisk
	}
	return StatusIncomplete
}

// daysUntilEscalation is defined only once the reminder budget is exhausted:
// max(0, graceDays - days since last reminder). A missing last-reminder
// timestamp counts as zero days remaining.
func daysUntilEscalation(now time.Time, in Inputs, cfg Config) *int {
	if in.FollowupCount < cfg.Threshold {
		return nil
	}
	days := 0
	if in.LastFollowupAt != nil {
		days = cfg.GraceDays - daysBetween(*in.LastFollowupAt, now)
		if days < 0 {
			days = 0
		}
	}
	return &days
}

// nextAction derives the operator guidance string; it is never persisted.
func nextAction(status Status, in Inputs) string {
	switch status {
	case StatusComplete:
		return "No action needed - all documents received"
	case StatusEscalated:
		return "Requires accountant intervention - call client directly"
	}
	next := in.FollowupCount + 1
	if in.NextFollowupAt != nil {
		return fmt.Sprintf("Send reminder #%d on %s", next, in.NextFollowupAt.Format("2006-01-02"))
	}
	if in.FollowupCount == 0 {
		return "Send initial document request"
	}
	return fmt.Sprintf("Send reminder #%d immediately", next)
}

// daysBetween truncates to whole days, matching calendar-day thresholds.
func daysBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}
