package domain

import "time"

// AssistanceState enumerates lifecycle states for an attention ticket.
type AssistanceState string

const (
	AssistanceUnassigned AssistanceState = "UNASSIGNED"
	AssistanceOpen       AssistanceState = "OPEN"
	AssistancePending    AssistanceState = "PENDING"
	AssistanceClosed     AssistanceState = "CLOSED"
	AssistanceSpam       AssistanceState = "SPAM"
)

// Active reports whether the ticket still accepts thread traffic.
func (s AssistanceState) Active() bool {
	switch s {
	case AssistanceUnassigned, AssistanceOpen, AssistancePending:
		return true
	default:
		return false
	}
}

// Ticket is one citizen case tracked across one or more email messages.
type Ticket struct {
	ID               string
	TicketCode       string
	CitizenEmail     string
	AdvisorUserID    *string
	AdvisorInboxID   *string
	AssistanceState  AssistanceState
	ProviderThreadID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ClosedAt         *time.Time
}

// Assigned reports whether an advisor currently owns the ticket.
func (t *Ticket) Assigned() bool {
	return t != nil && t.AdvisorUserID != nil && *t.AdvisorUserID != ""
}
