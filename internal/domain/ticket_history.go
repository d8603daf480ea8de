package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeAssignee TicketChangeType = "ASSIGNEE_CHANGE"
	ChangeTypeState    TicketChangeType = "STATE_CHANGE"
)

// ChangeSource indicates which routine produced a history entry.
type ChangeSource string

const (
	ChangeSourceRoundRobin ChangeSource = "ROUND_ROBIN"
	ChangeSourceRebalance  ChangeSource = "REBALANCE"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID         string
	TicketID   string
	Source     ChangeSource
	ChangeType TicketChangeType
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}
