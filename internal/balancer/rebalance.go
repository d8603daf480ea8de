package balancer

import (
	"github.com/spec-kit/contact-center/internal/domain"
)

// DefaultTolerance is how far above the least-loaded advisor an owner may sit
// before one of their tickets is migrated.
const DefaultTolerance = 1

// TicketLoad is the slice of a ticket the rebalance pass looks at.
type TicketLoad struct {
	TicketID      string
	AdvisorUserID string
	State         domain.AssistanceState
}

// MoveReason explains why a ticket changed owner.
type MoveReason string

const (
	MoveAssigned MoveReason = "ASSIGNED"
	MoveMigrated MoveReason = "MIGRATED"
)

// Move is one ownership change produced by a plan.
type Move struct {
	TicketID    string
	FromAdvisor string
	ToAdvisor   domain.Advisor
	Reason      MoveReason
}

// Ownership is the final owner of a ticket after planning. AdvisorUserID is empty
// when no advisor was available.
type Ownership struct {
	TicketID      string
	AdvisorUserID string
}

// Plan is the result of a rebalance pass.
type Plan struct {
	Loads     map[string]int
	Ownership []Ownership
	Moves     []Move
}

// Spread returns max(load) - min(load) over the planned advisors.
func (p Plan) Spread() int {
	first := true
	var lo, hi int
	for _, load := range p.Loads {
		if first {
			lo, hi = load, load
			first = false
			continue
		}
		if load < lo {
			lo = load
		}
		if load > hi {
			hi = load
		}
	}
	return hi - lo
}

// PlanRebalance runs the greedy single pass over tickets. Tickets owned by an
// available advisor count toward that advisor's load and only move when the owner is
// more than tolerance above the least-loaded advisor; every other ticket goes to the
// least-loaded advisor. Ties are broken by the order of advisors.
func PlanRebalance(tickets []TicketLoad, advisors []domain.Advisor, tolerance int) Plan {
	if tolerance < 1 {
		tolerance = DefaultTolerance
	}

	loads := make(map[string]int, len(advisors))
	byID := make(map[string]domain.Advisor, len(advisors))
	order := make([]string, 0, len(advisors))
	for _, adv := range advisors {
		if _, dup := byID[adv.UserID]; dup {
			continue
		}
		byID[adv.UserID] = adv
		loads[adv.UserID] = 0
		order = append(order, adv.UserID)
	}

	owners := make([]string, len(tickets))
	valid := make([]bool, len(tickets))
	for i, t := range tickets {
		owners[i] = t.AdvisorUserID
		if _, ok := loads[t.AdvisorUserID]; ok && t.AdvisorUserID != "" {
			loads[t.AdvisorUserID]++
			valid[i] = true
		}
	}

	plan := Plan{Loads: loads, Ownership: make([]Ownership, 0, len(tickets))}
	for i, t := range tickets {
		target, minLoad, ok := leastLoaded(order, loads)
		switch {
		case !ok:
		case !valid[i]:
			loads[target]++
			plan.Moves = append(plan.Moves, Move{
				TicketID:    t.TicketID,
				FromAdvisor: t.AdvisorUserID,
				ToAdvisor:   byID[target],
				Reason:      MoveAssigned,
			})
			owners[i] = target
		case loads[owners[i]] > minLoad+tolerance:
			loads[owners[i]]--
			loads[target]++
			plan.Moves = append(plan.Moves, Move{
				TicketID:    t.TicketID,
				FromAdvisor: owners[i],
				ToAdvisor:   byID[target],
				Reason:      MoveMigrated,
			})
			owners[i] = target
		}
		owner := owners[i]
		if _, ok := loads[owner]; !ok {
			owner = ""
		}
		plan.Ownership = append(plan.Ownership, Ownership{TicketID: t.TicketID, AdvisorUserID: owner})
	}
	return plan
}

func leastLoaded(order []string, loads map[string]int) (string, int, bool) {
	if len(order) == 0 {
		return "", 0, false
	}
	best := order[0]
	for _, id := range order[1:] {
		if loads[id] < loads[best] {
			best = id
		}
	}
	return best, loads[best], true
}
