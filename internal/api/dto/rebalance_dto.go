package dto

import (
	"sort"

	"github.com/spec-kit/contact-center/internal/service"
)

// AdvisorLoad is the final ticket count of one advisor.
type AdvisorLoad struct {
	AdvisorUserID string `json:"advisor_user_id"`
	Tickets       int    `json:"tickets"`
}

// RebalanceMove is one ownership change.
type RebalanceMove struct {
	TicketID          string `json:"ticket_id"`
	FromAdvisorUserID string `json:"from_advisor_user_id,omitempty"`
	ToAdvisorUserID   string `json:"to_advisor_user_id"`
	Reason            string `json:"reason"`
}

// RebalanceResponse is the payload of POST /ops/advisors/rebalance.
type RebalanceResponse struct {
	Loads   []AdvisorLoad   `json:"loads"`
	Moves   []RebalanceMove `json:"moves"`
	Skipped int             `json:"skipped"`
}

// NewRebalanceResponse renders a report with loads sorted by advisor id.
func NewRebalanceResponse(report *service.RebalanceReport) RebalanceResponse {
	resp := RebalanceResponse{
		Loads: make([]AdvisorLoad, 0, len(report.Loads)),
		Moves: make([]RebalanceMove, 0, len(report.Moves)),
	}
	for advisor, n := range report.Loads {
		resp.Loads = append(resp.Loads, AdvisorLoad{AdvisorUserID: advisor, Tickets: n})
	}
	sort.Slice(resp.Loads, func(i, j int) bool {
		return resp.Loads[i].AdvisorUserID < resp.Loads[j].AdvisorUserID
	})
	for _, m := range report.Moves {
		resp.Moves = append(resp.Moves, RebalanceMove{
			TicketID:          m.TicketID,
			FromAdvisorUserID: m.FromAdvisor,
			ToAdvisorUserID:   m.ToAdvisor,
			Reason:            string(m.Reason),
		})
	}
	resp.Skipped = report.Skipped
	return resp
}
