package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/contact-center/internal/balancer"
	"github.com/spec-kit/contact-center/internal/domain"
	"github.com/spec-kit/contact-center/internal/events"
)

func newAssignmentFixture(advisorIDs ...string) (*AssignmentService, *memDB, *fakeTickets, *eventRecorder) {
	db := newMemDB()
	tickets := &fakeTickets{db: db}
	recorder := &eventRecorder{}
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventTicketAssigned, recorder.handle)

	svc := NewAssignmentService(AssignmentDependencies{
		TicketRepo:  tickets,
		AdvisorRepo: &fakeAdvisors{advisors: advisorList(advisorIDs...)},
		HistoryRepo: &fakeHistory{db: db},
		Dispatcher:  dispatcher,
	})
	return svc, db, tickets, recorder
}

func seedOwned(db *memDB, n int, owner string, state domain.AssistanceState) []string {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		t, _ := db.seedTicket(fmt.Sprintf("thread-%s-%d-%d", owner, i, db.seq), state, fmt.Sprintf("hdr-%s-%d-%d", owner, i, db.seq), domain.MessageTypeCitizen)
		if owner != "" {
			db.mu.Lock()
			user := owner
			db.tickets[t.ID].AdvisorUserID = &user
			db.mu.Unlock()
		}
		ids = append(ids, t.ID)
	}
	return ids
}

func TestSelectAdvisorRotates(t *testing.T) {
	svc, _, _, _ := newAssignmentFixture("A", "B")
	var got []string
	for i := 0; i < 3; i++ {
		adv, err := svc.SelectAdvisor(context.Background())
		require.NoError(t, err)
		got = append(got, adv.UserID)
	}
	assert.Equal(t, []string{"A", "B", "A"}, got)
}

func TestSelectAdvisorNoneAvailable(t *testing.T) {
	svc, _, _, _ := newAssignmentFixture()
	adv, err := svc.SelectAdvisor(context.Background())
	require.NoError(t, err)
	assert.Nil(t, adv)
}

func TestBalanceAdvisorsSpreadsLoad(t *testing.T) {
	svc, db, _, recorder := newAssignmentFixture("A", "B", "C")
	seedOwned(db, 7, "A", domain.AssistanceOpen)
	seedOwned(db, 2, "", domain.AssistanceUnassigned)
	seedOwned(db, 1, "gone", domain.AssistanceOpen)
	seedOwned(db, 3, "B", domain.AssistancePending)
	seedOwned(db, 2, "C", domain.AssistanceClosed)

	report, err := svc.BalanceAdvisors(context.Background())
	require.NoError(t, err)

	total := 0
	for _, load := range report.Loads {
		total += load
	}
	assert.Equal(t, 10, total, "only OPEN and UNASSIGNED tickets are balanced")
	assert.LessOrEqual(t, balancer.Plan{Loads: report.Loads}.Spread(), 1)
	assert.Zero(t, report.Skipped)

	counts := map[string]int{}
	open, err := (&fakeTickets{db: db}).ListByStates(context.Background(), domain.AssistanceOpen, domain.AssistanceUnassigned)
	require.NoError(t, err)
	for _, tk := range open {
		require.NotNil(t, tk.AdvisorUserID)
		assert.Equal(t, domain.AssistanceOpen, tk.AssistanceState)
		counts[*tk.AdvisorUserID]++
	}
	assert.Equal(t, report.Loads, counts)

	assert.Len(t, db.history, len(report.Moves))
	for _, h := range db.history {
		assert.Equal(t, domain.ChangeSourceRebalance, h.Source)
	}
	assert.Len(t, recorder.types(), len(report.Moves))
}

func TestBalanceAdvisorsDoesNotReopenClosedTickets(t *testing.T) {
	svc, db, tickets, _ := newAssignmentFixture("A", "B")
	ids := seedOwned(db, 4, "A", domain.AssistanceOpen)

	closed := map[string]bool{}
	tickets.beforeAssign = func(ticketID string) {
		db.mu.Lock()
		defer db.mu.Unlock()
		db.tickets[ticketID].AssistanceState = domain.AssistanceClosed
		closed[ticketID] = true
	}

	report, err := svc.BalanceAdvisors(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Moves)
	assert.Equal(t, len(closed), report.Skipped)
	assert.NotZero(t, report.Skipped)
	for _, id := range ids {
		if closed[id] {
			assert.Equal(t, domain.AssistanceClosed, db.ticket(id).AssistanceState)
		}
	}
	assert.Empty(t, db.history)
}

func TestBalanceAdvisorsWithoutAdvisorsIsNoop(t *testing.T) {
	svc, db, _, _ := newAssignmentFixture()
	seedOwned(db, 3, "", domain.AssistanceUnassigned)

	report, err := svc.BalanceAdvisors(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Moves)
	assert.Empty(t, report.Loads)
	assert.Len(t, report.Ownership, 3)
}

func TestBalanceAdvisorsTreatsBlankOwnerAsUnassigned(t *testing.T) {
	svc, db, _, _ := newAssignmentFixture("A")
	ids := seedOwned(db, 1, "", domain.AssistanceUnassigned)
	blank := ""
	db.mu.Lock()
	db.tickets[ids[0]].AdvisorUserID = &blank
	db.mu.Unlock()

	report, err := svc.BalanceAdvisors(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Moves, 1)
	assert.Equal(t, balancer.MoveAssigned, report.Moves[0].Reason)
	assert.Empty(t, report.Moves[0].FromAdvisor)
	require.Len(t, db.history, 1)
	assert.Nil(t, db.history[0].OldValue["advisor_user_id"])
}
