package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"eventpass/internal/status"
	"eventpass/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApprovalFixture() (*ApprovalService, *memStore, *published, *realtimeSpy) {
	store := newMemStore()
	notifier := &published{}
	rt := &realtimeSpy{}
	svc := NewApprovalService(store, notifier, rt)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc, store, notifier, rt
}

func seedGroup(store *memStore, groupID string, n int, st models.Status) []*models.Ticket {
	out := make([]*models.Ticket, n)
	for i := 0; i < n; i++ {
		out[i] = store.addTicket(&models.Ticket{
			ID:         fmt.Sprintf("%s-m%d", groupID, i),
			OwnerID:    "u1",
			GroupID:    groupID,
			HolderName: fmt.Sprintf("Member %d", i),
			Email:      fmt.Sprintf("m%d@example.com", i),
			Type:       models.TicketQuad,
			Status:     st,
		})
	}
	return out
}

func TestApprove_RequiresSuperAdmin(t *testing.T) {
	svc, store, notifier, _ := newApprovalFixture()
	store.addTicket(&models.Ticket{ID: "t1", Status: models.StatusPendingVerification})

	for _, actor := range []Actor{gateAdmin, participant} {
		_, err := svc.Approve(context.Background(), actor, Target{TicketID: "t1"})
		assert.ErrorIs(t, err, status.ErrForbidden)
	}

	got := store.ticket("t1")
	assert.Equal(t, models.StatusPendingVerification, got.Status)
	assert.Empty(t, got.Secret)
	assert.Empty(t, notifier.all())
}

func TestApprove_SingleTicket(t *testing.T) {
	svc, store, notifier, rt := newApprovalFixture()
	store.addTicket(&models.Ticket{ID: "t1", OwnerID: "u1", HolderName: "Ana", Email: "ana@example.com", Type: models.TicketSolo, Status: models.StatusPendingVerification})

	decision, err := svc.Approve(context.Background(), superAdmin, Target{TicketID: "t1"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPaid, decision.Status)
	assert.Equal(t, "sa1", decision.DecidedBy)
	require.Len(t, decision.Tickets, 1)

	got := store.ticket("t1")
	assert.Equal(t, models.StatusPaid, got.Status)
	assert.Len(t, got.Secret, 32)
	assert.Equal(t, "sa1", got.DecidedBy)
	require.NotNil(t, got.DecidedAt)

	events := notifier.all()
	require.Len(t, events, 1)
	approved, ok := events[0].(models.TicketApproved)
	require.True(t, ok)
	assert.Equal(t, "ana@example.com", approved.Email)
	assert.Equal(t, []string{"user-u1"}, rt.all())
}

func TestApprove_GroupGetsDistinctSecrets(t *testing.T) {
	svc, store, notifier, _ := newApprovalFixture()
	members := seedGroup(store, "g1", 4, models.StatusPendingVerification)

	// approving through one member covers the whole group
	decision, err := svc.Approve(context.Background(), superAdmin, Target{TicketID: members[2].ID})
	require.NoError(t, err)
	assert.Equal(t, "g1", decision.GroupID)
	assert.Len(t, decision.Tickets, 4)

	secrets := map[string]bool{}
	for _, m := range members {
		got := store.ticket(m.ID)
		assert.Equal(t, models.StatusPaid, got.Status)
		require.NotEmpty(t, got.Secret)
		secrets[got.Secret] = true
	}
	assert.Len(t, secrets, 4)
	assert.Equal(t, models.StatusPaid, store.groups["g1"].Status)
	assert.Len(t, notifier.all(), 4)
}

func TestApprove_GroupIsAllOrNothing(t *testing.T) {
	svc, store, notifier, _ := newApprovalFixture()
	members := seedGroup(store, "g1", 2, models.StatusPendingVerification)
	store.addTicket(&models.Ticket{ID: "g1-late", GroupID: "g1", Status: models.StatusPending})

	_, err := svc.Approve(context.Background(), superAdmin, Target{GroupID: "g1"})
	assert.ErrorIs(t, err, status.ErrInvalidTransition)

	for _, m := range members {
		got := store.ticket(m.ID)
		assert.Equal(t, models.StatusPendingVerification, got.Status)
		assert.Empty(t, got.Secret)
	}
	assert.Empty(t, notifier.all())
}

func TestApprove_StorageFailureLeavesTicketsUntouched(t *testing.T) {
	svc, store, notifier, _ := newApprovalFixture()
	members := seedGroup(store, "g1", 2, models.StatusPendingVerification)
	store.failUpdate = errStorageDown

	_, err := svc.Approve(context.Background(), superAdmin, Target{GroupID: "g1"})
	assert.ErrorIs(t, err, errStorageDown)

	for _, m := range members {
		assert.Equal(t, models.StatusPendingVerification, store.ticket(m.ID).Status)
	}
	assert.Empty(t, notifier.all())
}

func TestApprove_NotificationFailureDoesNotUndoDecision(t *testing.T) {
	svc, store, notifier, _ := newApprovalFixture()
	store.addTicket(&models.Ticket{ID: "t1", Email: "a@example.com", Status: models.StatusPendingVerification})
	notifier.err = fmt.Errorf("stream down")

	_, err := svc.Approve(context.Background(), superAdmin, Target{TicketID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, store.ticket("t1").Status)
}

func TestApprove_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    models.Status
		wantErr bool
	}{
		{"pending_verification", models.StatusPendingVerification, false},
		{"pending", models.StatusPending, true},
		{"already paid", models.StatusPaid, true},
		{"rejected", models.StatusRejected, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _, _ := newApprovalFixture()
			store.addTicket(&models.Ticket{ID: "t1", Status: tt.from})

			_, err := svc.Approve(context.Background(), superAdmin, Target{TicketID: "t1"})
			if tt.wantErr {
				assert.ErrorIs(t, err, status.ErrInvalidTransition)
				assert.Equal(t, tt.from, store.ticket("t1").Status)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestApprove_RetriesDuplicateSecret(t *testing.T) {
	svc, store, _, _ := newApprovalFixture()
	seedGroup(store, "g1", 2, models.StatusPendingVerification)

	values := []string{"AAAA", "AAAA", "BBBB"}
	svc.newSecret = func() (string, error) {
		v := values[0]
		values = values[1:]
		return v, nil
	}

	decision, err := svc.Approve(context.Background(), superAdmin, Target{GroupID: "g1"})
	require.NoError(t, err)
	require.Len(t, decision.Tickets, 2)
	assert.Equal(t, "AAAA", store.ticket("g1-m0").Secret)
	assert.Equal(t, "BBBB", store.ticket("g1-m1").Secret)
}

func TestApprove_RetriesSecretTakenInStorage(t *testing.T) {
	svc, store, notifier, _ := newApprovalFixture()
	store.addTicket(&models.Ticket{ID: "issued", Status: models.StatusPaid, Secret: "AAAA"})
	store.addTicket(&models.Ticket{ID: "t1", Status: models.StatusPendingVerification})

	values := []string{"AAAA", "BBBB"}
	svc.newSecret = func() (string, error) {
		v := values[0]
		values = values[1:]
		return v, nil
	}

	_, err := svc.Approve(context.Background(), superAdmin, Target{TicketID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, "BBBB", store.ticket("t1").Secret)
	assert.Equal(t, models.StatusPaid, store.ticket("t1").Status)
	assert.Len(t, notifier.all(), 1)
}

func TestApprove_GivesUpAfterRepeatedCollisions(t *testing.T) {
	svc, store, notifier, _ := newApprovalFixture()
	store.addTicket(&models.Ticket{ID: "issued", Status: models.StatusPaid, Secret: "AAAA"})
	store.addTicket(&models.Ticket{ID: "t1", Status: models.StatusPendingVerification})

	calls := 0
	svc.newSecret = func() (string, error) {
		calls++
		return "AAAA", nil
	}

	_, err := svc.Approve(context.Background(), superAdmin, Target{TicketID: "t1"})
	assert.ErrorIs(t, err, status.ErrSecretCollision)
	assert.Equal(t, maxDecisionAttempts, calls)
	assert.Equal(t, models.StatusPendingVerification, store.ticket("t1").Status)
	assert.Empty(t, notifier.all())
}

func TestApprove_UnknownTarget(t *testing.T) {
	svc, _, _, _ := newApprovalFixture()

	_, err := svc.Approve(context.Background(), superAdmin, Target{TicketID: "missing"})
	assert.ErrorIs(t, err, status.ErrTicketNotFound)

	_, err = svc.Approve(context.Background(), superAdmin, Target{GroupID: "missing"})
	assert.ErrorIs(t, err, status.ErrGroupNotFound)

	_, err = svc.Approve(context.Background(), superAdmin, Target{})
	assert.ErrorIs(t, err, status.ErrTicketNotFound)
}

func TestReject_Group(t *testing.T) {
	svc, store, notifier, _ := newApprovalFixture()
	members := seedGroup(store, "g1", 2, models.StatusPendingVerification)

	decision, err := svc.Reject(context.Background(), superAdmin, Target{GroupID: "g1"}, "amount mismatch")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, decision.Status)

	for _, m := range members {
		got := store.ticket(m.ID)
		assert.Equal(t, models.StatusRejected, got.Status)
		assert.Empty(t, got.Secret)
		assert.Equal(t, "amount mismatch", got.RejectReason)
	}

	events := notifier.all()
	require.Len(t, events, 2)
	rejected, ok := events[0].(models.TicketRejected)
	require.True(t, ok)
	assert.Equal(t, "amount mismatch", rejected.Reason)
}

func TestReject_RequiresSuperAdmin(t *testing.T) {
	svc, store, _, _ := newApprovalFixture()
	store.addTicket(&models.Ticket{ID: "t1", Status: models.StatusPendingVerification})

	_, err := svc.Reject(context.Background(), gateAdmin, Target{TicketID: "t1"}, "")
	assert.ErrorIs(t, err, status.ErrForbidden)
	assert.Equal(t, models.StatusPendingVerification, store.ticket("t1").Status)
}
