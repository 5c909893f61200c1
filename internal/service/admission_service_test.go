package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "github.com/vogiaan1904/ticketbottle-boxoffice/internal/errors"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
)

func TestAdmission_FirstJoinerIsAdmitted(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 10, 10)

	out, err := env.box.JoinQueue(context.Background(), "concert", "alice")
	require.NoError(t, err)

	assert.Equal(t, int64(1), out.SequenceNumber)
	assert.Equal(t, models.AdmissionActive, out.Status.Kind)
	require.NotNil(t, out.Status.ExpiresAt)
	assert.Equal(t, env.clk.Now().Add(grant), *out.Status.ExpiresAt)
	assert.Equal(t, []string{"alice"}, env.prod.grantedUsers())
}

func TestAdmission_HeadAdvancesOnPurchase(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 10, 10)
	env.join(t, "concert", "alice", "bob", "carol")

	assert.Equal(t, models.AdmissionActive, env.status(t, "concert", "alice").Kind)
	assert.Equal(t, models.QueuedStatus(1, 2), env.status(t, "concert", "bob"))
	assert.Equal(t, models.QueuedStatus(2, 2), env.status(t, "concert", "carol"))

	_, err := env.box.Purchase(context.Background(), purchaseInput("concert", "alice", "vip", 2))
	require.NoError(t, err)

	assert.Equal(t, models.NotQueuedStatus(), env.status(t, "concert", "alice"))
	assert.Equal(t, models.AdmissionActive, env.status(t, "concert", "bob").Kind)
	assert.Equal(t, models.QueuedStatus(1, 1), env.status(t, "concert", "carol"))
	assert.Equal(t, []string{"alice", "bob"}, env.prod.grantedUsers())
}

func TestAdmission_WindowExpiresAfterGrantDuration(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 10, 10)
	env.join(t, "concert", "alice", "bob")

	env.clk.Advance(grant)
	assert.Equal(t, models.AdmissionActive, env.status(t, "concert", "alice").Kind, "still valid at the expiry instant")

	env.clk.Advance(time.Millisecond)
	assert.Equal(t, models.ExpiredStatus(), env.status(t, "concert", "alice"))
	assert.Equal(t, models.AdmissionActive, env.status(t, "concert", "bob").Kind)

	_, err := env.box.Purchase(context.Background(), purchaseInput("concert", "alice", "vip", 1))
	assert.ErrorIs(t, err, errs.ErrExpired)

	require.Len(t, env.prod.expired, 1)
	assert.Equal(t, "alice", env.prod.expired[0].UserID)
}

func TestAdmission_ExpiredUserMayRejoin(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 10, 10)
	env.join(t, "concert", "alice", "bob")

	env.clk.Advance(grant + time.Second)
	require.Equal(t, models.ExpiredStatus(), env.status(t, "concert", "alice"))

	out, err := env.box.JoinQueue(context.Background(), "concert", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.SequenceNumber)
	assert.Equal(t, models.QueuedStatus(1, 1), out.Status)
}

func TestAdmission_LapsedHolderRejoinsWithoutPolling(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 10, 10)
	env.join(t, "concert", "alice", "bob")

	env.clk.Advance(grant + time.Second)

	out, err := env.box.JoinQueue(context.Background(), "concert", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.SequenceNumber)
	assert.Equal(t, models.QueuedStatus(1, 1), out.Status)

	assert.Equal(t, models.AdmissionActive, env.status(t, "concert", "bob").Kind)
	require.Len(t, env.prod.expired, 1)
	assert.Equal(t, "alice", env.prod.expired[0].UserID)
}

func TestAdmission_NotYourTurnCarriesRank(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 10, 10)
	env.join(t, "concert", "alice", "bob", "carol")

	_, err := env.admSvc.Holds(context.Background(), "concert", "carol")
	var nyt *errs.NotYourTurnError
	require.ErrorAs(t, err, &nyt)
	assert.Equal(t, int64(2), nyt.Rank)

	_, err = env.admSvc.Holds(context.Background(), "concert", "stranger")
	require.ErrorAs(t, err, &nyt)
	assert.Zero(t, nyt.Rank)
}

func TestAdmission_DuplicateJoinRejected(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 10, 10)
	env.join(t, "concert", "alice", "bob")

	_, err := env.box.JoinQueue(context.Background(), "concert", "alice")
	assert.ErrorIs(t, err, errs.ErrAlreadyQueued, "window holder")

	_, err = env.box.JoinQueue(context.Background(), "concert", "bob")
	assert.ErrorIs(t, err, errs.ErrAlreadyQueued, "waiting user")
}

func TestAdmission_JoinUnknownEvent(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 10, 10)

	_, err := env.box.JoinQueue(context.Background(), "nope", "alice")
	assert.ErrorIs(t, err, errs.ErrEventNotFound)
}

func TestAdmission_QueuesArePerEvent(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 10, 10)
	env.join(t, "concert", "alice", "bob")
	env.join(t, "matinee", "bob")

	assert.Equal(t, models.QueuedStatus(1, 1), env.status(t, "concert", "bob"))
	assert.Equal(t, models.AdmissionActive, env.status(t, "matinee", "bob").Kind)
}

func TestAdmission_GrantsFollowJoinOrder(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 10, 10)
	ctx := context.Background()

	const n = 25
	seqs := make(map[string]int64, n)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(uID string) {
			defer wg.Done()
			out, err := env.box.JoinQueue(ctx, "concert", uID)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			seqs[uID] = out.SequenceNumber
			mu.Unlock()
		}("user-" + strconv.Itoa(i))
	}
	wg.Wait()
	require.Len(t, seqs, n)

	var order []string
	for i := 0; i < n; i++ {
		w, err := env.admRepo.GetWindow(ctx, "concert")
		require.NoError(t, err)
		require.NotNil(t, w)
		order = append(order, w.UserID)

		ok, err := env.admSvc.Complete(ctx, "concert", w.UserID, models.OutcomeAbandoned)
		require.NoError(t, err)
		require.True(t, ok)
	}

	for i := 1; i < len(order); i++ {
		assert.Less(t, seqs[order[i-1]], seqs[order[i]], "grant order must follow sequence numbers")
	}
	assert.Len(t, env.prod.grantedUsers(), n)
}

func TestAdmission_CompleteOnlyByHolder(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 10, 10)
	env.join(t, "concert", "alice", "bob")
	ctx := context.Background()

	ok, err := env.admSvc.Complete(ctx, "concert", "bob", models.OutcomeCompleted)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = env.admSvc.Complete(ctx, "concert", "alice", models.OutcomeCompleted)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.admSvc.Complete(ctx, "concert", "alice", models.OutcomeCompleted)
	require.NoError(t, err)
	assert.False(t, ok, "second completion is a no-op")
}

func TestAdmission_CompleteAfterWindowLapsed(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 10, 10)
	env.join(t, "concert", "alice", "bob")
	ctx := context.Background()

	env.clk.Advance(grant + time.Millisecond)

	ok, err := env.admSvc.Complete(ctx, "concert", "alice", models.OutcomeCompleted)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, models.ExpiredStatus(), env.status(t, "concert", "alice"))
}

func TestAdmission_SchedulesExpiryOnGrant(t *testing.T) {
	var scheduled []*models.AdmissionWindow
	sched := &mockScheduler{
		scheduleFn: func(_ context.Context, w *models.AdmissionWindow) error {
			scheduled = append(scheduled, w)
			return nil
		},
	}
	env := newTestEnv(t, withScheduler(sched))
	env.seedEvent(t, 10, 10)
	env.join(t, "concert", "alice", "bob")

	require.Len(t, scheduled, 1)
	assert.Equal(t, "alice", scheduled[0].UserID)
	assert.Equal(t, env.clk.Now().Add(grant), scheduled[0].ExpiresAt)

	_, err := env.box.Purchase(context.Background(), purchaseInput("concert", "alice", "floor", 1))
	require.NoError(t, err)

	require.Len(t, scheduled, 2)
	assert.Equal(t, "bob", scheduled[1].UserID)
}

func TestLeaveQueue(t *testing.T) {
	t.Run("waiting user leaves", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedEvent(t, 10, 10)
		env.join(t, "concert", "alice", "bob", "carol")
		ctx := context.Background()

		require.NoError(t, env.box.LeaveQueue(ctx, "concert", "bob"))
		assert.Equal(t, models.QueuedStatus(1, 1), env.status(t, "concert", "carol"))

		assert.ErrorIs(t, env.box.LeaveQueue(ctx, "concert", "bob"), errs.ErrNotFound)
		assert.ErrorIs(t, env.box.LeaveQueue(ctx, "concert", "bob"), errs.ErrNotFound)
	})

	t.Run("holder abandons window", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedEvent(t, 10, 10)
		env.join(t, "concert", "alice", "bob")
		ctx := context.Background()

		require.NoError(t, env.box.LeaveQueue(ctx, "concert", "alice"))
		assert.Equal(t, models.AdmissionActive, env.status(t, "concert", "bob").Kind)
		assert.Equal(t, models.NotQueuedStatus(), env.status(t, "concert", "alice"))

		require.Len(t, env.prod.left, 1)
		assert.Equal(t, "abandoned", env.prod.left[0].Reason)
		assert.ErrorIs(t, env.box.LeaveQueue(ctx, "concert", "alice"), errs.ErrNotFound)
	})

	t.Run("holder whose window lapsed", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedEvent(t, 10, 10)
		env.join(t, "concert", "alice", "bob")
		ctx := context.Background()

		env.clk.Advance(grant + time.Second)

		assert.ErrorIs(t, env.box.LeaveQueue(ctx, "concert", "alice"), errs.ErrNotFound)
		assert.Empty(t, env.prod.left)
		require.Len(t, env.prod.expired, 1)
		assert.Equal(t, "alice", env.prod.expired[0].UserID)
		assert.Equal(t, models.ExpiredStatus(), env.status(t, "concert", "alice"))
		assert.Equal(t, models.AdmissionActive, env.status(t, "concert", "bob").Kind)
	})

	t.Run("never joined", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedEvent(t, 10, 10)

		assert.ErrorIs(t, env.box.LeaveQueue(context.Background(), "concert", "ghost"), errs.ErrNotFound)
	})
}
