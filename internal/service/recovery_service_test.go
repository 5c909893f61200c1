package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "github.com/vogiaan1904/ticketbottle-boxoffice/internal/errors"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
)

func TestRecovery_RebuildsLedgersAndSequence(t *testing.T) {
	var rescheduled []*models.AdmissionWindow
	sched := &mockScheduler{}
	env := newTestEnv(t, withScheduler(sched))
	env.seedEvent(t, 5, 10)
	env.join(t, "concert", "alice", "bob", "carol")
	ctx := context.Background()

	_, err := env.box.Purchase(ctx, purchaseInput("concert", "alice", "vip", 2))
	require.NoError(t, err)

	// Lose the volatile counters and ledgers, keep the line.
	env.mr.Del("boxoffice:{concert}:queue:seq")
	env.mr.Del("boxoffice:category:{vip}:ledger")
	env.mr.Del("boxoffice:category:{floor}:ledger")

	sched.scheduleFn = func(_ context.Context, w *models.AdmissionWindow) error {
		rescheduled = append(rescheduled, w)
		return nil
	}
	rec := NewRecoveryService(env.catalog, env.qRepo, env.admRepo, env.admSvc, env.ledgerSvc, sched, logger.NewNop())
	require.NoError(t, rec.Recover(ctx))

	snap, err := env.ledgerSvc.Snapshot(ctx, "vip")
	require.NoError(t, err)
	assert.Equal(t, models.LedgerSnapshot{CategoryID: "vip", Capacity: 5, Available: 3, Allocated: 2}, *snap)

	snap, err = env.ledgerSvc.Snapshot(ctx, "floor")
	require.NoError(t, err)
	assert.Equal(t, 10, snap.Available)

	out, err := env.box.JoinQueue(ctx, "concert", "dave")
	require.NoError(t, err)
	assert.Equal(t, int64(4), out.SequenceNumber, "sequence continues past existing entries")

	require.Len(t, rescheduled, 1)
	assert.Equal(t, "bob", rescheduled[0].UserID)

	res, err := env.box.Purchase(ctx, purchaseInput("concert", "bob", "vip", 1))
	require.NoError(t, err)
	assert.Equal(t, []int{3}, res.Seats)
}

func TestRecovery_ExpiresStaleWindow(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 5, 10)
	env.join(t, "concert", "alice", "bob")
	ctx := context.Background()

	env.clk.Advance(10 * time.Minute)

	rec := NewRecoveryService(env.catalog, env.qRepo, env.admRepo, env.admSvc, env.ledgerSvc, nil, logger.NewNop())
	require.NoError(t, rec.Recover(ctx))

	w, err := env.admRepo.GetWindow(ctx, "concert")
	require.NoError(t, err)
	assert.Equal(t, "bob", w.UserID)
	assert.Equal(t, models.ExpiredStatus(), env.status(t, "concert", "alice"))
}

func TestRecovery_KeepsHaltUntilReconciled(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 5, 10)
	env.join(t, "concert", "alice")
	ctx := context.Background()

	require.NoError(t, env.db.Model(&models.TicketCategory{}).Where("id = ?", "vip").Update("seats_available", 0).Error)
	_, err := env.box.Purchase(ctx, purchaseInput("concert", "alice", "vip", 1))
	require.ErrorIs(t, err, errs.ErrLedgerCorruption)

	rec := NewRecoveryService(env.catalog, env.qRepo, env.admRepo, env.admSvc, env.ledgerSvc, nil, logger.NewNop())
	require.NoError(t, rec.Recover(ctx))

	_, err = env.ledgerSvc.Reserve(ctx, "vip", 1)
	assert.ErrorIs(t, err, errs.ErrLedgerCorruption, "restart must not resume a halted category")

	snap, err := env.ledgerSvc.Snapshot(ctx, "floor")
	require.NoError(t, err)
	assert.False(t, snap.Halted)

	snap, err = env.box.ReconcileCategory(ctx, "vip")
	require.NoError(t, err)
	assert.Equal(t, models.LedgerSnapshot{CategoryID: "vip", Capacity: 5, Available: 5}, *snap)

	cat, err := env.catalog.GetCategory(ctx, "vip")
	require.NoError(t, err)
	assert.Equal(t, 5, cat.SeatsAvailable)

	seats, err := env.ledgerSvc.Reserve(ctx, "vip", 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, seats.Seats())
}

func TestReconcileCategory_UnknownCategory(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 5, 10)

	_, err := env.box.ReconcileCategory(context.Background(), "nope")
	assert.ErrorIs(t, err, errs.ErrInvalidCategory)
}
