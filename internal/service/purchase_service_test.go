package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "github.com/vogiaan1904/ticketbottle-boxoffice/internal/errors"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
)

func TestPurchase_IssuesSequentialSeats(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 3, 10)
	env.join(t, "concert", "alice")

	res, err := env.box.Purchase(context.Background(), purchaseInput("concert", "alice", "vip", 3))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, res.Seats)
	assert.Equal(t, int64(75000), res.Amount)
	require.Len(t, res.Tickets, 3)
	for _, tk := range res.Tickets {
		assert.Equal(t, res.TransactionID, tk.TransactionID)
		assert.Equal(t, models.TicketStatusIssued, tk.Status)
	}

	cat, err := env.catalog.GetCategory(context.Background(), "vip")
	require.NoError(t, err)
	assert.Zero(t, cat.SeatsAvailable)
	assert.Equal(t, int64(3), env.issuedCount(t, "vip"))

	require.Len(t, env.prod.purchases, 1)
	assert.Len(t, env.prod.purchases[0].Tickets, 3)
}

func TestPurchase_SoldOutKeepsWindow(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 3, 10)
	ctx := context.Background()
	env.join(t, "concert", "alice", "bob")

	_, err := env.box.Purchase(ctx, purchaseInput("concert", "alice", "vip", 3))
	require.NoError(t, err)

	_, err = env.box.Purchase(ctx, purchaseInput("concert", "bob", "vip", 1))
	assert.ErrorIs(t, err, errs.ErrInsufficientSeats)

	assert.Equal(t, models.AdmissionActive, env.status(t, "concert", "bob").Kind, "sold out must not end the window")

	res, err := env.box.Purchase(ctx, purchaseInput("concert", "bob", "floor", 2))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, res.Seats)
}

func TestPurchase_Validation(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 10, 10)
	env.join(t, "concert", "alice")
	ctx := context.Background()

	tests := []struct {
		name  string
		input PurchaseInput
		want  error
	}{
		{
			name:  "zero quantity",
			input: purchaseInput("concert", "alice", "vip", 0),
			want:  errs.ErrInvalidQuantity,
		},
		{
			name:  "over the per-purchase limit",
			input: purchaseInput("concert", "alice", "vip", 11),
			want:  errs.ErrQuantityTooLarge,
		},
		{
			name:  "category of another event",
			input: purchaseInput("concert", "alice", "balcony", 1),
			want:  errs.ErrInvalidCategory,
		},
		{
			name:  "unknown category",
			input: purchaseInput("concert", "alice", "pit", 1),
			want:  errs.ErrInvalidCategory,
		},
		{
			name: "missing card",
			input: func() PurchaseInput {
				in := purchaseInput("concert", "alice", "vip", 1)
				in.Payment.CardNumber = ""
				return in
			}(),
			want: errs.ErrPaymentDetailsRequired,
		},
		{
			name: "missing expiry month",
			input: func() PurchaseInput {
				in := purchaseInput("concert", "alice", "vip", 1)
				in.Payment.ExpiryMonth = 0
				return in
			}(),
			want: errs.ErrPaymentDetailsRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.box.Purchase(ctx, tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, models.AdmissionActive, env.status(t, "concert", "alice").Kind)
	assert.Zero(t, env.issuedCount(t, "vip"))
}

func TestPurchase_PaymentFieldsNeedOnlyBePresent(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 5, 10)
	env.join(t, "concert", "alice")

	in := purchaseInput("concert", "alice", "vip", 1)
	in.Payment.ExpiryMonth = 13
	in.Payment.ExpiryYear = 1999
	in.Payment.CVV = "x"

	res, err := env.box.Purchase(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, res.Seats)
}

func TestPurchase_RollbackOnPersistenceFailure(t *testing.T) {
	fail := true
	payments := &mockPaymentCapture{
		recordFn: func(ctx context.Context, userID string, d models.PaymentDetails) (string, error) {
			if fail {
				return "", errors.New("connection reset")
			}
			return "pm-1", nil
		},
	}
	env := newTestEnv(t, withPayments(payments))
	env.seedEvent(t, 5, 10)
	env.join(t, "concert", "alice")
	ctx := context.Background()

	_, err := env.box.Purchase(ctx, purchaseInput("concert", "alice", "vip", 2))
	assert.ErrorIs(t, err, errs.ErrPurchaseFailed)

	snap, err := env.ledgerSvc.Snapshot(ctx, "vip")
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Available)
	assert.Zero(t, snap.Allocated, "tail allocation is reclaimed")
	assert.Zero(t, env.issuedCount(t, "vip"))
	assert.Equal(t, models.AdmissionActive, env.status(t, "concert", "alice").Kind)

	var audit []models.Transaction
	require.NoError(t, env.db.Where("user_id = ?", "alice").Find(&audit).Error)
	require.Len(t, audit, 1)
	assert.Equal(t, models.TransactionStatusRolledBack, audit[0].Status)

	fail = false
	res, err := env.box.Purchase(ctx, purchaseInput("concert", "alice", "vip", 2))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, res.Seats)
}

func TestPurchase_DurableGuardHaltsCategory(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 5, 10)
	env.join(t, "concert", "alice")
	ctx := context.Background()

	// Durable row drifts below what the ledger believes.
	require.NoError(t, env.db.Model(&models.TicketCategory{}).Where("id = ?", "vip").Update("seats_available", 0).Error)

	_, err := env.box.Purchase(ctx, purchaseInput("concert", "alice", "vip", 1))
	assert.ErrorIs(t, err, errs.ErrLedgerCorruption)
	assert.Zero(t, env.issuedCount(t, "vip"))

	snap, err := env.ledgerSvc.Snapshot(ctx, "vip")
	require.NoError(t, err)
	assert.True(t, snap.Halted)

	_, err = env.ledgerSvc.Reserve(ctx, "vip", 1)
	assert.ErrorIs(t, err, errs.ErrLedgerCorruption)

	res, err := env.box.Purchase(ctx, purchaseInput("concert", "alice", "floor", 1))
	require.NoError(t, err, "other categories keep selling")
	assert.Equal(t, []int{1}, res.Seats)
}

func TestPurchase_NoOversellUnderContention(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 1, 10)
	ctx := context.Background()

	const n = 30
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		won  int
		lost int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.ledgerSvc.Reserve(ctx, "vip", 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case errors.Is(err, errs.ErrInsufficientSeats):
				lost++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won)
	assert.Equal(t, n-1, lost)
}

func TestPurchase_LedgerMatchesIssuedTickets(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 8, 10)
	ctx := context.Background()

	users := []string{"u1", "u2", "u3", "u4"}
	env.join(t, "concert", users...)
	for _, u := range users {
		_, err := env.box.Purchase(ctx, purchaseInput("concert", u, "vip", 3))
		if err != nil {
			assert.ErrorIs(t, err, errs.ErrInsufficientSeats)
			require.NoError(t, env.box.LeaveQueue(ctx, "concert", u))
		}
	}

	snap, err := env.ledgerSvc.Snapshot(ctx, "vip")
	require.NoError(t, err)
	issued := env.issuedCount(t, "vip")
	assert.Equal(t, int64(6), issued)
	assert.Equal(t, snap.Capacity, snap.Available+int(issued))

	cat, err := env.catalog.GetCategory(ctx, "vip")
	require.NoError(t, err)
	assert.Equal(t, snap.Available, cat.SeatsAvailable)
}

func TestPurchase_LazyLedgerLoad(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, 4, 10)
	env.join(t, "concert", "alice")
	ctx := context.Background()

	_, err := env.box.Purchase(ctx, purchaseInput("concert", "alice", "vip", 1))
	require.NoError(t, err)

	env.mr.Del("boxoffice:category:{vip}:ledger")

	seats, err := env.ledgerSvc.Reserve(ctx, "vip", 2)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, seats.Seats(), "allocation resumes after the highest issued seat")
}
