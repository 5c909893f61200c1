package repository

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "github.com/vogiaan1904/ticketbottle-boxoffice/internal/errors"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cli.Close() })

	return cli
}

func TestQueueRepository_ConcurrentEnqueueGetsDistinctSequences(t *testing.T) {
	ctx := context.Background()
	repo := NewRedisQueueRepository(newTestClient(t), logger.NewNop())

	const users = 50
	seqs := make([]int64, users)

	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seq, err := repo.Enqueue(ctx, "e1", "user-"+strconv.Itoa(i), t0)
			assert.NoError(t, err)
			seqs[i] = seq
		}(i)
	}
	wg.Wait()

	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	for i, seq := range seqs {
		assert.Equal(t, int64(i+1), seq)
	}

	n, err := repo.Length(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, int64(users), n)
}

func TestQueueRepository_EnqueueTwiceIsRejected(t *testing.T) {
	ctx := context.Background()
	repo := NewRedisQueueRepository(newTestClient(t), logger.NewNop())

	_, err := repo.Enqueue(ctx, "e1", "alice", t0)
	require.NoError(t, err)

	_, err = repo.Enqueue(ctx, "e1", "alice", t0)
	assert.ErrorIs(t, err, errs.ErrAlreadyQueued)

	// Other events are separate lines.
	seq, err := repo.Enqueue(ctx, "e2", "alice", t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}

func TestQueueRepository_PeekRankRemove(t *testing.T) {
	ctx := context.Background()
	repo := NewRedisQueueRepository(newTestClient(t), logger.NewNop())

	head, err := repo.PeekHead(ctx, "e1")
	require.NoError(t, err)
	assert.Nil(t, head)

	for _, u := range []string{"a", "b", "c"} {
		_, err := repo.Enqueue(ctx, "e1", u, t0)
		require.NoError(t, err)
	}

	head, err = repo.PeekHead(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, "a", head.UserID)
	assert.Equal(t, int64(1), head.SequenceNumber)
	assert.True(t, head.JoinedAt.Equal(t0))

	rank, err := repo.Rank(ctx, "e1", "c")
	require.NoError(t, err)
	assert.Equal(t, int64(3), rank)

	require.NoError(t, repo.Remove(ctx, "e1", "b"))
	assert.ErrorIs(t, repo.Remove(ctx, "e1", "b"), errs.ErrNotFound)
	assert.ErrorIs(t, repo.Remove(ctx, "e1", "b"), errs.ErrNotFound)

	rank, err = repo.Rank(ctx, "e1", "c")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rank)

	_, err = repo.Rank(ctx, "e1", "b")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestQueueRepository_EnsureSequenceAtLeast(t *testing.T) {
	ctx := context.Background()
	repo := NewRedisQueueRepository(newTestClient(t), logger.NewNop())

	cur, err := repo.EnsureSequenceAtLeast(ctx, "e1", 41)
	require.NoError(t, err)
	assert.Equal(t, int64(41), cur)

	cur, err = repo.EnsureSequenceAtLeast(ctx, "e1", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(41), cur)

	seq, err := repo.Enqueue(ctx, "e1", "late", t0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), seq)

	maxSeq, err := repo.MaxSequence(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), maxSeq)
}

func TestAdmissionRepository_AdvanceGrantsHeadOnce(t *testing.T) {
	ctx := context.Background()
	cli := newTestClient(t)
	queue := NewRedisQueueRepository(cli, logger.NewNop())
	adm := NewRedisAdmissionRepository(cli, logger.NewNop())

	for _, u := range []string{"a", "b"} {
		_, err := queue.Enqueue(ctx, "e1", u, t0)
		require.NoError(t, err)
	}

	var (
		mu      sync.Mutex
		granted []string
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := adm.Advance(ctx, "e1", t0, 5*time.Minute)
			assert.NoError(t, err)
			if p.Granted != nil {
				mu.Lock()
				granted = append(granted, p.Granted.UserID)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"a"}, granted)

	w, err := adm.GetWindow(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "a", w.UserID)
	assert.Equal(t, int64(1), w.SequenceNumber)
	assert.Equal(t, models.WindowStateActive, w.State)
	assert.True(t, w.ExpiresAt.Equal(t0.Add(5*time.Minute)))

	_, err = queue.Rank(ctx, "e1", "a")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = queue.Enqueue(ctx, "e1", "a", t0)
	assert.ErrorIs(t, err, errs.ErrAlreadyQueued)
}

func TestAdmissionRepository_AdvanceExpiresStaleWindow(t *testing.T) {
	ctx := context.Background()
	cli := newTestClient(t)
	queue := NewRedisQueueRepository(cli, logger.NewNop())
	adm := NewRedisAdmissionRepository(cli, logger.NewNop())

	for _, u := range []string{"a", "b"} {
		_, err := queue.Enqueue(ctx, "e1", u, t0)
		require.NoError(t, err)
	}

	_, err := adm.Advance(ctx, "e1", t0, time.Minute)
	require.NoError(t, err)

	// Exactly at expiry the window is still valid.
	p, err := adm.Advance(ctx, "e1", t0.Add(time.Minute), time.Minute)
	require.NoError(t, err)
	assert.False(t, p.Changed())

	p, err = adm.Advance(ctx, "e1", t0.Add(time.Minute+time.Millisecond), time.Minute)
	require.NoError(t, err)
	require.NotNil(t, p.Expired)
	require.NotNil(t, p.Granted)
	assert.Equal(t, "a", p.Expired.UserID)
	assert.Equal(t, "b", p.Granted.UserID)
	assert.Equal(t, int64(2), p.Granted.SequenceNumber)

	outcome, err := adm.GetOutcome(ctx, "e1", "a")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeExpired, outcome)

	// A second sweep over the same instant changes nothing.
	p, err = adm.Advance(ctx, "e1", t0.Add(time.Minute+time.Millisecond), time.Minute)
	require.NoError(t, err)
	assert.False(t, p.Changed())
}

func TestAdmissionRepository_CompleteOnlyByHolder(t *testing.T) {
	ctx := context.Background()
	cli := newTestClient(t)
	queue := NewRedisQueueRepository(cli, logger.NewNop())
	adm := NewRedisAdmissionRepository(cli, logger.NewNop())

	_, err := queue.Enqueue(ctx, "e1", "a", t0)
	require.NoError(t, err)
	_, err = adm.Advance(ctx, "e1", t0, time.Minute)
	require.NoError(t, err)

	ok, err := adm.Complete(ctx, "e1", "b", models.OutcomeCompleted, t0)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = adm.Complete(ctx, "e1", "a", models.OutcomeCompleted, t0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = adm.Complete(ctx, "e1", "a", models.OutcomeCompleted, t0)
	require.NoError(t, err)
	assert.False(t, ok)

	events, err := adm.ActiveEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, events)

	// Queue is empty and the window is done, so the event goes idle.
	p, err := adm.Advance(ctx, "e1", t0, time.Minute)
	require.NoError(t, err)
	assert.False(t, p.Changed())

	events, err = adm.ActiveEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAdmissionRepository_LapsedWindow(t *testing.T) {
	ctx := context.Background()
	cli := newTestClient(t)
	queue := NewRedisQueueRepository(cli, logger.NewNop())
	adm := NewRedisAdmissionRepository(cli, logger.NewNop())

	_, err := queue.Enqueue(ctx, "e1", "a", t0)
	require.NoError(t, err)
	_, err = adm.Advance(ctx, "e1", t0, time.Minute)
	require.NoError(t, err)

	lapsed := t0.Add(time.Minute + time.Millisecond)

	// Nothing has swept the window yet; it still reads as active.
	w, err := adm.GetWindow(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, models.WindowStateActive, w.State)

	ok, err := adm.Complete(ctx, "e1", "a", models.OutcomeCompleted, lapsed)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = queue.Enqueue(ctx, "e1", "a", t0.Add(time.Minute))
	assert.ErrorIs(t, err, errs.ErrAlreadyQueued, "window still valid at the expiry instant")

	seq, err := queue.Enqueue(ctx, "e1", "a", lapsed)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}

func TestAdmissionRepository_OutcomesExpire(t *testing.T) {
	ctx := context.Background()
	cli := newTestClient(t)
	queue := NewRedisQueueRepository(cli, logger.NewNop())
	adm := NewRedisAdmissionRepository(cli, logger.NewNop())

	for _, u := range []string{"a", "b"} {
		_, err := queue.Enqueue(ctx, "e1", u, t0)
		require.NoError(t, err)
	}
	_, err := adm.Advance(ctx, "e1", t0, time.Minute)
	require.NoError(t, err)

	ttl, err := cli.PTTL(ctx, outcomesKey("e1")).Result()
	require.NoError(t, err)
	assert.Negative(t, ttl, "nothing recorded yet")

	_, err = adm.Advance(ctx, "e1", t0.Add(2*time.Minute), time.Minute)
	require.NoError(t, err)

	ttl, err = cli.PTTL(ctx, outcomesKey("e1")).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
	assert.LessOrEqual(t, ttl, outcomeRetention)

	require.NoError(t, cli.Persist(ctx, outcomesKey("e1")).Err())
	ok, err := adm.Complete(ctx, "e1", "b", models.OutcomeCompleted, t0.Add(2*time.Minute))
	require.NoError(t, err)
	require.True(t, ok)

	ttl, err = cli.PTTL(ctx, outcomesKey("e1")).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
}

func TestLedgerRepository_ConcurrentReserveNeverOversells(t *testing.T) {
	ctx := context.Background()
	repo := NewRedisLedgerRepository(newTestClient(t), logger.NewNop())
	require.NoError(t, repo.Load(ctx, "c1", 10, 10, 0))

	var (
		mu    sync.Mutex
		seats []int
		short int
		wg    sync.WaitGroup
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := repo.Reserve(ctx, "c1", 1)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, errs.ErrInsufficientSeats)
				short++
				return
			}
			seats = append(seats, r.First())
		}()
	}
	wg.Wait()

	assert.Equal(t, 30, short)
	sort.Ints(seats)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, seats)

	snap, err := repo.Snapshot(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Available)
	assert.Equal(t, 10, snap.Allocated)
}

func TestLedgerRepository_ShortReserveDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	repo := NewRedisLedgerRepository(newTestClient(t), logger.NewNop())
	require.NoError(t, repo.Load(ctx, "c1", 3, 2, 1))

	_, err := repo.Reserve(ctx, "c1", 3)
	assert.ErrorIs(t, err, errs.ErrInsufficientSeats)

	snap, err := repo.Snapshot(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, &models.LedgerSnapshot{CategoryID: "c1", Capacity: 3, Available: 2, Allocated: 1}, snap)

	_, err = repo.Reserve(ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrLedgerNotLoaded)
}

func TestLedgerRepository_ReleaseRestoresAndReclaimsTail(t *testing.T) {
	ctx := context.Background()
	repo := NewRedisLedgerRepository(newTestClient(t), logger.NewNop())
	require.NoError(t, repo.Load(ctx, "c1", 5, 5, 0))

	r, err := repo.Reserve(ctx, "c1", 3)
	require.NoError(t, err)
	assert.Equal(t, models.SeatRange{Base: 0, Quantity: 3}, r)
	assert.Equal(t, []int{1, 2, 3}, r.Seats())

	require.NoError(t, repo.Release(ctx, "c1", r))

	snap, err := repo.Snapshot(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Available)
	assert.Equal(t, 0, snap.Allocated)
}

func TestLedgerRepository_ReleaseAboveCapacityHalts(t *testing.T) {
	ctx := context.Background()
	repo := NewRedisLedgerRepository(newTestClient(t), logger.NewNop())
	require.NoError(t, repo.Load(ctx, "c1", 2, 2, 0))

	err := repo.Release(ctx, "c1", models.SeatRange{Base: 0, Quantity: 1})
	assert.ErrorIs(t, err, errs.ErrLedgerCorruption)

	snap, err := repo.Snapshot(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, snap.Halted)
	assert.Equal(t, 2, snap.Available)

	_, err = repo.Reserve(ctx, "c1", 1)
	assert.ErrorIs(t, err, errs.ErrLedgerCorruption)

	_, err = repo.Restock(ctx, "c1", 1)
	assert.ErrorIs(t, err, errs.ErrLedgerCorruption)

	// Reloading from durable state clears the halt.
	require.NoError(t, repo.Load(ctx, "c1", 2, 2, 0))
	_, err = repo.Reserve(ctx, "c1", 1)
	assert.NoError(t, err)
}

func TestLedgerRepository_Restock(t *testing.T) {
	ctx := context.Background()
	repo := NewRedisLedgerRepository(newTestClient(t), logger.NewNop())
	require.NoError(t, repo.Load(ctx, "c1", 1, 0, 1))

	avail, err := repo.Restock(ctx, "c1", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, avail)

	r, err := repo.Reserve(ctx, "c1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, r.First())
	assert.Equal(t, 3, r.Last())

	snap, err := repo.Snapshot(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Capacity)
}

func TestLedgerRepository_InitDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	repo := NewRedisLedgerRepository(newTestClient(t), logger.NewNop())

	ok, err := repo.Init(ctx, "c1", 4, 4, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repo.Reserve(ctx, "c1", 1)
	require.NoError(t, err)

	ok, err = repo.Init(ctx, "c1", 4, 4, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	snap, err := repo.Snapshot(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Available)
}
