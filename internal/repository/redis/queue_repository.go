package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	errs "github.com/vogiaan1904/ticketbottle-boxoffice/internal/errors"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
)

type QueueRepository interface {
	Enqueue(ctx context.Context, eID, uID string, now time.Time) (int64, error)
	PeekHead(ctx context.Context, eID string) (*models.QueueEntry, error)
	Remove(ctx context.Context, eID, uID string) error
	Rank(ctx context.Context, eID, uID string) (int64, error)
	Length(ctx context.Context, eID string) (int64, error)
	MaxSequence(ctx context.Context, eID string) (int64, error)
	EnsureSequenceAtLeast(ctx context.Context, eID string, floor int64) (int64, error)
}

// KEYS: queue, seq, joined, window, outcomes, active events
// ARGV: user id, joined at (unix ms), event id
//
// A holder whose window has lapsed may rejoin before anything has marked the
// window expired.
var enqueueScript = redis.NewScript(`
if redis.call('ZSCORE', KEYS[1], ARGV[1]) then
	return -1
end
local w = redis.call('HMGET', KEYS[4], 'user_id', 'state', 'expires_at')
if w[1] == ARGV[1] and w[2] == 'active' and tonumber(ARGV[2]) <= tonumber(w[3]) then
	return -1
end
local seq = redis.call('INCR', KEYS[2])
redis.call('ZADD', KEYS[1], seq, ARGV[1])
redis.call('HSET', KEYS[3], ARGV[1], ARGV[2])
redis.call('HDEL', KEYS[5], ARGV[1])
redis.call('SADD', KEYS[6], ARGV[3])
return seq
`)

// KEYS: queue, joined
// ARGV: user id
var removeScript = redis.NewScript(`
local removed = redis.call('ZREM', KEYS[1], ARGV[1])
if removed == 1 then
	redis.call('HDEL', KEYS[2], ARGV[1])
end
return removed
`)

// KEYS: seq
// ARGV: floor
var raiseSequenceScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local floor = tonumber(ARGV[1])
if cur < floor then
	redis.call('SET', KEYS[1], floor)
	return floor
end
return cur
`)

type redisQueueRepository struct {
	cli *redis.Client
	l   logger.Logger
}

func NewRedisQueueRepository(cli *redis.Client, l logger.Logger) QueueRepository {
	return &redisQueueRepository{
		cli: cli,
		l:   l,
	}
}

func (r *redisQueueRepository) Enqueue(ctx context.Context, eID, uID string, now time.Time) (int64, error) {
	keys := []string{
		queueKey(eID),
		sequenceKey(eID),
		joinedKey(eID),
		windowKey(eID),
		outcomesKey(eID),
		activeEventsKey(),
	}

	seq, err := enqueueScript.Run(ctx, r.cli, keys, uID, now.UnixMilli(), eID).Int64()
	if err != nil {
		r.l.Errorf(ctx, "redisQueueRepository.Enqueue: %v", err)
		return 0, fmt.Errorf("enqueue %s/%s: %w", eID, uID, err)
	}
	if seq < 0 {
		return 0, errs.ErrAlreadyQueued
	}

	r.l.Debugw(ctx, "Added to queue",
		"event_id", eID,
		"user_id", uID,
		"seq", seq,
	)

	return seq, nil
}

func (r *redisQueueRepository) PeekHead(ctx context.Context, eID string) (*models.QueueEntry, error) {
	head, err := r.cli.ZRangeWithScores(ctx, queueKey(eID), 0, 0).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisQueueRepository.PeekHead: %v", err)
		return nil, fmt.Errorf("peek head %s: %w", eID, err)
	}
	if len(head) == 0 {
		return nil, nil
	}

	uID, _ := head[0].Member.(string)
	entry := &models.QueueEntry{
		UserID:         uID,
		EventID:        eID,
		SequenceNumber: int64(head[0].Score),
	}

	joined, err := r.cli.HGet(ctx, joinedKey(eID), uID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.l.Errorf(ctx, "redisQueueRepository.PeekHead: %v", err)
		return nil, fmt.Errorf("peek head %s: %w", eID, err)
	}
	entry.JoinedAt = parseUnixMilli(joined)

	return entry, nil
}

func (r *redisQueueRepository) Remove(ctx context.Context, eID, uID string) error {
	removed, err := removeScript.Run(ctx, r.cli, []string{queueKey(eID), joinedKey(eID)}, uID).Int64()
	if err != nil {
		r.l.Errorf(ctx, "redisQueueRepository.Remove: %v", err)
		return fmt.Errorf("remove %s/%s: %w", eID, uID, err)
	}
	if removed == 0 {
		return errs.ErrNotFound
	}

	r.l.Debugw(ctx, "Removed from queue",
		"event_id", eID,
		"user_id", uID,
	)

	return nil
}

func (r *redisQueueRepository) Rank(ctx context.Context, eID, uID string) (int64, error) {
	rank, err := r.cli.ZRank(ctx, queueKey(eID), uID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, errs.ErrNotFound
		}

		r.l.Errorf(ctx, "redisQueueRepository.Rank: %v", err)
		return 0, fmt.Errorf("rank %s/%s: %w", eID, uID, err)
	}

	return rank + 1, nil
}

func (r *redisQueueRepository) Length(ctx context.Context, eID string) (int64, error) {
	count, err := r.cli.ZCard(ctx, queueKey(eID)).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisQueueRepository.Length: %v", err)
		return 0, fmt.Errorf("length %s: %w", eID, err)
	}

	return count, nil
}

func (r *redisQueueRepository) MaxSequence(ctx context.Context, eID string) (int64, error) {
	tail, err := r.cli.ZRangeWithScores(ctx, queueKey(eID), -1, -1).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisQueueRepository.MaxSequence: %v", err)
		return 0, fmt.Errorf("max sequence %s: %w", eID, err)
	}
	if len(tail) == 0 {
		return 0, nil
	}

	return int64(tail[0].Score), nil
}

// EnsureSequenceAtLeast raises the event's counter to floor so the next join
// receives floor+1. It never lowers the counter.
func (r *redisQueueRepository) EnsureSequenceAtLeast(ctx context.Context, eID string, floor int64) (int64, error) {
	cur, err := raiseSequenceScript.Run(ctx, r.cli, []string{sequenceKey(eID)}, floor).Int64()
	if err != nil {
		r.l.Errorf(ctx, "redisQueueRepository.EnsureSequenceAtLeast: %v", err)
		return 0, fmt.Errorf("raise sequence %s: %w", eID, err)
	}

	return cur, nil
}

func parseUnixMilli(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func parseInt(s string) int64 {
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}
