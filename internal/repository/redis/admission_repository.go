package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
)

type AdmissionRepository interface {
	// Advance expires a stale active window and, when no window is active,
	// promotes the head of the queue. Both happen in one atomic step.
	Advance(ctx context.Context, eID string, now time.Time, grant time.Duration) (*models.Promotion, error)
	GetWindow(ctx context.Context, eID string) (*models.AdmissionWindow, error)
	Complete(ctx context.Context, eID, uID string, outcome models.Outcome, now time.Time) (bool, error)
	GetOutcome(ctx context.Context, eID, uID string) (models.Outcome, error)
	ActiveEvents(ctx context.Context) ([]string, error)
}

// outcomeRetention bounds how long an event's outcomes hash outlives its
// last write.
const outcomeRetention = 24 * time.Hour

// KEYS: window, queue, joined, outcomes, active events
// ARGV: now (unix ms), expires at for a new grant (unix ms), event id,
//       outcome retention (ms)
//
// Reply: {expired?, user, seq, granted_at, expires_at,
//         granted?, user, seq, granted_at, expires_at}
var advanceScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local out = {'0', '', '', '', '', '0', '', '', '', ''}
local w = redis.call('HMGET', KEYS[1], 'user_id', 'seq', 'granted_at', 'expires_at', 'state')
if w[5] == 'active' then
	if now <= tonumber(w[4]) then
		return out
	end
	redis.call('HSET', KEYS[1], 'state', 'expired')
	redis.call('HSET', KEYS[4], w[1], 'expired')
	redis.call('PEXPIRE', KEYS[4], ARGV[4])
	out[1] = '1'
	out[2] = w[1]
	out[3] = w[2]
	out[4] = w[3]
	out[5] = w[4]
end
local head = redis.call('ZRANGE', KEYS[2], 0, 0, 'WITHSCORES')
if #head == 0 then
	redis.call('SREM', KEYS[5], ARGV[3])
	return out
end
local user = head[1]
local seq = head[2]
local joined = redis.call('HGET', KEYS[3], user) or ''
redis.call('ZREM', KEYS[2], user)
redis.call('HDEL', KEYS[3], user)
redis.call('HDEL', KEYS[4], user)
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1],
	'user_id', user,
	'seq', seq,
	'granted_at', ARGV[1],
	'expires_at', ARGV[2],
	'joined_at', joined,
	'state', 'active')
out[6] = '1'
out[7] = user
out[8] = seq
out[9] = ARGV[1]
out[10] = ARGV[2]
return out
`)

// KEYS: window, outcomes
// ARGV: user id, outcome, now (unix ms), outcome retention (ms)
var completeScript = redis.NewScript(`
local w = redis.call('HMGET', KEYS[1], 'user_id', 'state', 'expires_at')
if w[2] ~= 'active' or w[1] ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > tonumber(w[3]) then
	return 0
end
redis.call('HSET', KEYS[1], 'state', 'completed', 'completed_at', ARGV[3])
redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
redis.call('PEXPIRE', KEYS[2], ARGV[4])
return 1
`)

type redisAdmissionRepository struct {
	cli *redis.Client
	l   logger.Logger
}

func NewRedisAdmissionRepository(cli *redis.Client, l logger.Logger) AdmissionRepository {
	return &redisAdmissionRepository{
		cli: cli,
		l:   l,
	}
}

func (r *redisAdmissionRepository) Advance(ctx context.Context, eID string, now time.Time, grant time.Duration) (*models.Promotion, error) {
	keys := []string{
		windowKey(eID),
		queueKey(eID),
		joinedKey(eID),
		outcomesKey(eID),
		activeEventsKey(),
	}

	res, err := advanceScript.Run(ctx, r.cli, keys, now.UnixMilli(), now.Add(grant).UnixMilli(), eID, outcomeRetention.Milliseconds()).StringSlice()
	if err != nil {
		r.l.Errorf(ctx, "redisAdmissionRepository.Advance: %v", err)
		return nil, fmt.Errorf("advance %s: %w", eID, err)
	}
	if len(res) != 10 {
		return nil, fmt.Errorf("advance %s: unexpected reply length %d", eID, len(res))
	}

	p := &models.Promotion{}
	if res[0] == "1" {
		p.Expired = windowFromReply(eID, res[1:5], models.WindowStateExpired)
	}
	if res[5] == "1" {
		p.Granted = windowFromReply(eID, res[6:10], models.WindowStateActive)
	}

	if p.Changed() {
		r.l.Debugw(ctx, "Admission advanced",
			"event_id", eID,
			"expired", p.Expired != nil,
			"granted", p.Granted != nil,
		)
	}

	return p, nil
}

func windowFromReply(eID string, f []string, state models.WindowState) *models.AdmissionWindow {
	return &models.AdmissionWindow{
		EventID:        eID,
		UserID:         f[0],
		SequenceNumber: parseInt(f[1]),
		GrantedAt:      parseUnixMilli(f[2]),
		ExpiresAt:      parseUnixMilli(f[3]),
		State:          state,
	}
}

func (r *redisAdmissionRepository) GetWindow(ctx context.Context, eID string) (*models.AdmissionWindow, error) {
	h, err := r.cli.HGetAll(ctx, windowKey(eID)).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisAdmissionRepository.GetWindow: %v", err)
		return nil, fmt.Errorf("get window %s: %w", eID, err)
	}
	if len(h) == 0 {
		return nil, nil
	}

	return &models.AdmissionWindow{
		EventID:        eID,
		UserID:         h["user_id"],
		SequenceNumber: parseInt(h["seq"]),
		GrantedAt:      parseUnixMilli(h["granted_at"]),
		ExpiresAt:      parseUnixMilli(h["expires_at"]),
		State:          models.WindowState(h["state"]),
	}, nil
}

// Complete moves uID's active window to completed. It reports false when uID
// does not hold the active window or the window has lapsed, which makes
// repeated calls harmless.
func (r *redisAdmissionRepository) Complete(ctx context.Context, eID, uID string, outcome models.Outcome, now time.Time) (bool, error) {
	ok, err := completeScript.Run(ctx, r.cli, []string{windowKey(eID), outcomesKey(eID)}, uID, string(outcome), now.UnixMilli(), outcomeRetention.Milliseconds()).Int64()
	if err != nil {
		r.l.Errorf(ctx, "redisAdmissionRepository.Complete: %v", err)
		return false, fmt.Errorf("complete %s/%s: %w", eID, uID, err)
	}

	return ok == 1, nil
}

func (r *redisAdmissionRepository) GetOutcome(ctx context.Context, eID, uID string) (models.Outcome, error) {
	o, err := r.cli.HGet(ctx, outcomesKey(eID), uID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}

		r.l.Errorf(ctx, "redisAdmissionRepository.GetOutcome: %v", err)
		return "", fmt.Errorf("get outcome %s/%s: %w", eID, uID, err)
	}

	return models.Outcome(o), nil
}

func (r *redisAdmissionRepository) ActiveEvents(ctx context.Context) ([]string, error) {
	ids, err := r.cli.SMembers(ctx, activeEventsKey()).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisAdmissionRepository.ActiveEvents: %v", err)
		return nil, fmt.Errorf("active events: %w", err)
	}

	return ids, nil
}
