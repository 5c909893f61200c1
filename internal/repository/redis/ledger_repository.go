package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	errs "github.com/vogiaan1904/ticketbottle-boxoffice/internal/errors"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
)

// ErrLedgerNotLoaded is returned for a category whose ledger was never loaded.
var ErrLedgerNotLoaded = errors.New("seat ledger not loaded")

type LedgerRepository interface {
	Reserve(ctx context.Context, catID string, qty int) (models.SeatRange, error)
	Release(ctx context.Context, catID string, seats models.SeatRange) error
	Restock(ctx context.Context, catID string, qty int) (int, error)
	Load(ctx context.Context, catID string, capacity, available, allocated int) error
	// Init loads the ledger only when none exists yet and reports whether it did.
	Init(ctx context.Context, catID string, capacity, available, allocated int) (bool, error)
	Halt(ctx context.Context, catID string) error
	Snapshot(ctx context.Context, catID string) (*models.LedgerSnapshot, error)
}

const (
	ledgerShort     = -1
	ledgerMissing   = -2
	ledgerHalted    = -3
	ledgerCorrupted = -4
)

// KEYS: ledger
// ARGV: quantity
var reserveScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -2
end
local h = redis.call('HMGET', KEYS[1], 'available', 'allocated', 'halted')
if h[3] == '1' then
	return -3
end
local qty = tonumber(ARGV[1])
if tonumber(h[1]) < qty then
	return -1
end
redis.call('HINCRBY', KEYS[1], 'available', -qty)
redis.call('HINCRBY', KEYS[1], 'allocated', qty)
return tonumber(h[2])
`)

// KEYS: ledger
// ARGV: base, quantity
var releaseScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -2
end
local h = redis.call('HMGET', KEYS[1], 'capacity', 'available', 'allocated', 'halted')
if h[4] == '1' then
	return -3
end
local base = tonumber(ARGV[1])
local qty = tonumber(ARGV[2])
if tonumber(h[2]) + qty > tonumber(h[1]) then
	redis.call('HSET', KEYS[1], 'halted', '1')
	return -4
end
redis.call('HINCRBY', KEYS[1], 'available', qty)
if tonumber(h[3]) == base + qty then
	redis.call('HSET', KEYS[1], 'allocated', base)
end
return 1
`)

// KEYS: ledger
// ARGV: quantity
var restockScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -2
end
if redis.call('HGET', KEYS[1], 'halted') == '1' then
	return -3
end
redis.call('HINCRBY', KEYS[1], 'capacity', tonumber(ARGV[1]))
return redis.call('HINCRBY', KEYS[1], 'available', tonumber(ARGV[1]))
`)

// KEYS: ledger
// ARGV: capacity, available, allocated
var initScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1],
	'capacity', ARGV[1],
	'available', ARGV[2],
	'allocated', ARGV[3],
	'halted', '0')
return 1
`)

type redisLedgerRepository struct {
	cli *redis.Client
	l   logger.Logger
}

func NewRedisLedgerRepository(cli *redis.Client, l logger.Logger) LedgerRepository {
	return &redisLedgerRepository{
		cli: cli,
		l:   l,
	}
}

func (r *redisLedgerRepository) Reserve(ctx context.Context, catID string, qty int) (models.SeatRange, error) {
	base, err := reserveScript.Run(ctx, r.cli, []string{ledgerKey(catID)}, qty).Int64()
	if err != nil {
		r.l.Errorf(ctx, "redisLedgerRepository.Reserve: %v", err)
		return models.SeatRange{}, fmt.Errorf("reserve %s: %w", catID, err)
	}

	switch base {
	case ledgerShort:
		return models.SeatRange{}, errs.ErrInsufficientSeats
	case ledgerMissing:
		return models.SeatRange{}, ErrLedgerNotLoaded
	case ledgerHalted:
		return models.SeatRange{}, errs.ErrLedgerCorruption
	}

	r.l.Debugw(ctx, "Seats reserved",
		"category_id", catID,
		"base", base,
		"quantity", qty,
	)

	return models.SeatRange{Base: int(base), Quantity: qty}, nil
}

func (r *redisLedgerRepository) Release(ctx context.Context, catID string, seats models.SeatRange) error {
	res, err := releaseScript.Run(ctx, r.cli, []string{ledgerKey(catID)}, seats.Base, seats.Quantity).Int64()
	if err != nil {
		r.l.Errorf(ctx, "redisLedgerRepository.Release: %v", err)
		return fmt.Errorf("release %s: %w", catID, err)
	}

	switch res {
	case ledgerMissing:
		return ErrLedgerNotLoaded
	case ledgerHalted, ledgerCorrupted:
		return errs.ErrLedgerCorruption
	}

	return nil
}

func (r *redisLedgerRepository) Restock(ctx context.Context, catID string, qty int) (int, error) {
	res, err := restockScript.Run(ctx, r.cli, []string{ledgerKey(catID)}, qty).Int64()
	if err != nil {
		r.l.Errorf(ctx, "redisLedgerRepository.Restock: %v", err)
		return 0, fmt.Errorf("restock %s: %w", catID, err)
	}

	switch res {
	case ledgerMissing:
		return 0, ErrLedgerNotLoaded
	case ledgerHalted:
		return 0, errs.ErrLedgerCorruption
	}

	return int(res), nil
}

// Load replaces the category's ledger and clears any halt.
func (r *redisLedgerRepository) Load(ctx context.Context, catID string, capacity, available, allocated int) error {
	key := ledgerKey(catID)

	pipe := r.cli.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key,
		"capacity", capacity,
		"available", available,
		"allocated", allocated,
		"halted", "0",
	)

	if _, err := pipe.Exec(ctx); err != nil {
		r.l.Errorf(ctx, "redisLedgerRepository.Load: %v", err)
		return fmt.Errorf("load %s: %w", catID, err)
	}

	r.l.Debugw(ctx, "Ledger loaded",
		"category_id", catID,
		"capacity", capacity,
		"available", available,
		"allocated", allocated,
	)

	return nil
}

func (r *redisLedgerRepository) Init(ctx context.Context, catID string, capacity, available, allocated int) (bool, error) {
	res, err := initScript.Run(ctx, r.cli, []string{ledgerKey(catID)}, capacity, available, allocated).Int64()
	if err != nil {
		r.l.Errorf(ctx, "redisLedgerRepository.Init: %v", err)
		return false, fmt.Errorf("init %s: %w", catID, err)
	}

	return res == 1, nil
}

func (r *redisLedgerRepository) Halt(ctx context.Context, catID string) error {
	if err := r.cli.HSet(ctx, ledgerKey(catID), "halted", "1").Err(); err != nil {
		r.l.Errorf(ctx, "redisLedgerRepository.Halt: %v", err)
		return fmt.Errorf("halt %s: %w", catID, err)
	}

	return nil
}

func (r *redisLedgerRepository) Snapshot(ctx context.Context, catID string) (*models.LedgerSnapshot, error) {
	h, err := r.cli.HGetAll(ctx, ledgerKey(catID)).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisLedgerRepository.Snapshot: %v", err)
		return nil, fmt.Errorf("snapshot %s: %w", catID, err)
	}
	if len(h) == 0 {
		return nil, ErrLedgerNotLoaded
	}

	return &models.LedgerSnapshot{
		CategoryID: catID,
		Capacity:   int(parseInt(h["capacity"])),
		Available:  int(parseInt(h["available"])),
		Allocated:  int(parseInt(h["allocated"])),
		Halted:     h["halted"] == "1",
	}, nil
}
