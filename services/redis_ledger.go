package services

import (
	"context"
	"fmt"

	"ticket-engine/internal/status"
	"ticket-engine/models"

	"github.com/redis/go-redis/v9"
)

// Lua scripts make each ledger operation a single atomic server-side
// step, so concurrent callers across processes can never both take the
// last unit. Counter state lives in one hash per ticket type.
var tryReserveScript = `
local capacity = tonumber(redis.call('HGET', KEYS[1], 'capacity') or -1)
if capacity < 0 then
	return {-1, 0}
end
local sold = tonumber(redis.call('HGET', KEYS[1], 'sold') or 0)
local reserved = tonumber(redis.call('HGET', KEYS[1], 'reserved') or 0)
local quantity = tonumber(ARGV[1])
local available = capacity - sold - reserved
if available < quantity then
	return {0, available}
end
redis.call('HINCRBY', KEYS[1], 'reserved', quantity)
return {1, available - quantity}
`

var commitReservedScript = `
local reserved = tonumber(redis.call('HGET', KEYS[1], 'reserved') or 0)
local quantity = tonumber(ARGV[1])
if reserved < quantity then
	return {-1, reserved}
end
redis.call('HINCRBY', KEYS[1], 'reserved', -quantity)
redis.call('HINCRBY', KEYS[1], 'sold', quantity)
return {1, reserved - quantity}
`

var releaseReservedScript = `
local reserved = tonumber(redis.call('HGET', KEYS[1], 'reserved') or 0)
local quantity = tonumber(ARGV[1])
if quantity > reserved then
	quantity = reserved
end
if quantity > 0 then
	redis.call('HINCRBY', KEYS[1], 'reserved', -quantity)
end
return reserved - quantity
`

// RedisLedger keeps the authoritative counters in Redis so multiple
// engine instances can share one ledger. Counters are seeded from the
// store on first touch of each ticket type.
type RedisLedger struct {
	redis *redis.Client
	store TicketTypeStore
}

func NewRedisLedger(redisClient *redis.Client, store TicketTypeStore) *RedisLedger {
	return &RedisLedger{redis: redisClient, store: store}
}

func ledgerKey(ticketTypeID string) string {
	return fmt.Sprintf("ledger:ticket_type:%s", ticketTypeID)
}

func (l *RedisLedger) Load(ctx context.Context, tt *models.TicketType) error {
	return l.redis.HSet(ctx, ledgerKey(tt.ID), map[string]any{
		"capacity": tt.Capacity,
		"sold":     tt.Sold,
		"reserved": tt.Reserved,
	}).Err()
}

// seed loads the counters from the store when the hash is missing,
// then signals the caller to retry its script once.
func (l *RedisLedger) seed(ctx context.Context, ticketTypeID string) error {
	if l.store == nil {
		return fmt.Errorf("ledger: %q: %w", ticketTypeID, status.ErrTicketTypeNotFound)
	}
	tt, err := l.store.GetTicketType(ctx, ticketTypeID)
	if err != nil {
		return err
	}
	return l.Load(ctx, tt)
}

func (l *RedisLedger) TryReserve(ctx context.Context, ticketTypeID string, quantity int) (bool, int, error) {
	if quantity <= 0 {
		return false, 0, status.ErrInvalidQuantity
	}

	for attempt := 0; attempt < 2; attempt++ {
		result, err := l.redis.Eval(ctx, tryReserveScript, []string{ledgerKey(ticketTypeID)}, quantity).Result()
		if err != nil {
			return false, 0, fmt.Errorf("ledger: try reserve %s: %w", ticketTypeID, err)
		}

		code, available, err := parseScriptPair(result)
		if err != nil {
			return false, 0, err
		}

		switch code {
		case 1:
			return true, available, nil
		case 0:
			return false, available, nil
		default:
			// Counters not seeded yet.
			if err := l.seed(ctx, ticketTypeID); err != nil {
				return false, 0, err
			}
		}
	}

	return false, 0, fmt.Errorf("ledger: try reserve %s: counters missing after seed", ticketTypeID)
}

func (l *RedisLedger) Commit(ctx context.Context, ticketTypeID string, quantity int) error {
	result, err := l.redis.Eval(ctx, commitReservedScript, []string{ledgerKey(ticketTypeID)}, quantity).Result()
	if err != nil {
		return fmt.Errorf("ledger: commit %s: %w", ticketTypeID, err)
	}

	code, reserved, err := parseScriptPair(result)
	if err != nil {
		return err
	}
	if code < 0 {
		return fmt.Errorf("ledger: commit %d of %d reserved on %q: %w",
			quantity, reserved, ticketTypeID, status.ErrConsistency)
	}
	return nil
}

func (l *RedisLedger) Release(ctx context.Context, ticketTypeID string, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	if err := l.redis.Eval(ctx, releaseReservedScript, []string{ledgerKey(ticketTypeID)}, quantity).Err(); err != nil {
		return fmt.Errorf("ledger: release %s: %w", ticketTypeID, err)
	}
	return nil
}

func (l *RedisLedger) Snapshot(ctx context.Context, ticketTypeID string) (LedgerSnapshot, error) {
	values, err := l.redis.HGetAll(ctx, ledgerKey(ticketTypeID)).Result()
	if err != nil {
		return LedgerSnapshot{}, fmt.Errorf("ledger: snapshot %s: %w", ticketTypeID, err)
	}

	if len(values) == 0 {
		if err := l.seed(ctx, ticketTypeID); err != nil {
			return LedgerSnapshot{}, err
		}
		values, err = l.redis.HGetAll(ctx, ledgerKey(ticketTypeID)).Result()
		if err != nil {
			return LedgerSnapshot{}, fmt.Errorf("ledger: snapshot %s: %w", ticketTypeID, err)
		}
	}

	return LedgerSnapshot{
		Capacity: atoiField(values, "capacity"),
		Sold:     atoiField(values, "sold"),
		Reserved: atoiField(values, "reserved"),
	}, nil
}

func parseScriptPair(result any) (int64, int, error) {
	pair, ok := result.([]interface{})
	if !ok || len(pair) != 2 {
		return 0, 0, fmt.Errorf("ledger: unexpected script result %v", result)
	}
	code, ok := pair[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("ledger: unexpected script result %v", result)
	}
	count, ok := pair[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("ledger: unexpected script result %v", result)
	}
	return code, int(count), nil
}

func atoiField(values map[string]string, field string) int {
	n := 0
	fmt.Sscanf(values[field], "%d", &n)
	return n
}
