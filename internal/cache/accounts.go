package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/geocoder89/bankdesk/internal/domain/account"
	"github.com/redis/go-redis/v9"
)

// Accounts is the read-through cache in front of GET /accounts/:id.
// A miss is (zero, false, nil). Errors are reported so callers can log them,
// but a failing cache must never fail the request.
//
// Delete leaves an invalidation marker behind for one TTL. Set is given the
// time the caller started reading the row and is dropped when the id was
// invalidated at or after that time, so a slow read racing a write never
// repopulates the cache with the old row.
type Accounts interface {
	Get(ctx context.Context, id string) (account.Account, bool, error)
	Set(ctx context.Context, a account.Account, readAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type MemoryAccounts struct {
	mu          sync.Mutex
	c           *Cache
	invalidated *Cache
	now         func() time.Time
}

func NewMemoryAccounts(ttl time.Duration) *MemoryAccounts {
	return &MemoryAccounts{c: New(ttl), invalidated: New(ttl), now: time.Now}
}

func (m *MemoryAccounts) Get(_ context.Context, id string) (account.Account, bool, error) {
	v, ok := m.c.Get(AccountKey(id))
	if !ok {
		return account.Account{}, false, nil
	}
	a, ok := v.(account.Account)
	return a, ok, nil
}

func (m *MemoryAccounts) Set(_ context.Context, a account.Account, readAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.invalidated.Get(AccountKey(a.ID)); ok && !v.(time.Time).Before(readAt) {
		return nil
	}

	m.c.Set(AccountKey(a.ID), a)
	return nil
}

func (m *MemoryAccounts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.invalidated.Set(AccountKey(id), m.now())
	m.c.Delete(AccountKey(id))
	return nil
}

type RedisAccounts struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewRedisAccounts(rdb *redis.Client, ttl time.Duration) *RedisAccounts {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisAccounts{rdb: rdb, ttl: ttl, now: time.Now}
}

func (r *RedisAccounts) Get(ctx context.Context, id string) (account.Account, bool, error) {
	raw, err := r.rdb.Get(ctx, AccountKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return account.Account{}, false, nil
	}
	if err != nil {
		return account.Account{}, false, fmt.Errorf("redis get: %w", err)
	}

	var a account.Account
	if err := json.Unmarshal(raw, &a); err != nil {
		// a corrupt entry is treated as a miss and dropped
		_ = r.rdb.Del(ctx, AccountKey(id)).Err()
		return account.Account{}, false, fmt.Errorf("decode cached account: %w", err)
	}

	return a, true, nil
}

// Set watches the invalidation marker; a Delete landing between the check
// and the write aborts the transaction and the entry is skipped.
func (r *RedisAccounts) Set(ctx context.Context, a account.Account, readAt time.Time) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}

	key := AccountKey(a.ID)
	marker := invalidatedKey(a.ID)

	err = r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		at, err := tx.Get(ctx, marker).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil && at >= readAt.UnixNano() {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, r.ttl)
			return nil
		})
		return err
	}, marker)

	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (r *RedisAccounts) Delete(ctx context.Context, id string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, invalidatedKey(id), strconv.FormatInt(r.now().UnixNano(), 10), r.ttl)
		pipe.Del(ctx, AccountKey(id))
		return nil
	})
	return err
}
