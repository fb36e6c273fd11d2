// internal/store/redis.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the typed view of the coordination store shared by every server process.
// It exposes only the primitives the matchmaking core relies on; every cross-process
// invariant is expressed through one of them (HSETNX, HINCRBY, MULTI/EXEC, WATCH).
type Store struct {
	rdb *redis.Client
}

// Options selects the Redis instance to connect to. URL wins over Addr/DB when set.
type Options struct {
	URL  string
	Addr string
	DB   int
}

// Connect dials Redis and pings it once.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	var ro *redis.Options
	if opts.URL != "" {
		parsed, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		ro = parsed
	} else {
		ro = &redis.Options{Addr: opts.Addr, DB: opts.DB}
	}

	s := New(redis.NewClient(ro))

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Ping(pingCtx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", ro.Addr, err)
	}
	return s, nil
}

// New wraps an existing client.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

// HGetAll returns every field of a hash. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	return fields, nil
}

// HGet reads one field. ok is false when the key or field is absent.
func (s *Store) HGet(ctx context.Context, key, field string) (val string, ok bool, err error) {
	val, err = s.rdb.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("hget %s %s: %w", key, field, err)
	}
	return val, true, nil
}

// HMGet reads several fields at once. Absent fields are left out of the result.
func (s *Store) HMGet(ctx context.Context, key string, fields ...string) (map[string]string, error) {
	vals, err := s.rdb.HMGet(ctx, key, fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("hmget %s: %w", key, err)
	}
	out := make(map[string]string, len(fields))
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[fields[i]] = str
		}
	}
	return out, nil
}

func (s *Store) HSet(ctx context.Context, key string, fields map[string]any) error {
	if err := s.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// HSetNX sets field only if it does not exist yet and reports whether this call won.
func (s *Store) HSetNX(ctx context.Context, key, field string, value any) (bool, error) {
	ok, err := s.rdb.HSetNX(ctx, key, field, value).Result()
	if err != nil {
		return false, fmt.Errorf("hsetnx %s %s: %w", key, field, err)
	}
	return ok, nil
}

func (s *Store) HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error) {
	v, err := s.rdb.HIncrBy(ctx, key, field, incr).Result()
	if err != nil {
		return 0, fmt.Errorf("hincrby %s %s: %w", key, field, err)
	}
	return v, nil
}

func (s *Store) HDel(ctx context.Context, key string, fields ...string) error {
	if err := s.rdb.HDel(ctx, key, fields...).Err(); err != nil {
		return fmt.Errorf("hdel %s: %w", key, err)
	}
	return nil
}

// HDelIfEqual deletes field only while it still holds value. It runs as a WATCH/MULTI
// transaction, so a concurrent writer makes it report false instead of clobbering.
func (s *Store) HDelIfEqual(ctx context.Context, key, field, value string) (bool, error) {
	deleted := false
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, key, field).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if cur != value {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, key, field)
			return nil
		})
		if err == nil {
			deleted = true
		}
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare-and-delete %s %s: %w", key, field, err)
	}
	return deleted, nil
}

// PExpire sets a millisecond-precision TTL. It reports false when the key does not exist.
func (s *Store) PExpire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.PExpire(ctx, key, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("pexpire %s: %w", key, err)
	}
	return ok, nil
}

func (s *Store) Persist(ctx context.Context, key string) error {
	if err := s.rdb.Persist(ctx, key).Err(); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("del: %w", err)
	}
	return nil
}

// Get reads a plain string key. ok is false when the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (val string, ok bool, err error) {
	val, err = s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value any) error {
	if err := s.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) SAdd(ctx context.Context, key string, members ...any) error {
	if err := s.rdb.SAdd(ctx, key, members...).Err(); err != nil {
		return fmt.Errorf("sadd %s: %w", key, err)
	}
	return nil
}

func (s *Store) SRem(ctx context.Context, key string, members ...any) error {
	if err := s.rdb.SRem(ctx, key, members...).Err(); err != nil {
		return fmt.Errorf("srem %s: %w", key, err)
	}
	return nil
}

// SRandMember samples up to n distinct members of a set.
func (s *Store) SRandMember(ctx context.Context, key string, n int64) ([]string, error) {
	members, err := s.rdb.SRandMemberN(ctx, key, n).Result()
	if err != nil {
		return nil, fmt.Errorf("srandmember %s: %w", key, err)
	}
	return members, nil
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", key, err)
	}
	return members, nil
}

// ScanKeys walks the keyspace for pattern without blocking the server the way KEYS would.
func (s *Store) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", pattern, err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

func (s *Store) RPush(ctx context.Context, key string, values ...any) error {
	if err := s.rdb.RPush(ctx, key, values...).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", key, err)
	}
	return nil
}

// BLPop pops the head of key, waiting up to timeout. ok is false on timeout.
func (s *Store) BLPop(ctx context.Context, timeout time.Duration, key string) (val string, ok bool, err error) {
	res, err := s.rdb.BLPop(ctx, timeout, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("blpop %s: %w", key, err)
	}
	if len(res) < 2 {
		return "", false, nil
	}
	// res[0] is the queue name and res[1] the payload.
	return res[1], true, nil
}

func (s *Store) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := s.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe opens a pub/sub connection with no channels; channels are added later
// through the returned Subscription.
func (s *Store) Subscribe(ctx context.Context) *Subscription {
	return &Subscription{ps: s.rdb.Subscribe(ctx)}
}

// Atomic queues the commands issued on b and applies them with MULTI/EXEC, so no
// command of the batch is externally visible before the whole batch commits. If fn
// returns an error nothing is sent and that error is returned as is.
func (s *Store) Atomic(ctx context.Context, fn func(b *Batch) error) error {
	var fnErr error
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		fnErr = fn(&Batch{ctx: ctx, pipe: pipe})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return fmt.Errorf("exec batch: %w", err)
	}
	return nil
}
