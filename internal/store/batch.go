package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Batch collects commands for Store.Atomic. Commands are only queued; results and
// errors surface when the batch executes.
type Batch struct {
	ctx  context.Context
	pipe redis.Pipeliner
}

func (b *Batch) HSet(key string, fields map[string]any) {
	b.pipe.HSet(b.ctx, key, fields)
}

func (b *Batch) HDel(key string, fields ...string) {
	b.pipe.HDel(b.ctx, key, fields...)
}

func (b *Batch) HIncrBy(key, field string, incr int64) {
	b.pipe.HIncrBy(b.ctx, key, field, incr)
}

func (b *Batch) PExpire(key string, ttl time.Duration) {
	b.pipe.PExpire(b.ctx, key, ttl)
}

func (b *Batch) Persist(key string) {
	b.pipe.Persist(b.ctx, key)
}

func (b *Batch) Del(keys ...string) {
	b.pipe.Del(b.ctx, keys...)
}

func (b *Batch) SAdd(key string, members ...any) {
	b.pipe.SAdd(b.ctx, key, members...)
}

func (b *Batch) SRem(key string, members ...any) {
	b.pipe.SRem(b.ctx, key, members...)
}

func (b *Batch) RPush(key string, values ...any) {
	b.pipe.RPush(b.ctx, key, values...)
}

func (b *Batch) Publish(channel string, payload []byte) {
	b.pipe.Publish(b.ctx, channel, payload)
}
