// Package results holds finished job results until a client polls for them
// and removes their artifacts one poll later.
package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"pagemotion/internal/jobs"
)

// Buffer holds results of one kind until they are drained by a poll.
type Buffer interface {
	Push(ctx context.Context, res jobs.Result) error
	// Drain removes and returns every buffered result in arrival order.
	Drain(ctx context.Context) ([]jobs.Result, error)
	Len(ctx context.Context) (int64, error)
}

// MemoryBuffer is a Buffer for a single process.
type MemoryBuffer struct {
	mu    sync.Mutex
	items []jobs.Result
}

func NewMemoryBuffer() *MemoryBuffer {
	return &MemoryBuffer{}
}

func (b *MemoryBuffer) Push(_ context.Context, res jobs.Result) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, res)
	return nil
}

func (b *MemoryBuffer) Drain(context.Context) ([]jobs.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.items
	b.items = nil
	return out, nil
}

func (b *MemoryBuffer) Len(context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.items)), nil
}

// RedisBuffer keeps results in a Redis list so a separate worker process
// can publish them.
type RedisBuffer struct {
	rdb *redis.Client
	key string
}

func NewRedisBuffer(rdb *redis.Client, prefix string, kind jobs.Kind) *RedisBuffer {
	return &RedisBuffer{rdb: rdb, key: fmt.Sprintf("%s:results:%s", prefix, kind)}
}

func (b *RedisBuffer) Push(ctx context.Context, res jobs.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result %s: %w", res.JobID, err)
	}
	return b.rdb.RPush(ctx, b.key, data).Err()
}

// Drain reads and deletes the list in one transaction so a concurrent Push
// lands either in this drain or the next one.
func (b *RedisBuffer) Drain(ctx context.Context) ([]jobs.Result, error) {
	var lrange *redis.StringSliceCmd
	_, err := b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, b.key, 0, -1)
		pipe.Del(ctx, b.key)
		return nil
	})
	if err != nil {
		return nil, err
	}

	raw, err := lrange.Result()
	if err != nil {
		return nil, err
	}
	return decodeResults(raw)
}

// decodeResults decodes every entry it can. Unreadable entries are skipped
// and reported in the returned error.
func decodeResults(raw []string) ([]jobs.Result, error) {
	out := make([]jobs.Result, 0, len(raw))
	var errs []error
	for i, item := range raw {
		var res jobs.Result
		if err := json.Unmarshal([]byte(item), &res); err != nil {
			errs = append(errs, fmt.Errorf("decode result %d: %w", i, err))
			continue
		}
		if !res.Kind.Valid() {
			errs = append(errs, fmt.Errorf("result %d has unknown kind %q", i, res.Kind))
			continue
		}
		out = append(out, res)
	}
	return out, errors.Join(errs...)
}

func (b *RedisBuffer) Len(ctx context.Context) (int64, error) {
	return b.rdb.LLen(ctx, b.key).Result()
}
