package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pagemotion/internal/jobs"
)

// RedisQueue shares jobs between an API process and a separate worker
// process. Jobs are LPUSHed and BRPOPed so the list stays FIFO.
type RedisQueue struct {
	rdb       *redis.Client
	queueName string
	wait      time.Duration
}

func NewRedisQueue(rdb *redis.Client, queueName string) *RedisQueue {
	return &RedisQueue{rdb: rdb, queueName: queueName, wait: 5 * time.Second}
}

func (q *RedisQueue) Push(ctx context.Context, job jobs.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	return q.rdb.LPush(ctx, q.queueName, data).Err()
}

// Pop blocks for at most the queue's wait interval (BRPOP) and returns
// ErrEmpty when nothing arrived.
func (q *RedisQueue) Pop(ctx context.Context) (jobs.Job, error) {
	res, err := q.rdb.BRPop(ctx, q.wait, q.queueName).Result()
	if errors.Is(err, redis.Nil) {
		return jobs.Job{}, ErrEmpty
	}
	if err != nil {
		return jobs.Job{}, err
	}
	if len(res) < 2 {
		return jobs.Job{}, ErrEmpty
	}

	var job jobs.Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return jobs.Job{}, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.queueName).Result()
}
