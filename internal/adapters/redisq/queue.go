// Package redisq nudges scan workers over a Redis list so a freshly
// enqueued job is picked up without waiting for the dispatcher's poll tick.
// Durable queue state lives in Postgres; a lost or duplicated nudge is
// harmless because workers claim through the job store.
package redisq

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKey = "trustforge:scan_jobs"

type Queue struct {
	rdb *redis.Client
	key string
}

func New(ctx context.Context, addr string) (*Queue, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Queue{rdb: rdb, key: defaultKey}, nil
}

func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	return q.rdb.LPush(ctx, q.key, jobID).Err()
}

// Wait blocks on BRPOP until a nudge arrives or the timeout elapses. A
// timeout is a normal return: the dispatcher re-polls the store anyway.
func (q *Queue) Wait(ctx context.Context, timeout time.Duration) error {
	err := q.rdb.BRPop(ctx, timeout, q.key).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (q *Queue) Close() error { return q.rdb.Close() }
