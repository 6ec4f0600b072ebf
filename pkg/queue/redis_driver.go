package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	jobsKey    = "bazario:queue:jobs"
	delayedKey = "bazario:queue:delayed"
)

// RedisDriver makes jobs durable across restarts: ready jobs sit on a list
// (LPUSH/BRPOP), delayed jobs on a sorted set scored by their run time. A
// background ticker promotes due delayed jobs onto the list.
type RedisDriver struct {
	rdb *redis.Client
	ctx context.Context
}

// NewRedisDriver wraps the shared client from pkg/cache.
func NewRedisDriver(rdb *redis.Client) *RedisDriver {
	d := &RedisDriver{rdb: rdb, ctx: context.Background()}
	go d.promoteDue()
	return d
}

func (d *RedisDriver) Push(payload []byte) error {
	if err := d.rdb.LPush(d.ctx, jobsKey, payload).Err(); err != nil {
		return fmt.Errorf("queue/redis: push: %w", err)
	}
	return nil
}

// Pop blocks up to five seconds for a ready job; a timeout returns nil, nil
// so the consumer just polls again.
func (d *RedisDriver) Pop(ctx context.Context) ([]byte, error) {
	res, err := d.rdb.BRPop(ctx, 5*time.Second, jobsKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("queue/redis: pop: %w", err)
	}
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

// PushDelayed parks the payload on the delayed set until its run time.
func (d *RedisDriver) PushDelayed(payload []byte, delay time.Duration) error {
	err := d.rdb.ZAdd(d.ctx, delayedKey, redis.Z{
		Score:  float64(time.Now().Add(delay).Unix()),
		Member: string(payload),
	}).Err()
	if err != nil {
		return fmt.Errorf("queue/redis: push delayed: %w", err)
	}
	return nil
}

func (d *RedisDriver) promoteDue() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		due, err := d.rdb.ZRangeByScore(d.ctx, delayedKey, &redis.ZRangeBy{
			Min: "-inf",
			Max: strconv.FormatInt(time.Now().Unix(), 10),
		}).Result()
		if err != nil || len(due) == 0 {
			continue
		}
		pipe := d.rdb.Pipeline()
		for _, payload := range due {
			pipe.ZRem(d.ctx, delayedKey, payload)
			pipe.LPush(d.ctx, jobsKey, []byte(payload))
		}
		pipe.Exec(d.ctx) //nolint:errcheck
	}
}
