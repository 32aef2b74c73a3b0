package folio

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/gad-tramites/internal/infra"
)

// bucketTTL — корзина живет дольше месяца, чтобы запоздалые подачи не получили номер заново.
const bucketTTL = 400 * 24 * time.Hour

// RedisSequencer использует атомарный INCR: два инстанса не получат один номер.
type RedisSequencer struct {
	rdb *redis.Client
}

func NewRedisSequencer(rdb *redis.Client) *RedisSequencer {
	return &RedisSequencer{rdb: rdb}
}

func (s *RedisSequencer) Next(ctx context.Context, bucket string) (int64, error) {
	key := infra.FolioSequenceKey(bucket)

	var incr *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, bucketTTL)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis: incr %s: %w", key, err)
	}
	return incr.Val(), nil
}
