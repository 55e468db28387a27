package challenge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wallet_chat/internal/model"
	redisSvc "wallet_chat/internal/service/redis"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type (
	RedisStore struct {
		redisService *redisSvc.RedisService
		ttl          time.Duration
	}
)

// NewRedisStore stores challenges with the given ttl; zero keeps them until
// overwritten or consumed.
func NewRedisStore(redisService *redisSvc.RedisService, ttl time.Duration) *RedisStore {
	return &RedisStore{
		redisService: redisService,
		ttl:          ttl,
	}
}

func challengeKey(identity string) string {
	return fmt.Sprintf("nonce: %s", identity)
}

func (s *RedisStore) Put(ctx context.Context, c *model.Challenge) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := s.redisService.Set(ctx, challengeKey(c.Identity), data, s.ttl); err != nil {
		return errors.Wrap(err, "challengeRepo.Put")
	}
	return nil
}

func (s *RedisStore) Take(ctx context.Context, identity string) (*model.Challenge, error) {
	v, err := s.redisService.GetDel(ctx, challengeKey(identity))
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "challengeRepo.Take")
	}

	var c model.Challenge
	if err := json.Unmarshal([]byte(v), &c); err != nil {
		return nil, err
	}
	return &c, nil
}
