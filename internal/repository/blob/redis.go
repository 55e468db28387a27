package blob

import (
	"context"
	"fmt"

	redisSvc "wallet_chat/internal/service/redis"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type (
	RedisStore struct {
		redisService *redisSvc.RedisService
	}
)

func NewRedisStore(redisService *redisSvc.RedisService) *RedisStore {
	return &RedisStore{
		redisService: redisService,
	}
}

func blobKey(ref string) string {
	return fmt.Sprintf("blob: %s", ref)
}

func (s *RedisStore) Put(ctx context.Context, data []byte) (string, error) {
	ref := ContentID(data)
	if err := s.redisService.Set(ctx, blobKey(ref), data, 0); err != nil {
		return "", errors.Wrap(err, "blobRepo.Put")
	}
	return ref, nil
}

func (s *RedisStore) Get(ctx context.Context, ref string) ([]byte, error) {
	v, err := s.redisService.Get(ctx, blobKey(ref))
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "blobRepo.Get")
	}
	return []byte(v), nil
}
