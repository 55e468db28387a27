package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redisSvc "wallet_chat/internal/service/redis"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// KEYS[1] session key, ARGV[1] now (ms), ARGV[2] grant (ms).
var extendScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local now = tonumber(ARGV[1])
if now > current then
	current = now
end
local expires = current + tonumber(ARGV[2])
redis.call('SET', KEYS[1], expires)
redis.call('PEXPIREAT', KEYS[1], expires)
return expires
`)

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

func sessionKey(walletRef string) string {
	return fmt.Sprintf("session: %s", walletRef)
}

func (s *RedisStore) ExpiresAt(ctx context.Context, walletRef string) (time.Time, error) {
	v, err := s.redisService.Get(ctx, sessionKey(walletRef))
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, errors.Wrap(err, "sessionRepo.ExpiresAt")
	}

	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "sessionRepo.ExpiresAt.Parse")
	}
	return time.UnixMilli(ms), nil
}

func (s *RedisStore) Extend(ctx context.Context, walletRef string, now time.Time, grant time.Duration) (time.Time, error) {
	res, err := s.redisService.RunScript(ctx, extendScript, []string{sessionKey(walletRef)}, now.UnixMilli(), grant.Milliseconds())
	if err != nil {
		return time.Time{}, errors.Wrap(err, "sessionRepo.Extend")
	}

	ms, ok := res.(int64)
	if !ok {
		return time.Time{}, fmt.Errorf("sessionRepo.Extend: unexpected script result %T", res)
	}
	return time.UnixMilli(ms), nil
}
