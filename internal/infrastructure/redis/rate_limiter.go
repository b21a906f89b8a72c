package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-task-manager/internal/domain/repository"
)

// atomic INCR, PEXPIRE only when the key is new so the window is fixed at the first hit
var incrExpireScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RateLimiter keeps attempt counters in Redis. It is safe to share across
// processes; every counter mutation is a single atomic script call.
type RateLimiter struct {
	rdb    goredis.UniversalClient
	prefix string
}

func NewRateLimiter(rdb goredis.UniversalClient) *RateLimiter {
	return &RateLimiter{rdb: rdb, prefix: "rl:"}
}

func (l *RateLimiter) key(k string) string { return l.prefix + k }

func (l *RateLimiter) Attempts(ctx context.Context, key string) (int, error) {
	v, err := l.rdb.Get(ctx, l.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

func (l *RateLimiter) Hit(ctx context.Context, key string, decay time.Duration) (int, error) {
	ms := decay.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	n, err := incrExpireScript.Run(ctx, l.rdb, []string{l.key(key)}, ms).Int()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// AvailableIn returns how long until the key's window ends; zero when there is no window.
func (l *RateLimiter) AvailableIn(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := l.rdb.PTTL(ctx, l.key(key)).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (l *RateLimiter) Clear(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, l.key(key)).Err()
}

var _ repository.RateLimiter = (*RateLimiter)(nil)
