package keylock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"portfolio-accounts/pkg/utils"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Redis is a best-effort distributed Locker built on SET NX PX. The TTL bounds
// how long a crashed holder can block others.
type Redis struct {
	RDB    redis.UniversalClient
	Prefix string
	TTL    time.Duration
	Wait   time.Duration // max time spent waiting for a held key
	Retry  time.Duration
}

func NewRedis(addr, pass string, db int, ttl, wait time.Duration) *Redis {
	return &Redis{
		RDB:    redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
		Prefix: "lock:",
		TTL:    ttl,
		Wait:   wait,
		Retry:  25 * time.Millisecond,
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	k := r.Prefix + key
	token := utils.NewID()
	if r.Wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Wait)
		defer cancel()
	}
	retry := r.Retry
	if retry <= 0 {
		retry = 25 * time.Millisecond
	}
	t := time.NewTicker(retry)
	defer t.Stop()
	for {
		ok, err := r.RDB.SetNX(ctx, k, token, r.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("keylock: redis setnx %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
		case <-t.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release must not depend on the caller's (possibly cancelled) context.
			rctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = releaseScript.Run(rctx, r.RDB, []string{k}, token).Err()
		})
	}, nil
}

func (r *Redis) Close() error { return r.RDB.Close() }
