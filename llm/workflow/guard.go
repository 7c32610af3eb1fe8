package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/stardustagi/BlendGPT/libs/errors"
	"github.com/stardustagi/BlendGPT/libs/logs"
	"github.com/stardustagi/BlendGPT/libs/redis"
	"github.com/stardustagi/BlendGPT/libs/uuid"
	"go.uber.org/zap"
)

// Guard admits at most one holder per key. A second Acquire while the key
// is held fails with errors.ErrBusy instead of waiting.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// LocalGuard is an in-process Guard.
type LocalGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{held: make(map[string]struct{})}
}

func (g *LocalGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return nil, errors.ErrBusy
	}
	g.held[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

// DefaultLockTTL is used when the configured lock TTL is empty or invalid.
const DefaultLockTTL = 5 * time.Minute

// RedisGuard shares the single-flight lock between processes with SET NX.
// The TTL bounds how long a crashed holder can block others; a live holder
// renews it every third of the TTL until release.
type RedisGuard struct {
	cli    redis.RedisCli
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisGuard(cli redis.RedisCli, ttl string) *RedisGuard {
	g := &RedisGuard{cli: cli, ttl: DefaultLockTTL, logger: logs.GetLogger("guard")}
	if ttl == "" {
		return g
	}
	d, err := time.ParseDuration(ttl)
	if err != nil || d <= 0 {
		g.logger.Warn("invalid lock ttl, using default", logs.String("ttl", ttl), logs.Duration("default", DefaultLockTTL))
		return g
	}
	g.ttl = d
	return g
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := redis.SingleFlightKey(key)
	token := []byte(uuid.NewTaskID())
	ok, err := g.cli.SetNX(ctx, lockKey, token, g.ttl.String())
	if err != nil {
		return nil, errors.Wrap(errors.ErrInternal, err)
	}
	if !ok {
		return nil, errors.ErrBusy
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	go g.keepAlive(lockKey, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			// 只删除自己持有的锁，过期后被别人拿走的不动
			if _, err := g.cli.CompareAndDelete(ctx, lockKey, token); err != nil {
				g.logger.Warn("release lock failed", logs.String("key", lockKey), logs.ErrorInfo(err))
			}
		})
	}, nil
}

// keepAlive 持有期间续期, 锁已被别人拿走时退出
func (g *RedisGuard) keepAlive(lockKey string, token []byte, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(g.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			renewed, err := g.cli.CompareAndExpire(ctx, lockKey, token, g.ttl.String())
			cancel()
			if err != nil {
				g.logger.Warn("renew lock failed", logs.String("key", lockKey), logs.ErrorInfo(err))
				continue
			}
			if !renewed {
				g.logger.Error("lock lost before release", logs.String("key", lockKey))
				return
			}
		}
	}
}
