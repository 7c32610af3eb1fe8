package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stardustagi/BlendGPT/libs/logs"
	"go.uber.org/zap"
)

// Nil 键不存在
var Nil = redis.Nil

// Config redis 连接配置
type Config struct {
	Addr      string `json:"addr"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	KeyPrefix string `json:"key_prefix"`
}

// RedisCli 带前缀的 redis 视图
type RedisCli interface {
	KeyPrefix() string
	NativeCmd() redis.Cmdable
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expiration string) error
	SetNX(ctx context.Context, key string, value []byte, expiration string) (bool, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	Expire(ctx context.Context, key string, expiration string) error
	CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error)
	CompareAndExpire(ctx context.Context, key string, value []byte, expiration string) (bool, error)
	Close() error
}

// 比较和删除/续期在一个脚本里完成, 中间不会被别的客户端插入
const (
	compareAndDeleteScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`
	compareAndExpireScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`
)

type redisView struct {
	cmd    redis.Cmdable
	prefix string
	logger *zap.Logger
}

// NewClient connects to the server described by cfg.
func NewClient(cfg Config) (RedisCli, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return NewRedisView(client, cfg.KeyPrefix, logs.GetLogger("redis")), nil
}

// NewRedisView wraps cmd so every key is stored under prefix.
func NewRedisView(cmd redis.Cmdable, prefix string, logger *zap.Logger) RedisCli {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisView{cmd: cmd, prefix: prefix, logger: logger}
}

func (r *redisView) KeyPrefix() string { return r.prefix }

func (r *redisView) NativeCmd() redis.Cmdable { return r.cmd }

func (r *redisView) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

// parseExpiration 空字符串表示不过期
func parseExpiration(expiration string) (time.Duration, error) {
	if strings.TrimSpace(expiration) == "" {
		return 0, nil
	}
	return time.ParseDuration(expiration)
}

func (r *redisView) Get(ctx context.Context, key string) ([]byte, error) {
	return r.cmd.Get(ctx, r.key(key)).Bytes()
}

func (r *redisView) Set(ctx context.Context, key string, value []byte, expiration string) error {
	exp, err := parseExpiration(expiration)
	if err != nil {
		return err
	}
	if err := r.cmd.Set(ctx, r.key(key), value, exp).Err(); err != nil {
		r.logger.Error("redis set failed", logs.String("key", r.key(key)), logs.ErrorInfo(err))
		return err
	}
	return nil
}

func (r *redisView) SetNX(ctx context.Context, key string, value []byte, expiration string) (bool, error) {
	exp, err := parseExpiration(expiration)
	if err != nil {
		return false, err
	}
	ok, err := r.cmd.SetNX(ctx, r.key(key), value, exp).Result()
	if err != nil {
		r.logger.Error("redis setnx failed", logs.String("key", r.key(key)), logs.ErrorInfo(err))
	}
	return ok, err
}

func (r *redisView) Del(ctx context.Context, keys ...string) (int64, error) {
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, r.key(k))
	}
	return r.cmd.Del(ctx, full...).Result()
}

func (r *redisView) Expire(ctx context.Context, key string, expiration string) error {
	exp, err := parseExpiration(expiration)
	if err != nil {
		return err
	}
	return r.cmd.Expire(ctx, r.key(key), exp).Err()
}

// CompareAndDelete deletes key only while it still holds value.
func (r *redisView) CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error) {
	n, err := r.cmd.Eval(ctx, compareAndDeleteScript, []string{r.key(key)}, string(value)).Int64()
	if err != nil {
		r.logger.Error("redis compare-and-delete failed", logs.String("key", r.key(key)), logs.ErrorInfo(err))
		return false, err
	}
	return n == 1, nil
}

// CompareAndExpire resets the TTL of key only while it still holds value.
func (r *redisView) CompareAndExpire(ctx context.Context, key string, value []byte, expiration string) (bool, error) {
	exp, err := parseExpiration(expiration)
	if err != nil {
		return false, err
	}
	if exp <= 0 {
		return false, fmt.Errorf("redis: expiration must be positive, got %q", expiration)
	}
	n, err := r.cmd.Eval(ctx, compareAndExpireScript, []string{r.key(key)}, string(value), exp.Milliseconds()).Int64()
	if err != nil {
		r.logger.Error("redis compare-and-expire failed", logs.String("key", r.key(key)), logs.ErrorInfo(err))
		return false, err
	}
	return n == 1, nil
}

func (r *redisView) Close() error {
	if c, ok := r.cmd.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
