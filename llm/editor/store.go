package editor

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/stardustagi/BlendGPT/libs/redis"
)

var ErrBufferNotFound = stderrors.New("buffer not found")

// maxSuffix bounds the ".NNN" suffix search.
const maxSuffix = 999

// Store keeps named text buffers. Create never overwrites: when base is
// taken it uses base.001, base.002 and so on.
type Store interface {
	Create(ctx context.Context, base, text string) (string, error)
	Get(ctx context.Context, name string) (string, error)
}

func candidate(base string, i int) string {
	if i == 0 {
		return base
	}
	return fmt.Sprintf("%s.%03d", base, i)
}

// MemoryStore is the in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	buffers map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buffers: make(map[string]string)}
}

func (s *MemoryStore) Create(_ context.Context, base, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i <= maxSuffix; i++ {
		name := candidate(base, i)
		if _, taken := s.buffers[name]; !taken {
			s.buffers[name] = text
			return name, nil
		}
	}
	return "", fmt.Errorf("no free buffer name for %q", base)
}

func (s *MemoryStore) Get(_ context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.buffers[name]
	if !ok {
		return "", ErrBufferNotFound
	}
	return text, nil
}

// RedisStore keeps buffers in redis so every process sharing the server sees
// them. Names are claimed with SET NX.
type RedisStore struct {
	cli redis.RedisCli
	ttl string
}

func NewRedisStore(cli redis.RedisCli, ttl string) *RedisStore {
	return &RedisStore{cli: cli, ttl: ttl}
}

func (s *RedisStore) Create(ctx context.Context, base, text string) (string, error) {
	for i := 0; i <= maxSuffix; i++ {
		name := candidate(base, i)
		ok, err := s.cli.SetNX(ctx, redis.BufferKey(name), []byte(text), s.ttl)
		if err != nil {
			return "", err
		}
		if ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("no free buffer name for %q", base)
}

func (s *RedisStore) Get(ctx context.Context, name string) (string, error) {
	data, err := s.cli.Get(ctx, redis.BufferKey(name))
	if stderrors.Is(err, redis.Nil) {
		return "", ErrBufferNotFound
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
