package services

import (
	"os"

	"github.com/stardustagi/BlendGPT/libs/conf"
	"github.com/stardustagi/BlendGPT/libs/databases"
	"github.com/stardustagi/BlendGPT/libs/nats"
	"github.com/stardustagi/BlendGPT/libs/redis"
	"github.com/stardustagi/BlendGPT/libs/server"
	"github.com/stardustagi/BlendGPT/llm/clients"
	"github.com/stardustagi/BlendGPT/llm/executor"
	"github.com/stardustagi/BlendGPT/llm/workflow"
)

// EnvAPIKey overrides openai.api_key, usually set from .env.
const EnvAPIKey = "OPENAI_API_KEY"

const DefaultSubject = "blendgpt.workflow"

// RedisConfig [redis] 配置段, addr 为空表示单进程模式
type RedisConfig struct {
	redis.Config
	LockTTL   string `json:"lock_ttl"`
	BufferTTL string `json:"buffer_ttl"`
}

// DatabaseConfig [database] 配置段, driver 为空表示不记录审计日志.
// fingerprint_key 为空时退回 auth.jwt_secret, 两者都为空则不计算脚本指纹
type DatabaseConfig struct {
	databases.Config
	FingerprintKey string `json:"fingerprint_key"`
}

// ChatConfig 聚合 chat 服务用到的全部配置段
type ChatConfig struct {
	OpenAI   clients.Config
	Workflow workflow.Config
	Executor executor.Config
	Http     server.HttpServerConfig
	Auth     server.AuthConfig
	Redis    RedisConfig
	Nats     nats.NatsConfig
	Database DatabaseConfig
}

func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		OpenAI:   clients.DefaultConfig(),
		Workflow: workflow.DefaultConfig(),
		Executor: executor.DefaultConfig(),
		Http:     server.DefaultHttpServerConfig(),
		Auth:     server.AuthConfig{TokenTTL: "24h"},
		Redis:    RedisConfig{Config: redis.Config{KeyPrefix: "blendgpt"}, LockTTL: "5m", BufferTTL: "24h"},
		Nats:     nats.NatsConfig{Name: "blendgpt", Subject: DefaultSubject},
	}
}

// LoadChatConfig reads every section from the loaded configuration on top
// of the defaults.
func LoadChatConfig() (ChatConfig, error) {
	cfg := DefaultChatConfig()
	var err error
	if cfg.OpenAI, err = conf.Load("openai", cfg.OpenAI); err != nil {
		return cfg, err
	}
	if cfg.Workflow, err = conf.Load("workflow", cfg.Workflow); err != nil {
		return cfg, err
	}
	if cfg.Executor, err = conf.Load("executor", cfg.Executor); err != nil {
		return cfg, err
	}
	if cfg.Http, err = conf.Load("http", cfg.Http); err != nil {
		return cfg, err
	}
	if cfg.Auth, err = conf.Load("auth", cfg.Auth); err != nil {
		return cfg, err
	}
	if cfg.Redis, err = conf.Load("redis", cfg.Redis); err != nil {
		return cfg, err
	}
	if cfg.Nats, err = conf.Load("nats", cfg.Nats); err != nil {
		return cfg, err
	}
	if cfg.Database, err = conf.Load("database", cfg.Database); err != nil {
		return cfg, err
	}
	if key := os.Getenv(EnvAPIKey); key != "" {
		cfg.OpenAI.APIKey = key
	}
	if cfg.Nats.Subject == "" {
		cfg.Nats.Subject = DefaultSubject
	}
	return cfg, nil
}
