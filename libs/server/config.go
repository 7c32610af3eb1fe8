package server

import "github.com/stardustagi/BlendGPT/libs/option"

// HttpServerConfig [http] 配置段
type HttpServerConfig struct {
	Port            int    `json:"port" validate:"gte=0,lte=65535"` // 0 随机端口
	Address         string `json:"address"`
	Path            string `json:"path" validate:"omitempty,startswith=/"`
	Cors            bool   `json:"cors"`
	RequestLog      bool   `json:"request_log"`
	ShutdownTimeout string `json:"shutdown_timeout"`
}

// AuthConfig [auth] 配置段, JwtSecret 为空时不校验
type AuthConfig struct {
	JwtSecret string `json:"jwt_secret"`
	TokenTTL  string `json:"token_ttl"`
}

func DefaultHttpServerConfig() HttpServerConfig {
	return HttpServerConfig{Port: 8080, Address: "127.0.0.1", ShutdownTimeout: "10s"}
}

// Merge 命令行参数覆盖配置文件
func (c HttpServerConfig) Merge(h option.Http) HttpServerConfig {
	if h.Port != 0 {
		c.Port = h.Port
	}
	if h.Address != "" && (c.Address == "" || h.Address != option.DefaultHttpAddress) {
		c.Address = h.Address
	}
	if h.Path != "" {
		c.Path = h.Path
	}
	c.Cors = c.Cors || h.Cors
	c.RequestLog = c.RequestLog || h.RequestLog
	return c
}
