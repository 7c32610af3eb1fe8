package server

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stardustagi/BlendGPT/libs/logs"
	"go.uber.org/zap"
)

// Backend HTTP 服务封装
type Backend struct {
	config     HttpServerConfig
	Logger     *zap.Logger
	httpServer *HttpServer
}

func NewBackend(cfg HttpServerConfig) (*Backend, error) {
	httpServer, err := NewHttpServer(cfg)
	if err != nil {
		return nil, err
	}
	return &Backend{
		config:     cfg,
		Logger:     logs.GetLogger("http_backend"),
		httpServer: httpServer,
	}, nil
}

func (m *Backend) Engine() *echo.Echo { return m.httpServer.Engine() }

func (m *Backend) AddGroup(group string, middleware ...echo.MiddlewareFunc) {
	m.httpServer.AddGroup(group, middleware...)
}

// AddHandlers registers every handler in group, or under /api when group is empty.
func (m *Backend) AddHandlers(group string, hs IHandlers) error {
	for _, h := range hs.GetHandlers() {
		if group == "" {
			m.httpServer.Handle(h)
			continue
		}
		if err := m.httpServer.HandleGroup(group, h); err != nil {
			return err
		}
	}
	return nil
}

func (m *Backend) AddNativeHandler(group, method, path string, h echo.HandlerFunc) error {
	return m.httpServer.HandleNative(group, method, path, h)
}

func (m *Backend) Addr() string { return m.httpServer.Addr() }

func (m *Backend) Start() error {
	return m.httpServer.Startup()
}

// Stop 优雅关闭, 超时由 shutdown_timeout 控制
func (m *Backend) Stop() error {
	timeout := 10 * time.Second
	if d, err := time.ParseDuration(m.config.ShutdownTimeout); err == nil && d > 0 {
		timeout = d
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return m.httpServer.Stop(ctx)
}
