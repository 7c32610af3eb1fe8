package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stardustagi/BlendGPT/libs/logs"
	"go.uber.org/zap"
)

type HttpServer struct {
	addr   string
	path   string
	logger *zap.Logger
	engine *echo.Echo
	group  map[string]*RouteGroup

	mu      sync.Mutex
	ln      net.Listener
	serveCh chan error
}

func NewHttpServer(cfg HttpServerConfig) (*HttpServer, error) {
	if cfg.Path != "" && cfg.Path[0] != '/' {
		return nil, errors.New("the http.path must start with a /")
	}
	engine := echo.New()
	engine.HideBanner = true
	engine.HidePort = true
	engine.Validator = &CustomValidator{Validator: validator.New()}
	if cfg.Cors {
		engine.Use(Cors())
	}
	if cfg.RequestLog {
		engine.Use(Request())
	}
	return &HttpServer{
		addr:   fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		path:   cfg.Path,
		logger: logs.GetLogger("httpServer"),
		engine: engine,
		group:  make(map[string]*RouteGroup),
	}, nil
}

func (m *HttpServer) Engine() *echo.Echo {
	return m.engine
}

func (m *HttpServer) Use(middleware ...echo.MiddlewareFunc) *HttpServer {
	m.engine.Use(middleware...)
	return m
}

// Startup listens and serves in the background. It returns once the
// listener is bound, so Addr is valid afterwards.
func (m *HttpServer) Startup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ln != nil {
		return errors.New("http server already started")
	}
	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return err
	}
	m.ln = ln
	m.engine.Listener = ln
	for _, route := range m.engine.Routes() {
		m.logger.Debug("http route registered", logs.String("method", route.Method), logs.String("path", route.Path))
	}
	m.logger.Info("http server listened on", logs.String("addr", ln.Addr().String()))

	m.serveCh = make(chan error, 1)
	go func() {
		err := m.engine.Start(m.addr)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			m.logger.Error("http server stopped", logs.ErrorInfo(err))
		}
		m.serveCh <- err
	}()
	return nil
}

// Addr is the bound address, or the configured one before Startup.
func (m *HttpServer) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ln != nil {
		return m.ln.Addr().String()
	}
	return m.addr
}

func (m *HttpServer) Stop(ctx context.Context) error {
	m.mu.Lock()
	serveCh := m.serveCh
	m.mu.Unlock()
	if serveCh == nil {
		return nil
	}
	if err := m.engine.Shutdown(ctx); err != nil {
		m.logger.Error("shutdown http server", logs.ErrorInfo(err))
		return err
	}
	return <-serveCh
}

// Handle registers a route under <path>/api.
func (m *HttpServer) Handle(handler IHandler) {
	path, _ := url.JoinPath(m.apiRoot(), handler.GetPath())
	m.engine.Add(handler.GetMethod(), path, handler.GetFunc())
}

func (m *HttpServer) apiRoot() string {
	root, _ := url.JoinPath("/", m.path, "api")
	return root
}

func (m *HttpServer) AddGroup(path string, middleware ...echo.MiddlewareFunc) *RouteGroup {
	urlPath, _ := url.JoinPath(m.apiRoot(), path)
	g := &RouteGroup{Prefix: urlPath, Group: m.engine.Group(urlPath, middleware...)}
	m.group[path] = g
	m.logger.Debug("http group registered", logs.String("path", urlPath))
	return g
}

// HandleGroup registers handler inside a group created by AddGroup.
func (m *HttpServer) HandleGroup(group string, handler IHandler) error {
	g, exists := m.group[group]
	if !exists {
		return fmt.Errorf("group %q not found", group)
	}
	g.Group.Add(handler.GetMethod(), "/"+trimSlash(handler.GetPath()), handler.GetFunc())
	return nil
}

// HandleNative registers a raw echo handler, e.g. a websocket upgrade. An
// empty group registers under <path>/api.
func (m *HttpServer) HandleNative(group, method, path string, h echo.HandlerFunc) error {
	if group == "" {
		full, _ := url.JoinPath(m.apiRoot(), path)
		m.engine.Add(method, full, h)
		return nil
	}
	g, exists := m.group[group]
	if !exists {
		return fmt.Errorf("group %q not found", group)
	}
	g.Group.Add(method, "/"+trimSlash(path), h)
	return nil
}

func trimSlash(p string) string {
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	return p
}
