package server

import (
	"github.com/labstack/echo/v4"
	"github.com/stardustagi/BlendGPT/libs/errors"
	"github.com/stardustagi/BlendGPT/protocol"
)

// Handler binds and validates a Req per call, runs Func and writes the
// result in the response envelope.
type Handler[Req any, Resp any] struct {
	Method string
	Path   string
	Func   func(echo.Context, Req) (Resp, error)
}

// 抽象接口
type IHandler interface {
	GetMethod() string
	GetPath() string
	GetFunc() echo.HandlerFunc
}

func NewHandler[Req any, Resp any](method, path string, f func(echo.Context, Req) (Resp, error)) *Handler[Req, Resp] {
	return &Handler[Req, Resp]{Method: method, Path: path, Func: f}
}

func (h *Handler[Req, Resp]) GetMethod() string { return h.Method }

func (h *Handler[Req, Resp]) GetPath() string { return h.Path }

func (h *Handler[Req, Resp]) GetFunc() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req Req
		if err := c.Bind(&req); err != nil {
			return protocol.Response(c, errors.WithMsg(errors.ErrInvalidRequest, bindMessage(err)), nil)
		}
		if err := c.Validate(&req); err != nil {
			return protocol.Response(c, errors.WithMsg(errors.ErrInvalidRequest, err.Error()), nil)
		}
		resp, err := h.Func(c, req)
		if err != nil {
			return protocol.Response(c, err, nil)
		}
		return protocol.Response(c, nil, resp)
	}
}

func bindMessage(err error) string {
	if he, ok := err.(*echo.HTTPError); ok {
		if msg, ok := he.Message.(string); ok {
			return msg
		}
	}
	return err.Error()
}

// 句柄管理器抽象接口
type IHandlers interface {
	GetHandlers() []IHandler
	AddHandlers(handler ...IHandler)
	GetHandlersLen() int
}

// 句柄管理器
type Handlers struct {
	handlers []IHandler
}

func NewHandlers() IHandlers {
	return &Handlers{handlers: make([]IHandler, 0)}
}

func (h *Handlers) GetHandlers() []IHandler { return h.handlers }

func (h *Handlers) AddHandlers(handler ...IHandler) {
	h.handlers = append(h.handlers, handler...)
}

func (h *Handlers) GetHandlersLen() int { return len(h.handlers) }

// RouteGroup 路由组
type RouteGroup struct {
	Prefix string
	Group  *echo.Group
}
