package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stardustagi/BlendGPT/libs/errors"
	"github.com/stardustagi/BlendGPT/libs/jwt"
	"github.com/stardustagi/BlendGPT/libs/logs"
	"github.com/stardustagi/BlendGPT/protocol"
)

func Cors() echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, ClientIDKey},
	})
}

// Request 请求日志
func Request() echo.MiddlewareFunc {
	logger := logs.GetLogger("access")
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				logs.String("method", v.Method),
				logs.String("uri", v.URI),
				logs.Int("status", v.Status),
				logs.Duration("latency", v.Latency),
				logs.String("remote", NewContext(c).RemoteAddr),
				logs.ErrorInfo(v.Error))
			return nil
		},
	})
}

// Access 校验 Bearer 令牌, secret 为空时放行
func Access(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if secret == "" {
			return next
		}
		return func(c echo.Context) error {
			if c.Request().Method == http.MethodOptions {
				return next(c)
			}
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, authScheme+" ")
			if !ok {
				// 浏览器 websocket 无法设置请求头
				token = c.QueryParam(TokenQueryKey)
			}
			if token == "" {
				return protocol.ResponseStatus(c, http.StatusUnauthorized, errors.WithMsg(errors.ErrUnauthorized, "missing bearer token"), nil)
			}
			claims, err := jwt.Parse(secret, strings.TrimSpace(token))
			if err != nil {
				return protocol.ResponseStatus(c, http.StatusUnauthorized, errors.WithMsg(errors.ErrUnauthorized, err.Error()), nil)
			}
			c.Set(SubjectKey, claims.Subject)
			return next(c)
		}
	}
}
