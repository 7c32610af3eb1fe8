package server

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stardustagi/BlendGPT/utils"
)

const (
	ClientIDKey   = "X-Client-Id"
	SubjectKey    = "subject"
	TokenQueryKey = "access_token"
	authScheme    = "Bearer"
)

// CustomValidator 使用 go-playground/validator 校验请求体
type CustomValidator struct {
	Validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.Validator.Struct(i)
}

// Context 请求方信息
type Context struct {
	RemoteAddr string
	ClientId   string
	Subject    string
}

// NewContext collects the caller's address, client id and, when the Access
// middleware ran, the token subject.
func NewContext(c echo.Context) *Context {
	subject, _ := c.Get(SubjectKey).(string)
	return &Context{
		RemoteAddr: utils.GetRemoteAddr(c.Request()),
		ClientId:   c.Request().Header.Get(ClientIDKey),
		Subject:    subject,
	}
}
