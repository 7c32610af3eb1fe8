package protocol

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/stardustagi/BlendGPT/libs/errors"
)

const msgOK = "ok"

// 返回定义
type BaseResponse struct {
	ErrCode int         `json:"errcode"`
	ErrMsg  string      `json:"errmsg,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Response writes the envelope. Business errors keep HTTP 200 and carry
// their code in errcode.
func Response(c echo.Context, err error, data any) error {
	return ResponseStatus(c, http.StatusOK, err, data)
}

func ResponseStatus(c echo.Context, status int, err error, data any) error {
	if err == nil {
		return c.JSON(status, BaseResponse{ErrCode: errors.CodeOK, ErrMsg: msgOK, Data: data})
	}
	se := errors.From(err)
	return c.JSON(status, BaseResponse{ErrCode: se.Code(), ErrMsg: se.Error(), Data: data})
}
