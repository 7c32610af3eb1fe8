package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stardustagi/BlendGPT/libs/errors"
	"github.com/stardustagi/BlendGPT/libs/jwt"
	"github.com/stardustagi/BlendGPT/libs/option"
	"github.com/stardustagi/BlendGPT/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type HelloReq struct {
	Name string `json:"name" validate:"required,max=8"`
}

type HelloResp struct {
	Message string `json:"message"`
	Subject string `json:"subject,omitempty"`
}

type ItemReq struct {
	Id string `param:"id"`
}

func helloHandlers() IHandlers {
	hs := NewHandlers()
	hs.AddHandlers(
		NewHandler(http.MethodPost, "hello", func(c echo.Context, req HelloReq) (HelloResp, error) {
			return HelloResp{Message: "Hello " + req.Name, Subject: NewContext(c).Subject}, nil
		}),
		NewHandler(http.MethodGet, "items/:id", func(c echo.Context, req ItemReq) (string, error) {
			if req.Id == "missing" {
				return "", errors.ErrTaskNotFound
			}
			return req.Id, nil
		}),
	)
	return hs
}

func do(t *testing.T, e *echo.Echo, method, path, body string, header map[string]string) (int, protocol.BaseResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var out protocol.BaseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestHandlerBindValidate(t *testing.T) {
	bk, err := NewBackend(HttpServerConfig{Path: "/blend"})
	require.NoError(t, err)
	bk.AddGroup("chat")
	require.NoError(t, bk.AddHandlers("chat", helloHandlers()))
	e := bk.Engine()

	code, out := do(t, e, http.MethodPost, "/blend/api/chat/hello", `{"name":"bob"}`, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, out.ErrCode)
	assert.Equal(t, map[string]interface{}{"message": "Hello bob"}, out.Data)

	_, out = do(t, e, http.MethodPost, "/blend/api/chat/hello", `{"name":"far-too-long-name"}`, nil)
	assert.Equal(t, errors.CodeInvalidRequest, out.ErrCode)

	_, out = do(t, e, http.MethodPost, "/blend/api/chat/hello", `{"name":`, nil)
	assert.Equal(t, errors.CodeInvalidRequest, out.ErrCode)

	_, out = do(t, e, http.MethodGet, "/blend/api/chat/items/abc", "", nil)
	assert.Equal(t, "abc", out.Data)

	_, out = do(t, e, http.MethodGet, "/blend/api/chat/items/missing", "", nil)
	assert.Equal(t, errors.CodeTaskNotFound, out.ErrCode)
}

func TestUnknownGroup(t *testing.T) {
	bk, err := NewBackend(HttpServerConfig{})
	require.NoError(t, err)
	assert.Error(t, bk.AddHandlers("nope", helloHandlers()))
	require.NoError(t, bk.AddHandlers("", helloHandlers()))

	_, out := do(t, bk.Engine(), http.MethodGet, "/api/items/x", "", nil)
	assert.Equal(t, "x", out.Data)
}

func TestBadPath(t *testing.T) {
	_, err := NewHttpServer(HttpServerConfig{Path: "blend"})
	assert.Error(t, err)
}

func TestAccessMiddleware(t *testing.T) {
	bk, err := NewBackend(HttpServerConfig{})
	require.NoError(t, err)
	bk.AddGroup("chat", Access("s3cret"))
	require.NoError(t, bk.AddHandlers("chat", helloHandlers()))
	e := bk.Engine()

	code, out := do(t, e, http.MethodPost, "/api/chat/hello", `{"name":"bob"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, errors.CodeUnauthorized, out.ErrCode)

	bad, err := jwt.Sign("other", "alice", time.Minute)
	require.NoError(t, err)
	code, _ = do(t, e, http.MethodPost, "/api/chat/hello", `{"name":"bob"}`, map[string]string{"Authorization": "Bearer " + bad})
	assert.Equal(t, http.StatusUnauthorized, code)

	good, err := jwt.Sign("s3cret", "alice", time.Minute)
	require.NoError(t, err)
	code, out = do(t, e, http.MethodPost, "/api/chat/hello", `{"name":"bob"}`, map[string]string{"Authorization": "Bearer " + good})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", out.Data.(map[string]interface{})["subject"])
}

func TestAccessWithoutSecretPassesThrough(t *testing.T) {
	bk, err := NewBackend(HttpServerConfig{})
	require.NoError(t, err)
	bk.AddGroup("chat", Access(""))
	require.NoError(t, bk.AddHandlers("chat", helloHandlers()))
	code, _ := do(t, bk.Engine(), http.MethodPost, "/api/chat/hello", `{"name":"bob"}`, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestStartStop(t *testing.T) {
	bk, err := NewBackend(HttpServerConfig{Address: "127.0.0.1", Port: 0, RequestLog: true, Cors: true, ShutdownTimeout: "2s"})
	require.NoError(t, err)
	require.NoError(t, bk.AddHandlers("", helloHandlers()))
	require.NoError(t, bk.Start())
	assert.Error(t, bk.Start())

	resp, err := http.Get("http://" + bk.Addr() + "/api/items/live")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `"live"`)

	require.NoError(t, bk.Stop())
}

func TestConfigMerge(t *testing.T) {
	cfg := DefaultHttpServerConfig().Merge(option.Http{Address: option.DefaultHttpAddress, Port: 9000, Cors: true})
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "127.0.0.1", cfg.Address)
	assert.True(t, cfg.Cors)

	cfg = HttpServerConfig{Address: "0.0.0.0", Port: 80}.Merge(option.Http{Address: option.DefaultHttpAddress})
	assert.Equal(t, "0.0.0.0", cfg.Address)
	assert.Equal(t, 80, cfg.Port)

	cfg = HttpServerConfig{Address: "0.0.0.0"}.Merge(option.Http{Address: "10.0.0.1", Path: "/x"})
	assert.Equal(t, "10.0.0.1", cfg.Address)
	assert.Equal(t, "/x", cfg.Path)
}

func TestServerHooksRunInReverse(t *testing.T) {
	s := newServer(make(chan struct{}))
	var order []int
	s.OnShutdown(func() { order = append(order, 1) })
	s.OnShutdown(func() { order = append(order, 2) })
	s.Shutdown()
	s.HandleSignal()
	assert.Equal(t, []int{2, 1}, order)
}

func TestNativeHandlerAndQueryToken(t *testing.T) {
	bk, err := NewBackend(HttpServerConfig{})
	require.NoError(t, err)
	bk.AddGroup("chat", Access("s3cret"))
	require.NoError(t, bk.AddNativeHandler("chat", http.MethodGet, "raw", func(c echo.Context) error {
		return c.String(http.StatusOK, "raw")
	}))
	assert.Error(t, bk.AddNativeHandler("nope", http.MethodGet, "raw", nil))

	token, err := jwt.Sign("s3cret", "ws", time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/chat/raw?access_token="+token, nil)
	rec := httptest.NewRecorder()
	bk.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "raw", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/chat/raw", nil)
	rec = httptest.NewRecorder()
	bk.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
