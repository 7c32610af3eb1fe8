package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stardustagi/BlendGPT/libs/errors"
	"github.com/stardustagi/BlendGPT/libs/logs"
	"github.com/stardustagi/BlendGPT/llm/models"
	"go.uber.org/zap"
)

const (
	DefaultEndpoint = "https://api.openai.com/v1/chat/completions"
	DefaultTimeout  = 60 * time.Second
)

// Config [openai] 配置段
type Config struct {
	APIKey   string `json:"api_key"`
	Endpoint string `json:"endpoint" validate:"required,url"`
	Timeout  string `json:"timeout"`
}

func DefaultConfig() Config {
	return Config{Endpoint: DefaultEndpoint, Timeout: DefaultTimeout.String()}
}

// Dispatcher posts chat completion requests. It makes exactly one attempt
// per call.
type Dispatcher struct {
	client   *resty.Client
	endpoint string
	logger   *zap.Logger
}

func NewDispatcher(cfg Config) (*Dispatcher, error) {
	timeout := DefaultTimeout
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("openai.timeout: %w", err)
		}
		timeout = d
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json")
	return &Dispatcher{
		client:   client,
		endpoint: endpoint,
		logger:   logs.GetLogger("dispatcher"),
	}, nil
}

func (d *Dispatcher) Endpoint() string { return d.endpoint }

// Dispatch sends req and returns the raw JSON body of a 2xx response. Every
// failure is an errors.ErrDispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, credential string, req *models.ChatRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDispatch, err)
	}

	start := time.Now()
	resp, err := d.client.R().
		SetContext(ctx).
		SetAuthToken(credential).
		SetBody(body).
		Post(d.endpoint)
	if err != nil {
		d.logger.Warn("chat request failed", logs.String("model", req.Model), logs.ErrorInfo(err))
		return nil, errors.Wrap(errors.ErrDispatch, err)
	}
	d.logger.Debug("chat request done",
		logs.String("model", req.Model),
		logs.Int("status", resp.StatusCode()),
		logs.Duration("elapsed", time.Since(start)))

	raw := resp.Body()
	if !resp.IsSuccess() {
		return nil, errors.WithMsg(errors.ErrDispatch, statusMessage(resp.StatusCode(), raw))
	}
	if !json.Valid(raw) {
		return nil, errors.WithMsg(errors.ErrDispatch, "chat request failed: response body is not JSON")
	}
	return raw, nil
}

func statusMessage(status int, raw []byte) string {
	var wrapper struct {
		Error *models.APIError `json:"error"`
	}
	if json.Unmarshal(raw, &wrapper) == nil && wrapper.Error != nil && wrapper.Error.Message != "" {
		return fmt.Sprintf("chat request failed: HTTP %d: %s", status, wrapper.Error.Message)
	}
	return fmt.Sprintf("chat request failed: HTTP %d %s", status, http.StatusText(status))
}
