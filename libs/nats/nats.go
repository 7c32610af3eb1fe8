package nats

import (
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stardustagi/BlendGPT/libs/logs"
	"go.uber.org/zap"
)

var errEmptySubject = errors.New("empty subject")

// NatsConfig NATS配置结构体
type NatsConfig struct {
	Name     string `json:"name"`
	Url      string `json:"url" validate:"omitempty,url"`
	Subject  string `json:"subject"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type NatsConnection struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewNatsConnect(natsConfig *NatsConfig) (*NatsConnection, error) {
	if natsConfig == nil || natsConfig.Url == "" {
		return nil, errors.New("nats url is not configured")
	}
	logger := logs.GetLogger("nats")
	opts := []nats.Option{
		nats.Name(natsConfig.Name),
		nats.MaxReconnects(10),
		nats.ReconnectWait(5 * time.Second),
		nats.Timeout(3 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", logs.ErrorInfo(err))
		}),
	}
	if natsConfig.Username != "" && natsConfig.Password != "" {
		opts = append(opts, nats.UserInfo(natsConfig.Username, natsConfig.Password))
	}
	conn, err := nats.Connect(natsConfig.Url, opts...)
	if err != nil {
		return nil, err
	}
	logger.Info("nats connected", logs.String("url", natsConfig.Url))
	return &NatsConnection{conn: conn, logger: logger}, nil
}

func (s *NatsConnection) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// Close 先 flush 再断开
func (s *NatsConnection) Close() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Drain(); err != nil {
		s.logger.Warn("nats drain failed", logs.ErrorInfo(err))
		s.conn.Close()
	}
}
