package wsclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/stardustagi/BlendGPT/codec"
	"github.com/stardustagi/BlendGPT/libs/logs"
	"github.com/stardustagi/BlendGPT/queue"
	"go.uber.org/zap"
)

// WSClient subscribes to the chat event stream.
type WSClient struct {
	conn     *websocket.Conn
	logger   *zap.Logger
	sender   *queue.Sender
	receiver *queue.Receiver
	messages chan codec.IMessage
	ctx      context.Context
	cancel   context.CancelFunc
	once     sync.Once
}

// Dial connects to serverURL (ws:// or wss://) with the given headers.
func Dial(ctx context.Context, serverURL string, headers map[string]string) (*WSClient, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	header := http.Header{}
	for k, v := range headers {
		header.Set(k, v)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial failed: %w (HTTP %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	cctx, cancel := context.WithCancel(context.Background())
	c := &WSClient{
		conn:     conn,
		logger:   logs.GetLogger("wsclient"),
		messages: make(chan codec.IMessage, 64),
		ctx:      cctx,
		cancel:   cancel,
	}
	jc := codec.NewJsonCodec()
	c.sender = queue.NewSender(conn, jc, c.logger)
	c.receiver = queue.NewReceiver(conn, jc, c.deliver, func() {
		c.cancel()
		close(c.messages)
	}, c.logger)
	c.sender.Start()
	c.receiver.Start()
	return c, nil
}

func (c *WSClient) deliver(msg codec.IMessage) {
	select {
	case c.messages <- msg:
	case <-c.ctx.Done():
	}
}

// Messages is closed when the connection ends.
func (c *WSClient) Messages() <-chan codec.IMessage { return c.messages }

func (c *WSClient) Send(msg codec.IMessage) error { return c.sender.Send(msg) }

// Close 发送 close 帧并等待读协程退出
func (c *WSClient) Close() error {
	var err error
	c.once.Do(func() {
		c.sender.Stop()
		c.cancel()
		err = c.conn.Close()
		<-c.receiver.Done()
	})
	return err
}
