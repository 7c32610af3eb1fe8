package queue

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stardustagi/BlendGPT/codec"
	"github.com/stardustagi/BlendGPT/libs/logs"
	"github.com/stardustagi/BlendGPT/llm/events"
	"github.com/stardustagi/BlendGPT/llm/workflow"
	"go.uber.org/zap"
)

const (
	MainHub = "hub"
	SubPing = "ping"
	SubPong = "pong"
)

type client struct {
	conn     *websocket.Conn
	sender   *Sender
	receiver *Receiver
}

// Hub pushes completion events to every connected websocket client. It is a
// workflow.Observer, so panels can wait for a push instead of polling.
type Hub struct {
	codec    codec.ICodec
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

func NewHub() *Hub {
	return &Hub{
		codec: codec.NewJsonCodec(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logs.GetLogger("hub"),
		clients: make(map[*client]struct{}),
	}
}

// ServeWS upgrades the request and registers the connection.
func (h *Hub) ServeWS(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade 已写回错误响应
		h.logger.Debug("upgrade", logs.ErrorInfo(err))
		return nil
	}
	cl := &client{conn: conn}
	cl.sender = NewSender(conn, h.codec, h.logger)
	cl.receiver = NewReceiver(conn, h.codec, func(msg codec.IMessage) { h.handle(cl, msg) }, func() { h.remove(cl) }, h.logger)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	h.clients[cl] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	cl.sender.Start()
	cl.receiver.Start()
	h.logger.Info("client connected", logs.String("remote", conn.RemoteAddr().String()), logs.Int("clients", n))
	return nil
}

func (h *Hub) handle(cl *client, msg codec.IMessage) {
	if msg.GetMain() != MainHub || msg.GetSub() != SubPing {
		return
	}
	pong, err := codec.NewJsonMessage(MainHub, SubPong, struct{}{})
	if err == nil {
		_ = cl.sender.Send(pong)
	}
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	_, ok := h.clients[cl]
	delete(h.clients, cl)
	h.mu.Unlock()
	cl.sender.Stop()
	_ = cl.conn.Close()
	if ok {
		h.logger.Info("client disconnected", logs.String("remote", cl.conn.RemoteAddr().String()))
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// OnFinished implements workflow.Observer.
func (h *Hub) OnFinished(_ context.Context, r workflow.Result) {
	msg, err := codec.NewJsonMessage(events.MainWorkflow, events.SubCompleted, events.NewCompletionEvent(r))
	if err != nil {
		h.logger.Error("build event", logs.ErrorInfo(err))
		return
	}
	data, err := h.codec.Encode(msg)
	if err != nil {
		h.logger.Error("encode event", logs.ErrorInfo(err))
		return
	}
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		targets = append(targets, cl)
	}
	h.mu.Unlock()
	for _, cl := range targets {
		if err := cl.sender.SendRawBytes(data); err != nil && !errors.Is(err, ErrSenderClosed) {
			h.logger.Warn("drop event", logs.String("task", r.TaskID), logs.ErrorInfo(err))
		}
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	targets := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		targets = append(targets, cl)
	}
	h.mu.Unlock()
	for _, cl := range targets {
		cl.sender.Stop()
		_ = cl.conn.Close()
		<-cl.receiver.Done()
	}
}
