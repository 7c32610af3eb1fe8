package queue

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/stardustagi/BlendGPT/codec"
	"github.com/stardustagi/BlendGPT/libs/logs"
	"go.uber.org/zap"
)

const readLimit = 4096

// Receiver 读协程: 处理 pong 和客户端消息, 连接断开时回调 onClose
type Receiver struct {
	conn    *websocket.Conn
	codec   codec.ICodec
	handle  func(codec.IMessage)
	onClose func()
	logger  *zap.Logger
	done    chan struct{}
}

func NewReceiver(conn *websocket.Conn, c codec.ICodec, handle func(codec.IMessage), onClose func(), logger *zap.Logger) *Receiver {
	if logger == nil {
		logger = logs.GetLogger("queue")
	}
	return &Receiver{conn: conn, codec: c, handle: handle, onClose: onClose, logger: logger, done: make(chan struct{})}
}

func (r *Receiver) Start() {
	go r.receivePump()
}

// Done is closed after the connection is gone and onClose has run.
func (r *Receiver) Done() <-chan struct{} { return r.done }

func (r *Receiver) receivePump() {
	defer func() {
		if r.onClose != nil {
			r.onClose()
		}
		close(r.done)
	}()

	r.conn.SetReadLimit(readLimit)
	_ = r.conn.SetReadDeadline(time.Now().Add(pongWait))
	r.conn.SetPongHandler(func(string) error {
		return r.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				r.logger.Warn("unexpected close", logs.ErrorInfo(err))
			}
			return
		}
		if len(data) == 0 || r.handle == nil {
			continue
		}
		msg, err := r.codec.Decode(data)
		if err != nil {
			r.logger.Debug("decode message", logs.ErrorInfo(err))
			continue
		}
		r.handle(msg)
	}
}
