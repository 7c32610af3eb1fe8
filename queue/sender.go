package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stardustagi/BlendGPT/codec"
	"github.com/stardustagi/BlendGPT/libs/logs"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

var ErrSenderClosed = errors.New("sender closed")

// ErrQueueFull is returned instead of blocking when a slow client has not
// drained its queue.
var ErrQueueFull = errors.New("send queue is full")

// Sender 每个连接一个写协程, 负责消息和心跳
type Sender struct {
	conn     *websocket.Conn
	codec    codec.ICodec
	sendChan chan []byte
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	logger   *zap.Logger
	period   time.Duration
}

func NewSender(conn *websocket.Conn, c codec.ICodec, logger *zap.Logger) *Sender {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = logs.GetLogger("queue")
	}
	return &Sender{
		conn:     conn,
		codec:    c,
		sendChan: make(chan []byte, sendBuffer),
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
		period:   pingPeriod,
	}
}

func (s *Sender) Start() {
	s.wg.Add(1)
	go s.sendPump()
}

// Stop 停止写协程并发送 close 帧, 可重复调用
func (s *Sender) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Sender) IsRunning() bool {
	return s.ctx.Err() == nil
}

func (s *Sender) Send(msg codec.IMessage) error {
	data, err := s.codec.Encode(msg)
	if err != nil {
		s.logger.Error("encode message",
			logs.String("main", msg.GetMain()),
			logs.String("sub", msg.GetSub()),
			logs.ErrorInfo(err))
		return err
	}
	return s.SendRawBytes(data)
}

// SendRawBytes queues data without blocking.
func (s *Sender) SendRawBytes(data []byte) error {
	if !s.IsRunning() {
		return ErrSenderClosed
	}
	select {
	case s.sendChan <- data:
		return nil
	case <-s.ctx.Done():
		return ErrSenderClosed
	default:
		return ErrQueueFull
	}
}

func (s *Sender) sendPump() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case message := <-s.sendChan:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Debug("write message", logs.ErrorInfo(err))
				s.cancel()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Debug("send ping", logs.ErrorInfo(err))
				s.cancel()
				return
			}
		case <-s.ctx.Done():
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
