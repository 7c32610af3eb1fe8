package codec

import (
	"encoding/json"
	"fmt"
)

// Message 事件信封, main/sub 标识事件类型
type Message struct {
	Main    string          `json:"main"`
	Sub     string          `json:"sub"`
	Payload json.RawMessage `json:"payload"`
}

type IMessage interface {
	GetMain() string
	GetSub() string
	GetPayload() json.RawMessage
}

func (m *Message) GetMain() string { return m.Main }

func (m *Message) GetSub() string { return m.Sub }

func (m *Message) GetPayload() json.RawMessage { return m.Payload }

// NewJsonMessage 把 data 编码为 payload
func NewJsonMessage[T any](main, sub string, data T) (IMessage, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s/%s payload: %w", main, sub, err)
	}
	return &Message{Main: main, Sub: sub, Payload: payload}, nil
}

// DecodePayload 把 payload 解码为 T
func DecodePayload[T any](msg IMessage) (T, error) {
	var out T
	err := json.Unmarshal(msg.GetPayload(), &out)
	return out, err
}
