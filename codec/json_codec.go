package codec

import (
	"fmt"

	"github.com/stardustagi/BlendGPT/utils"
)

type ICodec interface {
	Decode(data []byte) (IMessage, error)
	Encode(message IMessage) ([]byte, error)
}

type JsonCodec struct{}

func NewJsonCodec() ICodec {
	return &JsonCodec{}
}

func (c *JsonCodec) Decode(data []byte) (IMessage, error) {
	msg, err := utils.Bytes2Struct[Message](data)
	if err != nil {
		return nil, err
	}
	if msg.Main == "" {
		return nil, fmt.Errorf("message without main type")
	}
	return &msg, nil
}

func (c *JsonCodec) Encode(message IMessage) ([]byte, error) {
	if message == nil {
		return nil, fmt.Errorf("nil message")
	}
	s, err := utils.Struct2Bytes(message)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}
