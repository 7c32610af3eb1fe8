package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	TaskID string `json:"task_id"`
	Ok     bool   `json:"ok"`
}

func TestJsonCodec(t *testing.T) {
	msg, err := NewJsonMessage("workflow", "completed", sample{TaskID: "t1", Ok: true})
	require.NoError(t, err)

	c := NewJsonCodec()
	data, err := c.Encode(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"main":"workflow","sub":"completed","payload":{"task_id":"t1","ok":true}}`, string(data))

	back, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "workflow", back.GetMain())
	assert.Equal(t, "completed", back.GetSub())

	payload, err := DecodePayload[sample](back)
	require.NoError(t, err)
	assert.Equal(t, sample{TaskID: "t1", Ok: true}, payload)
}

func TestJsonCodecErrors(t *testing.T) {
	c := NewJsonCodec()
	_, err := c.Decode([]byte(`{"sub":"x"}`))
	assert.Error(t, err)
	_, err = c.Decode([]byte(`not json`))
	assert.Error(t, err)
	_, err = c.Encode(nil)
	assert.Error(t, err)

	_, err = NewJsonMessage("a", "b", make(chan int))
	assert.Error(t, err)
}
