package nats

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNatsConnectRequiresUrl(t *testing.T) {
	_, err := NewNatsConnect(nil)
	assert.Error(t, err)
	_, err = NewNatsConnect(&NatsConfig{})
	assert.Error(t, err)
}

func TestPubsub(t *testing.T) {
	mq, err := NewNatsConnect(&NatsConfig{Name: "test", Url: nats.DefaultURL})
	if err != nil {
		t.Skipf("no nats server at %s: %v", nats.DefaultURL, err)
	}
	defer mq.Close()

	sub, err := mq.conn.SubscribeSync("blendgpt.test")
	require.NoError(t, err)

	require.NoError(t, mq.Publish("blendgpt.test", []byte("payload")))
	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(msg.Data))

	assert.Error(t, mq.Publish("", []byte("x")))
}
