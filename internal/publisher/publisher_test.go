package publisher

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type publishCall struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeMQTTClient struct {
	calls []publishCall
	err   error
}

func (f *fakeMQTTClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.calls = append(f.calls, publishCall{topic: topic, qos: qos, retained: retained, payload: payload})
	return f.err
}

func TestPublishCommand_TopicAndPayload(t *testing.T) {
	client := &fakeMQTTClient{}
	p := NewCommandPublisher(client, "iot-funcionando", 1, zap.NewNop())

	err := p.PublishCommand("dev1", "FAN_ON")

	require.NoError(t, err)
	require.Len(t, client.calls, 1)
	assert.Equal(t, "iot-funcionando/dev1/command", client.calls[0].topic)
	assert.Equal(t, byte(1), client.calls[0].qos)
	assert.False(t, client.calls[0].retained)
	assert.Equal(t, []byte("FAN_ON"), client.calls[0].payload)
}

func TestPublishCommand_ActionSentVerbatim(t *testing.T) {
	client := &fakeMQTTClient{}
	p := NewCommandPublisher(client, "iot-funcionando", 1, zap.NewNop())

	// 命令字符串原样透传，不做任何编码
	err := p.PublishCommand("dev1", `{"relay": 2, "state": "on"}`)

	require.NoError(t, err)
	assert.Equal(t, []byte(`{"relay": 2, "state": "on"}`), client.calls[0].payload)
}

func TestPublishCommand_Error(t *testing.T) {
	client := &fakeMQTTClient{err: errors.New("broker unreachable")}
	p := NewCommandPublisher(client, "iot-funcionando", 1, zap.NewNop())

	err := p.PublishCommand("dev1", "FAN_ON")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "iot-funcionando/dev1/command")
}
