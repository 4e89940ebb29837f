package flow

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-media/internal/media"
)

const inPattern = "graylogic/media/+/in/#"

func newTestBinding(t *testing.T) (*Binding, *MockMQTTClient, *mockDeliverer, *recordingLogger) {
	t.Helper()
	client := NewMockMQTTClient()
	devices := &mockDeliverer{}
	logger := &recordingLogger{}

	b, err := NewBinding(BindingOptions{Client: client, Devices: devices, Logger: logger})
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(b.Stop)
	return b, client, devices, logger
}

func TestNewBinding_Validation(t *testing.T) {
	_, err := NewBinding(BindingOptions{Devices: &mockDeliverer{}})
	assert.ErrorIs(t, err, ErrMissingClient)

	_, err = NewBinding(BindingOptions{Client: NewMockMQTTClient()})
	assert.ErrorIs(t, err, ErrMissingDevices)
}

func TestBinding_StartSubscribes(t *testing.T) {
	_, client, _, _ := newTestBinding(t)

	require.Len(t, client.subscriptions, 1)
	assert.Equal(t, inPattern, client.subscriptions[0].Topic)
	assert.Equal(t, byte(1), client.subscriptions[0].QoS)
}

func TestBinding_StartSubscribeError(t *testing.T) {
	client := NewMockMQTTClient()
	client.subscribeError = errBoom

	b, err := NewBinding(BindingOptions{Client: client, Devices: &mockDeliverer{}, QoS: 2})
	require.NoError(t, err)

	err = b.Start(context.Background())
	assert.ErrorIs(t, err, errBoom)

	b.Stop()
	assert.Empty(t, client.unsubscribed, "nothing to unsubscribe after failed start")
}

func TestBinding_DeliversParsedMessages(t *testing.T) {
	_, client, devices, _ := newTestBinding(t)

	client.SimulateMessage(inPattern, "graylogic/media/tv-lounge/in/online", []byte("true"))
	client.SimulateMessage(inPattern, "graylogic/media/tv-lounge/in", []byte(`{"on":true,"currentVolume":30}`))
	client.SimulateMessage(inPattern, "graylogic/media/tv-lounge/in/input", []byte("hdmi1"))

	got := devices.get()
	require.Len(t, got, 3)

	assert.Equal(t, "tv-lounge", got[0].DeviceID)
	assert.Equal(t, media.HintOnline, got[0].Msg.Hint)
	assert.Equal(t, true, got[0].Msg.Payload)

	assert.Equal(t, "in", got[1].Msg.Hint)
	assert.Equal(t, map[string]any{"on": true, "currentVolume": int64(30)}, got[1].Msg.Payload)

	assert.Equal(t, "input", got[2].Msg.Hint)
	assert.Equal(t, "hdmi1", got[2].Msg.Payload)
}

func TestBinding_IgnoresForeignTopics(t *testing.T) {
	_, client, devices, logger := newTestBinding(t)

	client.SimulateMessage(inPattern, "graylogic/media//in", []byte("x"))

	assert.Empty(t, devices.get())
	_, warns := logger.counts()
	assert.Equal(t, 1, warns)
}

func TestBinding_DeliveryErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantDebug bool
	}{
		{"unknown device", fmt.Errorf("deliver: %w", media.ErrDeviceNotFound), true},
		{"closed node", media.ErrNodeClosed, true},
		{"other failure", errBoom, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client, devices, logger := newTestBinding(t)
			devices.err = tt.err

			client.SimulateMessage(inPattern, "graylogic/media/tv1/in", []byte("{}"))

			debugs, warns := logger.counts()
			if tt.wantDebug {
				assert.Equal(t, 1, debugs)
				assert.Zero(t, warns)
			} else {
				assert.Equal(t, 1, warns)
			}
		})
	}
}

func TestBinding_StopUnsubscribesOnce(t *testing.T) {
	b, client, _, _ := newTestBinding(t)

	b.Stop()
	b.Stop()

	assert.Equal(t, []string{inPattern}, client.unsubscribed)
}

func TestBinding_StopWhileDisconnected(t *testing.T) {
	b, client, _, _ := newTestBinding(t)
	client.SetConnected(false)

	b.Stop()

	assert.Empty(t, client.unsubscribed)
}
