package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-media/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-media/internal/media"
)

// defaultQoS is used when BindingOptions.QoS is zero.
const defaultQoS byte = 1

// Logger defines the logging interface used by the flow package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MQTTClient is the subset of the MQTT client the flow transport needs.
// main adapts *mqtt.Client to it; tests use a mock.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Deliverer routes an inbound message to a registered device.
// *media.Registry satisfies it.
type Deliverer interface {
	Deliver(ctx context.Context, deviceID string, msg media.Message) error
}

// BindingOptions holds configuration for creating a Binding.
type BindingOptions struct {
	// Client is the MQTT client implementation.
	Client MQTTClient

	// Devices receives the parsed inbound messages.
	Devices Deliverer

	// QoS for the inbound subscription. Zero selects QoS 1.
	QoS byte

	// Logger is an optional structured logger.
	Logger Logger
}

// Binding subscribes to graylogic/media/+/in/# and feeds each message to
// its device's queue.
//
// Thread Safety: All methods are safe for concurrent use.
type Binding struct {
	client  MQTTClient
	devices Deliverer
	qos     byte
	topic   string

	ctx       context.Context
	ctxCancel context.CancelFunc
	startOnce sync.Once
	stopOnce  sync.Once
	started   bool

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBinding creates a binding. Call Start to subscribe.
func NewBinding(opts BindingOptions) (*Binding, error) {
	if opts.Client == nil {
		return nil, ErrMissingClient
	}
	if opts.Devices == nil {
		return nil, ErrMissingDevices
	}

	qos := opts.QoS
	if qos == 0 {
		qos = defaultQoS
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Binding{
		client:    opts.Client,
		devices:   opts.Devices,
		qos:       qos,
		topic:     mqtt.Topics{}.AllMediaIn(),
		ctx:       ctx,
		ctxCancel: cancel,
		logger:    opts.Logger,
	}, nil
}

// Start subscribes to the inbound media topics.
func (b *Binding) Start(_ context.Context) error {
	var err error
	b.startOnce.Do(func() {
		if err = b.client.Subscribe(b.topic, b.qos, b.handleMessage); err != nil {
			err = fmt.Errorf("subscribe to %s: %w", b.topic, err)
			return
		}
		b.started = true
		b.logInfo("subscribed to media input", "topic", b.topic)
	})
	return err
}

// Stop unsubscribes and abandons deliveries that are still waiting for
// queue space. Safe to call multiple times.
func (b *Binding) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()
		if b.started && b.client.IsConnected() {
			if err := b.client.Unsubscribe(b.topic); err != nil {
				b.logWarn("unsubscribe failed", "topic", b.topic, "error", err)
			}
		}
		b.logInfo("media input stopped")
	})
}

// handleMessage parses and delivers one inbound message.
func (b *Binding) handleMessage(topic string, payload []byte) {
	deviceID, msg, err := ParseInbound(topic, payload)
	if err != nil {
		b.logWarn("ignoring message", "topic", topic, "error", err)
		return
	}

	err = b.devices.Deliver(b.ctx, deviceID, msg)
	switch {
	case err == nil:
	case errors.Is(err, media.ErrDeviceNotFound):
		b.logDebug("message for unknown device", "device_id", deviceID, "topic", topic)
	case errors.Is(err, media.ErrNodeClosed), errors.Is(err, context.Canceled):
		b.logDebug("device stopped before delivery", "device_id", deviceID)
	default:
		b.logWarn("delivery failed", "device_id", deviceID, "topic", topic, "error", err)
	}
}

// SetLogger sets the logger for the binding.
func (b *Binding) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

func (b *Binding) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Binding) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Binding) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (b *Binding) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
