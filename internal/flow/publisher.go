package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-media/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-media/internal/media"
)

// PublisherOptions holds configuration for creating a Publisher.
type PublisherOptions struct {
	// Client is the MQTT client implementation.
	Client MQTTClient

	// Topics overrides the outbound topic per device id. Devices not listed
	// publish on graylogic/media/{id}/out.
	Topics map[string]string

	// QoS for flow and status messages.
	QoS byte

	// Logger is an optional structured logger.
	Logger Logger
}

// Publisher emits flow output and device status on MQTT.
// It implements media.Forwarder and media.StatusIndicator.
type Publisher struct {
	client MQTTClient
	qos    byte

	topics   map[string]string
	topicsMu sync.RWMutex

	now func() time.Time

	logger Logger
}

// NewPublisher creates a publisher.
func NewPublisher(opts PublisherOptions) (*Publisher, error) {
	if opts.Client == nil {
		return nil, ErrMissingClient
	}

	qos := opts.QoS
	if qos == 0 {
		qos = defaultQoS
	}

	topics := make(map[string]string, len(opts.Topics))
	for id, t := range opts.Topics {
		if t != "" {
			topics[id] = t
		}
	}

	return &Publisher{
		client: opts.Client,
		qos:    qos,
		topics: topics,
		now:    time.Now,
		logger: opts.Logger,
	}, nil
}

// SetTopic overrides the outbound topic of one device. An empty topic
// restores the default.
func (p *Publisher) SetTopic(deviceID, topic string) {
	p.topicsMu.Lock()
	defer p.topicsMu.Unlock()
	if topic == "" {
		delete(p.topics, deviceID)
		return
	}
	p.topics[deviceID] = topic
}

// TopicFor returns the outbound topic of a device.
func (p *Publisher) TopicFor(deviceID string) string {
	p.topicsMu.RLock()
	t, ok := p.topics[deviceID]
	p.topicsMu.RUnlock()
	if ok {
		return t
	}
	return mqtt.Topics{}.MediaOut(deviceID)
}

// Forward implements media.Forwarder.
func (p *Publisher) Forward(ctx context.Context, deviceID string, msg media.FlowMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.publishJSON(p.TopicFor(deviceID), msg, false)
}

// SetStatus implements media.StatusIndicator. The status is retained so
// late subscribers see the current value.
func (p *Publisher) SetStatus(deviceID string, status media.Status) {
	msg := StatusMessage{
		DeviceID:  deviceID,
		Status:    status,
		Timestamp: p.now().UTC(),
	}
	if err := p.publishJSON(mqtt.Topics{}.MediaStatus(deviceID), msg, true); err != nil && p.logger != nil {
		p.logger.Debug("status publish failed", "device_id", deviceID, "error", err)
	}
}

// ClearStatus removes the retained status of a removed device.
func (p *Publisher) ClearStatus(deviceID string) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}
	return p.client.Publish(mqtt.Topics{}.MediaStatus(deviceID), nil, p.qos, true)
}

func (p *Publisher) publishJSON(topic string, v any, retained bool) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal flow message: %w", err)
	}

	if err := p.client.Publish(topic, payload, p.qos, retained); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
