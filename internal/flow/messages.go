package flow

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-media/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-media/internal/media"
)

// StatusMessage is published retained on graylogic/media/{id}/status.
type StatusMessage struct {
	DeviceID  string       `json:"device_id"`
	Status    media.Status `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
}

// ParseInbound turns an MQTT message on graylogic/media/{id}/in[/...] into
// the device id and the media message to deliver.
//
// The hint is the last topic segment. JSON payloads are decoded; anything
// else is passed on as a plain string.
func ParseInbound(topic string, payload []byte) (string, media.Message, error) {
	deviceID, _, ok := mqtt.Topics{}.ParseMediaIn(topic)
	if !ok {
		return "", media.Message{}, ErrInvalidTopic
	}

	return deviceID, media.Message{
		Topic:   topic,
		Hint:    topic[strings.LastIndex(topic, "/")+1:],
		Payload: decodePayload(payload),
	}, nil
}

// decodePayload decodes JSON, keeping integers exact, and falls back to the
// raw text when the payload is not JSON.
func decodePayload(payload []byte) any {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return ""
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return string(payload)
	}
	return normaliseNumbers(v)
}

// normaliseNumbers converts json.Number to int64 where exact, else float64.
func normaliseNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return f
	case map[string]any:
		for k, inner := range t {
			t[k] = normaliseNumbers(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = normaliseNumbers(inner)
		}
		return t
	default:
		return v
	}
}
