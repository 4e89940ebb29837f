package cloudsync

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-media/internal/media"
)

type writtenPoint struct {
	deviceID   string
	deviceType string
	fields     map[string]any
}

type recordingWriter struct {
	mu     sync.Mutex
	points []writtenPoint
}

func (w *recordingWriter) WriteMediaState(deviceID, deviceType string, fields map[string]any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.points = append(w.points, writtenPoint{deviceID, deviceType, fields})
}

func TestTelemetry_Push(t *testing.T) {
	w := &recordingWriter{}
	tel := NewTelemetry(w)

	err := tel.Push(context.Background(), Report{
		DeviceID:   "tv1",
		DeviceType: "action.devices.types.TV",
		State: media.State{
			"on":                  true,
			"currentVolume":       30,
			"playbackState":       "PLAYING",
			"currentModeSettings": map[string]any{"sound": "movie"},
			"ignored":             nil,
		},
	})
	require.NoError(t, err)

	require.Len(t, w.points, 1)
	p := w.points[0]
	assert.Equal(t, "tv1", p.deviceID)
	assert.Equal(t, "action.devices.types.TV", p.deviceType)
	assert.Equal(t, true, p.fields["on"])
	assert.Equal(t, int64(30), p.fields["currentVolume"])
	assert.Equal(t, "PLAYING", p.fields["playbackState"])
	assert.Equal(t, `{"sound":"movie"}`, p.fields["currentModeSettings"])
	assert.NotContains(t, p.fields, "ignored")
}

func TestTelemetry_EmptyStateWritesNothing(t *testing.T) {
	w := &recordingWriter{}
	require.NoError(t, NewTelemetry(w).Push(context.Background(), Report{DeviceID: "tv1"}))
	assert.Empty(t, w.points)
}
