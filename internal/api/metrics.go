package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/gray-logic-media/internal/cloudsync"
	"github.com/nerrad567/gray-logic-media/internal/media"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string            `json:"timestamp"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Runtime       RuntimeMetrics    `json:"runtime"`
	WebSocket     WSMetrics         `json:"websocket"`
	Devices       DeviceMetrics     `json:"devices"`
	CloudSync     *cloudsync.Stats  `json:"cloud_sync,omitempty"`
	Fulfillment   FulfillmentMetric `json:"fulfillment"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// DeviceMetrics contains media registry statistics.
type DeviceMetrics struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
	Online int            `json:"online"`
}

// FulfillmentMetric contains EXECUTE cache statistics.
type FulfillmentMetric struct {
	CachedExecutions int `json:"cached_executions"`
}

// handleMetrics returns process, registry and report-state metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		Devices: DeviceMetrics{
			ByType: make(map[string]int),
		},
		Fulfillment: FulfillmentMetric{
			CachedExecutions: s.executions.Len(),
		},
	}

	for _, n := range s.registry.List() {
		metrics.Devices.Total++
		metrics.Devices.ByType[n.Descriptor().Type]++
		if online, _ := n.State()[media.KeyOnline].(bool); online {
			metrics.Devices.Online++
		}
	}

	if s.reporter != nil {
		stats := s.reporter.Stats()
		metrics.CloudSync = &stats
	}

	writeJSON(w, http.StatusOK, metrics)
}
