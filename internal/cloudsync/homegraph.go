package cloudsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// maxErrorBody bounds how much of a rejected response is kept for the error.
const maxErrorBody = 512

// HomeGraphConfig configures the report-state push.
type HomeGraphConfig struct {
	// Endpoint is the report-state URL.
	Endpoint string
	// AgentUserID identifies the account the devices belong to.
	AgentUserID string
	// APIKey is sent as a bearer token when set.
	APIKey string
	// Timeout bounds each HTTP request (default 10s).
	Timeout time.Duration
	// RateLimit is the sustained pushes per second; 0 disables limiting.
	RateLimit float64
	// Burst is the limiter burst (default 1).
	Burst int
}

// HomeGraph pushes device state to a report-state endpoint.
type HomeGraph struct {
	cfg     HomeGraphConfig
	client  *http.Client
	limiter *rate.Limiter
}

// reportStateRequest is the report-state body.
type reportStateRequest struct {
	RequestID   string             `json:"requestId"`
	AgentUserID string             `json:"agentUserId"`
	Payload     reportStatePayload `json:"payload"`
}

type reportStatePayload struct {
	Devices reportStateDevices `json:"devices"`
}

type reportStateDevices struct {
	States map[string]map[string]any `json:"states"`
}

// NewHomeGraph creates the report-state sink.
//
// Returns:
//   - *HomeGraph: Sink ready for use
//   - error: ErrMissingEndpoint if no endpoint is configured
func NewHomeGraph(cfg HomeGraphConfig) (*HomeGraph, error) {
	if cfg.Endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultPushTimeout
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	h := &HomeGraph{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.RateLimit > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)
	}
	return h, nil
}

// Name implements Sink.
func (h *HomeGraph) Name() string { return "homegraph" }

// Push implements Sink.
func (h *HomeGraph) Push(ctx context.Context, report Report) error {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	body, err := json.Marshal(reportStateRequest{
		RequestID:   uuid.NewString(),
		AgentUserID: h.cfg.AgentUserID,
		Payload: reportStatePayload{
			Devices: reportStateDevices{
				States: map[string]map[string]any{report.DeviceID: report.State},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("marshalling report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best-effort detail
		return fmt.Errorf("%w: %s: %s", ErrPushRejected, resp.Status, bytes.TrimSpace(snippet))
	}
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
	return nil
}
