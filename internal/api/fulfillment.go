package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/nerrad567/gray-logic-media/internal/media"
)

// Smart-home intents.
const (
	IntentSync       = "action.devices.SYNC"
	IntentQuery      = "action.devices.QUERY"
	IntentExecute    = "action.devices.EXECUTE"
	IntentDisconnect = "action.devices.DISCONNECT"
)

// Fulfillment statuses and error codes.
const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"

	ErrorCodeDeviceNotFound       = "deviceNotFound"
	ErrorCodeFunctionNotSupported = "functionNotSupported"
	ErrorCodeTransientError       = "transientError"
	ErrorCodeProtocolError        = "protocolError"
)

// executionCacheTTL is how long an EXECUTE response is replayed for a
// retried requestId.
const executionCacheTTL = 30 * time.Second

// FulfillmentRequest is the body of POST /api/v1/fulfillment.
type FulfillmentRequest struct {
	RequestID string             `json:"requestId"`
	Inputs    []FulfillmentInput `json:"inputs"`
}

// FulfillmentInput is one intent with its raw payload.
type FulfillmentInput struct {
	Intent  string          `json:"intent"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// FulfillmentResponse is the response to an intent.
type FulfillmentResponse struct {
	RequestID string `json:"requestId"`
	Payload   any    `json:"payload"`
}

type deviceRef struct {
	ID string `json:"id"`
}

type queryPayload struct {
	Devices []deviceRef `json:"devices"`
}

type executePayload struct {
	Commands []executeCommand `json:"commands"`
}

type executeCommand struct {
	Devices   []deviceRef     `json:"devices"`
	Execution []media.Command `json:"execution"`
}

// CommandResult is the outcome of one command on one device.
type CommandResult struct {
	IDs             []string       `json:"ids"`
	Status          string         `json:"status"`
	States          map[string]any `json:"states,omitempty"`
	ExecutionStates []string       `json:"executionStates,omitempty"`
	ErrorCode       string         `json:"errorCode,omitempty"`
}

type syncResponsePayload struct {
	AgentUserID string              `json:"agentUserId"`
	Devices     []*media.Descriptor `json:"devices"`
}

type queryResponsePayload struct {
	Devices map[string]map[string]any `json:"devices"`
}

type executeResponsePayload struct {
	Commands []CommandResult `json:"commands"`
}

type errorResponsePayload struct {
	ErrorCode string `json:"errorCode"`
}

// handleFulfillment dispatches a smart-home intent.
func (s *Server) handleFulfillment(w http.ResponseWriter, r *http.Request) {
	var req FulfillmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Inputs) == 0 {
		writeJSON(w, http.StatusBadRequest, FulfillmentResponse{
			RequestID: req.RequestID,
			Payload:   errorResponsePayload{ErrorCode: ErrorCodeProtocolError},
		})
		return
	}

	input := req.Inputs[0]
	ctx := r.Context()

	switch input.Intent {
	case IntentSync:
		writeJSON(w, http.StatusOK, s.fulfillSync(req.RequestID))

	case IntentQuery:
		var payload queryPayload
		if err := decodeIntentPayload(input.Payload, &payload); err != nil {
			writeBadRequest(w, "invalid QUERY payload")
			return
		}
		writeJSON(w, http.StatusOK, s.fulfillQuery(req.RequestID, payload))

	case IntentExecute:
		if cached := s.executions.Get(req.RequestID); cached != nil {
			s.logger.Debug("replaying cached execution", "request_id", req.RequestID)
			writeJSON(w, http.StatusOK, cached)
			return
		}

		var payload executePayload
		if err := decodeIntentPayload(input.Payload, &payload); err != nil {
			writeBadRequest(w, "invalid EXECUTE payload")
			return
		}
		resp := s.fulfillExecute(ctx, req.RequestID, payload)
		s.executions.Set(req.RequestID, resp)
		writeJSON(w, http.StatusOK, resp)

	case IntentDisconnect:
		s.logger.Info("account unlinked", "request_id", req.RequestID)
		writeJSON(w, http.StatusOK, struct{}{})

	default:
		writeJSON(w, http.StatusBadRequest, FulfillmentResponse{
			RequestID: req.RequestID,
			Payload:   errorResponsePayload{ErrorCode: ErrorCodeProtocolError},
		})
	}
}

// fulfillSync lists the descriptors of every registered device.
func (s *Server) fulfillSync(requestID string) FulfillmentResponse {
	nodes := s.registry.List()
	devices := make([]*media.Descriptor, 0, len(nodes))
	for _, n := range nodes {
		devices = append(devices, n.Descriptor())
	}

	return FulfillmentResponse{
		RequestID: requestID,
		Payload: syncResponsePayload{
			AgentUserID: s.agentUserID,
			Devices:     devices,
		},
	}
}

// fulfillQuery returns a state snapshot per requested device.
func (s *Server) fulfillQuery(requestID string, payload queryPayload) FulfillmentResponse {
	devices := make(map[string]map[string]any, len(payload.Devices))
	for _, ref := range payload.Devices {
		node, err := s.registry.Get(ref.ID)
		if err != nil {
			devices[ref.ID] = map[string]any{
				"status":    StatusError,
				"errorCode": ErrorCodeDeviceNotFound,
			}
			continue
		}

		state := node.State()
		entry := make(map[string]any, len(state)+1)
		for k, v := range state {
			entry[k] = v
		}
		entry["status"] = StatusSuccess
		devices[ref.ID] = entry
	}

	return FulfillmentResponse{
		RequestID: requestID,
		Payload:   queryResponsePayload{Devices: devices},
	}
}

// fulfillExecute runs every execution against every targeted device.
// Commands the media executor does not know are refused here.
func (s *Server) fulfillExecute(ctx context.Context, requestID string, payload executePayload) *FulfillmentResponse {
	results := make([]CommandResult, 0)

	for _, group := range payload.Commands {
		for _, cmd := range group.Execution {
			for _, ref := range group.Devices {
				results = append(results, s.executeOne(ctx, ref.ID, cmd))
			}
		}
	}

	return &FulfillmentResponse{
		RequestID: requestID,
		Payload:   executeResponsePayload{Commands: results},
	}
}

func (s *Server) executeOne(ctx context.Context, deviceID string, cmd media.Command) CommandResult {
	failed := func(code string) CommandResult {
		return CommandResult{IDs: []string{deviceID}, Status: StatusError, ErrorCode: code}
	}

	if cmd.Name != media.CommandGetMediaStream {
		return failed(ErrorCodeFunctionNotSupported)
	}

	result, ok, err := s.registry.Execute(ctx, deviceID, cmd)
	switch {
	case errors.Is(err, media.ErrDeviceNotFound):
		return failed(ErrorCodeDeviceNotFound)
	case err != nil:
		s.logger.Warn("command execution failed", "device_id", deviceID, "command", cmd.Name, "error", err)
		return failed(ErrorCodeTransientError)
	case !ok || result == nil:
		return failed(ErrorCodeFunctionNotSupported)
	}

	return CommandResult{
		IDs:             []string{deviceID},
		Status:          result.Status,
		States:          result.States,
		ExecutionStates: result.ExecutionStates,
	}
}

// decodeIntentPayload decodes an intent payload; a missing payload leaves
// v at its zero value.
func decodeIntentPayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// executionCache replays EXECUTE responses for retried request IDs.
type executionCache struct {
	cache *ttlworker.Cache[string, *FulfillmentResponse]
}

func newExecutionCache(ttl time.Duration) *executionCache {
	return &executionCache{cache: ttlworker.NewCache[string, *FulfillmentResponse](ttl)}
}

// Get returns the cached response or nil. Empty request IDs never hit.
func (c *executionCache) Get(requestID string) *FulfillmentResponse {
	if requestID == "" {
		return nil
	}
	return c.cache.Get(requestID)
}

// Set caches a response. Empty request IDs are not cached.
func (c *executionCache) Set(requestID string, resp *FulfillmentResponse) {
	if requestID == "" || resp == nil {
		return
	}
	c.cache.Set(requestID, resp)
}

// Len returns the number of live cached responses.
func (c *executionCache) Len() int {
	n := 0
	//nolint:errcheck // the callback never fails
	c.cache.Range(func(string, *FulfillmentResponse) error {
		n++
		return nil
	})
	return n
}
