package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// HintOnline routes an inbound message to the online-only branch.
const HintOnline = "online"

// Logger defines the logging interface used by the media package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// CloudSync pushes the full state of a device to the assistant backend.
// Implementations must not block the caller on network I/O.
type CloudSync interface {
	ReportState(ctx context.Context, desc *Descriptor, state State)
}

// Forwarder emits messages back into the automation flow.
type Forwarder interface {
	Forward(ctx context.Context, deviceID string, msg FlowMessage) error
}

// Message is an inbound automation-flow message for one device.
type Message struct {
	// Topic is the full inbound topic.
	Topic string
	// Hint is the routing hint, the last segment of Topic.
	Hint string
	// Payload is the decoded message body: an object, a scalar or a string.
	Payload any
}

// FlowMessage is a message emitted back into the automation flow.
type FlowMessage struct {
	Topic      string `json:"topic"`
	DeviceName string `json:"device_name,omitempty"`
	Command    string `json:"command,omitempty"`
	Payload    any    `json:"payload"`
}

// HandlerOptions wires a Handler to its collaborators.
type HandlerOptions struct {
	Descriptor *Descriptor
	Store      *Store
	CloudSync  CloudSync
	Forwarder  Forwarder
	Status     StatusIndicator
	// Passthru echoes state changes back into the flow.
	Passthru bool
	// Topic is the outbound flow topic of the device.
	Topic  string
	Logger Logger
}

// Handler applies inbound flow messages and command results to one
// device's state store. It is not safe for concurrent use; the owning
// Node serialises calls.
type Handler struct {
	desc     *Descriptor
	store    *Store
	sync     CloudSync
	forward  Forwarder
	status   StatusIndicator
	passthru bool
	topic    string
	logger   Logger
}

// NewHandler creates a handler. Descriptor, Store and CloudSync are required.
func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.Descriptor == nil || opts.Store == nil {
		return nil, fmt.Errorf("%w: descriptor and store are required", ErrMissingConfig)
	}
	if opts.CloudSync == nil {
		return nil, ErrMissingCloudSync
	}
	h := &Handler{
		desc:     opts.Descriptor,
		store:    opts.Store,
		sync:     opts.CloudSync,
		forward:  opts.Forwarder,
		status:   opts.Status,
		passthru: opts.Passthru,
		topic:    opts.Topic,
		logger:   opts.Logger,
	}
	if h.logger == nil {
		h.logger = noopLogger{}
	}
	return h, nil
}

// Handle applies one inbound message.
//
// Messages whose hint is "online" carry a bare boolean-formatted value;
// everything else must carry an object of state keys. Returned errors are
// informational: they have already been logged and the state is untouched.
func (h *Handler) Handle(ctx context.Context, msg Message) error {
	if strings.EqualFold(msg.Hint, HintOnline) {
		return h.handleOnline(ctx, msg)
	}
	return h.handleObject(ctx, msg)
}

func (h *Handler) handleOnline(ctx context.Context, msg Message) error {
	online, err := FormatBool(KeyOnline, msg.Payload)
	if err != nil {
		h.logger.Error("discarding online update", "device_id", h.desc.ID, "error", err)
		return err
	}

	changed, _ := h.store.Merge(map[string]any{KeyOnline: online})
	if !changed {
		return nil
	}

	h.logger.Debug("online changed", "device_id", h.desc.ID, "online", online)
	if h.passthru {
		h.emit(ctx, FlowMessage{Topic: msg.Topic, Payload: online})
	}
	h.sync.ReportState(ctx, h.desc, h.store.Snapshot())
	return nil
}

func (h *Handler) handleObject(ctx context.Context, msg Message) error {
	object, ok := msg.Payload.(map[string]any)
	if !ok {
		h.logger.Debug("ignoring non-object payload",
			"device_id", h.desc.ID,
			"topic", msg.Topic,
			"type", fmt.Sprintf("%T", msg.Payload))
		return ErrUnsupportedPayload
	}

	partial := make(map[string]any, len(object))
	for key, raw := range object {
		field, known := h.store.Field(key)
		if !known {
			continue
		}
		value, err := FormatValue(field, raw)
		if err != nil {
			h.logger.Error("discarding update", "device_id", h.desc.ID, "topic", msg.Topic, "error", err)
			return err
		}
		partial[key] = value
	}

	changed, _ := h.store.Merge(partial)
	if !changed {
		return nil
	}

	state := h.store.Snapshot()
	h.sync.ReportState(ctx, h.desc, state)
	if h.passthru {
		h.emit(ctx, FlowMessage{Topic: msg.Topic, Payload: state.DeepCopy()})
	}
	h.refreshStatus(state)
	return nil
}

// ApplyExecution folds the states of a handled command into the store
// and tells the flow which command the assistant ran.
func (h *Handler) ApplyExecution(ctx context.Context, cmd Command, result *ExecutionResult) {
	if result == nil {
		return
	}
	h.store.Merge(result.States)
	state := h.store.Snapshot()
	h.refreshStatus(state)
	h.emit(ctx, FlowMessage{
		Topic:      h.topic,
		DeviceName: h.desc.Name.Name,
		Command:    cmd.Name,
		Payload:    map[string]any{KeyOnline: state[KeyOnline]},
	})
}

func (h *Handler) refreshStatus(state State) {
	if h.status != nil {
		h.status.SetStatus(h.desc.ID, StatusFor(state))
	}
}

func (h *Handler) emit(ctx context.Context, msg FlowMessage) {
	if h.forward == nil {
		return
	}
	if err := h.forward.Forward(ctx, h.desc.ID, msg); err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Warn("forwarding to flow failed", "device_id", h.desc.ID, "error", err)
	}
}
