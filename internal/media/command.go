package media

import (
	"context"
	"sort"
	"strings"
)

// Command names.
const (
	CommandGetMediaStream = "action.devices.commands.GetMediaStream"
)

// Execution statuses.
const (
	ExecSuccess = "SUCCESS"
)

// Stream-related state keys returned by GetMediaStream.
const (
	KeyMediaStreamAccessURL    = "mediaStreamAccessUrl"
	KeyMediaStreamReceiverApp  = "mediaStreamReceiverAppId"
	KeyMediaStreamProtocol     = "mediaStreamProtocol"
	KeyMediaStreamAuthToken    = "mediaStreamAuthToken"
	paramSupportedStreamProtos = "SupportedStreamProtocols"
)

// Command is a cloud-assistant command addressed to one device.
type Command struct {
	Name   string         `json:"command"`
	Params map[string]any `json:"params,omitempty"`
}

// ExecutionResult is the outcome of a handled command.
type ExecutionResult struct {
	Status          string         `json:"status"`
	States          map[string]any `json:"states"`
	ExecutionStates []string       `json:"executionStates"`
}

// StreamSource resolves a playable URL for a device and protocol.
type StreamSource interface {
	ResolveStream(ctx context.Context, deviceID, protocol string) (url string, ok bool)
}

// NoStreams never resolves a stream.
type NoStreams struct{}

// ResolveStream implements StreamSource.
func (NoStreams) ResolveStream(context.Context, string, string) (string, bool) {
	return "", false
}

// StaticStreams maps lower-case protocol identifiers to URLs for a single
// device. Build it with NewStaticStreams when keys come from configuration.
type StaticStreams map[string]string

// NewStaticStreams normalises protocol keys to lower case. When two keys
// differ only by case, the first non-empty URL in key order wins.
func NewStaticStreams(streams map[string]string) StaticStreams {
	keys := make([]string, 0, len(streams))
	for k := range streams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(StaticStreams, len(streams))
	for _, k := range keys {
		norm := strings.ToLower(strings.TrimSpace(k))
		if out[norm] != "" {
			continue
		}
		out[norm] = streams[k]
	}
	return out
}

// ResolveStream implements StreamSource. Protocol lookup is case-insensitive.
func (s StaticStreams) ResolveStream(_ context.Context, _ string, protocol string) (string, bool) {
	url := s[strings.ToLower(strings.TrimSpace(protocol))]
	return url, url != ""
}

// Executor answers commands for a media device.
type Executor struct {
	streams   StreamSource
	authToken string
}

// NewExecutor creates an executor. A nil source resolves nothing.
func NewExecutor(streams StreamSource, authToken string) *Executor {
	if streams == nil {
		streams = NoStreams{}
	}
	return &Executor{streams: streams, authToken: authToken}
}

// Execute runs cmd against the device described by desc.
//
// Only GetMediaStream is handled. The caller's SupportedStreamProtocols
// are tried in order and the first one the stream source resolves is
// used. ok is false when the command is not GetMediaStream, carries no
// protocols, or no protocol resolves; callers treat that as unhandled.
func (e *Executor) Execute(ctx context.Context, desc *Descriptor, cmd Command) (result *ExecutionResult, ok bool) {
	if desc == nil || cmd.Name != CommandGetMediaStream {
		return nil, false
	}

	protocols := stringList(cmd.Params[paramSupportedStreamProtos])
	for _, protocol := range protocols {
		url, found := e.streams.ResolveStream(ctx, desc.ID, protocol)
		if !found || url == "" {
			continue
		}
		return e.streamResult(desc.ID, protocol, url), true
	}

	return nil, false
}

func (e *Executor) streamResult(deviceID, protocol, url string) *ExecutionResult {
	states := map[string]any{
		KeyOnline:                 true,
		KeyMediaStreamAccessURL:   url,
		KeyMediaStreamReceiverApp: deviceID,
		KeyMediaStreamProtocol:    protocol,
	}
	executionStates := []string{KeyOnline, KeyMediaStreamAccessURL, KeyMediaStreamReceiverApp, KeyMediaStreamProtocol}

	if e.authToken != "" {
		states[KeyMediaStreamAuthToken] = e.authToken
		executionStates = append(executionStates, KeyMediaStreamAuthToken)
	}

	return &ExecutionResult{
		Status:          ExecSuccess,
		States:          states,
		ExecutionStates: executionStates,
	}
}

// stringList accepts []string or a JSON-decoded []any of strings.
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
