// Package media provides the media device model for Gray Logic Media.
//
// A media device is a television, speaker, set-top box, streaming box or
// similar endpoint exposed to a cloud voice assistant. This package builds
// the device's advertised descriptor from its type, keeps its runtime state,
// applies updates arriving from the automation flow and answers
// assistant commands.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────────────┐
//	│                            Registry                                 │
//	│                                                                     │
//	│  ┌──────────────┐   ┌──────────────┐   ┌──────────────────────┐    │
//	│  │    Node      │   │   Handler    │   │      Executor        │    │
//	│  │  (node.go)   │──▶│ (handler.go) │   │    (command.go)      │    │
//	│  │              │   │              │   │                      │    │
//	│  │ • one queue  │   │ • coercion   │   │ • GetMediaStream     │    │
//	│  │   per device │   │ • merge      │   │ • stream resolution  │    │
//	│  └──────────────┘   │ • report     │   └──────────────────────┘    │
//	│                     └──────────────┘                                │
//	└────────────────────────────────────────────────────────────────────┘
//	         │                   │                      │
//	         ▼                   ▼                      ▼
//	   Forwarder (flow)    CloudSync (assistant)   StatusIndicator
//
// # Key Types
//
//   - DeviceType and Trait: the assistant's type and capability vocabulary
//   - Descriptor: the SYNC document advertised for a device
//   - Store: the device state, merged by key with value equality
//   - Handler: applies inbound flow messages to the store
//   - Executor: answers assistant commands
//   - Registry: the set of running devices
//
// # Usage
//
//	reg := media.NewRegistry(media.RegistryOptions{
//	    CloudSync: reporter,
//	    Forwarder: publisher,
//	    Status:    statusPublisher,
//	})
//	reg.SetLogger(log)
//
//	node, err := reg.Register(media.DeviceConfig{
//	    ID:   "living-room-tv",
//	    Name: "Living Room TV",
//	    Type: media.TypeTV,
//	})
//
//	err = reg.Deliver(ctx, "living-room-tv", media.Message{
//	    Topic:   "graylogic/media/living-room-tv/in",
//	    Payload: map[string]any{"on": true, "currentVolume": 30},
//	})
//
// # Thread Safety
//
// Registry, Node and Store are safe for concurrent use. Events for one
// device are applied in arrival order on that device's own goroutine.
package media
