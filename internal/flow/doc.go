// Package flow connects media devices to the automation flow over MQTT.
//
// Inbound messages arrive on graylogic/media/{device_id}/in, optionally
// followed by a hint segment such as "online". The Binding decodes them and
// queues them on the owning device. The Publisher sends passthru echoes and
// command results to graylogic/media/{device_id}/out and keeps the retained
// graylogic/media/{device_id}/status topic current.
//
//	┌──────────────┐  in/#   ┌─────────┐  Deliver  ┌────────────────┐
//	│  Flow / MQTT │────────►│ Binding │──────────►│ media.Registry │
//	│              │◄────────│Publisher│◄──────────│   (per node)   │
//	└──────────────┘ out     └─────────┘  Forward  └────────────────┘
//
// Payloads are JSON where possible. Integers stay integers so state
// coercion sees exact values; anything that is not JSON is passed on as a
// string.
package flow
