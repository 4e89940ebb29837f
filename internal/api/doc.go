// Package api implements the fulfillment API and WebSocket server for Gray Logic Media.
//
// This package provides:
//   - POST /api/v1/fulfillment answering SYNC, QUERY, EXECUTE and DISCONNECT
//   - read-only device endpoints and per-device state history
//   - a WebSocket hub streaming media.status and media.state events
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Fulfillment
//
// QUERY answers from each device's state store. EXECUTE only accepts
// GetMediaStream; any other command is refused with functionNotSupported
// before it reaches a device. EXECUTE responses are cached by requestId for
// 30 seconds so a retried request is answered without running the command
// again.
//
// # WebSocket
//
// The Hub is wired into the rest of the service twice: as a report sink of
// the cloudsync reporter and as a status indicator of the media registry.
// Clients subscribe with:
//
//	{"type":"subscribe","payload":{"channels":["media.status","media.state"]}}
//
// The HTTP API is unauthenticated; deploy it on a trusted network or behind
// a reverse proxy.
package api
