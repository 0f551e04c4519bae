// Package ws provides the WebSocket transport for remote-control clients.
//
// The package implements:
//   - Client: One connected web client with a buffered send channel and a
//     mutable session subscription
//   - Registry: The authoritative set of connected clients, exposing
//     read-only snapshots to the protocol layer
//   - Handler: Upgrades HTTP requests, runs the read/write pumps, and feeds
//     inbound frames to the message router
//
// The transport owns connection lifecycle end to end. The protocol layer in
// internal/control only ever sees registry snapshots and client handles.
package ws
