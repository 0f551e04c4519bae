// Package control implements the synchronization protocol between the
// desktop application and its remote-control web clients.
//
// The package implements:
//   - Router: Validates inbound client messages and dispatches them to the
//     configured callback set, replying to the originating client only
//   - Broadcaster: Fans desktop-side events out to some or all connected
//     clients based on their session subscriptions
//   - Callbacks: The injected bridge to real desktop session operations,
//     with every operation independently optional
//
// Key behaviors:
//   - Exactly one response per inbound message; validation and configuration
//     errors short-circuit before any callback is invoked
//   - Callback-backed operations reply from their own goroutine, so a slow
//     desktop operation never blocks other clients
//   - Unknown message types are echoed back rather than rejected
//   - Clients without a session subscription (dashboard clients) receive
//     every session-scoped broadcast
//   - The client registry is pulled as a read-only snapshot; connection
//     lifecycle stays with the transport layer
package control
