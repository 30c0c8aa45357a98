// Package service defines the contracts shared between the game core and
// its collaborators.
//
// It contains:
//   - The inbound and outbound wire message types. Inbound messages form a
//     closed union decoded by DecodeInbound; outbound messages are typed
//     structs carrying a "type" discriminator.
//   - Conn, the transport abstraction the session hub sends through.
//   - PersistenceStore and EventPublisher, the outbound collaborator
//     interfaces for finished-game records, standings, and domain events.
//
// The session hub depends only on these interfaces; the websocket, storage,
// and events packages provide the implementations.
package service
