// Package session implements the session lifecycle manager for the server.
//
// The Hub owns four registries and every timer that acts on them:
//   - the FIFO matchmaking queue of players waiting for an opponent,
//   - the active-session registry keyed by game ID,
//   - the connection registry mapping an identity to all of its live
//     connections (multiple tabs are first-class),
//   - the disconnect records holding reconnect-grace timers.
//
// Inbound events (connect, move, disconnect) and timer callbacks all run
// to completion under one mutex, so registry mutations never interleave.
// Timer callbacks re-validate the state they guard before acting: a
// matchmaking timer checks its entry is still queued, a grace timer checks
// the session is still active and the player has not returned, and a
// delayed bot move checks the session has not ended. Timers are also
// stopped eagerly on the transition that obsoletes them (pairing,
// reconnection), which keeps duplicate terminations impossible even when
// a callback has already fired and is waiting on the lock.
//
// Persistence and event publishing are fire-and-forget: failures are
// logged and never undo an in-memory state transition.
//
// Timing (matchmaking window, reconnect grace, bot pacing) comes from
// Config so tests can run the full lifecycle in milliseconds.
package session
