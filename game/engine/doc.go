// Package engine provides the core Connect Four game logic.
//
// The engine package implements the game mechanics including:
//   - The 6x7 board and gravity-based piece placement
//   - Move legality (column bounds, full columns, finished games)
//   - Incremental win detection at the placement site
//   - Draw detection when the top row fills
//
// Core Types:
//
// Engine is the authoritative state machine for a single match: it owns
// the board, the side to move, and the terminal status. Board is the raw
// grid representation; its helpers (DropRow, WinningAt, LegalColumns) are
// exported so move-selection code can simulate placements on the same
// representation the engine plays on.
//
// Usage:
//
//	e := engine.New()
//	res, err := e.ApplyMove(3)
//	if err != nil {
//		// illegal move; engine state is unchanged
//	}
//	if res.GameOver {
//		// res.Winner holds the winning side, or res.Draw is true
//	}
//
// The engine is pure: it performs no I/O and is not safe for concurrent
// use. Callers serialize access (see the session package).
package engine
