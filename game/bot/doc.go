// Package bot implements the automated opponent's move selection.
//
// The policy is a strict priority pipeline evaluated against a snapshot of
// the live board:
//  1. Take an immediately winning column if one exists.
//  2. Block the opponent's immediately winning column.
//  3. Score every legal column heuristically (center preference, offensive
//     and defensive line potential, one-ply trap avoidance) and take the
//     best, ties going to the lowest column index.
//  4. Fall back to the center column, then to a uniformly random legal one.
//
// The bot simulates placements directly on the engine's board and always
// reverts them; it holds no state between moves beyond its assigned side.
package bot
