package bot

import (
	"math/rand/v2"

	"github.com/dropfour/dropfour/game/engine"
)

const (
	// sentinelScore marks columns excluded from consideration.
	sentinelScore = -1000

	centerBonus     = 3
	defenseDiscount = 0.8
	trapPenalty     = 50
)

// Player selects moves for one side. It is stateless across moves and safe
// to reuse for the lifetime of a session.
type Player struct {
	side     engine.Cell
	opponent engine.Cell
}

// New creates a bot playing the given side.
func New(side engine.Cell) *Player {
	return &Player{
		side:     side,
		opponent: side.Opponent(),
	}
}

// Side returns the side this bot plays.
func (p *Player) Side() engine.Cell {
	return p.side
}

// ChooseMove picks a column for the bot's side. It reports false when no
// legal column exists. The board is mutated only transiently during
// simulation and is always restored before returning.
func (p *Player) ChooseMove(b engine.Board) (int, bool) {
	legal := b.LegalColumns()
	if len(legal) == 0 {
		return 0, false
	}

	if col, ok := findWinningColumn(b, p.side); ok {
		return col, true
	}
	if col, ok := findWinningColumn(b, p.opponent); ok {
		return col, true
	}
	if col, ok := p.findStrategicColumn(b); ok {
		return col, true
	}

	for _, col := range legal {
		if col == engine.CenterColumn {
			return col, true
		}
	}
	return legal[rand.IntN(len(legal))], true
}

// findWinningColumn returns the lowest column where dropping a piece of side
// wins immediately.
func findWinningColumn(b engine.Board, side engine.Cell) (int, bool) {
	for col := 0; col < engine.Cols; col++ {
		row := b.DropRow(col)
		if row < 0 {
			continue
		}
		if simulate(b, row, col, side, func() bool {
			return b.WinningAt(row, col)
		}) {
			return col, true
		}
	}
	return 0, false
}

// findStrategicColumn scores every column and returns the best one. A full
// column scores the sentinel; when nothing beats the sentinel the caller
// falls through to the center/random stages.
func (p *Player) findStrategicColumn(b engine.Board) (int, bool) {
	bestCol := -1
	bestScore := float64(sentinelScore)

	for col := 0; col < engine.Cols; col++ {
		score := p.ScoreColumn(b, col)
		if score > bestScore {
			bestScore = score
			bestCol = col
		}
	}

	if bestCol >= 0 && bestScore > sentinelScore {
		return bestCol, true
	}
	return 0, false
}

// ScoreColumn computes the heuristic score for dropping the bot's piece
// into col on the current board. A full column scores the sentinel.
func (p *Player) ScoreColumn(b engine.Board, col int) float64 {
	row := b.DropRow(col)
	if row < 0 {
		return sentinelScore
	}

	var score float64
	if col == engine.CenterColumn {
		score += centerBonus
	}

	score += float64(evaluate(b, row, col, p.side))
	score -= float64(evaluate(b, row, col, p.opponent)) * defenseDiscount

	// One-ply trap: placing here may hand the opponent the cell directly
	// above. Bottom-row landings are exempt.
	if row > 0 && row < engine.Rows-1 {
		trapped := simulate(b, row, col, p.side, func() bool {
			return simulate(b, row-1, col, p.opponent, func() bool {
				return b.WinningAt(row-1, col)
			})
		})
		if trapped {
			score -= trapPenalty
		}
	}

	return score
}

// evaluate measures the line potential of side at (row, col): for each of
// the four directions it counts the contiguous same-side cells reachable
// from the position and how many of the run's ends remain open (empty cell
// just past the run). Longer runs with open ends score progressively higher.
func evaluate(b engine.Board, row, col int, side engine.Cell) int {
	score := 0
	for _, d := range [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}} {
		score += scoreDirection(b, row, col, d[0], d[1], side)
	}
	return score
}

// scoreDirection computes one direction's contribution to evaluate.
func scoreDirection(b engine.Board, row, col, dRow, dCol int, side engine.Cell) int {
	count := 0
	openEnds := 0

	r, c := row+dRow, col+dCol
	for b.InBounds(r, c) && b[r][c] == side {
		count++
		r += dRow
		c += dCol
	}
	if b.InBounds(r, c) && b[r][c] == engine.Empty {
		openEnds++
	}

	r, c = row-dRow, col-dCol
	for b.InBounds(r, c) && b[r][c] == side {
		count++
		r -= dRow
		c -= dCol
	}
	if b.InBounds(r, c) && b[r][c] == engine.Empty {
		openEnds++
	}

	switch {
	case count == 0:
		return 0
	case count == 1:
		return openEnds
	case count == 2:
		return openEnds * 2
	default:
		return openEnds * 5
	}
}

// simulate places side at (row, col), evaluates fn, and restores the cell
// before returning. The deferred restore makes a panicking fn unable to
// leave the board inconsistent.
func simulate(b engine.Board, row, col int, side engine.Cell, fn func() bool) bool {
	prev := b[row][col]
	b[row][col] = side
	defer func() { b[row][col] = prev }()
	return fn()
}
