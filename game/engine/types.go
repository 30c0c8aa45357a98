package engine

import "errors"

// Cell is the content of one board position. The zero value is Empty.
// Values marshal as 0/1/2 on the wire, matching the client protocol.
type Cell int8

const (
	Empty Cell = iota
	SideA
	SideB
)

const (
	Rows = 6
	Cols = 7

	// WinLength is the number of aligned cells required to win.
	WinLength = 4

	// CenterColumn is the strategically preferred middle column.
	CenterColumn = Cols / 2
)

var (
	ErrGameOver      = errors.New("game over")
	ErrInvalidColumn = errors.New("invalid column")
	ErrColumnFull    = errors.New("column is full")
)

// Opponent returns the opposing side. Calling it on Empty returns Empty.
func (c Cell) Opponent() Cell {
	switch c {
	case SideA:
		return SideB
	case SideB:
		return SideA
	}
	return Empty
}

// String returns a short human-readable name for logging.
func (c Cell) String() string {
	switch c {
	case SideA:
		return "A"
	case SideB:
		return "B"
	}
	return "-"
}

// Status is the lifecycle state of a match.
type Status int8

const (
	InProgress Status = iota
	Complete
)

// MoveResult describes the outcome of a successful ApplyMove call.
type MoveResult struct {
	Row      int
	Column   int
	GameOver bool
	Winner   Cell // winning side when GameOver and not Draw
	Draw     bool
}
