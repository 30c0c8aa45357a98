package engine

// Engine is the state machine for one Connect Four match.
type Engine struct {
	board       Board
	currentSide Cell
	status      Status
	winner      Cell
	draw        bool
}

// New creates an engine with an empty board. SideA moves first.
func New() *Engine {
	return &Engine{
		board:       NewBoard(),
		currentSide: SideA,
	}
}

// Board returns the live board. Callers that simulate placements on it must
// revert every change (see the bot package).
func (e *Engine) Board() Board {
	return e.board
}

// CurrentSide returns the side to move.
func (e *Engine) CurrentSide() Cell {
	return e.currentSide
}

// Status returns the match lifecycle state.
func (e *Engine) Status() Status {
	return e.status
}

// IsOver reports whether the match has ended.
func (e *Engine) IsOver() bool {
	return e.status == Complete
}

// Winner returns the winning side, or Empty for a draw or an unfinished game.
func (e *Engine) Winner() Cell {
	return e.winner
}

// IsDraw reports whether the match ended with a full board and no winner.
func (e *Engine) IsDraw() bool {
	return e.draw
}

// LegalColumns returns the columns currently accepting a piece.
func (e *Engine) LegalColumns() []int {
	return e.board.LegalColumns()
}

// ApplyMove drops the current side's piece into col. On success it returns
// the placed position and, if the move ended the game, the outcome. The
// current side flips only after a non-terminal move. Errors leave the engine
// untouched.
func (e *Engine) ApplyMove(col int) (MoveResult, error) {
	if e.status == Complete {
		return MoveResult{}, ErrGameOver
	}
	if col < 0 || col >= Cols {
		return MoveResult{}, ErrInvalidColumn
	}

	row := e.board.DropRow(col)
	if row < 0 {
		return MoveResult{}, ErrColumnFull
	}

	e.board[row][col] = e.currentSide
	res := MoveResult{Row: row, Column: col}

	switch {
	case e.board.WinningAt(row, col):
		e.status = Complete
		e.winner = e.currentSide
		res.GameOver = true
		res.Winner = e.currentSide
	case e.board.Full():
		e.status = Complete
		e.draw = true
		res.GameOver = true
		res.Draw = true
	default:
		e.currentSide = e.currentSide.Opponent()
	}

	return res, nil
}

// Forfeit ends the match in favor of winner without a move being played.
// It is used when a disconnected player's grace window expires. Calling it
// on a completed match is a no-op.
func (e *Engine) Forfeit(winner Cell) {
	if e.status == Complete {
		return
	}
	e.status = Complete
	e.winner = winner
}
