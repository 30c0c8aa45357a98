package engine

// Board is a Rows x Cols grid indexed [row][column], row 0 at the top.
// Pieces occupy the highest row index available in their column.
type Board [][]Cell

// lineDirections are the four axes checked for alignment: horizontal,
// vertical, and the two diagonals. Each is walked in both orientations.
var lineDirections = [4][2]int{
	{0, 1},
	{1, 0},
	{1, 1},
	{1, -1},
}

// NewBoard returns an empty Rows x Cols board.
func NewBoard() Board {
	b := make(Board, Rows)
	for r := range b {
		b[r] = make([]Cell, Cols)
	}
	return b
}

// InBounds reports whether (row, col) is a valid board position.
func (b Board) InBounds(row, col int) bool {
	return row >= 0 && row < Rows && col >= 0 && col < Cols
}

// DropRow returns the lowest empty row in col, or -1 if the column is full.
// It does not place anything.
func (b Board) DropRow(col int) int {
	for row := Rows - 1; row >= 0; row-- {
		if b[row][col] == Empty {
			return row
		}
	}
	return -1
}

// LegalColumns returns, in ascending order, every column whose top row is
// still empty. The result is recomputed on each call since the board mutates.
func (b Board) LegalColumns() []int {
	cols := make([]int, 0, Cols)
	for col := 0; col < Cols; col++ {
		if b[0][col] == Empty {
			cols = append(cols, col)
		}
	}
	return cols
}

// Full reports whether the top row is completely occupied.
func (b Board) Full() bool {
	for col := 0; col < Cols; col++ {
		if b[0][col] == Empty {
			return false
		}
	}
	return true
}

// WinningAt reports whether the piece at (row, col) completes a line of at
// least WinLength. Only lines through (row, col) are considered; the rest of
// the board is never rescanned.
func (b Board) WinningAt(row, col int) bool {
	side := b[row][col]
	if side == Empty {
		return false
	}

	for _, d := range lineDirections {
		count := 1
		count += b.countRun(row, col, d[0], d[1], side)
		count += b.countRun(row, col, -d[0], -d[1], side)
		if count >= WinLength {
			return true
		}
	}
	return false
}

// countRun counts contiguous cells of side extending from (row, col) in the
// given direction, excluding the starting cell. It stops at the board edge,
// an empty cell, or an opposing piece.
func (b Board) countRun(row, col, dRow, dCol int, side Cell) int {
	count := 0
	r, c := row+dRow, col+dCol
	for b.InBounds(r, c) && b[r][c] == side {
		count++
		r += dRow
		c += dCol
	}
	return count
}
