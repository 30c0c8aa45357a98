// Command analyze prints a human-readable evaluation of a Connect Four
// position. It replays a move sequence (a string of column digits, first
// move by player 1), renders the resulting board, and reports the bot's
// view of every legal reply: heuristic score, immediate wins, and forced
// blocks.
package main

import (
	"fmt"
	"os"

	"github.com/dropfour/dropfour/game/bot"
	"github.com/dropfour/dropfour/game/engine"
)

func main() {
	moves := ""
	if len(os.Args) > 1 {
		moves = os.Args[1]
	}

	eng, err := replay(moves)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	printBoard(eng.Board())
	printStatus(eng)

	if !eng.IsOver() {
		printAnalysis(eng)
	}
}

// replay applies a digit string of columns to a fresh game.
func replay(moves string) (*engine.Engine, error) {
	eng := engine.New()
	for i, r := range moves {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("move %d: %q is not a column digit", i+1, r)
		}
		col := int(r - '0')
		if _, err := eng.ApplyMove(col); err != nil {
			return nil, fmt.Errorf("move %d (column %d): %w", i+1, col, err)
		}
	}
	return eng, nil
}

func printBoard(b engine.Board) {
	fmt.Println()
	for _, row := range b {
		for _, cell := range row {
			switch cell {
			case engine.SideA:
				fmt.Print(" X")
			case engine.SideB:
				fmt.Print(" O")
			default:
				fmt.Print(" .")
			}
		}
		fmt.Println()
	}
	for col := 0; col < engine.Cols; col++ {
		fmt.Printf(" %d", col)
	}
	fmt.Println()
	fmt.Println()
}

func printStatus(eng *engine.Engine) {
	switch {
	case eng.IsDraw():
		fmt.Println("Result: draw")
	case eng.IsOver():
		fmt.Printf("Result: %s wins\n", eng.Winner())
	default:
		fmt.Printf("To move: %s\n", eng.CurrentSide())
	}
}

func printAnalysis(eng *engine.Engine) {
	side := eng.CurrentSide()
	player := bot.New(side)

	fmt.Printf("Analysis for %s:\n", side)
	for _, col := range eng.Board().LegalColumns() {
		marker := ""
		if winsAt(eng.Board(), col, side) {
			marker = "  (winning move)"
		} else if winsAt(eng.Board(), col, side.Opponent()) {
			marker = "  (must block)"
		}
		fmt.Printf("  column %d: score %6.1f%s\n", col, player.ScoreColumn(eng.Board(), col), marker)
	}

	if choice, ok := player.ChooseMove(eng.Board()); ok {
		fmt.Printf("Bot plays: column %d\n", choice)
	}
}

// winsAt reports whether dropping side's piece in col completes a line.
func winsAt(b engine.Board, col int, side engine.Cell) bool {
	row := b.DropRow(col)
	if row < 0 {
		return false
	}
	b[row][col] = side
	won := b.WinningAt(row, col)
	b[row][col] = engine.Empty
	return won
}
