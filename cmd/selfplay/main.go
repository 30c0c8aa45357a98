// Command selfplay pits the bot heuristic against itself for a number of
// games and reports the outcome distribution and game lengths. Useful for
// eyeballing heuristic changes: a healthy bot should rarely lose to itself
// by missing a block and should not produce degenerate ultra-short games.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dropfour/dropfour/game/bot"
	"github.com/dropfour/dropfour/game/engine"
)

func main() {
	games := 100
	if len(os.Args) > 1 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n <= 0 {
			fmt.Fprintf(os.Stderr, "Usage: %s [games]\n", os.Args[0])
			os.Exit(1)
		}
		games = n
	}

	var winsA, winsB, draws int
	totalMoves := 0
	shortest, longest := engine.Rows*engine.Cols+1, 0

	for i := 0; i < games; i++ {
		winner, moves, err := playOne()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Game %d failed: %v\n", i+1, err)
			os.Exit(1)
		}

		switch winner {
		case engine.SideA:
			winsA++
		case engine.SideB:
			winsB++
		default:
			draws++
		}

		totalMoves += moves
		if moves < shortest {
			shortest = moves
		}
		if moves > longest {
			longest = moves
		}
	}

	fmt.Printf("Games:        %d\n", games)
	fmt.Printf("Player 1:     %d (%.1f%%)\n", winsA, percent(winsA, games))
	fmt.Printf("Player 2:     %d (%.1f%%)\n", winsB, percent(winsB, games))
	fmt.Printf("Draws:        %d (%.1f%%)\n", draws, percent(draws, games))
	fmt.Printf("Moves/game:   %.1f avg, %d min, %d max\n",
		float64(totalMoves)/float64(games), shortest, longest)
}

// playOne runs a single bot-vs-bot game to completion. The returned winner
// is Empty for a draw.
func playOne() (engine.Cell, int, error) {
	eng := engine.New()
	players := map[engine.Cell]*bot.Player{
		engine.SideA: bot.New(engine.SideA),
		engine.SideB: bot.New(engine.SideB),
	}

	moves := 0
	for !eng.IsOver() {
		col, ok := players[eng.CurrentSide()].ChooseMove(eng.Board())
		if !ok {
			return engine.Empty, moves, fmt.Errorf("no legal move on a non-terminal board after %d moves", moves)
		}
		if _, err := eng.ApplyMove(col); err != nil {
			return engine.Empty, moves, fmt.Errorf("move %d rejected: %w", moves+1, err)
		}
		moves++
	}

	if eng.IsDraw() {
		return engine.Empty, moves, nil
	}
	return eng.Winner(), moves, nil
}

func percent(n, total int) float64 {
	return float64(n) / float64(total) * 100
}
