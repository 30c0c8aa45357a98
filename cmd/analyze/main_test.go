package main

import (
	"testing"

	"github.com/dropfour/dropfour/game/engine"
)

func TestReplayAppliesMoves(t *testing.T) {
	eng, err := replay("334")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	b := eng.Board()
	if b[engine.Rows-1][3] != engine.SideA {
		t.Error("First move must land for player 1 in column 3")
	}
	if b[engine.Rows-2][3] != engine.SideB {
		t.Error("Second move must stack for player 2 in column 3")
	}
	if b[engine.Rows-1][4] != engine.SideA {
		t.Error("Third move must land for player 1 in column 4")
	}
	if eng.CurrentSide() != engine.SideB {
		t.Errorf("Expected player 2 to move, got %v", eng.CurrentSide())
	}
}

func TestReplayEmptySequence(t *testing.T) {
	eng, err := replay("")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if eng.CurrentSide() != engine.SideA {
		t.Errorf("Fresh game must start with player 1, got %v", eng.CurrentSide())
	}
}

func TestReplayRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		moves string
	}{
		{"non-digit", "3a4"},
		{"out of range column", "9"},
		{"overfull column", "0000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := replay(tt.moves); err == nil {
				t.Errorf("Expected error for %q", tt.moves)
			}
		})
	}
}

func TestWinsAtDetectsCompletion(t *testing.T) {
	// Player 1 has three in a row on the bottom.
	eng, err := replay("061626")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	b := eng.Board()
	if !winsAt(b, 3, engine.SideA) {
		t.Error("Column 3 must complete the horizontal line")
	}
	if winsAt(b, 5, engine.SideA) {
		t.Error("Column 5 must not be a winning move")
	}

	// The probe must leave the board untouched.
	if b[b.DropRow(3)][3] != engine.Empty {
		t.Error("winsAt must restore the board")
	}
}
