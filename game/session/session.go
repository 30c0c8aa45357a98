package session

import (
	"time"

	"github.com/dropfour/dropfour/game/bot"
	"github.com/dropfour/dropfour/game/engine"
)

const (
	// BotIdentity is the synthetic identity of the automated opponent. It
	// never appears in the connection registry or in standings.
	BotIdentity = "bot"

	// WinnerDraw marks a drawn game in records and notifications.
	WinnerDraw = "draw"
)

// Participant is one side of a session.
type Participant struct {
	Identity string
	IsBot    bool
}

// Session is one match between two sides. SlotA always holds a human and
// plays SideA; SlotB holds the second human or the bot and plays SideB.
type Session struct {
	ID         string
	SlotA      Participant
	SlotB      Participant
	Engine     *engine.Engine
	Bot        *bot.Player // set when IsBot
	IsBot      bool
	Winner     string // identity or WinnerDraw, set when the game ends
	StartedAt  time.Time
	LastMoveAt time.Time
}

// SideOf maps an identity to its assigned side, or Empty for strangers.
func (s *Session) SideOf(identity string) engine.Cell {
	switch identity {
	case s.SlotA.Identity:
		return engine.SideA
	case s.SlotB.Identity:
		return engine.SideB
	}
	return engine.Empty
}

// IdentityOf maps a side back to the identity occupying it.
func (s *Session) IdentityOf(side engine.Cell) string {
	switch side {
	case engine.SideA:
		return s.SlotA.Identity
	case engine.SideB:
		return s.SlotB.Identity
	}
	return ""
}

// OpponentOf returns the identity facing the given participant.
func (s *Session) OpponentOf(identity string) string {
	if identity == s.SlotA.Identity {
		return s.SlotB.Identity
	}
	return s.SlotA.Identity
}

// HasHuman reports whether identity occupies a non-bot slot.
func (s *Session) HasHuman(identity string) bool {
	if s.SlotA.Identity == identity && !s.SlotA.IsBot {
		return true
	}
	return s.SlotB.Identity == identity && !s.SlotB.IsBot
}

// HumanIdentities returns the non-bot participants.
func (s *Session) HumanIdentities() []string {
	ids := make([]string, 0, 2)
	if !s.SlotA.IsBot {
		ids = append(ids, s.SlotA.Identity)
	}
	if !s.SlotB.IsBot {
		ids = append(ids, s.SlotB.Identity)
	}
	return ids
}
