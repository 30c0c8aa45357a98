package service

import (
	"context"
	"time"
)

// Conn is one live client connection. Send must not block the caller:
// implementations queue or drop. IsOpen reports whether the peer is still
// reachable; closed connections are pruned by the hub.
type Conn interface {
	Send(v any) error
	IsOpen() bool
}

// GameRecord is the persisted summary of one finished match.
type GameRecord struct {
	GameID      string
	SideA       string
	SideB       string
	Winner      string // identity or "draw"
	Duration    int64  // seconds
	CompletedAt time.Time
}

// Standing is one leaderboard row.
type Standing struct {
	Username    string    `json:"username"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	GamesPlayed int       `json:"games_played"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PersistenceStore records finished games and win/loss standings. Calls are
// best-effort: the hub logs failures and never rolls back in-memory state.
type PersistenceStore interface {
	SaveGame(ctx context.Context, rec GameRecord) error
	UpsertStanding(ctx context.Context, identity string, won bool) error
}

// StandingsReader serves the read side of the leaderboard.
type StandingsReader interface {
	TopStandings(ctx context.Context, limit int) ([]Standing, error)
	RecentGames(ctx context.Context, limit int) ([]GameRecord, error)
}

// EventPublisher emits domain events (game_started, move_made, game_won,
// game_drawn, player_disconnected). Publish must never block gameplay.
type EventPublisher interface {
	Publish(eventType string, payload any)
}
