package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/dropfour/dropfour/game/service"
	"github.com/dropfour/dropfour/game/session"
	"github.com/dropfour/dropfour/transport/websocket"
)

const defaultLimit = 10

// Server is the REST API server.
type Server struct {
	hub       *session.Hub
	gateway   *websocket.Gateway
	standings service.StandingsReader // nil when running without a database
	router    *mux.Router
}

// NewServer creates an API server. standings may be nil, which turns the
// leaderboard endpoints into 503s.
func NewServer(hub *session.Hub, gateway *websocket.Gateway, standings service.StandingsReader) *Server {
	s := &Server{
		hub:       hub,
		gateway:   gateway,
		standings: standings,
		router:    mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET")
	api.HandleFunc("/games/recent", s.handleRecentGames).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.gateway.ServeWS)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func limitParam(r *http.Request) int {
	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	return limit
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	waiting, active, connected := s.hub.Stats()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "healthy",
		"waiting_players":   waiting,
		"active_games":      active,
		"connected_players": connected,
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.standings == nil {
		respondError(w, http.StatusServiceUnavailable, "Leaderboard is not available")
		return
	}

	standings, err := s.standings.TopStandings(r.Context(), limitParam(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(standings),
		"standings": standings,
	})
}

func (s *Server) handleRecentGames(w http.ResponseWriter, r *http.Request) {
	if s.standings == nil {
		respondError(w, http.StatusServiceUnavailable, "Game history is not available")
		return
	}

	games, err := s.standings.RecentGames(r.Context(), limitParam(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type gameView struct {
		GameID      string `json:"game_id"`
		Player1     string `json:"player1"`
		Player2     string `json:"player2"`
		Winner      string `json:"winner"`
		Duration    int64  `json:"duration"`
		CompletedAt string `json:"completed_at"`
	}

	views := make([]gameView, 0, len(games))
	for _, g := range games {
		views = append(views, gameView{
			GameID:      g.GameID,
			Player1:     g.SideA,
			Player2:     g.SideB,
			Winner:      g.Winner,
			Duration:    g.Duration,
			CompletedAt: g.CompletedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(views),
		"games": views,
	})
}
