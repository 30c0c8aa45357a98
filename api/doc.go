// Package api provides the HTTP surface of the server.
//
// Endpoints:
//   - GET /health - liveness probe with hub statistics
//   - GET /api/leaderboard - top standings sorted by wins
//   - GET /api/games/recent - latest finished games
//   - GET /ws - WebSocket upgrade for gameplay
//
// Leaderboard endpoints answer 503 when the server runs without a
// database.
package api
