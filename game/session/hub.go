package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropfour/dropfour/game/bot"
	"github.com/dropfour/dropfour/game/engine"
	"github.com/dropfour/dropfour/game/service"
	"github.com/dropfour/dropfour/logger"
)

var (
	ErrSessionNotFound = errors.New("game not found")
	ErrNotYourTurn     = errors.New("not your turn")
)

const (
	waitingMessage = "Waiting for opponent..."

	drawMessage = "Draw! Well played."
	winMessage  = "You Win!"
	loseMessage = "You Lose. Better luck next time!"

	// persistTimeout bounds each best-effort write of a finished game.
	persistTimeout = 5 * time.Second
)

// Config holds the hub's timer durations.
type Config struct {
	MatchmakingTimeout time.Duration
	ReconnectGrace     time.Duration
	BotMoveDelay       time.Duration
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		MatchmakingTimeout: 10 * time.Second,
		ReconnectGrace:     30 * time.Second,
		BotMoveDelay:       500 * time.Millisecond,
	}
}

// waitingEntry is one player queued for matchmaking.
type waitingEntry struct {
	identity   string
	conn       service.Conn
	enqueuedAt time.Time
	timer      *time.Timer
}

// disconnectRecord holds a player's session open during the grace window.
type disconnectRecord struct {
	identity string
	session  *Session
	timer    *time.Timer
}

// Hub is the session lifecycle manager. All fields are guarded by mu; every
// event and timer callback runs to completion under it.
type Hub struct {
	mu           sync.Mutex
	cfg          Config
	waiting      []*waitingEntry
	games        map[string]*Session
	conns        map[string][]service.Conn
	disconnected map[string]*disconnectRecord
	store        service.PersistenceStore // nil disables persistence
	publisher    service.EventPublisher   // nil disables events
}

// New creates a hub. store and publisher may be nil, which turns the
// corresponding side effects off.
func New(cfg Config, store service.PersistenceStore, publisher service.EventPublisher) *Hub {
	return &Hub{
		cfg:          cfg,
		games:        make(map[string]*Session),
		conns:        make(map[string][]service.Conn),
		disconnected: make(map[string]*disconnectRecord),
		store:        store,
		publisher:    publisher,
	}
}

// HandleConnect registers a new connection for identity. A player returning
// within the grace window is restored to their session; everyone else goes
// through matchmaking.
func (h *Hub) HandleConnect(identity string, conn service.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[identity] = append(h.conns[identity], conn)
	logger.InfoF("player connected: %s", identity)

	if rec, ok := h.disconnected[identity]; ok {
		rec.timer.Stop()
		delete(h.disconnected, identity)
	}

	// An identity with a running game rejoins it, whether this is a
	// reconnect after a drop or an extra tab alongside a live one.
	if sess := h.findSessionLocked(identity); sess != nil {
		h.send(conn, service.NewReconnected(
			sess.ID,
			sess.Engine.Board(),
			sess.Engine.CurrentSide(),
			sess.SideOf(identity),
		))
		logger.InfoF("player reconnected to game %s: %s", sess.ID, identity)
		return
	}

	// Already queued on another connection: acknowledge, do not double-queue.
	for _, e := range h.waiting {
		if e.identity == identity {
			h.send(conn, service.NewWaiting(waitingMessage))
			return
		}
	}

	h.enqueueLocked(identity, conn)
}

// enqueueLocked pairs identity with the queue head, or parks it with a
// matchmaking timer when the queue is empty.
func (h *Hub) enqueueLocked(identity string, conn service.Conn) {
	if len(h.waiting) > 0 {
		head := h.waiting[0]
		h.waiting = h.waiting[1:]
		if head.timer != nil {
			head.timer.Stop()
		}
		h.startSessionLocked(head.identity, head.conn, identity, conn, false)
		return
	}

	entry := &waitingEntry{identity: identity, conn: conn, enqueuedAt: time.Now()}
	h.waiting = append(h.waiting, entry)
	h.send(conn, service.NewWaiting(waitingMessage))

	entry.timer = time.AfterFunc(h.cfg.MatchmakingTimeout, func() {
		h.matchmakingExpired(entry)
	})
}

// matchmakingExpired converts a still-queued entry into a bot match. An
// entry paired before the timer won the lock is left alone.
func (h *Hub) matchmakingExpired(entry *waitingEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx := -1
	for i, e := range h.waiting {
		if e == entry {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	h.waiting = append(h.waiting[:idx], h.waiting[idx+1:]...)

	h.startSessionLocked(entry.identity, entry.conn, BotIdentity, nil, true)
}

// startSessionLocked creates and registers a session. The first player
// always takes SideA. Each human gets a gameStart on the connection that
// brought them here.
func (h *Hub) startSessionLocked(p1 string, conn1 service.Conn, p2 string, conn2 service.Conn, isBot bool) {
	sess := &Session{
		ID:         uuid.NewString(),
		SlotA:      Participant{Identity: p1},
		SlotB:      Participant{Identity: p2, IsBot: isBot},
		Engine:     engine.New(),
		IsBot:      isBot,
		StartedAt:  time.Now(),
		LastMoveAt: time.Now(),
	}
	if isBot {
		sess.Bot = bot.New(engine.SideB)
	}
	h.games[sess.ID] = sess

	h.send(conn1, service.NewGameStart(sess.ID, p2, engine.SideA, sess.Engine.Board(), sess.Engine.CurrentSide()))
	if !isBot {
		h.send(conn2, service.NewGameStart(sess.ID, p1, engine.SideB, sess.Engine.Board(), sess.Engine.CurrentSide()))
	}

	h.publish("game_started", map[string]any{
		"gameId":  sess.ID,
		"player1": p1,
		"player2": p2,
	})
	logger.InfoF("game started: %s - %s vs %s", sess.ID, p1, p2)
}

// HandleMove applies one column drop on behalf of identity. The returned
// error goes to the caller only; successful moves are broadcast to every
// connection of both human participants.
func (h *Hub) HandleMove(identity, gameID string, column int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	sess, ok := h.games[gameID]
	if !ok {
		return ErrSessionNotFound
	}

	side := sess.SideOf(identity)
	if side == engine.Empty || sess.Engine.CurrentSide() != side {
		return ErrNotYourTurn
	}

	res, err := sess.Engine.ApplyMove(column)
	if err != nil {
		return err
	}

	h.moveAppliedLocked(sess, identity, side, res)
	return nil
}

// moveAppliedLocked runs the shared post-move path for human and bot moves:
// bookkeeping, event, broadcast, then either session end or bot scheduling.
func (h *Hub) moveAppliedLocked(sess *Session, mover string, side engine.Cell, res engine.MoveResult) {
	sess.LastMoveAt = time.Now()

	if res.GameOver {
		if res.Draw {
			sess.Winner = WinnerDraw
		} else {
			sess.Winner = sess.IdentityOf(res.Winner)
		}
	}

	h.publish("move_made", map[string]any{
		"gameId": sess.ID,
		"player": mover,
		"column": res.Column,
		"row":    res.Row,
	})

	h.broadcastLocked(sess, service.NewMoveMade(res.Column, res.Row, side, sess.Engine.Board(), sess.Engine.CurrentSide()))

	if res.GameOver {
		h.endSessionLocked(sess)
		return
	}

	if sess.IsBot && sess.Engine.CurrentSide() == sess.Bot.Side() {
		gameID := sess.ID
		time.AfterFunc(h.cfg.BotMoveDelay, func() {
			h.botMove(gameID)
		})
	}
}

// botMove plays the bot's turn after the pacing delay. The session may have
// ended (or been forfeited) in the meantime, so it re-checks before acting.
func (h *Hub) botMove(gameID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sess, ok := h.games[gameID]
	if !ok || sess.Engine.IsOver() {
		return
	}

	col, ok := sess.Bot.ChooseMove(sess.Engine.Board())
	if !ok {
		return
	}

	res, err := sess.Engine.ApplyMove(col)
	if err != nil {
		logger.WarnF("bot move rejected in game %s: %v", gameID, err)
		return
	}

	h.moveAppliedLocked(sess, BotIdentity, sess.Bot.Side(), res)
}

// HandleDisconnect prunes one dropped connection. When it was the
// identity's last connection and a game is running, a reconnect-grace
// timer starts; expiry forfeits the game to the opponent.
func (h *Hub) HandleDisconnect(identity string, conn service.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	logger.InfoF("player disconnected: %s", identity)

	// A queued player that drops leaves matchmaking entirely.
	for i, e := range h.waiting {
		if e.identity == identity {
			if e.timer != nil {
				e.timer.Stop()
			}
			h.waiting = append(h.waiting[:i], h.waiting[i+1:]...)
			break
		}
	}

	remaining := make([]service.Conn, 0, len(h.conns[identity]))
	for _, c := range h.conns[identity] {
		if c != conn && c.IsOpen() {
			remaining = append(remaining, c)
		}
	}
	if len(remaining) == 0 {
		delete(h.conns, identity)
	} else {
		h.conns[identity] = remaining
		// Another tab is still attached; the session stays live.
		return
	}

	sess := h.findSessionLocked(identity)
	if sess == nil || sess.Engine.IsOver() {
		return
	}
	if _, ok := h.disconnected[identity]; ok {
		return
	}

	h.publish("player_disconnected", map[string]any{
		"gameId": sess.ID,
		"player": identity,
	})
	h.sendToIdentity(sess.OpponentOf(identity), service.NewDisconnected())

	rec := &disconnectRecord{identity: identity, session: sess}
	rec.timer = time.AfterFunc(h.cfg.ReconnectGrace, func() {
		h.graceExpired(rec)
	})
	h.disconnected[identity] = rec
}

// graceExpired forfeits the session to the opponent unless the player
// reconnected or the game ended while the timer was pending.
func (h *Hub) graceExpired(rec *disconnectRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.disconnected[rec.identity] != rec {
		return
	}
	delete(h.disconnected, rec.identity)

	sess := rec.session
	if _, ok := h.games[sess.ID]; !ok {
		return
	}
	if sess.Engine.IsOver() {
		return
	}

	winner := sess.OpponentOf(rec.identity)
	sess.Winner = winner
	sess.Engine.Forfeit(sess.SideOf(winner))
	logger.InfoF("game %s forfeited by %s", sess.ID, rec.identity)

	h.endSessionLocked(sess)
}

// endSessionLocked publishes the outcome, notifies every live connection of
// each human participant, kicks off best-effort persistence, and removes
// the session from the registry.
func (h *Hub) endSessionLocked(sess *Session) {
	duration := int64(time.Since(sess.StartedAt).Seconds())
	p1, p2 := sess.SlotA.Identity, sess.SlotB.Identity

	if sess.Winner == WinnerDraw {
		h.publish("game_drawn", map[string]any{
			"gameId":   sess.ID,
			"player1":  p1,
			"player2":  p2,
			"duration": duration,
		})
	} else {
		loser := sess.OpponentOf(sess.Winner)
		h.publish("game_won", map[string]any{
			"gameId":   sess.ID,
			"winner":   sess.Winner,
			"loser":    loser,
			"duration": duration,
		})
	}

	for _, identity := range sess.HumanIdentities() {
		h.sendToIdentity(identity, service.NewGameOver(
			sess.Winner,
			sess.Engine.Board(),
			outcomeMessage(sess.Winner, identity),
			sess.SideOf(identity),
		))
	}

	if h.store != nil {
		rec := service.GameRecord{
			GameID:      sess.ID,
			SideA:       p1,
			SideB:       p2,
			Winner:      sess.Winner,
			Duration:    duration,
			CompletedAt: time.Now(),
		}
		go h.persistOutcome(rec, sess.HumanIdentities())
	}

	delete(h.games, sess.ID)
	logger.InfoF("game finished: %s - winner: %s", sess.ID, sess.Winner)
}

// persistOutcome writes the game record and standings off the hub's control
// path. Failures are logged; the session is already gone from memory.
// Drawn games leave standings untouched, and the bot never gets a row.
func (h *Hub) persistOutcome(rec service.GameRecord, humans []string) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := h.store.SaveGame(ctx, rec); err != nil {
		logger.ErrorF("failed to save game %s: %v", rec.GameID, err)
	}

	if rec.Winner == WinnerDraw {
		return
	}
	for _, identity := range humans {
		if err := h.store.UpsertStanding(ctx, identity, identity == rec.Winner); err != nil {
			logger.ErrorF("failed to update standing for %s: %v", identity, err)
		}
	}
}

// outcomeMessage phrases the game-over notification for one identity.
func outcomeMessage(winner, identity string) string {
	switch winner {
	case WinnerDraw:
		return drawMessage
	case identity:
		return winMessage
	default:
		return loseMessage
	}
}

// findSessionLocked returns the active session containing identity as a
// human participant, if any.
func (h *Hub) findSessionLocked(identity string) *Session {
	for _, sess := range h.games {
		if sess.HasHuman(identity) {
			return sess
		}
	}
	return nil
}

// broadcastLocked fans a message out to every connection of both human
// participants. The bot has no connections.
func (h *Hub) broadcastLocked(sess *Session, msg any) {
	h.sendToIdentity(sess.SlotA.Identity, msg)
	if !sess.IsBot {
		h.sendToIdentity(sess.SlotB.Identity, msg)
	}
}

// sendToIdentity delivers to every open connection registered for identity.
func (h *Hub) sendToIdentity(identity string, msg any) {
	for _, c := range h.conns[identity] {
		h.send(c, msg)
	}
}

// send is fire-and-forget: closed connections are skipped and send errors
// only logged.
func (h *Hub) send(conn service.Conn, msg any) {
	if conn == nil || !conn.IsOpen() {
		return
	}
	if err := conn.Send(msg); err != nil {
		logger.WarnF("send failed: %v", err)
	}
}

// publish forwards an event to the publisher when one is configured.
func (h *Hub) publish(eventType string, payload any) {
	if h.publisher != nil {
		h.publisher.Publish(eventType, payload)
	}
}

// Stats reports queue depth, active sessions, and connected identities.
func (h *Hub) Stats() (waiting, active, connected int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.waiting), len(h.games), len(h.conns)
}
