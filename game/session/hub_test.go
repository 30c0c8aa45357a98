package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dropfour/dropfour/game/engine"
	"github.com/dropfour/dropfour/game/service"
)

// fakeConn records everything sent through it.
type fakeConn struct {
	mu     sync.Mutex
	sent   []any
	closed bool
}

func (c *fakeConn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, v)
	return nil
}

func (c *fakeConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *fakeConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) messages() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeConn) lastGameStart() (service.GameStart, bool) {
	for _, m := range c.messages() {
		if gs, ok := m.(service.GameStart); ok {
			return gs, true
		}
	}
	return service.GameStart{}, false
}

func (c *fakeConn) countMoveMade() int {
	n := 0
	for _, m := range c.messages() {
		if _, ok := m.(service.MoveMade); ok {
			n++
		}
	}
	return n
}

func (c *fakeConn) lastGameOver() (service.GameOver, bool) {
	for _, m := range c.messages() {
		if g, ok := m.(service.GameOver); ok {
			return g, true
		}
	}
	return service.GameOver{}, false
}

type standingCall struct {
	identity string
	won      bool
}

// fakeStore records persistence calls.
type fakeStore struct {
	mu        sync.Mutex
	games     []service.GameRecord
	standings []standingCall
}

func (s *fakeStore) SaveGame(_ context.Context, rec service.GameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games = append(s.games, rec)
	return nil
}

func (s *fakeStore) UpsertStanding(_ context.Context, identity string, won bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.standings = append(s.standings, standingCall{identity: identity, won: won})
	return nil
}

func (s *fakeStore) savedGames() []service.GameRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]service.GameRecord, len(s.games))
	copy(out, s.games)
	return out
}

func (s *fakeStore) standingCalls() []standingCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]standingCall, len(s.standings))
	copy(out, s.standings)
	return out
}

type publishedEvent struct {
	eventType string
	payload   any
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{eventType: eventType, payload: payload})
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.eventType)
	}
	return out
}

func (p *fakePublisher) has(eventType string) bool {
	for _, t := range p.types() {
		if t == eventType {
			return true
		}
	}
	return false
}

func testConfig() Config {
	return Config{
		MatchmakingTimeout: 40 * time.Millisecond,
		ReconnectGrace:     40 * time.Millisecond,
		BotMoveDelay:       5 * time.Millisecond,
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestHubPairsPlayersInOrder(t *testing.T) {
	hub := New(testConfig(), nil, nil)
	alice, bob := &fakeConn{}, &fakeConn{}

	hub.HandleConnect("alice", alice)

	if _, ok := alice.messages()[0].(service.Waiting); !ok {
		t.Fatalf("First queued player must receive waiting, got %T", alice.messages()[0])
	}

	hub.HandleConnect("bob", bob)

	gsA, ok := alice.lastGameStart()
	if !ok {
		t.Fatal("Alice did not receive gameStart")
	}
	gsB, ok := bob.lastGameStart()
	if !ok {
		t.Fatal("Bob did not receive gameStart")
	}

	if gsA.GameID != gsB.GameID {
		t.Errorf("Players landed in different games: %s vs %s", gsA.GameID, gsB.GameID)
	}
	if gsA.YourSide != engine.SideA {
		t.Errorf("First player must take SideA, got %v", gsA.YourSide)
	}
	if gsB.YourSide != engine.SideB {
		t.Errorf("Second player must take SideB, got %v", gsB.YourSide)
	}
	if gsA.Opponent != "bob" || gsB.Opponent != "alice" {
		t.Errorf("Opponents wrong: %s / %s", gsA.Opponent, gsB.Opponent)
	}

	waiting, active, _ := hub.Stats()
	if waiting != 0 || active != 1 {
		t.Errorf("Expected empty queue and one game, got %d/%d", waiting, active)
	}
}

func TestHubMatchmakingTimeoutStartsBotGame(t *testing.T) {
	hub := New(testConfig(), nil, &fakePublisher{})
	alice := &fakeConn{}

	hub.HandleConnect("alice", alice)

	waitFor(t, "bot gameStart", func() bool {
		_, ok := alice.lastGameStart()
		return ok
	})

	gs, _ := alice.lastGameStart()
	if gs.Opponent != BotIdentity {
		t.Errorf("Expected bot opponent, got %s", gs.Opponent)
	}
	if gs.YourSide != engine.SideA {
		t.Errorf("Human must take SideA against the bot, got %v", gs.YourSide)
	}

	waiting, active, _ := hub.Stats()
	if waiting != 0 || active != 1 {
		t.Errorf("Expected empty queue and one game, got %d/%d", waiting, active)
	}
}

func TestHubMatchmakingTimerNoopAfterPairing(t *testing.T) {
	hub := New(testConfig(), nil, nil)
	alice, bob := &fakeConn{}, &fakeConn{}

	hub.HandleConnect("alice", alice)

	hub.mu.Lock()
	entry := hub.waiting[0]
	hub.mu.Unlock()

	hub.HandleConnect("bob", bob)

	// Simulate the timer firing after the pairing already happened.
	hub.matchmakingExpired(entry)

	_, active, _ := hub.Stats()
	if active != 1 {
		t.Errorf("Stale matchmaking timer must not start a second game, got %d games", active)
	}
}

func TestHubBotRespondsOncePerHumanMove(t *testing.T) {
	hub := New(testConfig(), nil, nil)
	alice := &fakeConn{}

	hub.HandleConnect("alice", alice)
	waitFor(t, "bot gameStart", func() bool {
		_, ok := alice.lastGameStart()
		return ok
	})
	gs, _ := alice.lastGameStart()

	if err := hub.HandleMove("alice", gs.GameID, 0); err != nil {
		t.Fatalf("HandleMove failed: %v", err)
	}

	waitFor(t, "bot reply", func() bool {
		return alice.countMoveMade() >= 2
	})

	// Give a stray second bot move time to show up if one were scheduled.
	time.Sleep(5 * testConfig().BotMoveDelay)
	if n := alice.countMoveMade(); n != 2 {
		t.Errorf("Expected exactly 2 moves after one human move, got %d", n)
	}
}

func TestHubMoveErrors(t *testing.T) {
	hub := New(testConfig(), nil, nil)
	alice, bob := &fakeConn{}, &fakeConn{}

	hub.HandleConnect("alice", alice)
	hub.HandleConnect("bob", bob)
	gs, _ := alice.lastGameStart()

	t.Run("unknown game", func(t *testing.T) {
		if err := hub.HandleMove("alice", "nope", 0); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("out of turn", func(t *testing.T) {
		if err := hub.HandleMove("bob", gs.GameID, 0); err != ErrNotYourTurn {
			t.Errorf("Expected ErrNotYourTurn, got %v", err)
		}
	})

	t.Run("stranger", func(t *testing.T) {
		if err := hub.HandleMove("mallory", gs.GameID, 0); err != ErrNotYourTurn {
			t.Errorf("Expected ErrNotYourTurn, got %v", err)
		}
	})

	t.Run("invalid column", func(t *testing.T) {
		if err := hub.HandleMove("alice", gs.GameID, 99); err != engine.ErrInvalidColumn {
			t.Errorf("Expected ErrInvalidColumn, got %v", err)
		}
	})

	if alice.countMoveMade() != 0 || bob.countMoveMade() != 0 {
		t.Error("Rejected moves must not be broadcast")
	}
}

func TestHubWinFlow(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	hub := New(testConfig(), store, pub)
	alice, bob := &fakeConn{}, &fakeConn{}

	hub.HandleConnect("alice", alice)
	hub.HandleConnect("bob", bob)
	gs, _ := alice.lastGameStart()

	// Alice builds a horizontal row while bob stacks the edge.
	moves := []struct {
		identity string
		column   int
	}{
		{"alice", 0}, {"bob", 6},
		{"alice", 1}, {"bob", 6},
		{"alice", 2}, {"bob", 6},
		{"alice", 3},
	}
	for _, m := range moves {
		if err := hub.HandleMove(m.identity, gs.GameID, m.column); err != nil {
			t.Fatalf("HandleMove(%s, %d) failed: %v", m.identity, m.column, err)
		}
	}

	goA, ok := alice.lastGameOver()
	if !ok {
		t.Fatal("Winner did not receive gameOver")
	}
	goB, ok := bob.lastGameOver()
	if !ok {
		t.Fatal("Loser did not receive gameOver")
	}

	if goA.Winner != "alice" || goB.Winner != "alice" {
		t.Errorf("Both notifications must name alice, got %s / %s", goA.Winner, goB.Winner)
	}
	if goA.Message != "You Win!" {
		t.Errorf("Winner message wrong: %q", goA.Message)
	}
	if goB.Message != "You Lose. Better luck next time!" {
		t.Errorf("Loser message wrong: %q", goB.Message)
	}

	if !pub.has("game_started") || !pub.has("game_won") {
		t.Errorf("Missing lifecycle events, got %v", pub.types())
	}

	waitFor(t, "persisted outcome", func() bool {
		return len(store.savedGames()) == 1 && len(store.standingCalls()) == 2
	})

	rec := store.savedGames()[0]
	if rec.Winner != "alice" || rec.SideA != "alice" || rec.SideB != "bob" {
		t.Errorf("Unexpected game record: %+v", rec)
	}
	for _, call := range store.standingCalls() {
		if call.won != (call.identity == "alice") {
			t.Errorf("Standing call wrong: %+v", call)
		}
	}

	_, active, _ := hub.Stats()
	if active != 0 {
		t.Errorf("Finished game must leave the registry, got %d active", active)
	}

	if err := hub.HandleMove("alice", gs.GameID, 4); err != ErrSessionNotFound {
		t.Errorf("Moves after the end must fail with ErrSessionNotFound, got %v", err)
	}
}

func TestHubBotGameUpdatesOnlyHumanStanding(t *testing.T) {
	store := &fakeStore{}
	hub := New(testConfig(), store, nil)
	alice := &fakeConn{}

	hub.HandleConnect("alice", alice)
	waitFor(t, "bot gameStart", func() bool {
		_, ok := alice.lastGameStart()
		return ok
	})
	gs, _ := alice.lastGameStart()

	// Drive the session to an end by forfeiting it.
	hub.mu.Lock()
	sess := hub.games[gs.GameID]
	sess.Winner = "alice"
	sess.Engine.Forfeit(engine.SideA)
	hub.endSessionLocked(sess)
	hub.mu.Unlock()

	waitFor(t, "persisted standings", func() bool {
		return len(store.standingCalls()) > 0
	})

	calls := store.standingCalls()
	if len(calls) != 1 {
		t.Fatalf("Expected exactly one standing update, got %d", len(calls))
	}
	if calls[0].identity != "alice" || !calls[0].won {
		t.Errorf("Expected a win for alice, got %+v", calls[0])
	}
}

func TestHubReconnectWithinGrace(t *testing.T) {
	pub := &fakePublisher{}
	hub := New(testConfig(), nil, pub)
	alice, bob := &fakeConn{}, &fakeConn{}

	hub.HandleConnect("alice", alice)
	hub.HandleConnect("bob", bob)
	gs, _ := alice.lastGameStart()

	alice.close()
	hub.HandleDisconnect("alice", alice)

	waitFor(t, "opponent disconnect notice", func() bool {
		for _, m := range bob.messages() {
			if _, ok := m.(service.Disconnected); ok {
				return true
			}
		}
		return false
	})
	if !pub.has("player_disconnected") {
		t.Errorf("Missing player_disconnected event, got %v", pub.types())
	}

	alice2 := &fakeConn{}
	hub.HandleConnect("alice", alice2)

	msgs := alice2.messages()
	if len(msgs) != 1 {
		t.Fatalf("Expected exactly one message on reconnect, got %d", len(msgs))
	}
	rc, ok := msgs[0].(service.Reconnected)
	if !ok {
		t.Fatalf("Expected reconnected, got %T", msgs[0])
	}
	if rc.GameID != gs.GameID || rc.YourSide != engine.SideA {
		t.Errorf("Reconnected payload wrong: %+v", rc)
	}

	// The grace timer must not fire after the reconnect.
	time.Sleep(3 * testConfig().ReconnectGrace)
	_, active, _ := hub.Stats()
	if active != 1 {
		t.Errorf("Reconnected game must stay active, got %d", active)
	}

	if err := hub.HandleMove("alice", gs.GameID, 0); err != nil {
		t.Errorf("Move after reconnect failed: %v", err)
	}
}

func TestHubGraceExpiryForfeits(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	hub := New(testConfig(), store, pub)
	alice, bob := &fakeConn{}, &fakeConn{}

	hub.HandleConnect("alice", alice)
	hub.HandleConnect("bob", bob)

	alice.close()
	hub.HandleDisconnect("alice", alice)

	waitFor(t, "forfeit", func() bool {
		_, active, _ := hub.Stats()
		return active == 0
	})

	gameOver, ok := bob.lastGameOver()
	if !ok {
		t.Fatal("Remaining player did not receive gameOver")
	}
	if gameOver.Winner != "bob" {
		t.Errorf("Forfeit must award the opponent, got %s", gameOver.Winner)
	}
	if !pub.has("game_won") {
		t.Errorf("Missing game_won event, got %v", pub.types())
	}

	waitFor(t, "persisted forfeit", func() bool {
		return len(store.savedGames()) == 1
	})
	if rec := store.savedGames()[0]; rec.Winner != "bob" {
		t.Errorf("Persisted winner wrong: %+v", rec)
	}
}

func TestHubSecondConnectionKeepsSessionAlive(t *testing.T) {
	hub := New(testConfig(), nil, nil)
	aliceTab1, aliceTab2, bob := &fakeConn{}, &fakeConn{}, &fakeConn{}

	hub.HandleConnect("alice", aliceTab1)
	hub.HandleConnect("bob", bob)
	gs, _ := aliceTab1.lastGameStart()

	// A second tab for a player already in a game rejoins that game.
	hub.HandleConnect("alice", aliceTab2)

	aliceTab1.close()
	hub.HandleDisconnect("alice", aliceTab1)

	// With a live tab remaining no grace timer may be armed.
	time.Sleep(3 * testConfig().ReconnectGrace)
	_, active, _ := hub.Stats()
	if active != 1 {
		t.Fatalf("Session must survive while one connection remains, got %d", active)
	}

	if err := hub.HandleMove("alice", gs.GameID, 0); err != nil {
		t.Fatalf("HandleMove failed: %v", err)
	}
	if aliceTab2.countMoveMade() != 1 {
		t.Error("Surviving connection must receive the broadcast")
	}
	if aliceTab1.countMoveMade() != 0 {
		t.Error("Dropped connection must not receive broadcasts")
	}
}

func TestHubQueuedPlayerDisconnectLeavesQueue(t *testing.T) {
	hub := New(testConfig(), nil, nil)
	alice, bob := &fakeConn{}, &fakeConn{}

	hub.HandleConnect("alice", alice)
	alice.close()
	hub.HandleDisconnect("alice", alice)

	waiting, _, _ := hub.Stats()
	if waiting != 0 {
		t.Fatalf("Disconnected player must leave the queue, got %d waiting", waiting)
	}

	// The vacated queue means bob waits instead of pairing with a ghost.
	hub.HandleConnect("bob", bob)
	if _, ok := bob.messages()[0].(service.Waiting); !ok {
		t.Errorf("Expected waiting, got %T", bob.messages()[0])
	}
}

func TestHubDrawFlow(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	hub := New(testConfig(), store, pub)
	alice, bob := &fakeConn{}, &fakeConn{}

	hub.HandleConnect("alice", alice)
	hub.HandleConnect("bob", bob)
	gs, _ := alice.lastGameStart()

	// End the session as a draw directly; filling a drawn board is engine
	// territory and covered there.
	hub.mu.Lock()
	sess := hub.games[gs.GameID]
	sess.Winner = WinnerDraw
	hub.endSessionLocked(sess)
	hub.mu.Unlock()

	goA, ok := alice.lastGameOver()
	if !ok {
		t.Fatal("Missing gameOver after draw")
	}
	if goA.Winner != WinnerDraw || goA.Message != "Draw! Well played." {
		t.Errorf("Draw notification wrong: %+v", goA)
	}
	if !pub.has("game_drawn") {
		t.Errorf("Missing game_drawn event, got %v", pub.types())
	}

	waitFor(t, "persisted draw", func() bool {
		return len(store.savedGames()) == 1
	})
	if calls := store.standingCalls(); len(calls) != 0 {
		t.Errorf("Draws must not touch standings, got %v", calls)
	}
}
