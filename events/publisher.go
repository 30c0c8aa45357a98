// Package events carries the server's domain events (game_started,
// move_made, game_won, game_drawn, player_disconnected) from gameplay to
// interested sinks without ever blocking the game loop.
package events

import (
	"sync"
	"time"

	"github.com/dropfour/dropfour/logger"
)

// Event is one domain event.
type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink consumes events. Delivery is at-most-once and best-effort.
type Sink interface {
	HandleEvent(ev Event) error
}

// AsyncPublisher queues events on a buffered channel and delivers them to
// its sinks from a single worker goroutine. When the buffer is full the
// event is dropped with a warning, so a slow sink can never stall gameplay.
type AsyncPublisher struct {
	ch    chan Event
	sinks []Sink
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewAsyncPublisher starts the delivery worker. Events published after
// Close are discarded.
func NewAsyncPublisher(buffer int, sinks ...Sink) *AsyncPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	p := &AsyncPublisher{
		ch:    make(chan Event, buffer),
		sinks: sinks,
	}
	p.wg.Add(1)
	go p.worker()
	return p
}

func (p *AsyncPublisher) worker() {
	defer p.wg.Done()
	for ev := range p.ch {
		for _, sink := range p.sinks {
			if err := sink.HandleEvent(ev); err != nil {
				logger.WarnF("event sink failed for %s: %v", ev.Type, err)
			}
		}
	}
}

// Publish enqueues one event. It never blocks.
func (p *AsyncPublisher) Publish(eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	select {
	case p.ch <- Event{Type: eventType, Payload: payload, Timestamp: time.Now()}:
	default:
		logger.WarnF("event buffer full, dropping %s", eventType)
	}
}

// Close drains the queue and stops the worker. Safe to call once.
func (p *AsyncPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.ch)
	p.wg.Wait()
}

// LogSink writes every event to the server log.
type LogSink struct{}

func (LogSink) HandleEvent(ev Event) error {
	logger.InfoF("event %s: %v", ev.Type, ev.Payload)
	return nil
}
