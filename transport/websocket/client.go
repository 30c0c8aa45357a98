package websocket

import (
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dropfour/dropfour/game/service"
	"github.com/dropfour/dropfour/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Outbound queue depth per connection.
	sendBuffer = 256
)

var errConnClosed = errors.New("connection closed")

// Client is one upgraded socket. It implements service.Conn for the game
// layer.
type Client struct {
	gateway  *Gateway
	conn     *websocket.Conn
	send     chan []byte
	open     atomic.Bool
	identity string // set by the first join, read pump only
}

func newClient(g *Gateway, conn *websocket.Conn) *Client {
	c := &Client{
		gateway: g,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
	}
	c.open.Store(true)
	return c
}

// Send queues a JSON message for the write pump. It never blocks: a full
// queue or a closed connection yields an error the caller may log and move
// past.
func (c *Client) Send(v any) error {
	if !c.open.Load() {
		return errConnClosed
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	default:
		return errors.New("send queue full")
	}
}

// IsOpen reports whether the pumps are still running.
func (c *Client) IsOpen() bool {
	return c.open.Load()
}

// sendError relays a recoverable failure to this client only.
func (c *Client) sendError(message string) {
	if err := c.Send(service.NewError(message)); err != nil {
		logger.WarnF("failed to send error message: %v", err)
	}
}

// readPump pumps messages from the socket into the game handler. It runs
// until the peer goes away, then reports the disconnect.
func (c *Client) readPump() {
	defer func() {
		c.open.Store(false)
		if c.identity != "" {
			c.gateway.handler.HandleDisconnect(c.identity, c)
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.WarnF("websocket read error: %v", err)
			}
			return
		}
		c.handleMessage(data)
	}
}

// handleMessage dispatches one decoded frame. Errors go back to the sender
// and the connection stays up.
func (c *Client) handleMessage(data []byte) {
	msg, err := service.DecodeInbound(data)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	switch msg.Type {
	case service.TypeJoin:
		if c.identity != "" {
			c.sendError("already joined")
			return
		}
		c.identity = msg.Join.Username
		c.gateway.handler.HandleConnect(c.identity, c)

	case service.TypeMove:
		if c.identity == "" {
			c.sendError("join first")
			return
		}
		if err := c.gateway.handler.HandleMove(c.identity, msg.Move.GameID, msg.Move.Column); err != nil {
			c.sendError(err.Error())
		}
	}
}

// writePump drains the send queue to the socket and keeps the connection
// alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.open.Store(false)
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
