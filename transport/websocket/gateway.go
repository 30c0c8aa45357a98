package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/dropfour/dropfour/game/service"
	"github.com/dropfour/dropfour/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// TODO: Configure this for production
		return true
	},
}

// GameHandler is the game-side surface the transport drives.
type GameHandler interface {
	HandleConnect(identity string, conn service.Conn)
	HandleMove(identity, gameID string, column int) error
	HandleDisconnect(identity string, conn service.Conn)
}

// Gateway upgrades gameplay connections and binds them to the handler.
type Gateway struct {
	handler GameHandler
}

func NewGateway(handler GameHandler) *Gateway {
	return &Gateway{handler: handler}
}

// ServeWS handles a WebSocket upgrade request.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnF("websocket upgrade failed: %v", err)
		return
	}

	client := newClient(g, conn)
	go client.writePump()
	go client.readPump()
}
