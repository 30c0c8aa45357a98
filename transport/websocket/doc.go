// Package websocket is the wire transport for gameplay.
//
// The Gateway upgrades HTTP requests and hands each socket to a Client,
// which runs the standard read/write pump pair. The read pump decodes the
// inbound protocol (join, move) and forwards it to the game handler; the
// write pump drains a buffered outbound queue and keeps the connection
// alive with pings.
//
// A Client is handed to the game layer as its connection handle: Send
// queues a JSON message without blocking and IsOpen reports whether the
// pumps are still running. Protocol errors (malformed frames, rejected
// moves) go back to the offending client only and never close the socket.
package websocket
