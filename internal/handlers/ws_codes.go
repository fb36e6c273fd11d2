// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the match socket.
const (
	BadSubprotocolError websocket.StatusCode = 3000 // Client connected with an unsupported subprotocol.
	ShuttingDownError   websocket.StatusCode = 3001 // Server process is draining connections.
)

// Subprotocol is the websocket subprotocol clients must request.
const Subprotocol = "automatch"
