// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the relay handler.
const (
	BadSubprotocolError   = 3000 // Client offered subprotocols, none of them ours.
	RelayUnavailableError = 3004 // The dispatcher is no longer accepting connections.
)
