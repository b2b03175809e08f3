// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the lobby handler.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // A token was sent but could not be verified.
	UnknownUserError      = 3002 // The token names a user that no longer exists.
)
