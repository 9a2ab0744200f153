package ws

import "encoding/json"

// MessageType constants for the WebSocket protocol.
const (
	// Client -> Server
	TypePing     = "ping"
	TypeNavigate = "navigate"

	// Server -> Client
	TypePong              = "pong"
	TypeNavigateResult    = "navigate_result"
	TypeAuthChanged       = "auth_changed"
	TypeLeaderboardUpdate = "leaderboard_update"
	TypeError             = "error"
)

// Message wraps all WebSocket payloads with a type tag.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AuthChangedPayload tells other tabs of the same user that their session
// changed elsewhere and cached auth state must be re-resolved.
type AuthChangedPayload struct {
	UserID string `json:"user_id"`
	Event  string `json:"event"` // "login", "logout", "verified", "role_changed"
}

// NavigatePayload asks the server whether the client may enter a route.
type NavigatePayload struct {
	To string `json:"to"`
}

// NavigateResultPayload answers a navigate request. The decision is made
// only after the connection's session state has been resolved.
type NavigateResultPayload struct {
	To         string `json:"to"`
	Allow      bool   `json:"allow"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

// LeaderboardUpdatePayload pushes a fresh top list to all clients.
type LeaderboardUpdatePayload struct {
	Top         []LeaderboardEntry `json:"top"`
	GeneratedAt string             `json:"generated_at"`
}

// LeaderboardEntry is one ranked row as sent to clients.
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name"`
	TotalScore  float64 `json:"total_score"`
}

// ErrorPayload reports a protocol-level error to the client.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
