package bonkdto

import "encoding/json"

// Client message types.
const (
	TypeCreateMatch = "createMatch"
	TypeJoinMatch   = "joinMatch"
	TypeMakeMove    = "makeMove"
	TypeResign      = "resign"
	TypeListMatches = "listMatches"
	TypeFindGame    = "findGame"
	TypeCancelFind  = "cancelFind"
)

// Server message types not emitted by the match itself.
const (
	TypeMatchCreated = "matchCreated"
	TypeMatchJoined  = "matchJoined"
	TypeMatches      = "matches"
	TypeError        = "error"
	TypeWelcome      = "welcome"
)

// Envelope is every WebSocket frame in either direction.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Outgoing is the server-side form of Envelope.
type Outgoing struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type TimeControl struct {
	InitialSeconds   int `json:"initialSeconds"`
	IncrementSeconds int `json:"incrementSeconds"`
}

type CreateMatchRequest struct {
	Side        string       `json:"side"`
	TimeControl *TimeControl `json:"timeControl,omitempty"`
}

type JoinMatchRequest struct {
	MatchID        string `json:"matchId"`
	Side           string `json:"side,omitempty"`
	CreateIfAbsent bool   `json:"createIfAbsent,omitempty"`
}

// MakeMoveRequest carries either from/to as [row,col] pairs or a UCI string.
type MakeMoveRequest struct {
	MatchID string  `json:"matchId"`
	From    *[2]int `json:"from,omitempty"`
	To      *[2]int `json:"to,omitempty"`
	UCI     string  `json:"uci,omitempty"`
}

type ResignRequest struct {
	MatchID string `json:"matchId"`
}

type SeatResponse struct {
	MatchID string `json:"matchId"`
	Color   string `json:"color"`
}

type Welcome struct {
	ConnID   string `json:"connId"`
	Username string `json:"username"`
	Guest    bool   `json:"guest"`
}

type RegisterRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username,omitempty"`
	Token    string `json:"token,omitempty"`
	Error    string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Matches   int    `json:"matches"`
	Waiting   int    `json:"waiting"`
	Timestamp string `json:"timestamp"`
}

// TargetsResponse lists legal destinations in algebraic notation.
type TargetsResponse struct {
	From    string   `json:"from"`
	Targets []string `json:"targets"`
}
