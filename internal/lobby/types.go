package lobby

import (
	"time"

	"github.com/park285/bonk-chess-server/internal/bonk"
	"github.com/park285/bonk-chess-server/internal/match"
)

// Listing describes a match that still has a free seat.
type Listing struct {
	MatchID     string            `json:"matchId"`
	OpenSide    bonk.Color        `json:"openSide"`
	Host        string            `json:"host"`
	TimeControl match.TimeControl `json:"timeControl"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// SeatedFunc is called under the match lock once a seat has been taken.
type SeatedFunc func(matchID string, color bonk.Color)

// Quick-match events emitted by the directory.
const (
	EventGameStart = "gameStart"
	EventWaiting   = "waiting"
)

type GameStartPayload struct {
	MatchID  string     `json:"matchId"`
	Color    bonk.Color `json:"color"`
	Opponent string     `json:"opponent"`
}

type WaitingPayload struct {
	Position int    `json:"position"`
	Message  string `json:"message"`
}

// QuickResult reports what FindGame did.
type QuickResult struct {
	Waiting bool
	Match   *match.Match
	Color   bonk.Color
}

// Errors
var (
	ErrInvalidArgs    = errf("invalid arguments")
	ErrMatchNotFound  = errf("match not found")
	ErrTooManyMatches = errf("too many open matches")
	ErrAlreadyWaiting = errf("connection is already waiting for a game")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

func errf(s string) error { return staticErr(s) }

type waiter struct {
	connID   string
	username string
	since    time.Time
}
