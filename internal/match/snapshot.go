package match

import (
	"time"

	"github.com/park285/bonk-chess-server/internal/bonk"
	"github.com/park285/bonk-chess-server/internal/clock"
)

type PlayerView struct {
	Username string `json:"username"`
}

// Snapshot is the full client-visible state of a match.
type Snapshot struct {
	ID              string              `json:"id"`
	Status          Status              `json:"status"`
	White           *PlayerView         `json:"white"`
	Black           *PlayerView         `json:"black"`
	Board           bonk.Board          `json:"board"`
	CurrentTurn     bonk.Color          `json:"currentTurn"`
	EnPassantTarget *bonk.Square        `json:"enPassantTarget"`
	Castling        bonk.CastlingRights `json:"castling"`
	MoveHistory     []Entry             `json:"moveHistory"`
	LastMove        *bonk.Move          `json:"lastMove"`
	GameOver        bool                `json:"gameOver"`
	Winner          bonk.Color          `json:"winner"`
	Reason          string              `json:"reason"`
	Clock           clock.Reading       `json:"clock"`
	TimeControl     TimeControl         `json:"timeControl"`
	CreatedAt       time.Time           `json:"createdAt"`
}

// Snapshot copies the current state; the result shares nothing with the match.
func (m *Match) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Match) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:          m.id,
		Status:      m.status,
		Board:       m.pos.Board,
		CurrentTurn: m.pos.Turn,
		Castling:    m.pos.Castling,
		MoveHistory: make([]Entry, len(m.history)),
		GameOver:    m.status == StatusOver,
		Winner:      m.winner,
		Reason:      m.reason,
		Clock:       m.clock.Reading(),
		TimeControl: m.tc,
		CreatedAt:   m.createdAt,
	}
	copy(s.MoveHistory, m.history)
	if m.white != nil {
		s.White = &PlayerView{Username: m.white.Username}
	}
	if m.black != nil {
		s.Black = &PlayerView{Username: m.black.Username}
	}
	if m.pos.EnPassant != nil {
		ep := *m.pos.EnPassant
		s.EnPassantTarget = &ep
	}
	if m.lastMove != nil {
		lm := *m.lastMove
		s.LastMove = &lm
	}
	return s
}

// Position returns a copy of the rules position.
func (m *Match) Position() bonk.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.pos
	if p.EnPassant != nil {
		ep := *p.EnPassant
		p.EnPassant = &ep
	}
	return p
}
