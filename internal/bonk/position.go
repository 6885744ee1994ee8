package bonk

import (
	"errors"
	"fmt"
)

var (
	ErrBadMove     = errors.New("bad move")
	ErrIllegalMove = errors.New("illegal move")
)

// Move is a from/to intent. Promotion is implicit (always a queen).
type Move struct {
	From Square `json:"from"`
	To   Square `json:"to"`
}

// Validate checks the shape of the move, not its legality.
func (m Move) Validate() error {
	if !m.From.OnBoard() || !m.To.OnBoard() {
		return fmt.Errorf("%w: square off board (%d,%d)->(%d,%d)", ErrBadMove, m.From.Row, m.From.Col, m.To.Row, m.To.Col)
	}
	if m.From == m.To {
		return fmt.Errorf("%w: empty move", ErrBadMove)
	}
	return nil
}

func (m Move) UCI() string { return m.From.String() + m.To.String() }

func (m Move) String() string { return m.UCI() }

// Side selects a castling wing.
type Side int

const (
	Kingside Side = iota
	Queenside
)

func (s Side) rookCol() int {
	if s == Kingside {
		return Size - 1
	}
	return 0
}

// rookTarget is where the rook lands after castling to this side.
func (s Side) rookTarget() int {
	if s == Kingside {
		return 5
	}
	return 3
}

// CastlingRights records, per color and side, whether castling is still possible.
// Rights are only ever revoked.
type CastlingRights struct {
	WhiteKingside  bool `json:"whiteKingside"`
	WhiteQueenside bool `json:"whiteQueenside"`
	BlackKingside  bool `json:"blackKingside"`
	BlackQueenside bool `json:"blackQueenside"`
}

func (cr CastlingRights) Allowed(c Color, s Side) bool {
	switch {
	case c == White && s == Kingside:
		return cr.WhiteKingside
	case c == White && s == Queenside:
		return cr.WhiteQueenside
	case c == Black && s == Kingside:
		return cr.BlackKingside
	case c == Black && s == Queenside:
		return cr.BlackQueenside
	}
	return false
}

func (cr *CastlingRights) revoke(c Color, s Side) {
	switch {
	case c == White && s == Kingside:
		cr.WhiteKingside = false
	case c == White && s == Queenside:
		cr.WhiteQueenside = false
	case c == Black && s == Kingside:
		cr.BlackKingside = false
	case c == Black && s == Queenside:
		cr.BlackQueenside = false
	}
}

// refresh revokes every side whose king or corner rook is gone or has moved.
func (cr *CastlingRights) refresh(b *Board) {
	for _, c := range []Color{White, Black} {
		row := c.HomeRow()
		king := b.At(Square{Row: row, Col: 4})
		kingHome := king.Kind == King && king.Color == c && !king.HasMoved
		for _, s := range []Side{Kingside, Queenside} {
			rook := b.At(Square{Row: row, Col: s.rookCol()})
			if !kingHome || rook.Kind != Rook || rook.Color != c || rook.HasMoved {
				cr.revoke(c, s)
			}
		}
	}
}

// Position is everything the rules need besides the move: board, side to move,
// the en-passant target and castling memory.
type Position struct {
	Board     Board          `json:"board"`
	Turn      Color          `json:"currentTurn"`
	EnPassant *Square        `json:"enPassantTarget"`
	Castling  CastlingRights `json:"castling"`
}

// NewPosition is the standard start: white to move, all castling available.
func NewPosition() Position {
	return Position{
		Board: InitialBoard(),
		Turn:  White,
		Castling: CastlingRights{
			WhiteKingside: true, WhiteQueenside: true,
			BlackKingside: true, BlackQueenside: true,
		},
	}
}

// PositionFrom builds a position around an arbitrary board. Castling rights are
// granted wherever an unmoved king and an unmoved corner rook still stand.
func PositionFrom(b Board, turn Color) Position {
	p := Position{
		Board: b,
		Turn:  turn,
		Castling: CastlingRights{
			WhiteKingside: true, WhiteQueenside: true,
			BlackKingside: true, BlackQueenside: true,
		},
	}
	p.Castling.refresh(&p.Board)
	return p
}
