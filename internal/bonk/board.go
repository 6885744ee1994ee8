package bonk

import (
	"encoding/json"
	"fmt"
)

// Size is the edge length of the board.
const Size = 8

// Color identifies a side.
type Color string

const (
	NoColor Color = ""
	White   Color = "white"
	Black   Color = "black"
)

// ParseColor accepts "white"/"w" and "black"/"b".
func ParseColor(s string) (Color, bool) {
	switch s {
	case "white", "w", "White", "WHITE":
		return White, true
	case "black", "b", "Black", "BLACK":
		return Black, true
	}
	return NoColor, false
}

func (c Color) Valid() bool { return c == White || c == Black }

// Opponent returns the other side; NoColor stays NoColor.
func (c Color) Opponent() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	}
	return NoColor
}

// Forward is the row delta of one step "ahead" for this side.
// White advances toward row 0, black toward row 7.
func (c Color) Forward() int {
	if c == White {
		return -1
	}
	return 1
}

// HomeRow is the back rank of the side.
func (c Color) HomeRow() int {
	if c == White {
		return Size - 1
	}
	return 0
}

// PawnRow is the rank pawns start on.
func (c Color) PawnRow() int {
	if c == White {
		return Size - 2
	}
	return 1
}

// PromotionRow is the far rank for the side's pawns.
func (c Color) PromotionRow() int {
	if c == White {
		return 0
	}
	return Size - 1
}

// Kind is a piece type. The single-letter values are the wire encoding.
type Kind string

const (
	NoKind Kind = ""
	Pawn   Kind = "p"
	Knight Kind = "n"
	Bishop Kind = "b"
	Rook   Kind = "r"
	Queen  Kind = "q"
	King   Kind = "k"
)

// Piece is a value; boards hold copies, so promotion replaces rather than mutates.
type Piece struct {
	Kind     Kind  `json:"type"`
	Color    Color `json:"color"`
	HasMoved bool  `json:"hasMoved"`
}

func (p Piece) Empty() bool { return p.Kind == NoKind }

func (p Piece) String() string {
	if p.Empty() {
		return "."
	}
	if p.Color == White {
		return string(rune(p.Kind[0] - 'a' + 'A'))
	}
	return string(p.Kind)
}

// Square addresses a cell as [row][col]; row 0 is black's back rank, col 0 the a-file.
type Square struct {
	Row int
	Col int
}

func (s Square) OnBoard() bool {
	return s.Row >= 0 && s.Row < Size && s.Col >= 0 && s.Col < Size
}

func (s Square) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.Row, s.Col})
}

func (s *Square) UnmarshalJSON(b []byte) error {
	var rc []int
	if err := json.Unmarshal(b, &rc); err != nil {
		return fmt.Errorf("square: %w", err)
	}
	if len(rc) != 2 {
		return fmt.Errorf("square: want [row,col], got %d values", len(rc))
	}
	s.Row, s.Col = rc[0], rc[1]
	return nil
}

// Board is an 8x8 grid of pieces; the zero Piece is an empty cell.
type Board [Size][Size]Piece

func (b *Board) At(s Square) Piece {
	if !s.OnBoard() {
		return Piece{}
	}
	return b[s.Row][s.Col]
}

// Put places p on s, replacing whatever was there.
func (b *Board) Put(s Square, p Piece) { b[s.Row][s.Col] = p }

// Clear empties s.
func (b *Board) Clear(s Square) { b[s.Row][s.Col] = Piece{} }

// pathClear reports whether every square strictly between from and to is empty.
func (b *Board) pathClear(from, to Square) bool {
	stepR, stepC := sign(to.Row-from.Row), sign(to.Col-from.Col)
	r, c := from.Row+stepR, from.Col+stepC
	for r != to.Row || c != to.Col {
		if !b[r][c].Empty() {
			return false
		}
		r += stepR
		c += stepC
	}
	return true
}

// Count returns the number of pieces of the given kind and color.
func (b *Board) Count(kind Kind, color Color) int {
	n := 0
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if p := b[r][c]; p.Kind == kind && p.Color == color {
				n++
			}
		}
	}
	return n
}

// MarshalJSON encodes rows of piece objects with null for empty cells.
func (b Board) MarshalJSON() ([]byte, error) {
	rows := make([][]*Piece, Size)
	for r := 0; r < Size; r++ {
		rows[r] = make([]*Piece, Size)
		for c := 0; c < Size; c++ {
			if p := b[r][c]; !p.Empty() {
				rows[r][c] = &p
			}
		}
	}
	return json.Marshal(rows)
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var rows [][]*Piece
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	if len(rows) != Size {
		return fmt.Errorf("board: want %d rows, got %d", Size, len(rows))
	}
	var out Board
	for r, row := range rows {
		if len(row) != Size {
			return fmt.Errorf("board: row %d has %d cells", r, len(row))
		}
		for c, p := range row {
			if p != nil {
				out[r][c] = *p
			}
		}
	}
	*b = out
	return nil
}

// String renders the board one rank per line, white pieces in upper case.
func (b *Board) String() string {
	out := make([]byte, 0, Size*(Size+1))
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			out = append(out, b[r][c].String()...)
		}
		out = append(out, '\n')
	}
	return string(out)
}

var backRank = [Size]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// InitialBoard returns the standard starting position with nothing flagged as moved.
func InitialBoard() Board {
	var b Board
	for c := 0; c < Size; c++ {
		b[Black.HomeRow()][c] = Piece{Kind: backRank[c], Color: Black}
		b[Black.PawnRow()][c] = Piece{Kind: Pawn, Color: Black}
		b[White.PawnRow()][c] = Piece{Kind: Pawn, Color: White}
		b[White.HomeRow()][c] = Piece{Kind: backRank[c], Color: White}
	}
	return b
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
