package bonk

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// String returns the algebraic name of the square ("e2"); off-board squares print as "-".
func (s Square) String() string {
	if !s.OnBoard() {
		return "-"
	}
	return toNChess(s).String()
}

func toNChess(s Square) nchess.Square {
	return nchess.NewSquare(nchess.File(s.Col), nchess.Rank(Size-1-s.Row))
}

var squaresByName = func() map[string]Square {
	m := make(map[string]Square, Size*Size)
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			s := Square{Row: r, Col: c}
			m[toNChess(s).String()] = s
		}
	}
	return m
}()

// ParseSquare reads an algebraic square name such as "e2".
func ParseSquare(name string) (Square, error) {
	s, ok := squaresByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Square{}, fmt.Errorf("%w: unknown square %q", ErrBadMove, name)
	}
	return s, nil
}

// ParseUCI reads a from-to pair like "e2e4". A trailing promotion letter is
// accepted and ignored because pawns always promote to a queen.
func ParseUCI(raw string) (Move, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if len(v) != 4 && len(v) != 5 {
		return Move{}, fmt.Errorf("%w: %q", ErrBadMove, raw)
	}
	from, err := ParseSquare(v[0:2])
	if err != nil {
		return Move{}, err
	}
	to, err := ParseSquare(v[2:4])
	if err != nil {
		return Move{}, err
	}
	return Move{From: from, To: to}, nil
}

// FileName returns the file letter of a column.
func FileName(col int) string { return nchess.File(col).String() }

// RankName returns the rank digit of a row.
func RankName(row int) string { return nchess.Rank(Size - 1 - row).String() }
