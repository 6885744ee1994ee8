package bonk

// IsLegal decides whether mv may be played in p. It does not look at check:
// kings are ordinary targets in this variant.
func (p *Position) IsLegal(mv Move) bool {
	if !mv.From.OnBoard() || !mv.To.OnBoard() {
		return false
	}
	piece := p.Board.At(mv.From)
	if piece.Empty() || piece.Color != p.Turn {
		return false
	}
	target := p.Board.At(mv.To)
	if !target.Empty() && target.Color == piece.Color {
		return false
	}

	dr, dc := mv.To.Row-mv.From.Row, mv.To.Col-mv.From.Col
	switch piece.Kind {
	case Pawn:
		return p.pawnLegal(piece, mv, dr, dc)
	case Knight:
		return (abs(dr) == 2 && abs(dc) == 1) || (abs(dr) == 1 && abs(dc) == 2)
	case Bishop:
		return abs(dr) == abs(dc) && p.Board.pathClear(mv.From, mv.To)
	case Rook:
		return (dr == 0 || dc == 0) && p.Board.pathClear(mv.From, mv.To)
	case Queen:
		return (dr == 0 || dc == 0 || abs(dr) == abs(dc)) && p.Board.pathClear(mv.From, mv.To)
	case King:
		if abs(dr) <= 1 && abs(dc) <= 1 {
			return true
		}
		return p.castleLegal(piece, mv, dr, dc)
	}
	return false
}

func (p *Position) pawnLegal(piece Piece, mv Move, dr, dc int) bool {
	dir := piece.Color.Forward()
	target := p.Board.At(mv.To)
	switch {
	case dc == 0 && dr == dir:
		return target.Empty()
	case dc == 0 && dr == 2*dir:
		if mv.From.Row != piece.Color.PawnRow() || !target.Empty() {
			return false
		}
		return p.Board.At(Square{Row: mv.From.Row + dir, Col: mv.From.Col}).Empty()
	case abs(dc) == 1 && dr == dir:
		if !target.Empty() {
			return true
		}
		return p.EnPassant != nil && *p.EnPassant == mv.To
	}
	return false
}

func (p *Position) castleLegal(king Piece, mv Move, dr, dc int) bool {
	if king.HasMoved || dr != 0 || abs(dc) != 2 {
		return false
	}
	side := Kingside
	if dc < 0 {
		side = Queenside
	}
	if !p.Castling.Allowed(king.Color, side) {
		return false
	}
	rookSq := Square{Row: mv.From.Row, Col: side.rookCol()}
	rook := p.Board.At(rookSq)
	if rook.Kind != Rook || rook.Color != king.Color || rook.HasMoved {
		return false
	}
	return p.Board.pathClear(mv.From, rookSq)
}

// isCastle reports whether a legal move is a castling move.
func isCastle(piece Piece, mv Move) bool {
	return piece.Kind == King && mv.From.Row == mv.To.Row && abs(mv.To.Col-mv.From.Col) == 2
}

// isEnPassant reports whether a legal move captures en passant.
func (p *Position) isEnPassant(piece Piece, mv Move) bool {
	return piece.Kind == Pawn &&
		mv.From.Col != mv.To.Col &&
		p.Board.At(mv.To).Empty() &&
		p.EnPassant != nil && *p.EnPassant == mv.To
}

// LegalTargets lists every destination the piece on from may legally reach.
func (p *Position) LegalTargets(from Square) []Square {
	var out []Square
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			to := Square{Row: r, Col: c}
			if to == from {
				continue
			}
			if p.IsLegal(Move{From: from, To: to}) {
				out = append(out, to)
			}
		}
	}
	return out
}
