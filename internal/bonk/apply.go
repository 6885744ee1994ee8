package bonk

// Outcome is the game-ending effect of a move, if any.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeKingCaptured
	OutcomeKingBonked
)

// Reason is the game-over reason string for a decisive outcome.
func (o Outcome) Reason() string {
	switch o {
	case OutcomeKingCaptured:
		return "king taken"
	case OutcomeKingBonked:
		return "king bonked"
	}
	return ""
}

func (o Outcome) String() string {
	if r := o.Reason(); r != "" {
		return r
	}
	return "none"
}

// Removal records a piece taken off the board by a move.
type Removal struct {
	Square Square `json:"square"`
	Piece  Piece  `json:"piece"`
	Bonked bool   `json:"bonked"`
}

// Result is the position after a move plus what the move did.
type Result struct {
	Position Position
	Outcome  Outcome
	Removed  []Removal
	Castled  bool
	Promoted bool
}

// Apply plays mv on a copy of pos. The caller's position is never modified.
//
// Order matters: the en-passant victim goes first, then the castling rook moves
// and bonks, then the mover lands (capture, promotion), the en-passant target is
// recomputed, and finally the mover bonks from its new square.
func Apply(pos Position, mv Move) (Result, error) {
	if err := mv.Validate(); err != nil {
		return Result{}, err
	}
	if !pos.IsLegal(mv) {
		return Result{}, ErrIllegalMove
	}

	next := pos
	next.EnPassant = nil
	b := &next.Board
	piece := b.At(mv.From)
	res := Result{}

	if pos.isEnPassant(piece, mv) {
		victim := Square{Row: mv.From.Row, Col: mv.To.Col}
		res.Removed = append(res.Removed, Removal{Square: victim, Piece: b.At(victim)})
		b.Clear(victim)
	}

	if isCastle(piece, mv) {
		side := Kingside
		if mv.To.Col < mv.From.Col {
			side = Queenside
		}
		rookFrom := Square{Row: mv.From.Row, Col: side.rookCol()}
		rookTo := Square{Row: mv.From.Row, Col: side.rookTarget()}
		rook := b.At(rookFrom)
		rook.HasMoved = true
		b.Clear(rookFrom)
		b.Put(rookTo, rook)
		res.Castled = true
		if rm, ok := bonkFrom(b, rookTo, rook.Color); ok {
			res.Removed = append(res.Removed, rm)
			if rm.Piece.Kind == King {
				res.Outcome = OutcomeKingBonked
			}
		}
	}

	if target := b.At(mv.To); !target.Empty() {
		if target.Kind == King && target.Color != piece.Color {
			res.Outcome = OutcomeKingCaptured
		}
		res.Removed = append(res.Removed, Removal{Square: mv.To, Piece: target})
	}

	piece.HasMoved = true
	b.Clear(mv.From)
	b.Put(mv.To, piece)

	if piece.Kind == Pawn && mv.To.Row == piece.Color.PromotionRow() {
		b.Put(mv.To, Piece{Kind: Queen, Color: piece.Color, HasMoved: true})
		res.Promoted = true
	}

	if dr := mv.To.Row - mv.From.Row; piece.Kind == Pawn && abs(dr) == 2 {
		passed := Square{Row: mv.From.Row + dr/2, Col: mv.From.Col}
		next.EnPassant = &passed
	}

	if rm, ok := bonkFrom(b, mv.To, piece.Color); ok {
		res.Removed = append(res.Removed, rm)
		if rm.Piece.Kind == King && res.Outcome == OutcomeNone {
			res.Outcome = OutcomeKingBonked
		}
	}

	next.Castling.refresh(b)
	next.Turn = pos.Turn.Opponent()
	res.Position = next
	return res, nil
}

// bonkFrom destroys the enemy piece directly ahead of a piece of color mover
// standing on sq. Ahead means one row in the mover's forward direction.
func bonkFrom(b *Board, sq Square, mover Color) (Removal, bool) {
	front := Square{Row: sq.Row + mover.Forward(), Col: sq.Col}
	if !front.OnBoard() {
		return Removal{}, false
	}
	victim := b.At(front)
	if victim.Empty() || victim.Color == mover {
		return Removal{}, false
	}
	b.Clear(front)
	return Removal{Square: front, Piece: victim, Bonked: true}, true
}
