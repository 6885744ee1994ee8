package bonk

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sq(r, c int) Square { return Square{Row: r, Col: c} }

func mv(fr, fc, tr, tc int) Move { return Move{From: sq(fr, fc), To: sq(tr, tc)} }

// sparse builds a position from (square, piece) pairs; every piece starts unmoved.
func sparse(t *testing.T, turn Color, pieces map[Square]Piece) Position {
	t.Helper()
	var b Board
	for s, p := range pieces {
		if !s.OnBoard() {
			t.Fatalf("piece placed off board at %v", s)
		}
		b.Put(s, p)
	}
	return PositionFrom(b, turn)
}

func mustApply(t *testing.T, pos Position, m Move) Result {
	t.Helper()
	res, err := Apply(pos, m)
	if err != nil {
		t.Fatalf("Apply(%v): %v\n%s", m, err, pos.Board.String())
	}
	return res
}

var (
	wK = Piece{Kind: King, Color: White}
	wQ = Piece{Kind: Queen, Color: White}
	wR = Piece{Kind: Rook, Color: White}
	wN = Piece{Kind: Knight, Color: White}
	wP = Piece{Kind: Pawn, Color: White}
	bK = Piece{Kind: King, Color: Black}
	bR = Piece{Kind: Rook, Color: Black}
	bN = Piece{Kind: Knight, Color: Black}
	bP = Piece{Kind: Pawn, Color: Black}
)

func TestCastleKingsideWithoutBonk(t *testing.T) {
	pos := sparse(t, White, map[Square]Piece{
		sq(7, 4): wK, sq(7, 7): wR, sq(0, 4): bK,
	})
	res := mustApply(t, pos, mv(7, 4, 7, 6))

	b := res.Position.Board
	if got := b.At(sq(7, 5)); got.Kind != Rook || got.Color != White || !got.HasMoved {
		t.Fatalf("rook at (7,5) = %+v", got)
	}
	if got := b.At(sq(7, 6)); got.Kind != King || !got.HasMoved {
		t.Fatalf("king at (7,6) = %+v", got)
	}
	if !b.At(sq(7, 7)).Empty() || !b.At(sq(7, 4)).Empty() {
		t.Fatalf("origin squares not cleared:\n%s", b.String())
	}
	if len(res.Removed) != 0 || res.Outcome != OutcomeNone {
		t.Fatalf("unexpected removals %v outcome %v", res.Removed, res.Outcome)
	}
	if !res.Castled {
		t.Fatalf("expected Castled")
	}
	if res.Position.Castling.WhiteKingside || res.Position.Castling.WhiteQueenside {
		t.Fatalf("white castling rights survived: %+v", res.Position.Castling)
	}
}

func TestCastleQueenside(t *testing.T) {
	pos := sparse(t, Black, map[Square]Piece{
		sq(0, 4): bK, sq(0, 0): bR, sq(7, 4): wK,
	})
	res := mustApply(t, pos, mv(0, 4, 0, 2))
	if got := res.Position.Board.At(sq(0, 3)); got.Kind != Rook || got.Color != Black {
		t.Fatalf("rook at (0,3) = %+v", got)
	}
	if got := res.Position.Board.At(sq(0, 2)); got.Kind != King {
		t.Fatalf("king at (0,2) = %+v", got)
	}
}

func TestEnPassantCapture(t *testing.T) {
	pos := sparse(t, White, map[Square]Piece{
		sq(6, 0): wP, sq(4, 1): bP, sq(7, 4): wK, sq(0, 4): bK,
	})
	res := mustApply(t, pos, mv(6, 0, 4, 0))
	if ep := res.Position.EnPassant; ep == nil || *ep != sq(5, 0) {
		t.Fatalf("en passant target = %v, want (5,0)", ep)
	}

	res = mustApply(t, res.Position, mv(4, 1, 5, 0))
	b := res.Position.Board
	if !b.At(sq(4, 0)).Empty() {
		t.Fatalf("white pawn at (4,0) not removed:\n%s", b.String())
	}
	if got := b.At(sq(5, 0)); got.Kind != Pawn || got.Color != Black {
		t.Fatalf("(5,0) = %+v, want black pawn", got)
	}
	if res.Position.EnPassant != nil {
		t.Fatalf("en passant target should be cleared, got %v", res.Position.EnPassant)
	}
	want := []Removal{{Square: sq(4, 0), Piece: Piece{Kind: Pawn, Color: White, HasMoved: true}}}
	if diff := cmp.Diff(want, res.Removed); diff != "" {
		t.Fatalf("removed mismatch (-want +got):\n%s", diff)
	}
}

func TestEnPassantExpiresAfterOneMove(t *testing.T) {
	pos := sparse(t, White, map[Square]Piece{
		sq(6, 0): wP, sq(4, 1): bP, sq(7, 4): wK, sq(0, 4): bK,
	})
	pos = mustApply(t, pos, mv(6, 0, 4, 0)).Position
	pos = mustApply(t, pos, mv(0, 4, 0, 3)).Position
	if pos.EnPassant != nil {
		t.Fatalf("en passant target survived an unrelated move: %v", pos.EnPassant)
	}
	pos = mustApply(t, pos, mv(7, 4, 7, 3)).Position
	if _, err := Apply(pos, mv(4, 1, 5, 0)); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("late en passant: err = %v, want ErrIllegalMove", err)
	}
}

func TestPromotionToQueen(t *testing.T) {
	pos := sparse(t, White, map[Square]Piece{
		sq(1, 3): wP, sq(7, 4): wK, sq(0, 7): bK,
	})
	res := mustApply(t, pos, mv(1, 3, 0, 3))
	want := Piece{Kind: Queen, Color: White, HasMoved: true}
	if diff := cmp.Diff(want, res.Position.Board.At(sq(0, 3))); diff != "" {
		t.Fatalf("promoted piece mismatch (-want +got):\n%s", diff)
	}
	if !res.Promoted {
		t.Fatalf("expected Promoted")
	}
}

func TestBlackPromotesOnLastRow(t *testing.T) {
	pos := sparse(t, Black, map[Square]Piece{
		sq(6, 2): bP, sq(7, 7): wK, sq(0, 4): bK,
	})
	res := mustApply(t, pos, mv(6, 2, 7, 2))
	if got := res.Position.Board.At(sq(7, 2)); got.Kind != Queen || got.Color != Black {
		t.Fatalf("(7,2) = %+v, want black queen", got)
	}
}

func TestBonkRemovesPieceAhead(t *testing.T) {
	pos := sparse(t, White, map[Square]Piece{
		sq(7, 0): wR, sq(2, 0): bN, sq(7, 4): wK, sq(0, 4): bK,
	})
	res := mustApply(t, pos, mv(7, 0, 3, 0))
	if !res.Position.Board.At(sq(2, 0)).Empty() {
		t.Fatalf("knight ahead of rook was not bonked:\n%s", res.Position.Board.String())
	}
	want := []Removal{{Square: sq(2, 0), Piece: bN, Bonked: true}}
	if diff := cmp.Diff(want, res.Removed); diff != "" {
		t.Fatalf("removed mismatch (-want +got):\n%s", diff)
	}
	if res.Outcome != OutcomeNone {
		t.Fatalf("outcome = %v", res.Outcome)
	}
}

func TestBonkIgnoresOwnPiecesAndSides(t *testing.T) {
	pos := sparse(t, White, map[Square]Piece{
		sq(7, 1): wN, sq(4, 2): wP, sq(5, 3): bP, sq(5, 1): bP, sq(7, 4): wK, sq(0, 4): bK,
	})
	// Knight lands on (5,2): own pawn ahead at (4,2), enemies only beside it.
	res := mustApply(t, pos, mv(7, 1, 5, 2))
	if len(res.Removed) != 0 {
		t.Fatalf("unexpected removals: %v", res.Removed)
	}
}

func TestBlackBonksTowardRowSeven(t *testing.T) {
	pos := sparse(t, Black, map[Square]Piece{
		sq(0, 1): bN, sq(3, 2): wQ, sq(7, 4): wK, sq(0, 4): bK,
	})
	res := mustApply(t, pos, mv(0, 1, 2, 2))
	if !res.Position.Board.At(sq(3, 2)).Empty() {
		t.Fatalf("queen ahead of black knight was not bonked:\n%s", res.Position.Board.String())
	}
}

func TestKingBonked(t *testing.T) {
	pos := sparse(t, White, map[Square]Piece{
		sq(7, 0): wR, sq(0, 0): bK, sq(7, 4): wK,
	})
	res := mustApply(t, pos, mv(7, 0, 1, 0))
	if res.Outcome != OutcomeKingBonked {
		t.Fatalf("outcome = %v, want king bonked", res.Outcome)
	}
	if res.Outcome.Reason() != "king bonked" {
		t.Fatalf("reason = %q", res.Outcome.Reason())
	}
	if res.Position.Board.Count(King, Black) != 0 {
		t.Fatalf("black king still on board")
	}
}

func TestKingCaptured(t *testing.T) {
	pos := sparse(t, White, map[Square]Piece{
		sq(4, 4): wQ, sq(0, 4): bK, sq(7, 4): wK,
	})
	res := mustApply(t, pos, mv(4, 4, 0, 4))
	if res.Outcome != OutcomeKingCaptured || res.Outcome.Reason() != "king taken" {
		t.Fatalf("outcome = %v", res.Outcome)
	}
}

func TestCaptureTakesPrecedenceOverBonk(t *testing.T) {
	// The queen captures a king on (2,4) while another black king stands ahead of it.
	pos := sparse(t, White, map[Square]Piece{
		sq(4, 4): wQ, sq(2, 4): bK, sq(1, 4): Piece{Kind: King, Color: Black}, sq(7, 4): wK,
	})
	res := mustApply(t, pos, mv(4, 4, 2, 4))
	if res.Outcome != OutcomeKingCaptured {
		t.Fatalf("outcome = %v, want king taken", res.Outcome)
	}
}

func TestCastlingRookBonks(t *testing.T) {
	pos := sparse(t, White, map[Square]Piece{
		sq(7, 4): wK, sq(7, 7): wR, sq(6, 5): bN, sq(0, 4): bK,
	})
	res := mustApply(t, pos, mv(7, 4, 7, 6))
	if !res.Position.Board.At(sq(6, 5)).Empty() {
		t.Fatalf("knight ahead of castled rook survived:\n%s", res.Position.Board.String())
	}
	want := []Removal{{Square: sq(6, 5), Piece: bN, Bonked: true}}
	if diff := cmp.Diff(want, res.Removed); diff != "" {
		t.Fatalf("removed mismatch (-want +got):\n%s", diff)
	}
}

func TestCastlingRookBonksKing(t *testing.T) {
	pos := sparse(t, White, map[Square]Piece{
		sq(7, 4): wK, sq(7, 7): wR, sq(6, 5): bK,
	})
	res := mustApply(t, pos, mv(7, 4, 7, 6))
	if res.Outcome != OutcomeKingBonked {
		t.Fatalf("outcome = %v, want king bonked", res.Outcome)
	}
}

func TestCastlingKingAndRookBothBonk(t *testing.T) {
	pos := sparse(t, White, map[Square]Piece{
		sq(7, 4): wK, sq(7, 7): wR, sq(6, 5): bN, sq(6, 6): bP, sq(0, 4): bK,
	})
	res := mustApply(t, pos, mv(7, 4, 7, 6))
	if len(res.Removed) != 2 {
		t.Fatalf("removed = %v, want two bonks", res.Removed)
	}
	if !res.Position.Board.At(sq(6, 6)).Empty() || !res.Position.Board.At(sq(6, 5)).Empty() {
		t.Fatalf("bonks not applied:\n%s", res.Position.Board.String())
	}
}

func TestCastlingLostAfterRookMoves(t *testing.T) {
	pos := sparse(t, White, map[Square]Piece{
		sq(7, 4): wK, sq(7, 7): wR, sq(7, 0): wR, sq(0, 4): bK,
	})
	pos = mustApply(t, pos, mv(7, 7, 5, 7)).Position
	if pos.Castling.WhiteKingside {
		t.Fatalf("kingside right survived rook move")
	}
	if !pos.Castling.WhiteQueenside {
		t.Fatalf("queenside right lost by kingside rook move")
	}
	pos = mustApply(t, pos, mv(0, 4, 0, 3)).Position
	pos = mustApply(t, pos, mv(5, 7, 7, 7)).Position
	pos = mustApply(t, pos, mv(0, 3, 0, 4)).Position
	if _, err := Apply(pos, mv(7, 4, 7, 6)); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("castling after rook returned: err = %v, want ErrIllegalMove", err)
	}
	mustApply(t, pos, mv(7, 4, 7, 2))
}

func TestCastlingLostAfterKingMoves(t *testing.T) {
	pos := sparse(t, White, map[Square]Piece{
		sq(7, 4): wK, sq(7, 7): wR, sq(0, 4): bK,
	})
	pos = mustApply(t, pos, mv(7, 4, 7, 5)).Position
	pos = mustApply(t, pos, mv(0, 4, 0, 3)).Position
	pos = mustApply(t, pos, mv(7, 5, 7, 4)).Position
	pos = mustApply(t, pos, mv(0, 3, 0, 4)).Position
	if pos.IsLegal(mv(7, 4, 7, 6)) {
		t.Fatalf("castling allowed after king moved")
	}
}

func TestTurnAlternates(t *testing.T) {
	pos := NewPosition()
	if _, err := Apply(pos, mv(1, 4, 3, 4)); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("black moved first: err = %v", err)
	}
	res := mustApply(t, pos, mv(6, 4, 4, 4))
	if res.Position.Turn != Black {
		t.Fatalf("turn = %v, want black", res.Position.Turn)
	}
	if _, err := Apply(res.Position, mv(6, 3, 4, 3)); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("white moved twice: err = %v", err)
	}
	res = mustApply(t, res.Position, mv(1, 3, 3, 3))
	if res.Position.Turn != White {
		t.Fatalf("turn = %v, want white", res.Position.Turn)
	}
}

func TestApplyLeavesInputUntouched(t *testing.T) {
	pos := NewPosition()
	before := pos
	mustApply(t, pos, mv(6, 4, 4, 4))
	if diff := cmp.Diff(before, pos); diff != "" {
		t.Fatalf("input position mutated (-before +after):\n%s", diff)
	}
}

func TestApplyRejectsBadShape(t *testing.T) {
	pos := NewPosition()
	for _, m := range []Move{mv(6, 4, 6, 4), mv(8, 0, 7, 0), mv(6, 0, -1, 0)} {
		if _, err := Apply(pos, m); !errors.Is(err, ErrBadMove) {
			t.Fatalf("Apply(%+v): err = %v, want ErrBadMove", m, err)
		}
	}
}
