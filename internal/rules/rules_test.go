package rules

import (
	"errors"
	"slices"
	"testing"

	"github.com/shatranj/arena/internal/board"
)

func TestLegalDestinationsFromStart(t *testing.T) {
	g := New()

	tests := []struct {
		from board.Square
		want []board.Square
	}{
		{"e2", []board.Square{"e3", "e4"}},
		{"g1", []board.Square{"f3", "h3"}},
		{"e1", nil},
		{"e7", nil},
		{"e4", nil},
	}
	for _, tt := range tests {
		got := g.LegalDestinations(tt.from)
		slices.Sort(got)
		if !slices.Equal(got, tt.want) {
			t.Errorf("LegalDestinations(%s) = %v, want %v", tt.from, got, tt.want)
		}
	}
}

func TestPieceAtAndTurn(t *testing.T) {
	g := New()

	if g.Turn() != board.White {
		t.Fatalf("turn = %s, want white", g.Turn())
	}
	p, ok := g.PieceAt("d8")
	if !ok || p != (board.Piece{Color: board.Black, Kind: "q"}) {
		t.Errorf("PieceAt(d8) = %+v, %v", p, ok)
	}
	if _, ok := g.PieceAt("d4"); ok {
		t.Error("PieceAt(d4) reported a piece on an empty square")
	}
}

func TestMoveProducesSAN(t *testing.T) {
	g := New()

	played, err := g.Move("g1", "f3", "")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if played.SAN != "Nf3" {
		t.Errorf("SAN = %q, want Nf3", played.SAN)
	}
	if played.UCI != "g1f3" {
		t.Errorf("UCI = %q, want g1f3", played.UCI)
	}
	if played.Color != board.White {
		t.Errorf("color = %s, want white", played.Color)
	}
	if g.Turn() != board.Black {
		t.Errorf("turn after move = %s, want black", g.Turn())
	}
	if played.FEN != g.FEN() {
		t.Errorf("played FEN %q differs from game FEN %q", played.FEN, g.FEN())
	}
}

func TestIllegalMove(t *testing.T) {
	g := New()
	before := g.FEN()

	_, err := g.Move("e2", "e5", "")
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("err = %v, want ErrIllegalMove", err)
	}
	if g.FEN() != before {
		t.Error("illegal move changed the position")
	}
}

func TestFoolsMate(t *testing.T) {
	g := New()
	for _, mv := range [][2]board.Square{{"f2", "f3"}, {"e7", "e5"}, {"g2", "g4"}, {"d8", "h4"}} {
		if _, err := g.Move(mv[0], mv[1], ""); err != nil {
			t.Fatalf("move %s%s: %v", mv[0], mv[1], err)
		}
	}

	if !g.InCheck() {
		t.Error("expected check")
	}
	if !g.IsCheckmate() {
		t.Error("expected checkmate")
	}
	if g.Outcome() != BlackWon {
		t.Errorf("outcome = %s, want %s", g.Outcome(), BlackWon)
	}
	if _, err := g.Move("e2", "e4", ""); !errors.Is(err, ErrIllegalMove) {
		t.Errorf("move after mate err = %v, want ErrIllegalMove", err)
	}
}

func TestPromotionDefaultsToQueen(t *testing.T) {
	g, err := FromFEN("8/P6k/8/8/8/8/8/K7 w - - 0 1")
	if err != nil {
		t.Fatalf("fen: %v", err)
	}

	dests := g.LegalDestinations("a7")
	if !slices.Equal(dests, []board.Square{"a8"}) {
		t.Fatalf("destinations = %v, want [a8]", dests)
	}

	played, err := g.Move("a7", "a8", "")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if played.UCI != "a7a8q" {
		t.Errorf("UCI = %q, want a7a8q", played.UCI)
	}
	p, _ := g.PieceAt("a8")
	if p.Kind != "q" {
		t.Errorf("promoted to %q, want q", p.Kind)
	}
}

func TestFromFENInvalid(t *testing.T) {
	if _, err := FromFEN("not a fen"); !errors.Is(err, ErrInvalidFEN) {
		t.Errorf("err = %v, want ErrInvalidFEN", err)
	}
}

func TestBoardGrid(t *testing.T) {
	rows := New().Board()
	if len(rows) != 8 {
		t.Fatalf("rows = %d, want 8", len(rows))
	}
	if p := rows[0][4]; p == nil || *p != (board.Piece{Color: board.Black, Kind: "k"}) {
		t.Errorf("e8 = %+v, want black king", p)
	}
	if p := rows[7][3]; p == nil || *p != (board.Piece{Color: board.White, Kind: "q"}) {
		t.Errorf("d1 = %+v, want white queen", p)
	}
	if rows[4][4] != nil {
		t.Errorf("e4 = %+v, want empty", rows[4][4])
	}
}

func TestSelectorOverEngine(t *testing.T) {
	g := New()
	var played []Played
	sel := board.NewSelector(g, func(from, to board.Square) bool {
		p, err := g.Move(from, to, "")
		if err != nil {
			return false
		}
		played = append(played, p)
		return true
	})

	if got := sel.Click("e7"); got != board.Ignored {
		t.Fatalf("clicking black pawn on white's turn = %s, want ignored", got)
	}
	sel.Click("e2")
	if got := sel.Click("e4"); got != board.Moved {
		t.Fatalf("e2-e4 = %s, want moved", got)
	}
	if len(played) != 1 || played[0].SAN != "e4" {
		t.Fatalf("played = %+v", played)
	}
	if got := sel.Click("e7"); got != board.Selected {
		t.Errorf("clicking black pawn on black's turn = %s, want selected", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := New()
	if _, err := g.Move("e2", "e4", ""); err != nil {
		t.Fatalf("e2e4: %v", err)
	}
	c, err := g.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if c.FEN() != g.FEN() {
		t.Fatalf("clone fen = %q, want %q", c.FEN(), g.FEN())
	}
	if _, err := c.Move("e7", "e5", ""); err != nil {
		t.Fatalf("e7e5 on clone: %v", err)
	}
	if g.Turn() != board.Black {
		t.Errorf("original turn = %s, want black", g.Turn())
	}
}

func TestCloneKeepsCustomPosition(t *testing.T) {
	const fen = "6k1/5ppp/8/8/8/8/5PPP/3R2K1 w - - 0 1"
	g, err := FromFEN(fen)
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	c, err := g.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if c.FEN() != fen {
		t.Errorf("clone fen = %q, want %q", c.FEN(), fen)
	}
	if p, ok := c.PieceAt(board.Square("d1")); !ok || p.Kind != "r" {
		t.Errorf("d1 on clone = %+v, %v; want white rook", p, ok)
	}
}
