package board

import (
	"slices"
	"testing"
)

type fakeEngine struct {
	turn   Color
	pieces map[Square]Piece
	dests  map[Square][]Square
}

func (f *fakeEngine) Turn() Color { return f.turn }

func (f *fakeEngine) PieceAt(sq Square) (Piece, bool) {
	p, ok := f.pieces[sq]
	return p, ok
}

func (f *fakeEngine) LegalDestinations(from Square) []Square { return f.dests[from] }

type moveCall struct{ from, to Square }

func newFixture(accept bool) (*Selector, *[]moveCall) {
	eng := &fakeEngine{
		turn: White,
		pieces: map[Square]Piece{
			"e2": {White, "p"},
			"g1": {White, "n"},
			"e7": {Black, "p"},
		},
		dests: map[Square][]Square{
			"e2": {"e3", "e4"},
			"g1": {"f3", "h3"},
		},
	}
	var calls []moveCall
	sel := NewSelector(eng, func(from, to Square) bool {
		calls = append(calls, moveCall{from, to})
		return accept
	})
	return sel, &calls
}

func TestClickFromIdle(t *testing.T) {
	tests := []struct {
		name   string
		square Square
		want   Outcome
	}{
		{"empty square", "d4", Ignored},
		{"opponent piece", "e7", Ignored},
		{"friendly piece", "e2", Selected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, _ := newFixture(true)
			if got := sel.Click(tt.square); got != tt.want {
				t.Fatalf("Click(%s) = %s, want %s", tt.square, got, tt.want)
			}
			if tt.want == Ignored && !sel.Idle() {
				t.Errorf("expected idle after %s", tt.name)
			}
		})
	}
}

func TestSelectPopulatesDestinations(t *testing.T) {
	sel, _ := newFixture(true)
	sel.Click("e2")

	snap := sel.Snapshot()
	if snap.Selected == nil || *snap.Selected != "e2" {
		t.Fatalf("selected = %v, want e2", snap.Selected)
	}
	if !slices.Equal(snap.Destinations, []Square{"e3", "e4"}) {
		t.Errorf("destinations = %v, want [e3 e4]", snap.Destinations)
	}
}

func TestClickSameSquareDeselects(t *testing.T) {
	sel, calls := newFixture(true)
	sel.Click("e2")

	if got := sel.Click("e2"); got != Deselected {
		t.Fatalf("got %s, want %s", got, Deselected)
	}
	snap := sel.Snapshot()
	if snap.Selected != nil || len(snap.Destinations) != 0 {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}
	if len(*calls) != 0 {
		t.Errorf("move callback called %d times, want 0", len(*calls))
	}
}

func TestClickDestinationMoves(t *testing.T) {
	sel, calls := newFixture(true)
	sel.Click("e2")

	if got := sel.Click("e4"); got != Moved {
		t.Fatalf("got %s, want %s", got, Moved)
	}
	if len(*calls) != 1 {
		t.Fatalf("move callback called %d times, want 1", len(*calls))
	}
	if (*calls)[0] != (moveCall{"e2", "e4"}) {
		t.Errorf("callback args = %+v, want e2->e4", (*calls)[0])
	}
	if !sel.Idle() {
		t.Error("expected idle after accepted move")
	}
}

func TestRejectedMoveKeepsSelection(t *testing.T) {
	sel, calls := newFixture(false)
	sel.Click("e2")
	before := sel.Snapshot()

	if got := sel.Click("e4"); got != Rejected {
		t.Fatalf("got %s, want %s", got, Rejected)
	}
	if len(*calls) != 1 {
		t.Fatalf("move callback called %d times, want 1", len(*calls))
	}

	after := sel.Snapshot()
	if after.Selected == nil || *after.Selected != *before.Selected {
		t.Errorf("selection changed: %v -> %v", before.Selected, after.Selected)
	}
	if !slices.Equal(after.Destinations, before.Destinations) {
		t.Errorf("destinations changed: %v -> %v", before.Destinations, after.Destinations)
	}
}

func TestClickOtherFriendlyPieceReselects(t *testing.T) {
	sel, calls := newFixture(true)
	sel.Click("e2")

	if got := sel.Click("g1"); got != Selected {
		t.Fatalf("got %s, want %s", got, Selected)
	}
	snap := sel.Snapshot()
	if *snap.Selected != "g1" {
		t.Errorf("selected = %s, want g1", *snap.Selected)
	}
	if !slices.Equal(snap.Destinations, []Square{"f3", "h3"}) {
		t.Errorf("destinations = %v, want [f3 h3]", snap.Destinations)
	}
	if len(*calls) != 0 {
		t.Errorf("move callback called %d times, want 0", len(*calls))
	}
}

func TestClickUnhighlightedSquareGoesIdle(t *testing.T) {
	for _, sq := range []Square{"a5", "e7"} {
		t.Run(string(sq), func(t *testing.T) {
			sel, calls := newFixture(true)
			sel.Click("e2")

			if got := sel.Click(sq); got != Deselected {
				t.Fatalf("got %s, want %s", got, Deselected)
			}
			if !sel.Idle() {
				t.Error("expected idle")
			}
			if len(*calls) != 0 {
				t.Errorf("move callback called %d times, want 0", len(*calls))
			}
		})
	}
}

func TestParseSquare(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"a1", false},
		{"h8", false},
		{"e4", false},
		{"i1", true},
		{"a9", true},
		{"a0", true},
		{"", true},
		{"e44", true},
		{"E4", true},
	}
	for _, tt := range tests {
		_, err := ParseSquare(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSquare(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}

	sq := SquareAt(4, 3)
	if sq != "e4" || sq.File() != 4 || sq.Rank() != 3 {
		t.Errorf("SquareAt(4, 3) = %s (file %d, rank %d)", sq, sq.File(), sq.Rank())
	}
}
