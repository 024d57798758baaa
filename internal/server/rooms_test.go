package server

import (
	"errors"
	"testing"
	"time"

	"github.com/shatranj/arena/internal/board"
	"github.com/shatranj/arena/internal/rules"
)

func TestEloDelta(t *testing.T) {
	tests := []struct {
		name   string
		ra, rb int
		score  float64
		want   int
	}{
		{"equal win", 1200, 1200, 1, 16},
		{"equal loss", 1200, 1200, 0, -16},
		{"equal draw", 1200, 1200, 0.5, 0},
		{"underdog win", 1200, 1600, 1, 29},
		{"favourite win", 1600, 1200, 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := eloDelta(tt.ra, tt.rb, tt.score); got != tt.want {
				t.Errorf("eloDelta(%d, %d, %v) = %d, want %d", tt.ra, tt.rb, tt.score, got, tt.want)
			}
		})
	}
}

func newTestRoom(t *testing.T, house board.Color) (*Rooms, *Room) {
	t.Helper()
	rs := NewRooms()
	rm := rs.create(roomOptions{
		White:       Seat{ID: "w", Username: "white"},
		Black:       Seat{ID: "b", Username: "black"},
		TimeControl: 5,
		GameType:    GameOnline,
		House:       house,
	})
	return rs, rm
}

func TestRoomMovePairs(t *testing.T) {
	_, rm := newTestRoom(t, "")
	if err := rm.replay("e2e4", "e7e5", "g1f3"); err != nil {
		t.Fatalf("replay: %v", err)
	}

	st := rm.State("w")
	want := []MovePair{{MoveNumber: 1, White: "e4", Black: "e5"}, {MoveNumber: 2, White: "Nf3"}}
	if len(st.Moves) != len(want) {
		t.Fatalf("moves = %+v", st.Moves)
	}
	for i := range want {
		if st.Moves[i] != want[i] {
			t.Errorf("move %d = %+v, want %+v", i, st.Moves[i], want[i])
		}
	}
	if st.LastMove == nil || st.LastMove.SAN != "Nf3" {
		t.Errorf("lastMove = %+v", st.LastMove)
	}
}

func TestRoomSelectorsArePerViewer(t *testing.T) {
	_, rm := newTestRoom(t, "")

	if out, err := rm.Click("w", "e2"); err != nil || out != board.Selected {
		t.Fatalf("click = %s, %v", out, err)
	}
	if st := rm.State("b"); st.Selection.Selected != nil {
		t.Errorf("black sees white's selection: %+v", st.Selection)
	}
	if _, err := rm.Click("b", "e7"); !errors.Is(err, errMovesNotAllowed) {
		t.Errorf("black click on white's turn err = %v", err)
	}
	if _, err := rm.Click("x", "e2"); !errors.Is(err, errNotPlayer) {
		t.Errorf("outsider click err = %v", err)
	}

	// A direct move clears any pending selection.
	if _, err := rm.Move("w", "d2", "d4", ""); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if st := rm.State("w"); st.Selection.Selected != nil {
		t.Errorf("selection survived a move: %+v", st.Selection)
	}
}

func TestRoomEndHookFiresOnce(t *testing.T) {
	rs, rm := newTestRoom(t, "")
	var ended []string
	rs.OnEnd(func(r *Room) { ended = append(ended, r.ID()) })

	if err := rm.Resign("w"); err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if err := rm.Abort(); !errors.Is(err, errGameOver) {
		t.Errorf("Abort after resign err = %v", err)
	}
	rm.State("w")

	if len(ended) != 1 || ended[0] != rm.ID() {
		t.Errorf("hook calls = %v, want one", ended)
	}
	if s := rm.Summary(); s.Result != rules.BlackWon || s.Reason != ReasonResign {
		t.Errorf("summary = %+v", s)
	}
}

func TestRoomHouseAcceptsDraw(t *testing.T) {
	_, rm := newTestRoom(t, board.Black)

	if err := rm.OfferDraw("w"); err != nil {
		t.Fatalf("OfferDraw: %v", err)
	}
	if s := rm.Summary(); s.Status != StatusFinished || s.Result != rules.Drawn {
		t.Errorf("summary = %+v", s)
	}
}

func TestRoomClocksWaitForFirstMove(t *testing.T) {
	rs, rm := newTestRoom(t, "")
	now := time.Now()
	rs.now = func() time.Time { return now }

	now = now.Add(time.Hour)
	st := rm.State("w")
	if st.Status != StatusWaiting || st.Clocks.White != 300 {
		t.Errorf("idle room = %s white %d, want waiting 300", st.Status, st.Clocks.White)
	}
}
