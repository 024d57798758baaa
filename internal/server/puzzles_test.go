package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"testing"
	"time"

	"github.com/shatranj/arena/internal/board"
)

func TestPuzzleLadder(t *testing.T) {
	ts := newTestServer(t)
	token := ts.player(t)

	rec := ts.do(t, http.MethodGet, "/api/puzzles", token, nil)
	var list []PuzzleListItem
	decode(t, rec, &list)
	if len(list) != 5 {
		t.Fatalf("got %d puzzles, want 5", len(list))
	}
	for _, pz := range list {
		wantLocked := pz.ID == 5
		wantDone := pz.ID <= 3
		if pz.Locked != wantLocked || pz.Completed != wantDone {
			t.Errorf("puzzle %d locked=%v completed=%v", pz.ID, pz.Locked, pz.Completed)
		}
	}

	rec = ts.do(t, http.MethodGet, "/api/puzzles?difficulty="+url.QueryEscape("سهل"), token, nil)
	decode(t, rec, &list)
	if len(list) != 2 {
		t.Errorf("easy puzzles = %d, want 2", len(list))
	}

	if rec := ts.do(t, http.MethodPost, "/api/puzzles/5/start", token, nil); rec.Code != http.StatusForbidden {
		t.Errorf("locked level = %d, want 403", rec.Code)
	}
	if rec := ts.do(t, http.MethodPost, "/api/puzzles/9/start", token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown level = %d, want 404", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/api/puzzles/current", token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("no session = %d, want 404", rec.Code)
	}
}

func TestSolvePuzzle(t *testing.T) {
	ts := newTestServer(t)
	token := ts.player(t)

	rec := ts.do(t, http.MethodPost, "/api/puzzles/4/start", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d, body = %s", rec.Code, rec.Body)
	}
	var st PuzzleState
	decode(t, rec, &st)
	if st.PointsAvailable != 10 || st.Turn != board.White || st.TimeLeft < 299 || st.TimeLeft > 300 {
		t.Errorf("start state = points %d turn %s timeLeft %d", st.PointsAvailable, st.Turn, st.TimeLeft)
	}

	rec = ts.do(t, http.MethodPost, "/api/puzzles/current/hint", token, nil)
	var hint PuzzleHint
	decode(t, rec, &hint)
	if hint.TargetSquare != "f7" || hint.HintsUsed != 1 || hint.PointsAvailable != 8 {
		t.Errorf("hint = %+v", hint)
	}

	click := func(sq string) PuzzleClickResult {
		t.Helper()
		rec := ts.do(t, http.MethodPost, "/api/puzzles/current/click", token, ClickRequest{Square: sq})
		if rec.Code != http.StatusOK {
			t.Fatalf("click %s: status = %d, body = %s", sq, rec.Code, rec.Body)
		}
		var res PuzzleClickResult
		decode(t, rec, &res)
		return res
	}

	res := click("f3")
	if res.Outcome != board.Selected || !slices.Contains(res.State.Selection.Destinations, "g5") {
		t.Fatalf("select f3 = %s %+v", res.Outcome, res.State.Selection)
	}
	res = click("g5")
	if res.Outcome != board.Moved || res.State.Solved == nil {
		t.Fatalf("move = %s solved = %v", res.Outcome, res.State.Solved)
	}
	if s := res.State.Solved; s.PointsEarned != 8 || s.Score != 26 || s.NextLevel != 5 || s.Move != "Ng5" {
		t.Errorf("solved = %+v", s)
	}

	if rec := ts.do(t, http.MethodPost, "/api/puzzles/current/click", token, ClickRequest{Square: "e1"}); rec.Code != http.StatusConflict {
		t.Errorf("click after solve = %d, want 409", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/puzzles/progress", token, nil)
	var prog PuzzleProgressResponse
	decode(t, rec, &prog)
	if !slices.Equal(prog.Completed, []int{1, 2, 3, 4}) || prog.Score != 26 || prog.CurrentLevel != 5 || prog.TotalLevels != 5 {
		t.Errorf("progress = %+v", prog)
	}

	if rec := ts.do(t, http.MethodPost, "/api/puzzles/5/start", token, nil); rec.Code != http.StatusOK {
		t.Errorf("level 5 after solving 4 = %d, want 200", rec.Code)
	}
}

func TestPuzzleHintsFloorAtOnePoint(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	p := NewPuzzles(ts.store, 5*time.Minute)

	if _, err := p.Start(ctx, "user_ahmed", 1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	var hint PuzzleHint
	for range 4 {
		var err error
		if hint, err = p.Hint("user_ahmed"); err != nil {
			t.Fatalf("Hint: %v", err)
		}
	}
	if hint.PointsAvailable != 1 {
		t.Errorf("points after 4 hints = %d, want 1", hint.PointsAvailable)
	}

	p.Click(ctx, "user_ahmed", "e2")
	res, err := p.Click(ctx, "user_ahmed", "e4")
	if err != nil {
		t.Fatalf("Click: %v", err)
	}
	if res.State.Solved == nil || res.State.Solved.PointsEarned != 1 || res.State.Solved.Score != 1 {
		t.Errorf("solved = %+v", res.State.Solved)
	}
}

func TestRevealSolutionStopsTimer(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	p := NewPuzzles(ts.store, 5*time.Minute)

	now := time.Now()
	p.now = func() time.Time { return now }

	if _, err := p.Start(ctx, demoPlayerID, 2); err != nil {
		t.Fatalf("Start: %v", err)
	}
	now = now.Add(90 * time.Second)

	sol, err := p.RevealSolution(demoPlayerID)
	if err != nil {
		t.Fatalf("RevealSolution: %v", err)
	}
	if !slices.Equal(sol.Solution, []string{"Nf3", "Nc6", "Nxe5"}) || sol.TimeUsed != 90 {
		t.Errorf("solution = %+v", sol)
	}

	now = now.Add(time.Hour)
	st, err := p.State(demoPlayerID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if !st.SolutionShown || st.TimeLeft != 210 {
		t.Errorf("state = shown %v timeLeft %d, want true 210", st.SolutionShown, st.TimeLeft)
	}

	if _, err := p.RevealSolution("user_omar"); err != errNoActivePuzzle {
		t.Errorf("reveal without session = %v, want errNoActivePuzzle", err)
	}
}

// flakyProgressStore fails progress writes while down is set.
type flakyProgressStore struct {
	Store
	down bool
}

func (s *flakyProgressStore) PutPuzzleProgress(ctx context.Context, p PuzzleProgress) error {
	if s.down {
		return errors.New("database is locked")
	}
	return s.Store.PutPuzzleProgress(ctx, p)
}

func TestSolvePuzzleKeepsSessionWhenSaveFails(t *testing.T) {
	store := &flakyProgressStore{Store: newTestStore(t), down: true}
	p := NewPuzzles(store, 5*time.Minute)
	ctx := context.Background()

	if _, err := p.Start(ctx, "u1", 1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := p.Click(ctx, "u1", "e2"); err != nil {
		t.Fatalf("click e2: %v", err)
	}
	if _, err := p.Click(ctx, "u1", "e4"); err == nil {
		t.Fatal("click e4 succeeded while progress could not be saved")
	}

	st, err := p.State("u1")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.Solved != nil || st.FEN != puzzleCatalog[0].FEN || st.Selection.Selected != nil {
		t.Errorf("session after failed save = solved %+v fen %q selection %+v", st.Solved, st.FEN, st.Selection)
	}

	store.down = false
	p.Click(ctx, "u1", "e2")
	res, err := p.Click(ctx, "u1", "e4")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if res.State.Solved == nil || res.State.Solved.Score != 5 {
		t.Fatalf("retry solved = %+v", res.State.Solved)
	}
	prog, _ := store.PuzzleProgress(ctx, "u1")
	if !slices.Equal(prog.Completed, []int{1}) || prog.Score != 5 {
		t.Errorf("stored progress = %+v", prog)
	}
}
