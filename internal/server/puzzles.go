package server

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shatranj/arena/internal/board"
	"github.com/shatranj/arena/internal/rules"
)

var (
	errLevelLocked    = errors.New("level locked")
	errNoActivePuzzle = errors.New("no active puzzle")
	errPuzzleSolved   = errors.New("puzzle already solved")
)

type Puzzle struct {
	ID           int          `json:"id"`
	Title        string       `json:"title"`
	Difficulty   string       `json:"difficulty"`
	FEN          string       `json:"fen"`
	Solution     []string     `json:"solution"`
	TargetSquare board.Square `json:"targetSquare"`
	Description  string       `json:"description"`
	Points       int          `json:"points"`
	Category     string       `json:"category"`
	Stars        int          `json:"stars"`
}

var puzzleCatalog = []Puzzle{
	{
		ID:           1,
		Title:        "تكتيك الدبوس الأساسي",
		Difficulty:   "سهل",
		FEN:          rules.StartFEN,
		Solution:     []string{"e2e4", "e7e5", "Nf3"},
		TargetSquare: "e4",
		Description:  "احم الملكة وهاجم في نفس الوقت",
		Points:       5,
		Category:     "تكتيك",
		Stars:        3,
	},
	{
		ID:           2,
		Title:        "شوكة الفارس",
		Difficulty:   "سهل",
		FEN:          "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2",
		Solution:     []string{"Nf3", "Nc6", "Nxe5"},
		TargetSquare: "e5",
		Description:  "استخدم الفارس لمهاجمة قطعتين",
		Points:       5,
		Category:     "تكتيك",
		Stars:        2,
	},
	{
		ID:           3,
		Title:        "تكتيك الكشف",
		Difficulty:   "متوسط",
		FEN:          "r1bqkbnr/pppp1ppp/2n5/1B2p3/4P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 3 4",
		Solution:     []string{"Ng5", "d6", "Nxf7"},
		TargetSquare: "f7",
		Description:  "اكشف الملك واهاجم نقطة ضعف",
		Points:       8,
		Category:     "تكتيك",
		Stars:        3,
	},
	{
		ID:           4,
		Title:        "تكتيك الطعم",
		Difficulty:   "متوسط",
		FEN:          "rnbqk2r/pppp1ppp/5n2/2b1p3/2B1P3/3P1N2/PPP2PPP/RNBQK2R w KQkq - 4 5",
		Solution:     []string{"Ng5", "d6", "Nxf7"},
		TargetSquare: "f7",
		Description:  "اطعم قطعة صغيرة لتكسب أكبر",
		Points:       10,
		Category:     "تكتيك",
	},
	{
		ID:           5,
		Title:        "مات في حركتين",
		Difficulty:   "صعب",
		FEN:          "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
		Solution:     []string{"Qd8+", "Rxd8", "Nxf7#"},
		TargetSquare: "f7",
		Description:  "مات سريع في حركتين",
		Points:       15,
		Category:     "مات",
	},
}

type puzzleSession struct {
	puzzle    Puzzle
	game      *rules.Game
	selector  *board.Selector
	hints     int
	revealed  bool
	solved    *PuzzleSolved
	played    *rules.Played
	startedAt time.Time
	stoppedAt time.Time
}

// PuzzleSolved reports the reward for a solved puzzle.
type PuzzleSolved struct {
	PuzzleID     int    `json:"puzzleId"`
	Move         string `json:"move"`
	PointsEarned int    `json:"pointsEarned"`
	TimeUsed     int    `json:"timeUsed"`
	Score        int    `json:"score"`
	NextLevel    int    `json:"nextLevel,omitempty"`
}

// PuzzleListItem is a catalog entry without the answer.
type PuzzleListItem struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Difficulty  string `json:"difficulty"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	Category    string `json:"category"`
	Stars       int    `json:"stars"`
	Locked      bool   `json:"locked"`
	Completed   bool   `json:"completed"`
}

type PuzzleState struct {
	ID              int              `json:"id"`
	Title           string           `json:"title"`
	Difficulty      string           `json:"difficulty"`
	Description     string           `json:"description"`
	FEN             string           `json:"fen"`
	Board           [][]*board.Piece `json:"board"`
	Turn            board.Color      `json:"turn"`
	Selection       board.Snapshot   `json:"selection"`
	HintsUsed       int              `json:"hintsUsed"`
	PointsAvailable int              `json:"pointsAvailable"`
	TimeLeft        int              `json:"timeLeft"`
	SolutionShown   bool             `json:"solutionShown"`
	Solved          *PuzzleSolved    `json:"solved,omitempty"`
}

type PuzzleClickResult struct {
	Outcome board.Outcome `json:"outcome"`
	State   PuzzleState   `json:"state"`
}

type PuzzleHint struct {
	TargetSquare    board.Square `json:"targetSquare"`
	HintsUsed       int          `json:"hintsUsed"`
	PointsAvailable int          `json:"pointsAvailable"`
}

type PuzzleSolution struct {
	Solution []string `json:"solution"`
	TimeUsed int      `json:"timeUsed"`
}

type PuzzleProgressResponse struct {
	Completed    []int `json:"completed"`
	Score        int   `json:"score"`
	CurrentLevel int   `json:"currentLevel"`
	TotalLevels  int   `json:"totalLevels"`
}

// Puzzles serves the puzzle ladder. Active sessions live in memory, one per
// user; completed levels and score are persisted.
type Puzzles struct {
	mu        sync.Mutex
	store     Store
	catalog   []Puzzle
	sessions  map[string]*puzzleSession
	timeLimit time.Duration
	now       func() time.Time
}

func NewPuzzles(store Store, timeLimit time.Duration) *Puzzles {
	return &Puzzles{
		store:     store,
		catalog:   puzzleCatalog,
		sessions:  make(map[string]*puzzleSession),
		timeLimit: timeLimit,
		now:       time.Now,
	}
}

func (p *Puzzles) find(id int) (Puzzle, bool) {
	for _, pz := range p.catalog {
		if pz.ID == id {
			return pz, true
		}
	}
	return Puzzle{}, false
}

func unlocked(id int, completed []int) bool {
	return id == 1 || slices.Contains(completed, id-1)
}

func (p *Puzzles) List(ctx context.Context, userID, difficulty string) ([]PuzzleListItem, error) {
	prog, err := p.store.PuzzleProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []PuzzleListItem{}
	for _, pz := range p.catalog {
		if difficulty != "" && pz.Difficulty != difficulty {
			continue
		}
		out = append(out, PuzzleListItem{
			ID:          pz.ID,
			Title:       pz.Title,
			Difficulty:  pz.Difficulty,
			Description: pz.Description,
			Points:      pz.Points,
			Category:    pz.Category,
			Stars:       pz.Stars,
			Locked:      !unlocked(pz.ID, prog.Completed),
			Completed:   slices.Contains(prog.Completed, pz.ID),
		})
	}
	return out, nil
}

func (p *Puzzles) Progress(ctx context.Context, userID string) (PuzzleProgressResponse, error) {
	prog, err := p.store.PuzzleProgress(ctx, userID)
	if err != nil {
		return PuzzleProgressResponse{}, err
	}
	current := 1
	for current < len(p.catalog) && slices.Contains(prog.Completed, current) {
		current++
	}
	completed := prog.Completed
	if completed == nil {
		completed = []int{}
	}
	return PuzzleProgressResponse{
		Completed:    completed,
		Score:        prog.Score,
		CurrentLevel: current,
		TotalLevels:  len(p.catalog),
	}, nil
}

// Start opens a fresh session on level id, replacing any previous one.
func (p *Puzzles) Start(ctx context.Context, userID string, id int) (PuzzleState, error) {
	pz, ok := p.find(id)
	if !ok {
		return PuzzleState{}, ErrNotFound
	}
	prog, err := p.store.PuzzleProgress(ctx, userID)
	if err != nil {
		return PuzzleState{}, err
	}
	if !unlocked(id, prog.Completed) {
		return PuzzleState{}, errLevelLocked
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	sess := &puzzleSession{puzzle: pz, startedAt: p.now()}
	if err := sess.setUp(); err != nil {
		return PuzzleState{}, err
	}
	p.sessions[userID] = sess
	return p.state(sess), nil
}

// setUp puts the puzzle position on a fresh board.
func (sess *puzzleSession) setUp() error {
	game, err := rules.FromFEN(sess.puzzle.FEN)
	if err != nil {
		return err
	}
	sess.game = game
	sess.played = nil
	sess.selector = board.NewSelector(game, func(from, to board.Square) bool {
		played, err := game.Move(from, to, "")
		if err != nil {
			return false
		}
		sess.played = &played
		return true
	})
	return nil
}

// solve records the reward. Nothing on the session changes unless the
// progress was saved. Caller holds p.mu.
func (p *Puzzles) solve(ctx context.Context, userID string, sess *puzzleSession, played rules.Played) error {
	prog, err := p.store.PuzzleProgress(ctx, userID)
	if err != nil {
		return fmt.Errorf("loading puzzle progress: %w", err)
	}
	earned := max(1, sess.puzzle.Points-2*sess.hints)
	if !slices.Contains(prog.Completed, sess.puzzle.ID) {
		prog.Completed = append(prog.Completed, sess.puzzle.ID)
		slices.Sort(prog.Completed)
	}
	prog.UserID = userID
	prog.Score += earned
	if err := p.store.PutPuzzleProgress(ctx, prog); err != nil {
		return fmt.Errorf("saving puzzle progress: %w", err)
	}

	if sess.stoppedAt.IsZero() {
		sess.stoppedAt = p.now()
	}
	solved := &PuzzleSolved{
		PuzzleID:     sess.puzzle.ID,
		Move:         played.SAN,
		PointsEarned: earned,
		TimeUsed:     int(sess.stoppedAt.Sub(sess.startedAt).Seconds()),
		Score:        prog.Score,
	}
	if _, ok := p.find(sess.puzzle.ID + 1); ok {
		solved.NextLevel = sess.puzzle.ID + 1
	}
	sess.solved = solved
	return nil
}

func (p *Puzzles) session(userID string) (*puzzleSession, error) {
	sess, ok := p.sessions[userID]
	if !ok {
		return nil, errNoActivePuzzle
	}
	return sess, nil
}

func (p *Puzzles) State(userID string) (PuzzleState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sess, err := p.session(userID)
	if err != nil {
		return PuzzleState{}, err
	}
	return p.state(sess), nil
}

// Click drives the puzzle board. Any legal move solves the puzzle.
func (p *Puzzles) Click(ctx context.Context, userID string, sq board.Square) (PuzzleClickResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sess, err := p.session(userID)
	if err != nil {
		return PuzzleClickResult{}, err
	}
	if sess.solved != nil {
		return PuzzleClickResult{}, errPuzzleSolved
	}
	out := sess.selector.Click(sq)
	if sess.played != nil {
		if err := p.solve(ctx, userID, sess, *sess.played); err != nil {
			// Take the move back so the level can be tried again.
			if resetErr := sess.setUp(); resetErr != nil {
				return PuzzleClickResult{}, errors.Join(err, resetErr)
			}
			return PuzzleClickResult{}, err
		}
	}
	return PuzzleClickResult{Outcome: out, State: p.state(sess)}, nil
}

func (p *Puzzles) Hint(userID string) (PuzzleHint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sess, err := p.session(userID)
	if err != nil {
		return PuzzleHint{}, err
	}
	if sess.solved == nil {
		sess.hints++
	}
	return PuzzleHint{
		TargetSquare:    sess.puzzle.TargetSquare,
		HintsUsed:       sess.hints,
		PointsAvailable: max(1, sess.puzzle.Points-2*sess.hints),
	}, nil
}

// RevealSolution shows the full line and stops the timer.
func (p *Puzzles) RevealSolution(userID string) (PuzzleSolution, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sess, err := p.session(userID)
	if err != nil {
		return PuzzleSolution{}, err
	}
	sess.revealed = true
	if sess.stoppedAt.IsZero() {
		sess.stoppedAt = p.now()
	}
	return PuzzleSolution{
		Solution: slices.Clone(sess.puzzle.Solution),
		TimeUsed: int(sess.stoppedAt.Sub(sess.startedAt).Seconds()),
	}, nil
}

func (p *Puzzles) state(sess *puzzleSession) PuzzleState {
	end := sess.stoppedAt
	if end.IsZero() {
		end = p.now()
	}
	left := p.timeLimit - end.Sub(sess.startedAt)
	return PuzzleState{
		ID:              sess.puzzle.ID,
		Title:           sess.puzzle.Title,
		Difficulty:      sess.puzzle.Difficulty,
		Description:     sess.puzzle.Description,
		FEN:             sess.game.FEN(),
		Board:           sess.game.Board(),
		Turn:            sess.game.Turn(),
		Selection:       sess.selector.Snapshot(),
		HintsUsed:       sess.hints,
		PointsAvailable: max(1, sess.puzzle.Points-2*sess.hints),
		TimeLeft:        int(max(left, 0).Seconds()),
		SolutionShown:   sess.revealed,
		Solved:          sess.solved,
	}
}
