package server

import (
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shatranj/arena/internal/board"
	"github.com/shatranj/arena/internal/rules"
)

// Room statuses.
const (
	StatusWaiting  = "waiting"
	StatusActive   = "active"
	StatusFinished = "finished"
)

// End reasons.
const (
	ReasonCheckmate = "checkmate"
	ReasonTimeout   = "timeout"
	ReasonResign    = "resign"
	ReasonDraw      = "draw"
	ReasonStalemate = "stalemate"
	ReasonAborted   = "aborted"
)

// Game types.
const (
	GameOnline   = "online"
	GameQuick    = "quick"
	GamePhysical = "physical"
)

const openingMessage = "بدأت المباراة! حظاً موفقاً للاعبين"

var (
	errNotPlayer       = errors.New("not a player in this game")
	errNotYourTurn     = errors.New("not your turn")
	errGameOver        = errors.New("game is over")
	errMovesNotAllowed = errors.New("moves are not allowed")
	errNoDrawOffer     = errors.New("no draw offer to answer")
	errDrawPending     = errors.New("draw offer already pending")
)

type Seat struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
}

type ChatMessage struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId,omitempty"`
	Username string    `json:"username,omitempty"`
	Message  string    `json:"message"`
	Kind     string    `json:"kind"`
	At       time.Time `json:"at"`
}

// MovePair groups one full move for the move list.
type MovePair struct {
	MoveNumber int    `json:"moveNumber"`
	White      string `json:"white"`
	Black      string `json:"black,omitempty"`
}

type Clocks struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// Room is one live game held in memory.
type Room struct {
	mu sync.Mutex

	id          string
	white       Seat
	black       Seat
	timeControl int
	gameType    string
	house       board.Color

	game        *rules.Game
	plies       []rules.Played
	chat        []ChatMessage
	selectors   map[string]*board.Selector
	status      string
	result      string
	reason      string
	drawOffer   board.Color
	remaining   map[board.Color]time.Duration
	turnStarted time.Time
	createdAt   time.Time
	endedAt     time.Time
	at          time.Time // time of the operation in progress

	now   func() time.Time
	onEnd func(*Room)
}

// Rooms is the registry of live games.
type Rooms struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	now   func() time.Time
	onEnd func(*Room)
}

func NewRooms() *Rooms {
	return &Rooms{
		rooms: make(map[string]*Room),
		now:   time.Now,
	}
}

// OnEnd registers a hook that runs once when a room finishes. It runs
// outside the room lock.
func (rs *Rooms) OnEnd(fn func(*Room)) { rs.onEnd = fn }

type roomOptions struct {
	ID          string
	White       Seat
	Black       Seat
	TimeControl int
	GameType    string
	House       board.Color
}

func (rs *Rooms) create(opts roomOptions) *Room {
	if opts.ID == "" {
		opts.ID = "game_" + uuid.NewString()[:8]
	}
	now := rs.now()
	clock := time.Duration(opts.TimeControl) * time.Minute
	rm := &Room{
		id:          opts.ID,
		white:       opts.White,
		black:       opts.Black,
		timeControl: opts.TimeControl,
		gameType:    opts.GameType,
		house:       opts.House,
		game:        rules.New(),
		selectors:   make(map[string]*board.Selector),
		status:      StatusWaiting,
		remaining:   map[board.Color]time.Duration{board.White: clock, board.Black: clock},
		turnStarted: now,
		createdAt:   now,
		now:         func() time.Time { return rs.now() },
		onEnd: func(rm *Room) {
			if rs.onEnd != nil {
				rs.onEnd(rm)
			}
		},
	}
	rm.chat = append(rm.chat, ChatMessage{
		ID:      uuid.NewString(),
		Message: openingMessage,
		Kind:    "system",
		At:      now,
	})

	rs.mu.Lock()
	rs.rooms[rm.id] = rm
	rs.mu.Unlock()
	return rm
}

func (rs *Rooms) Get(id string) (*Room, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	rm, ok := rs.rooms[id]
	return rm, ok
}

// List returns every room, newest first.
func (rs *Rooms) List() []*Room {
	rs.mu.RLock()
	out := make([]*Room, 0, len(rs.rooms))
	for _, rm := range rs.rooms {
		out = append(out, rm)
	}
	rs.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].createdAt.Equal(out[j].createdAt) {
			return out[i].id < out[j].id
		}
		return out[i].createdAt.After(out[j].createdAt)
	})
	return out
}

// Live returns the unfinished rooms userID plays in.
func (rs *Rooms) Live(userID string) []*Room {
	var out []*Room
	for _, rm := range rs.List() {
		if rm.Has(userID) && !rm.Finished() {
			out = append(out, rm)
		}
	}
	return out
}

// do runs fn under the room lock, settling an expired clock first, and
// fires the end hook if the room finished along the way.
func (rm *Room) do(fn func(now time.Time) error) error {
	rm.mu.Lock()
	was := rm.status
	now := rm.now()
	rm.at = now
	rm.checkFlag(now)
	var err error
	if fn != nil {
		err = fn(now)
	}
	ended := was != StatusFinished && rm.status == StatusFinished
	rm.mu.Unlock()

	if ended && rm.onEnd != nil {
		rm.onEnd(rm)
	}
	return err
}

func (rm *Room) ID() string { return rm.id }

func (rm *Room) Has(userID string) bool {
	return rm.white.ID == userID || rm.black.ID == userID
}

func (rm *Room) Finished() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.status == StatusFinished
}

func (rm *Room) colorOf(userID string) (board.Color, bool) {
	switch userID {
	case rm.white.ID:
		return board.White, true
	case rm.black.ID:
		return board.Black, true
	}
	return "", false
}

func (rm *Room) seat(c board.Color) Seat {
	if c == board.White {
		return rm.white
	}
	return rm.black
}

// clock reports the time left for c at now without mutating state.
func (rm *Room) clock(c board.Color, now time.Time) time.Duration {
	left := rm.remaining[c]
	if rm.status == StatusActive && rm.game.Turn() == c {
		left -= now.Sub(rm.turnStarted)
	}
	return max(left, 0)
}

func (rm *Room) checkFlag(now time.Time) {
	if rm.status != StatusActive {
		return
	}
	turn := rm.game.Turn()
	if rm.clock(turn, now) > 0 {
		return
	}
	rm.remaining[turn] = 0
	rm.finish(winnerResult(turn.Opposite()), ReasonTimeout, now)
}

func winnerResult(c board.Color) string {
	if c == board.White {
		return rules.WhiteWon
	}
	return rules.BlackWon
}

func (rm *Room) finish(result, reason string, now time.Time) {
	rm.status = StatusFinished
	rm.result = result
	rm.reason = reason
	rm.endedAt = now
	rm.drawOffer = ""
	for _, sel := range rm.selectors {
		sel.Reset()
	}
}

func (rm *Room) movable(c board.Color) bool {
	return rm.status != StatusFinished && rm.game.Turn() == c
}

// play applies a move for color c. Caller holds the lock.
func (rm *Room) play(c board.Color, from, to board.Square, promo string, now time.Time) (rules.Played, error) {
	if rm.status == StatusFinished {
		return rules.Played{}, errGameOver
	}
	if rm.game.Turn() != c {
		return rules.Played{}, errNotYourTurn
	}

	played, err := rm.game.Move(from, to, promo)
	if err != nil {
		return rules.Played{}, err
	}

	if rm.status == StatusActive {
		rm.remaining[c] -= now.Sub(rm.turnStarted)
	}
	rm.status = StatusActive
	rm.turnStarted = now
	rm.plies = append(rm.plies, played)
	if rm.drawOffer != "" && rm.drawOffer != c {
		rm.drawOffer = ""
	}
	for _, sel := range rm.selectors {
		sel.Reset()
	}

	if rm.game.Over() {
		reason := ReasonDraw
		switch rm.game.Method() {
		case "checkmate":
			reason = ReasonCheckmate
		case "stalemate":
			reason = ReasonStalemate
		}
		rm.finish(rm.game.Outcome(), reason, now)
		return played, nil
	}

	if rm.house != "" && rm.game.Turn() == rm.house {
		rm.houseReply(now)
	}
	return played, nil
}

// houseReply plays the first legal move in square order for the house side.
func (rm *Room) houseReply(now time.Time) {
	for rank := 7; rank >= 0; rank-- {
		for file := 0; file < 8; file++ {
			from := board.SquareAt(file, rank)
			p, ok := rm.game.PieceAt(from)
			if !ok || p.Color != rm.house {
				continue
			}
			for _, to := range rm.game.LegalDestinations(from) {
				if _, err := rm.play(rm.house, from, to, "", now); err == nil {
					return
				}
			}
		}
	}
}

func (rm *Room) selectorFor(userID string, c board.Color) *board.Selector {
	sel, ok := rm.selectors[userID]
	if !ok {
		sel = board.NewSelector(rm.game, func(from, to board.Square) bool {
			_, err := rm.play(c, from, to, "", rm.at)
			return err == nil
		})
		rm.selectors[userID] = sel
	}
	return sel
}

// Click feeds a square click from userID into their selector.
func (rm *Room) Click(userID string, sq board.Square) (board.Outcome, error) {
	var out board.Outcome
	err := rm.do(func(now time.Time) error {
		c, ok := rm.colorOf(userID)
		if !ok {
			return errNotPlayer
		}
		if !rm.movable(c) {
			return errMovesNotAllowed
		}
		out = rm.selectorFor(userID, c).Click(sq)
		return nil
	})
	return out, err
}

// Move applies a direct move from userID.
func (rm *Room) Move(userID string, from, to board.Square, promo string) (rules.Played, error) {
	var played rules.Played
	err := rm.do(func(now time.Time) error {
		c, ok := rm.colorOf(userID)
		if !ok {
			return errNotPlayer
		}
		var err error
		played, err = rm.play(c, from, to, promo, now)
		return err
	})
	return played, err
}

func (rm *Room) Chat(user User, message string) (ChatMessage, error) {
	var msg ChatMessage
	err := rm.do(func(now time.Time) error {
		if !rm.Has(user.ID) {
			return errNotPlayer
		}
		msg = ChatMessage{
			ID:       uuid.NewString(),
			UserID:   user.ID,
			Username: user.Username,
			Message:  message,
			Kind:     "text",
			At:       now,
		}
		rm.chat = append(rm.chat, msg)
		return nil
	})
	return msg, err
}

func (rm *Room) Resign(userID string) error {
	return rm.do(func(now time.Time) error {
		c, ok := rm.colorOf(userID)
		if !ok {
			return errNotPlayer
		}
		if rm.status == StatusFinished {
			return errGameOver
		}
		rm.finish(winnerResult(c.Opposite()), ReasonResign, now)
		return nil
	})
}

// OfferDraw records a draw offer. The house side accepts immediately.
func (rm *Room) OfferDraw(userID string) error {
	return rm.do(func(now time.Time) error {
		c, ok := rm.colorOf(userID)
		if !ok {
			return errNotPlayer
		}
		if rm.status == StatusFinished {
			return errGameOver
		}
		if rm.drawOffer != "" {
			return errDrawPending
		}
		if rm.house == c.Opposite() {
			rm.finish(rules.Drawn, ReasonDraw, now)
			return nil
		}
		rm.drawOffer = c
		return nil
	})
}

// RespondDraw answers the opponent's pending draw offer.
func (rm *Room) RespondDraw(userID string, accept bool) error {
	return rm.do(func(now time.Time) error {
		c, ok := rm.colorOf(userID)
		if !ok {
			return errNotPlayer
		}
		if rm.status == StatusFinished {
			return errGameOver
		}
		if rm.drawOffer == "" || rm.drawOffer == c {
			return errNoDrawOffer
		}
		if accept {
			rm.finish(rules.Drawn, ReasonDraw, now)
			return nil
		}
		rm.drawOffer = ""
		return nil
	})
}

// Abort ends the game without a winner.
func (rm *Room) Abort() error {
	return rm.do(func(now time.Time) error {
		if rm.status == StatusFinished {
			return errGameOver
		}
		rm.finish(rules.Ongoing, ReasonAborted, now)
		return nil
	})
}

// replay applies UCI moves without clocks or the end hook.
func (rm *Room) replay(moves ...string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	now := rm.now()
	for _, m := range moves {
		from, err := board.ParseSquare(m[:2])
		if err != nil {
			return err
		}
		to, err := board.ParseSquare(m[2:4])
		if err != nil {
			return err
		}
		if _, err := rm.play(rm.game.Turn(), from, to, m[4:], now); err != nil {
			return err
		}
	}
	return nil
}

// GameState is the per-viewer view of a room.
type GameState struct {
	ID          string           `json:"id"`
	White       Seat             `json:"white"`
	Black       Seat             `json:"black"`
	TimeControl int              `json:"timeControl"`
	GameType    string           `json:"gameType"`
	Status      string           `json:"status"`
	Result      string           `json:"result"`
	Reason      string           `json:"reason,omitempty"`
	FEN         string           `json:"fen"`
	Board       [][]*board.Piece `json:"board"`
	Turn        board.Color      `json:"turn"`
	Check       bool             `json:"check"`
	Checkmate   bool             `json:"checkmate"`
	Draw        bool             `json:"draw"`
	Clocks      Clocks           `json:"clocks"`
	Moves       []MovePair       `json:"moves"`
	LastMove    *rules.Played    `json:"lastMove,omitempty"`
	Chat        []ChatMessage    `json:"chat"`
	YourColor   board.Color      `json:"yourColor,omitempty"`
	Selection   board.Snapshot   `json:"selection"`
	AllowMoves  bool             `json:"allowMoves"`
	DrawOffer   board.Color      `json:"drawOfferBy,omitempty"`
}

// State returns the room as seen by viewerID. A flag fall is settled first.
func (rm *Room) State(viewerID string) GameState {
	var st GameState
	rm.do(func(now time.Time) error {
		st = GameState{
			ID:          rm.id,
			White:       rm.white,
			Black:       rm.black,
			TimeControl: rm.timeControl,
			GameType:    rm.gameType,
			Status:      rm.status,
			Result:      rm.game.Outcome(),
			Reason:      rm.reason,
			FEN:         rm.game.FEN(),
			Board:       rm.game.Board(),
			Turn:        rm.game.Turn(),
			Check:       rm.game.InCheck(),
			Checkmate:   rm.game.IsCheckmate(),
			Draw:        rm.result == rules.Drawn,
			Clocks: Clocks{
				White: int(rm.clock(board.White, now).Seconds()),
				Black: int(rm.clock(board.Black, now).Seconds()),
			},
			Moves:     rm.movePairs(),
			Chat:      append([]ChatMessage(nil), rm.chat...),
			Selection: board.Snapshot{Destinations: []board.Square{}},
			DrawOffer: rm.drawOffer,
		}
		if rm.status == StatusFinished {
			st.Result = rm.result
		}
		if n := len(rm.plies); n > 0 {
			last := rm.plies[n-1]
			st.LastMove = &last
		}
		if c, ok := rm.colorOf(viewerID); ok {
			st.YourColor = c
			st.AllowMoves = rm.movable(c)
			if sel, ok := rm.selectors[viewerID]; ok {
				st.Selection = sel.Snapshot()
			}
		}
		return nil
	})
	return st
}

func (rm *Room) movePairs() []MovePair {
	pairs := make([]MovePair, 0, (len(rm.plies)+1)/2)
	for i, p := range rm.plies {
		if i%2 == 0 {
			pairs = append(pairs, MovePair{MoveNumber: i/2 + 1, White: p.SAN})
			continue
		}
		pairs[len(pairs)-1].Black = p.SAN
	}
	return pairs
}

// GameSummary is the list view of a room.
type GameSummary struct {
	ID          string      `json:"id"`
	White       Seat        `json:"white"`
	Black       Seat        `json:"black"`
	TimeControl int         `json:"timeControl"`
	GameType    string      `json:"gameType"`
	Status      string      `json:"status"`
	Result      string      `json:"result"`
	Reason      string      `json:"reason,omitempty"`
	MoveCount   int         `json:"moveCount"`
	Turn        board.Color `json:"turn"`
	CreatedAt   time.Time   `json:"createdAt"`
	EndedAt     *time.Time  `json:"endedAt,omitempty"`
}

func (rm *Room) Summary() GameSummary {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	s := GameSummary{
		ID:          rm.id,
		White:       rm.white,
		Black:       rm.black,
		TimeControl: rm.timeControl,
		GameType:    rm.gameType,
		Status:      rm.status,
		Result:      rules.Ongoing,
		Reason:      rm.reason,
		MoveCount:   len(rm.plies),
		Turn:        rm.game.Turn(),
		CreatedAt:   rm.createdAt,
	}
	if rm.status == StatusFinished {
		s.Result = rm.result
		ended := rm.endedAt
		s.EndedAt = &ended
	}
	return s
}

// eloDelta returns the rating change for a player rated ra scoring score
// (1, 0.5 or 0) against rb.
func eloDelta(ra, rb int, score float64) int {
	expected := 1 / (1 + math.Pow(10, float64(rb-ra)/400))
	return int(math.Round(32 * (score - expected)))
}
