package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shatranj/arena/internal/board"
	"github.com/shatranj/arena/internal/rules"
)

// houseID is the fixed ID of the quick-play opponent.
const houseID = "house"

type ClickRequest struct {
	Square string `json:"square" validate:"required,len=2"`
}

type ClickResponse struct {
	Outcome board.Outcome `json:"outcome"`
	State   GameState     `json:"state"`
}

type MoveRequest struct {
	From      string `json:"from" validate:"required,len=2"`
	To        string `json:"to" validate:"required,len=2"`
	Promotion string `json:"promotion" validate:"omitempty,oneof=q r b n"`
}

type MoveResponse struct {
	Move  rules.Played `json:"move"`
	State GameState    `json:"state"`
}

type ChatRequest struct {
	Message string `json:"message" validate:"required,max=500"`
}

type DrawResponseRequest struct {
	Accept bool `json:"accept"`
}

type QuickPlayRequest struct {
	TimeControl   int  `json:"timeControl" validate:"required,oneof=1 3 5 10 15 30"`
	PhysicalBoard bool `json:"physicalBoard"`
}

type GameCreatedResponse struct {
	GameID string `json:"gameId"`
}

// ActiveGame is a dashboard entry for one of the viewer's live games.
type ActiveGame struct {
	ID          string      `json:"id"`
	Opponent    Seat        `json:"opponent"`
	YourColor   board.Color `json:"yourColor"`
	TimeControl int         `json:"timeControl"`
	Status      string      `json:"status"`
	MoveCount   int         `json:"moveCount"`
	YourTurn    bool        `json:"yourTurn"`
}

func seatOf(u User) Seat {
	return Seat{ID: u.ID, Username: u.Username, Rating: u.Rating}
}

func loadRoom(w http.ResponseWriter, r *http.Request, rooms *Rooms) (*Room, bool) {
	rm, ok := rooms.Get(chi.URLParam(r, "gameID"))
	if !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return nil, false
	}
	return rm, true
}

func writeRoomError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNotPlayer):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, board.ErrInvalidSquare):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errNotYourTurn),
		errors.Is(err, errMovesNotAllowed),
		errors.Is(err, errGameOver),
		errors.Is(err, errNoDrawOffer),
		errors.Is(err, errDrawPending),
		errors.Is(err, rules.ErrIllegalMove):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func handleGameState(rooms *Rooms) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, ok := loadRoom(w, r, rooms)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, rm.State(userFrom(r).ID))
	}
}

func handleGameClick(rooms *Rooms, v *Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, ok := loadRoom(w, r, rooms)
		if !ok {
			return
		}
		var req ClickRequest
		if !v.decode(w, r, &req) {
			return
		}
		sq, err := board.ParseSquare(req.Square)
		if err != nil {
			writeRoomError(w, err)
			return
		}

		user := userFrom(r)
		out, err := rm.Click(user.ID, sq)
		if err != nil {
			writeRoomError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ClickResponse{Outcome: out, State: rm.State(user.ID)})
	}
}

func handleGameMove(rooms *Rooms, v *Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, ok := loadRoom(w, r, rooms)
		if !ok {
			return
		}
		var req MoveRequest
		if !v.decode(w, r, &req) {
			return
		}
		from, err := board.ParseSquare(req.From)
		if err != nil {
			writeRoomError(w, err)
			return
		}
		to, err := board.ParseSquare(req.To)
		if err != nil {
			writeRoomError(w, err)
			return
		}

		user := userFrom(r)
		played, err := rm.Move(user.ID, from, to, req.Promotion)
		if err != nil {
			writeRoomError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, MoveResponse{Move: played, State: rm.State(user.ID)})
	}
}

func handleGameChat(rooms *Rooms, v *Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, ok := loadRoom(w, r, rooms)
		if !ok {
			return
		}
		var req ChatRequest
		if !v.decode(w, r, &req) {
			return
		}
		msg, err := rm.Chat(userFrom(r), req.Message)
		if err != nil {
			writeRoomError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

// handleGameAction wraps the body-less room actions.
func handleGameAction(rooms *Rooms, action func(rm *Room, userID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, ok := loadRoom(w, r, rooms)
		if !ok {
			return
		}
		user := userFrom(r)
		if err := action(rm, user.ID); err != nil {
			writeRoomError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rm.State(user.ID))
	}
}

func handleDrawRespond(rooms *Rooms) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, ok := loadRoom(w, r, rooms)
		if !ok {
			return
		}
		var req DrawResponseRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		user := userFrom(r)
		if err := rm.RespondDraw(user.ID, req.Accept); err != nil {
			writeRoomError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rm.State(user.ID))
	}
}

func handleActiveGames(rooms *Rooms) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r)
		out := []ActiveGame{}
		for _, rm := range rooms.Live(user.ID) {
			s := rm.Summary()
			g := ActiveGame{
				ID:          s.ID,
				Opponent:    s.Black,
				YourColor:   board.White,
				TimeControl: s.TimeControl,
				Status:      s.Status,
				MoveCount:   s.MoveCount,
			}
			if s.Black.ID == user.ID {
				g.Opponent = s.White
				g.YourColor = board.Black
			}
			g.YourTurn = s.Turn == g.YourColor
			out = append(out, g)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleQuickPlay(store Store, rooms *Rooms, v *Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req QuickPlayRequest
		if !v.decode(w, r, &req) {
			return
		}
		house, err := ensureHouse(r.Context(), store)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		gameType := GameQuick
		if req.PhysicalBoard {
			gameType = GamePhysical
		}
		rm := rooms.create(roomOptions{
			White:       seatOf(userFrom(r)),
			Black:       seatOf(house),
			TimeControl: req.TimeControl,
			GameType:    gameType,
			House:       board.Black,
		})
		writeJSON(w, http.StatusCreated, GameCreatedResponse{GameID: rm.ID()})
	}
}

// ensureHouse returns the quick-play opponent, creating it on first use.
func ensureHouse(ctx context.Context, store Store) (User, error) {
	u, err := store.UserByID(ctx, houseID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	u, err = store.CreateUser(ctx, User{
		ID:       houseID,
		Username: "المحرك",
		Email:    "house@shatranj.local",
		Role:     RolePlayer,
		Avatar:   "♜",
		Rating:   1200,
		Presence: PresenceOnline,
	})
	if errors.Is(err, ErrConflict) {
		return store.UserByID(ctx, houseID)
	}
	return u, err
}

// gameEndHook settles ratings and statistics when a room finishes and
// notifies both players.
func gameEndHook(store Store, broker *Broker, logger *slog.Logger) func(*Room) {
	return func(rm *Room) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s := rm.Summary()
		logger.Info("game ended", "game_id", s.ID, "result", s.Result, "reason", s.Reason)

		if s.Reason != ReasonAborted {
			if err := settleRatings(ctx, store, s); err != nil {
				logger.Error("settling ratings", "game_id", s.ID, "error", err)
			}
		}

		for _, c := range []board.Color{board.White, board.Black} {
			seat := rm.seat(c)
			broker.Publish(seat.ID, Notice{
				Type:        NoticeGameEnded,
				Title:       "انتهت المباراة",
				Description: endDescription(s, c),
				GameID:      s.ID,
			})
		}
	}
}

func settleRatings(ctx context.Context, store Store, s GameSummary) error {
	white, err := store.UserByID(ctx, s.White.ID)
	if err != nil {
		return err
	}
	black, err := store.UserByID(ctx, s.Black.ID)
	if err != nil {
		return err
	}

	var whiteScore float64
	switch s.Result {
	case rules.WhiteWon:
		whiteScore = 1
	case rules.Drawn:
		whiteScore = 0.5
	}

	apply := func(id string, own, opp int, score float64) error {
		_, err := store.UpdateUser(ctx, id, func(u *User) error {
			u.Rating += eloDelta(own, opp, score)
			switch score {
			case 1:
				u.Wins++
			case 0:
				u.Losses++
			default:
				u.Draws++
			}
			return nil
		})
		return err
	}
	if err := apply(white.ID, white.Rating, black.Rating, whiteScore); err != nil {
		return err
	}
	return apply(black.ID, black.Rating, white.Rating, 1-whiteScore)
}

func endDescription(s GameSummary, c board.Color) string {
	switch {
	case s.Reason == ReasonAborted:
		return "أُلغيت المباراة من قبل المشرف"
	case s.Result == rules.Drawn:
		return "انتهت المباراة بالتعادل"
	case s.Result == winnerResult(c):
		return "مبروك! فزت بالمباراة"
	default:
		return "خسرت المباراة، حظاً أوفر في المرة القادمة"
	}
}
