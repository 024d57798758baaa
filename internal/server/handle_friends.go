package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

type FriendResponse struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Avatar       string    `json:"avatar"`
	Rating       int       `json:"rating"`
	Status       string    `json:"status"`
	CurrentGame  string    `json:"currentGame,omitempty"`
	GameID       string    `json:"gameId,omitempty"`
	LastActive   time.Time `json:"lastActive"`
	FriendsSince time.Time `json:"friendsSince"`
}

type UserSearchResult struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Rating   int    `json:"rating"`
	Status   string `json:"status"`
	IsFriend bool   `json:"isFriend"`
	Pending  bool   `json:"pending"`
}

type FriendRequestBody struct {
	Username string `json:"username" validate:"required"`
}

type FriendRequestResponse struct {
	ID        string    `json:"id"`
	From      Seat      `json:"from"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
}

// presenceOf reports a user's presence, upgraded to in-game while they sit
// in an unfinished room. The second result names the opponent.
func presenceOf(u User, rooms *Rooms) (status, opponent, gameID string) {
	for _, rm := range rooms.Live(u.ID) {
		s := rm.Summary()
		opp := s.White
		if opp.ID == u.ID {
			opp = s.Black
		}
		return PresenceInGame, opp.Username, s.ID
	}
	if u.Presence == "" {
		return PresenceOffline, "", ""
	}
	return u.Presence, "", ""
}

func handleListFriends(store Store, rooms *Rooms) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me := userFrom(r)
		links, err := store.ListFriendships(r.Context(), me.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		out := []FriendResponse{}
		for _, f := range links {
			if f.Status != FriendAccepted {
				continue
			}
			u, err := store.UserByID(r.Context(), f.Other(me.ID))
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			status, opp, gameID := presenceOf(u, rooms)
			out = append(out, FriendResponse{
				ID:           u.ID,
				Username:     u.Username,
				Avatar:       u.Avatar,
				Rating:       u.Rating,
				Status:       status,
				CurrentGame:  opp,
				GameID:       gameID,
				LastActive:   u.LastActive,
				FriendsSince: f.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleSearchUsers(store Store, rooms *Rooms) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me := userFrom(r)
		q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

		users, err := store.ListUsers(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		links, err := store.ListFriendships(r.Context(), me.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		linked := make(map[string]Friendship, len(links))
		for _, f := range links {
			linked[f.Other(me.ID)] = f
		}

		out := []UserSearchResult{}
		for _, u := range users {
			if u.ID == me.ID || u.ID == houseID || u.Banned {
				continue
			}
			if q != "" && !strings.Contains(strings.ToLower(u.Username), q) {
				continue
			}
			status, _, _ := presenceOf(u, rooms)
			f, ok := linked[u.ID]
			out = append(out, UserSearchResult{
				ID:       u.ID,
				Username: u.Username,
				Avatar:   u.Avatar,
				Rating:   u.Rating,
				Status:   status,
				IsFriend: ok && f.Status == FriendAccepted,
				Pending:  ok && f.Status == FriendPending,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleSendFriendRequest(store Store, broker *Broker, v *Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me := userFrom(r)
		var req FriendRequestBody
		if !v.decode(w, r, &req) {
			return
		}

		target, err := store.UserByUsername(r.Context(), strings.TrimSpace(req.Username))
		if err != nil {
			writeStoreError(w, err, "user not found")
			return
		}
		if target.ID == me.ID {
			writeError(w, http.StatusConflict, "cannot befriend yourself")
			return
		}

		f, err := store.CreateFriendship(r.Context(), me.ID, target.ID)
		if errors.Is(err, ErrConflict) {
			writeError(w, http.StatusConflict, "friend request already exists")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		broker.Publish(target.ID, Notice{
			Type:        NoticeFriendRequest,
			Title:       "طلب صداقة جديد",
			Description: me.Username + " يريد إضافتك كصديق",
			FromUser:    me.Username,
		})
		writeJSON(w, http.StatusCreated, f)
	}
}

func handleListFriendRequests(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me := userFrom(r)
		links, err := store.ListFriendships(r.Context(), me.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		out := []FriendRequestResponse{}
		for _, f := range links {
			if f.Status != FriendPending || f.AddresseeID != me.ID {
				continue
			}
			u, err := store.UserByID(r.Context(), f.RequesterID)
			if err != nil {
				continue
			}
			out = append(out, FriendRequestResponse{
				ID:        f.ID,
				From:      seatOf(u),
				Avatar:    u.Avatar,
				CreatedAt: f.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleAcceptFriendRequest(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me := userFrom(r)
		f, err := store.AcceptFriendship(r.Context(), chi.URLParam(r, "requestID"), me.ID)
		if err != nil {
			writeStoreError(w, err, "friend request not found")
			return
		}
		broker.Publish(f.RequesterID, Notice{
			Type:        NoticeFriendAccepted,
			Title:       "تم قبول طلب الصداقة",
			Description: me.Username + " قبل طلب صداقتك",
			FromUser:    me.Username,
		})
		writeJSON(w, http.StatusOK, f)
	}
}
