package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type InviteRequest struct {
	FriendID    string `json:"friendId" validate:"required"`
	TimeControl int    `json:"timeControl" validate:"required,oneof=1 3 5 10 15 30"`
}

type InviteResponse struct {
	ID          string    `json:"id"`
	From        Seat      `json:"from"`
	To          Seat      `json:"to"`
	TimeControl int       `json:"timeControl"`
	GameType    string    `json:"gameType"`
	Status      string    `json:"status"`
	GameID      string    `json:"gameId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	ExpiresIn   int       `json:"expiresIn"`
}

type InviteListResponse struct {
	Incoming []InviteResponse `json:"incoming"`
	Outgoing []InviteResponse `json:"outgoing"`
}

// inviteView resolves both parties. Missing users render with their ID only.
func inviteView(r *http.Request, store Store, inv Invite, now time.Time) InviteResponse {
	resp := InviteResponse{
		ID:          inv.ID,
		From:        Seat{ID: inv.FromID},
		To:          Seat{ID: inv.ToID},
		TimeControl: inv.TimeControl,
		GameType:    inv.GameType,
		Status:      inv.Status,
		GameID:      inv.GameID,
		CreatedAt:   inv.CreatedAt,
		ExpiresAt:   inv.ExpiresAt,
		ExpiresIn:   max(int(inv.ExpiresAt.Sub(now).Seconds()), 0),
	}
	if u, err := store.UserByID(r.Context(), inv.FromID); err == nil {
		resp.From = seatOf(u)
	}
	if u, err := store.UserByID(r.Context(), inv.ToID); err == nil {
		resp.To = seatOf(u)
	}
	return resp
}

func areFriends(r *http.Request, store Store, a, b string) (bool, error) {
	links, err := store.ListFriendships(r.Context(), a)
	if err != nil {
		return false, err
	}
	for _, f := range links {
		if f.Other(a) == b && f.Status == FriendAccepted {
			return true, nil
		}
	}
	return false, nil
}

func handleCreateInvite(store Store, broker *Broker, v *Validator, ttl time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me := userFrom(r)
		var req InviteRequest
		if !v.decode(w, r, &req) {
			return
		}

		friend, err := store.UserByID(r.Context(), req.FriendID)
		if err != nil {
			writeStoreError(w, err, "user not found")
			return
		}
		ok, err := areFriends(r, store, me.ID, friend.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !ok {
			writeError(w, http.StatusForbidden, "you can only invite friends")
			return
		}

		now := time.Now().UTC()
		inv, err := store.CreateInvite(r.Context(), Invite{
			ID:          "inv_" + uuid.NewString()[:8],
			FromID:      me.ID,
			ToID:        friend.ID,
			TimeControl: req.TimeControl,
			GameType:    GameOnline,
			Status:      InvitePending,
			CreatedAt:   now,
			ExpiresAt:   now.Add(ttl),
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		broker.Publish(friend.ID, Notice{
			Type:        NoticeInviteCreated,
			Title:       "دعوة جديدة للعب",
			Description: me.Username + " يدعوك لمباراة شطرنج",
			InviteID:    inv.ID,
			FromUser:    me.Username,
		})
		writeJSON(w, http.StatusCreated, inviteView(r, store, inv, now))
	}
}

func handleListInvites(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me := userFrom(r)
		all, err := store.ListInvites(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		now := time.Now().UTC()
		resp := InviteListResponse{Incoming: []InviteResponse{}, Outgoing: []InviteResponse{}}
		for _, inv := range all {
			if inv.Status != InvitePending || inv.Expired(now) {
				continue
			}
			switch me.ID {
			case inv.ToID:
				resp.Incoming = append(resp.Incoming, inviteView(r, store, inv, now))
			case inv.FromID:
				resp.Outgoing = append(resp.Outgoing, inviteView(r, store, inv, now))
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// loadPendingInvite fetches the invite for its recipient and checks it can
// still be answered.
func loadPendingInvite(w http.ResponseWriter, r *http.Request, store Store) (Invite, bool) {
	inv, err := store.GetInvite(r.Context(), chi.URLParam(r, "inviteID"))
	if err != nil {
		writeStoreError(w, err, "invite not found")
		return Invite{}, false
	}
	if inv.ToID != userFrom(r).ID {
		writeError(w, http.StatusForbidden, "only the recipient can answer an invite")
		return Invite{}, false
	}
	if inv.Status != InvitePending {
		writeError(w, http.StatusConflict, "invite already answered")
		return Invite{}, false
	}
	if inv.Expired(time.Now()) {
		writeError(w, http.StatusConflict, "invite expired")
		return Invite{}, false
	}
	return inv, true
}

func handleAcceptInvite(store Store, rooms *Rooms, broker *Broker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, ok := loadPendingInvite(w, r, store)
		if !ok {
			return
		}
		me := userFrom(r)
		inviter, err := store.UserByID(r.Context(), inv.FromID)
		if err != nil {
			writeStoreError(w, err, "inviter not found")
			return
		}

		// Claim the invite first; the room only exists once the claim holds.
		inv.Status = InviteAccepted
		inv.GameID = "game_" + uuid.NewString()[:8]
		if err := store.UpdatePendingInvite(r.Context(), inv); err != nil {
			if errors.Is(err, ErrConflict) {
				writeError(w, http.StatusConflict, "invite already answered")
				return
			}
			writeStoreError(w, err, "invite not found")
			return
		}
		rm := rooms.create(roomOptions{
			ID:          inv.GameID,
			White:       seatOf(inviter),
			Black:       seatOf(me),
			TimeControl: inv.TimeControl,
			GameType:    inv.GameType,
		})

		logger.Info("invite accepted", "invite_id", inv.ID, "game_id", rm.ID())
		broker.Publish(inviter.ID, Notice{
			Type:        NoticeInviteAccepted,
			Title:       "تم قبول الدعوة",
			Description: me.Username + " قبل دعوتك، المباراة جاهزة",
			InviteID:    inv.ID,
			GameID:      rm.ID(),
			FromUser:    me.Username,
		})
		writeJSON(w, http.StatusOK, GameCreatedResponse{GameID: rm.ID()})
	}
}

func handleDeclineInvite(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, ok := loadPendingInvite(w, r, store)
		if !ok {
			return
		}
		if err := store.DeleteInvite(r.Context(), inv.ID); err != nil {
			writeStoreError(w, err, "invite not found")
			return
		}

		me := userFrom(r)
		broker.Publish(inv.FromID, Notice{
			Type:        NoticeInviteDeclined,
			Title:       "تم رفض الدعوة",
			Description: me.Username + " رفض دعوتك",
			InviteID:    inv.ID,
			FromUser:    me.Username,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}
