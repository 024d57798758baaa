package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const inviteExpired = "expired"

type AdminStats struct {
	TotalUsers       int `json:"totalUsers"`
	OnlineUsers      int `json:"onlineUsers"`
	ActiveGames      int `json:"activeGames"`
	PendingInvites   int `json:"pendingInvites"`
	BannedUsers      int `json:"bannedUsers"`
	GamesPlayedToday int `json:"gamesPlayedToday"`
}

func handleAdminListUsers(store Store, rooms *Rooms) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
		users, err := store.ListUsers(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		out := []UserResponse{}
		for _, u := range users {
			if u.ID == houseID {
				continue
			}
			if q != "" && !strings.Contains(strings.ToLower(u.Username), q) &&
				!strings.Contains(strings.ToLower(u.Email), q) {
				continue
			}
			u.Presence, _, _ = presenceOf(u, rooms)
			out = append(out, toUserResponse(u))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleAdminSetBan(store Store, banned bool, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "userID")
		u, err := store.UpdateUser(r.Context(), id, func(u *User) error {
			if banned && u.Role == RoleAdmin {
				return errCannotBanAdmin
			}
			u.Banned = banned
			if banned {
				u.Presence = PresenceOffline
			}
			return nil
		})
		if errors.Is(err, errCannotBanAdmin) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		if err != nil {
			writeStoreError(w, err, "user not found")
			return
		}

		if banned {
			if err := store.DeleteUserSessions(r.Context(), id); err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
		}
		logger.Info("user ban changed", "user_id", id, "banned", banned, "by", userFrom(r).ID)
		writeJSON(w, http.StatusOK, toUserResponse(u))
	}
}

var errCannotBanAdmin = errors.New("cannot ban an admin")

func handleAdminListGames(rooms *Rooms) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := []GameSummary{}
		for _, rm := range rooms.List() {
			out = append(out, rm.Summary())
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleAdminEndGame(rooms *Rooms) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, ok := loadRoom(w, r, rooms)
		if !ok {
			return
		}
		if err := rm.Abort(); err != nil {
			writeRoomError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rm.Summary())
	}
}

func handleAdminListInvites(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := store.ListInvites(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		now := time.Now().UTC()
		out := []InviteResponse{}
		for _, inv := range all {
			if inv.Status == InvitePending && inv.Expired(now) {
				inv.Status = inviteExpired
			}
			out = append(out, inviteView(r, store, inv, now))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleAdminDeleteInvite(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteInvite(r.Context(), chi.URLParam(r, "inviteID")); err != nil {
			writeStoreError(w, err, "invite not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleAdminStats(store Store, rooms *Rooms) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := store.ListUsers(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		invites, err := store.ListInvites(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		var st AdminStats
		for _, u := range users {
			if u.ID == houseID {
				continue
			}
			st.TotalUsers++
			if u.Banned {
				st.BannedUsers++
				continue
			}
			if status, _, _ := presenceOf(u, rooms); status != PresenceOffline {
				st.OnlineUsers++
			}
		}

		now := time.Now().UTC()
		for _, inv := range invites {
			if inv.Status == InvitePending && !inv.Expired(now) {
				st.PendingInvites++
			}
		}

		y, m, d := now.Date()
		for _, rm := range rooms.List() {
			s := rm.Summary()
			if s.Status != StatusFinished {
				st.ActiveGames++
				continue
			}
			if ey, em, ed := s.EndedAt.UTC().Date(); ey == y && em == m && ed == d {
				st.GamesPlayedToday++
			}
		}
		writeJSON(w, http.StatusOK, st)
	}
}
