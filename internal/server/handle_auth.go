package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=32"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Avatar      string    `json:"avatar"`
	Rating      int       `json:"rating"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	Draws       int       `json:"draws"`
	GamesPlayed int       `json:"gamesPlayed"`
	Presence    string    `json:"presence"`
	Banned      bool      `json:"banned"`
	JoinedAt    time.Time `json:"joinedAt"`
	LastActive  time.Time `json:"lastActive"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type ProfileResponse struct {
	Username    string    `json:"username"`
	Avatar      string    `json:"avatar"`
	Rating      int       `json:"rating"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	Draws       int       `json:"draws"`
	GamesPlayed int       `json:"gamesPlayed"`
	WinRate     int       `json:"winRate"`
	JoinedAt    time.Time `json:"joinedAt"`
}

func toUserResponse(u User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role,
		Avatar:      u.Avatar,
		Rating:      u.Rating,
		Wins:        u.Wins,
		Losses:      u.Losses,
		Draws:       u.Draws,
		GamesPlayed: u.GamesPlayed(),
		Presence:    u.Presence,
		Banned:      u.Banned,
		JoinedAt:    u.JoinedAt,
		LastActive:  u.LastActive,
	}
}

func handleRegister(store Store, v *Validator, sessionTTL time.Duration, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if !v.decode(w, r, &req) {
			return
		}
		if req.Password != req.ConfirmPassword {
			writeError(w, http.StatusBadRequest, "passwords do not match")
			return
		}

		hash, err := hashPassword(req.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		user, err := store.CreateUser(r.Context(), User{
			Username:     strings.TrimSpace(req.Username),
			Email:        strings.ToLower(strings.TrimSpace(req.Email)),
			PasswordHash: hash,
			Role:         RolePlayer,
			Avatar:       "♟",
			Rating:       1200,
			Presence:     PresenceOnline,
		})
		if errors.Is(err, ErrConflict) {
			writeError(w, http.StatusConflict, "email or username already taken")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		token, err := store.CreateSession(r.Context(), user.ID, sessionTTL)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		logger.Info("user registered", "user_id", user.ID, "username", user.Username)
		writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: toUserResponse(user)})
	}
}

func handleLogin(store Store, v *Validator, sessionTTL time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !v.decode(w, r, &req) {
			return
		}

		user, err := store.UserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
		if err != nil || !checkPassword(user.PasswordHash, req.Password) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if user.Banned {
			writeError(w, http.StatusForbidden, "account banned")
			return
		}

		user, err = store.UpdateUser(r.Context(), user.ID, func(u *User) error {
			u.Presence = PresenceOnline
			u.LastActive = time.Now().UTC()
			return nil
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		token, err := store.CreateSession(r.Context(), user.ID, sessionTTL)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: toUserResponse(user)})
	}
}

func handleLogout(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r)
		if err := store.DeleteSession(r.Context(), tokenFrom(r)); err != nil && !errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if _, err := store.UpdateUser(r.Context(), user.ID, func(u *User) error {
			u.Presence = PresenceOffline
			return nil
		}); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, toUserResponse(userFrom(r)))
	}
}

func handleProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := userFrom(r)
		resp := ProfileResponse{
			Username:    u.Username,
			Avatar:      u.Avatar,
			Rating:      u.Rating,
			Wins:        u.Wins,
			Losses:      u.Losses,
			Draws:       u.Draws,
			GamesPlayed: u.GamesPlayed(),
			JoinedAt:    u.JoinedAt,
		}
		if n := u.GamesPlayed(); n > 0 {
			resp.WinRate = u.Wins * 100 / n
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
