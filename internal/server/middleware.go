package server

import (
	"context"
	"net/http"
)

type ctxKey int

const (
	ctxKeyUser ctxKey = iota
	ctxKeyToken
)

// userAuthMiddleware resolves the bearer token to a user. Banned users are
// turned away even if a session somehow survived the ban.
func userAuthMiddleware(store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			user, err := store.UserFromSession(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if user.Banned {
				writeError(w, http.StatusForbidden, "account banned")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, user)
			ctx = context.WithValue(ctx, ctxKeyToken, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// adminOnly must run after userAuthMiddleware.
func adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userFrom(r).Role != RoleAdmin {
			writeError(w, http.StatusForbidden, "admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userFrom(r *http.Request) User {
	return r.Context().Value(ctxKeyUser).(User)
}

func tokenFrom(r *http.Request) string {
	return r.Context().Value(ctxKeyToken).(string)
}
