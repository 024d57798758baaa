package server

import (
	"context"
	"net/http"
	"testing"
)

func TestAdminOnly(t *testing.T) {
	ts := newTestServer(t)
	player := ts.player(t)

	for _, path := range []string{"/api/admin/users", "/api/admin/games", "/api/admin/invites", "/api/admin/stats"} {
		rec := ts.do(t, http.MethodGet, path, player, nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s as player = %d, want 403", path, rec.Code)
			continue
		}
		if got := errorOf(t, rec); got != "admin only" {
			t.Errorf("%s error = %q", path, got)
		}
	}
}

func TestAdminListUsers(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.admin(t)

	rec := ts.do(t, http.MethodGet, "/api/admin/users", admin, nil)
	var users []UserResponse
	decode(t, rec, &users)
	if len(users) != len(demoUsers)+1 {
		t.Errorf("got %d users, want %d", len(users), len(demoUsers)+1)
	}

	rec = ts.do(t, http.MethodGet, "/api/admin/users?q=SARA", admin, nil)
	decode(t, rec, &users)
	if len(users) != 1 || users[0].ID != "user_sara" || users[0].Presence != PresenceInGame {
		t.Errorf("q=SARA = %+v", users)
	}
}

func TestAdminBan(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.admin(t)
	omar := ts.login(t, "omar@example.com", demoPlayerPassword)

	rec := ts.do(t, http.MethodPost, "/api/admin/users/user_omar/ban", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ban status = %d, body = %s", rec.Code, rec.Body)
	}
	var u UserResponse
	decode(t, rec, &u)
	if !u.Banned {
		t.Error("user not banned")
	}

	if rec := ts.do(t, http.MethodGet, "/api/me", omar, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("banned session = %d, want 401", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "omar@example.com", Password: demoPlayerPassword})
	if rec.Code != http.StatusForbidden {
		t.Errorf("banned login = %d, want 403", rec.Code)
	}

	if rec := ts.do(t, http.MethodPost, "/api/admin/users/user_admin/ban", admin, nil); rec.Code != http.StatusConflict {
		t.Errorf("banning admin = %d, want 409", rec.Code)
	}
	if rec := ts.do(t, http.MethodPost, "/api/admin/users/user_ghost/ban", admin, nil); rec.Code != http.StatusNotFound {
		t.Errorf("banning unknown = %d, want 404", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/admin/users/user_omar/unban", admin, nil)
	decode(t, rec, &u)
	if u.Banned {
		t.Error("user still banned")
	}
	ts.login(t, "omar@example.com", demoPlayerPassword)
}

func TestAdminEndGame(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.admin(t)
	ctx := context.Background()
	before, _ := ts.store.UserByID(ctx, "user_ahmed")

	rec := ts.do(t, http.MethodPost, "/api/admin/games/game_001/end", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("end status = %d, body = %s", rec.Code, rec.Body)
	}
	var s GameSummary
	decode(t, rec, &s)
	if s.Status != StatusFinished || s.Reason != ReasonAborted || s.EndedAt == nil {
		t.Errorf("summary = %+v", s)
	}

	after, _ := ts.store.UserByID(ctx, "user_ahmed")
	if after.Rating != before.Rating || after.GamesPlayed() != before.GamesPlayed() {
		t.Errorf("aborted game changed ahmed: %+v -> %+v", before, after)
	}

	if rec := ts.do(t, http.MethodPost, "/api/admin/games/game_001/end", admin, nil); rec.Code != http.StatusConflict {
		t.Errorf("ending twice = %d, want 409", rec.Code)
	}
	if rec := ts.do(t, http.MethodPost, "/api/admin/games/game_404/end", admin, nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown game = %d, want 404", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/admin/games", admin, nil)
	var games []GameSummary
	decode(t, rec, &games)
	if len(games) != 3 {
		t.Errorf("games = %d, want 3", len(games))
	}
}

func TestAdminInvites(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.admin(t)

	rec := ts.do(t, http.MethodGet, "/api/admin/invites", admin, nil)
	var invites []InviteResponse
	decode(t, rec, &invites)
	if len(invites) != 3 {
		t.Fatalf("invites = %d, want 3", len(invites))
	}

	if rec := ts.do(t, http.MethodDelete, "/api/admin/invites/inv_layla", admin, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d, want 204", rec.Code)
	}
	if rec := ts.do(t, http.MethodDelete, "/api/admin/invites/inv_layla", admin, nil); rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rec.Code)
	}
}

func TestAdminStats(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.admin(t)

	rec := ts.do(t, http.MethodGet, "/api/admin/stats", admin, nil)
	var st AdminStats
	decode(t, rec, &st)

	// game_002 finished during seeding today; game_001 and game_123 are live.
	// Omar and Fatima are offline and the banned user is not counted.
	want := AdminStats{
		TotalUsers:       len(demoUsers) + 1,
		OnlineUsers:      6,
		BannedUsers:      1,
		ActiveGames:      2,
		PendingInvites:   3,
		GamesPlayedToday: 1,
	}
	if st != want {
		t.Errorf("stats = %+v, want %+v", st, want)
	}
}
