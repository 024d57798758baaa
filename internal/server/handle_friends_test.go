package server

import (
	"net/http"
	"net/url"
	"testing"
)

func TestListFriends(t *testing.T) {
	ts := newTestServer(t)
	token := ts.player(t)

	rec := ts.do(t, http.MethodGet, "/api/friends", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var friends []FriendResponse
	decode(t, rec, &friends)
	if len(friends) != 6 {
		t.Fatalf("got %d friends, want 6", len(friends))
	}

	byID := make(map[string]FriendResponse, len(friends))
	for _, f := range friends {
		byID[f.ID] = f
	}
	if _, ok := byID["user_spam"]; ok {
		t.Error("pending requester listed as friend")
	}

	ahmed := byID["user_ahmed"]
	if ahmed.Status != PresenceInGame || ahmed.CurrentGame != "سارة أحمد" || ahmed.GameID != "game_001" {
		t.Errorf("ahmed = %+v, want in game_001 against سارة أحمد", ahmed)
	}
	// game_002 is finished, so omar falls back to his stored presence.
	if omar := byID["user_omar"]; omar.Status != PresenceOffline || omar.CurrentGame != "" {
		t.Errorf("omar = %+v, want offline", omar)
	}
	if y := byID["user_yousef"]; y.Status != PresenceInGame || y.GameID != "game_123" {
		t.Errorf("yousef = %+v, want in game_123", y)
	}
}

func TestSearchUsers(t *testing.T) {
	ts := newTestServer(t)
	token := ts.player(t)

	rec := ts.do(t, http.MethodGet, "/api/friends/search?q="+url.QueryEscape("محمد"), token, nil)
	var results []UserSearchResult
	decode(t, rec, &results)

	got := map[string]UserSearchResult{}
	for _, u := range results {
		got[u.ID] = u
	}
	if len(got) != 2 || got["user_ahmed"].ID == "" || got["user_yousef"].ID == "" {
		t.Fatalf("results = %+v, want ahmed and yousef only", results)
	}
	if !got["user_ahmed"].IsFriend {
		t.Error("ahmed should be flagged as friend")
	}

	rec = ts.do(t, http.MethodGet, "/api/friends/search", token, nil)
	decode(t, rec, &results)
	for _, u := range results {
		switch u.ID {
		case demoPlayerID, "user_spam":
			t.Errorf("search returned %s", u.ID)
		case "user_admin":
			if u.IsFriend || u.Pending {
				t.Errorf("admin = %+v, want unrelated", u)
			}
		}
	}
}

func TestFriendRequests(t *testing.T) {
	ts := newTestServer(t)
	player := ts.player(t)

	tests := []struct {
		name       string
		username   string
		wantStatus int
	}{
		{"unknown user", "لا أحد", http.StatusNotFound},
		{"self", "اللاعب الذكي", http.StatusConflict},
		{"already friends", "عمر خالد", http.StatusConflict},
		{"reverse of pending", "محمد سبام", http.StatusConflict},
		{"empty", "", http.StatusBadRequest},
		{"new", "المشرف", http.StatusCreated},
		{"duplicate", "المشرف", http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/friends/requests", player, FriendRequestBody{Username: tt.username})
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
		})
	}

	admin := ts.admin(t)
	rec := ts.do(t, http.MethodGet, "/api/friends/requests", admin, nil)
	var incoming []FriendRequestResponse
	decode(t, rec, &incoming)
	if len(incoming) != 1 || incoming[0].From.ID != demoPlayerID {
		t.Fatalf("admin incoming = %+v", incoming)
	}

	// Only the addressee may accept.
	if rec := ts.do(t, http.MethodPost, "/api/friends/requests/"+incoming[0].ID+"/accept", player, nil); rec.Code != http.StatusNotFound {
		t.Errorf("requester accepting = %d, want 404", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/friends/requests/"+incoming[0].ID+"/accept", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("accept status = %d, body = %s", rec.Code, rec.Body)
	}
	var f Friendship
	decode(t, rec, &f)
	if f.Status != FriendAccepted {
		t.Errorf("status = %q, want accepted", f.Status)
	}

	rec = ts.do(t, http.MethodGet, "/api/friends", player, nil)
	var friends []FriendResponse
	decode(t, rec, &friends)
	if len(friends) != 7 {
		t.Errorf("player has %d friends after accept, want 7", len(friends))
	}
}

func TestAcceptSeededRequest(t *testing.T) {
	ts := newTestServer(t)
	player := ts.player(t)

	rec := ts.do(t, http.MethodGet, "/api/friends/requests", player, nil)
	var incoming []FriendRequestResponse
	decode(t, rec, &incoming)
	if len(incoming) != 1 || incoming[0].From.ID != "user_spam" {
		t.Fatalf("incoming = %+v, want the seeded request", incoming)
	}

	if rec := ts.do(t, http.MethodPost, "/api/friends/requests/"+incoming[0].ID+"/accept", player, nil); rec.Code != http.StatusOK {
		t.Fatalf("accept = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/api/friends/requests", player, nil)
	decode(t, rec, &incoming)
	if len(incoming) != 0 {
		t.Errorf("incoming after accept = %+v, want none", incoming)
	}
}
