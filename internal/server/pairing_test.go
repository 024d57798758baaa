package server

import (
	"net/http"
	"sync"
	"testing"
	"time"
)

func TestConnectBoardValidation(t *testing.T) {
	ts := newTestServer(t)
	token := ts.player(t)

	tests := []struct {
		name       string
		body       ConnectBoardRequest
		wantStatus int
		wantError  string
	}{
		{"qr", ConnectBoardRequest{Method: "qr"}, http.StatusAccepted, ""},
		{"serial", ConnectBoardRequest{Method: "serial", SerialNumber: "SCH-2024-001"}, http.StatusAccepted, ""},
		{"missing serial", ConnectBoardRequest{Method: "serial"}, http.StatusBadRequest, "serialNumber is a required field"},
		{"bad prefix", ConnectBoardRequest{Method: "serial", SerialNumber: "ABC-1"}, http.StatusBadRequest, "serialNumber must start with SCH-"},
		{"bad method", ConnectBoardRequest{Method: "bluetooth"}, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/boards/connect", token, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
			if tt.wantError != "" {
				if got := errorOf(t, rec); got != tt.wantError {
					t.Errorf("error = %q, want %q", got, tt.wantError)
				}
			}
		})
	}
}

func TestBoardPairing(t *testing.T) {
	ts := newTestServer(t)
	token := ts.player(t)

	rec := ts.do(t, http.MethodGet, "/api/boards/status", token, nil)
	var st PairingStatus
	decode(t, rec, &st)
	if st.Status != BoardDisconnected {
		t.Fatalf("initial status = %q", st.Status)
	}

	ts.do(t, http.MethodPost, "/api/boards/connect", token, ConnectBoardRequest{Method: "qr"})
	rec = ts.do(t, http.MethodGet, "/api/boards/status", token, nil)
	var connected PairingStatus
	decode(t, rec, &connected)
	if connected.Status != BoardConnected || connected.Board == nil || connected.Board.Battery != 85 || connected.Board.Model != "SmartChess Pro" {
		t.Errorf("after qr = %+v", connected)
	}

	rec = ts.do(t, http.MethodPost, "/api/boards/disconnect", token, nil)
	var gone PairingStatus
	decode(t, rec, &gone)
	if gone.Status != BoardDisconnected || gone.Board != nil {
		t.Errorf("after disconnect = %+v", gone)
	}

	ts.do(t, http.MethodPost, "/api/boards/connect", token, ConnectBoardRequest{Method: "serial", SerialNumber: "SCH-9999"})
	rec = ts.do(t, http.MethodGet, "/api/boards/status", token, nil)
	var failed PairingStatus
	decode(t, rec, &failed)
	if failed.Status != BoardDisconnected || failed.Error != "board not found" {
		t.Errorf("unknown serial = %+v", failed)
	}
}

func TestBoardsResolveAfterDelay(t *testing.T) {
	now := time.Now()
	var (
		mu       sync.Mutex
		resolved []PairingStatus
	)
	b := NewBoards(time.Hour, func(_ string, st PairingStatus) {
		mu.Lock()
		resolved = append(resolved, st)
		mu.Unlock()
	})
	b.now = func() time.Time { return now }

	if st := b.Connect("u1", "serial", defaultBoardSerial); st.Status != BoardConnecting {
		t.Fatalf("connect = %q, want connecting", st.Status)
	}
	if st := b.Status("u1"); st.Status != BoardConnecting {
		t.Errorf("before delay = %q, want connecting", st.Status)
	}

	now = now.Add(time.Hour)
	if st := b.Status("u1"); st.Status != BoardConnected || st.SerialNumber != defaultBoardSerial {
		t.Errorf("after delay = %+v", st)
	}
	b.Status("u1")

	mu.Lock()
	defer mu.Unlock()
	if len(resolved) != 1 {
		t.Errorf("hook fired %d times, want 1", len(resolved))
	}
}

func TestBoardsConnectWhileTimersFire(t *testing.T) {
	b := NewBoards(0, nil)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				if st := b.Connect("u1", "qr", ""); st.Status != BoardConnecting || st.Board != nil {
					t.Errorf("worker %d: connect returned %+v", i, st)
					return
				}
				b.Status("u1")
			}
		}()
	}
	wg.Wait()

	if st := b.Status("u1"); st.Status != BoardConnected {
		t.Errorf("final status = %q, want connected", st.Status)
	}
}
