package server

import (
	"sync"
	"time"
)

// Pairing states.
const (
	BoardDisconnected = "disconnected"
	BoardConnecting   = "connecting"
	BoardConnected    = "connected"
)

const defaultBoardSerial = "SCH-2024-001"

type BoardInfo struct {
	Model        string `json:"model"`
	Version      string `json:"version"`
	Battery      int    `json:"battery"`
	SerialNumber string `json:"serialNumber"`
}

var knownBoards = map[string]BoardInfo{
	defaultBoardSerial: {
		Model:        "SmartChess Pro",
		Version:      "2.1.4",
		Battery:      85,
		SerialNumber: defaultBoardSerial,
	},
}

type PairingStatus struct {
	Status       string     `json:"status"`
	Method       string     `json:"method,omitempty"`
	SerialNumber string     `json:"serialNumber,omitempty"`
	Board        *BoardInfo `json:"board,omitempty"`
	Error        string     `json:"error,omitempty"`
}

type pairing struct {
	PairingStatus
	started time.Time
}

// Boards simulates pairing physical boards. A connect attempt resolves
// after the pairing delay, either when its timer fires or on the next
// status read, whichever comes first.
type Boards struct {
	mu       sync.Mutex
	pairings map[string]*pairing
	delay    time.Duration
	now      func() time.Time
	onPaired func(userID string, st PairingStatus)
}

func NewBoards(delay time.Duration, onPaired func(userID string, st PairingStatus)) *Boards {
	return &Boards{
		pairings: make(map[string]*pairing),
		delay:    delay,
		now:      time.Now,
		onPaired: onPaired,
	}
}

// Connect starts pairing. QR pairing always targets the default board.
func (b *Boards) Connect(userID, method, serial string) PairingStatus {
	if method == "qr" {
		serial = defaultBoardSerial
	}
	p := &pairing{
		PairingStatus: PairingStatus{
			Status:       BoardConnecting,
			Method:       method,
			SerialNumber: serial,
		},
		started: b.now(),
	}

	b.mu.Lock()
	b.pairings[userID] = p
	st := p.PairingStatus
	b.mu.Unlock()

	// Reads settle the attempt on their own; the timer only makes sure the
	// paired notice goes out when nobody is polling.
	time.AfterFunc(b.delay, func() { b.Status(userID) })
	return st
}

func (b *Boards) Status(userID string) PairingStatus {
	b.mu.Lock()
	p, ok := b.pairings[userID]
	if !ok {
		b.mu.Unlock()
		return PairingStatus{Status: BoardDisconnected}
	}
	resolved := b.resolve(p)
	st := p.PairingStatus
	b.mu.Unlock()

	if resolved && b.onPaired != nil {
		b.onPaired(userID, st)
	}
	return st
}

// resolve settles a due connect attempt and reports whether it did.
// Caller holds b.mu.
func (b *Boards) resolve(p *pairing) bool {
	if p.Status != BoardConnecting || b.now().Sub(p.started) < b.delay {
		return false
	}
	info, ok := knownBoards[p.SerialNumber]
	if !ok {
		p.Status = BoardDisconnected
		p.Error = "board not found"
		return true
	}
	p.Status = BoardConnected
	p.Board = &info
	return true
}

func (b *Boards) Disconnect(userID string) PairingStatus {
	b.mu.Lock()
	delete(b.pairings, userID)
	b.mu.Unlock()
	return PairingStatus{Status: BoardDisconnected}
}
