package server

import (
	"encoding/json"
	"sync"
	"time"
)

// Notice types published to a user's event stream.
const (
	NoticeInviteCreated  = "invite_created"
	NoticeInviteAccepted = "invite_accepted"
	NoticeInviteDeclined = "invite_declined"
	NoticeFriendRequest  = "friend_request"
	NoticeFriendAccepted = "friend_accepted"
	NoticeGameEnded      = "game_ended"
	NoticeBoardPaired    = "board_paired"
)

// Notice is the payload published to user subscribers.
type Notice struct {
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	InviteID    string    `json:"inviteId,omitempty"`
	GameID      string    `json:"gameId,omitempty"`
	FromUser    string    `json:"fromUser,omitempty"`
	At          time.Time `json:"at"`
}

// Broker is an in-process pub/sub for notices, keyed by user ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded notices for the given user.
func (b *Broker) Subscribe(userID string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan []byte]struct{})
	}
	b.subs[userID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the user's subscribers.
func (b *Broker) Unsubscribe(userID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[userID], ch)
	if len(b.subs[userID]) == 0 {
		delete(b.subs, userID)
	}
	b.mu.Unlock()
}

// Publish sends a notice to all subscribers of the given user.
func (b *Broker) Publish(userID string, n Notice) {
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}
	data, _ := json.Marshal(n)
	b.mu.RLock()
	for ch := range b.subs[userID] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
