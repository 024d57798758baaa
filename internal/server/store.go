package server

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

const (
	RolePlayer = "player"
	RoleAdmin  = "admin"
)

// Presence values shown next to a user.
const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
	PresenceInGame  = "in-game"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Role         string    `json:"role"`
	Avatar       string    `json:"avatar"`
	Rating       int       `json:"rating"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	Draws        int       `json:"draws"`
	Presence     string    `json:"presence"`
	Banned       bool      `json:"banned"`
	JoinedAt     time.Time `json:"joinedAt"`
	LastActive   time.Time `json:"lastActive"`
}

func (u User) GamesPlayed() int { return u.Wins + u.Losses + u.Draws }

const (
	FriendPending  = "pending"
	FriendAccepted = "accepted"
)

type Friendship struct {
	ID          string    `json:"id"`
	RequesterID string    `json:"requesterId"`
	AddresseeID string    `json:"addresseeId"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Other returns the participant that is not userID.
func (f Friendship) Other(userID string) string {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}

const (
	InvitePending  = "pending"
	InviteAccepted = "accepted"
	InviteDeclined = "declined"
)

type Invite struct {
	ID          string    `json:"id"`
	FromID      string    `json:"fromId"`
	ToID        string    `json:"toId"`
	TimeControl int       `json:"timeControl"`
	GameType    string    `json:"gameType"`
	Status      string    `json:"status"`
	GameID      string    `json:"gameId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (i Invite) Expired(now time.Time) bool { return !now.Before(i.ExpiresAt) }

type Enrollment struct {
	UserID           string    `json:"userId"`
	CourseID         string    `json:"courseId"`
	CompletedLessons []string  `json:"completedLessons"`
	EnrolledAt       time.Time `json:"enrolledAt"`
}

type PuzzleProgress struct {
	UserID    string `json:"userId"`
	Completed []int  `json:"completed"`
	Score     int    `json:"score"`
}

type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, id string, fn func(*User) error) (User, error)

	CreateSession(ctx context.Context, userID string, ttl time.Duration) (token string, err error)
	UserFromSession(ctx context.Context, token string) (User, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteUserSessions(ctx context.Context, userID string) error

	CreateFriendship(ctx context.Context, requesterID, addresseeID string) (Friendship, error)
	ListFriendships(ctx context.Context, userID string) ([]Friendship, error)
	AcceptFriendship(ctx context.Context, id, addresseeID string) (Friendship, error)

	CreateInvite(ctx context.Context, inv Invite) (Invite, error)
	GetInvite(ctx context.Context, id string) (Invite, error)
	ListInvites(ctx context.Context) ([]Invite, error)
	UpdatePendingInvite(ctx context.Context, inv Invite) error
	DeleteInvite(ctx context.Context, id string) error

	Enrollment(ctx context.Context, userID, courseID string) (Enrollment, error)
	ListEnrollments(ctx context.Context, userID string) ([]Enrollment, error)
	PutEnrollment(ctx context.Context, e Enrollment) error

	PuzzleProgress(ctx context.Context, userID string) (PuzzleProgress, error)
	PutPuzzleProgress(ctx context.Context, p PuzzleProgress) error
}
