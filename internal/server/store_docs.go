package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type sessionDoc struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// DocStore implements Store using per-model tables with JSONB data columns.
type DocStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewDocStore expects the schema from internal/migrations to be in place.
func NewDocStore(db *sql.DB) *DocStore {
	return &DocStore{db: db, now: time.Now}
}

func newID() string { return uuid.NewString() }

// Generic helpers.

func (s *DocStore) get(ctx context.Context, table, id string, dest any) error {
	var data string
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT json(data) FROM %s WHERE id = ?`, table), id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (s *DocStore) put(ctx context.Context, table, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, data) VALUES (?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`, table),
		id, string(data),
	)
	return err
}

func (s *DocStore) del(ctx context.Context, table, id string) error {
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// all decodes every document of table matching the optional where clause.
// Rows are fully read before returning; SQLite can't serve a second query
// while a cursor is open on a single connection.
func all[T any](ctx context.Context, db *sql.DB, table, where string, args ...any) ([]T, error) {
	q := fmt.Sprintf(`SELECT json(data) FROM %s`, table)
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY rowid"

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Users

func (s *DocStore) CreateUser(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = newID()
	}
	if u.JoinedAt.IsZero() {
		u.JoinedAt = s.now().UTC()
	}
	if u.LastActive.IsZero() {
		u.LastActive = u.JoinedAt
	}
	data, err := json.Marshal(u)
	if err != nil {
		return User{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, username, data) VALUES (?, ?, ?, jsonb(?))`,
		u.ID, u.Email, u.Username, string(data),
	)
	if isUniqueViolation(err) {
		return User{}, ErrConflict
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *DocStore) UserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := s.get(ctx, "users", id, &u)
	return u, err
}

func (s *DocStore) userBy(ctx context.Context, column, value string) (User, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT json(data) FROM users WHERE %s = ?`, column), value,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	var u User
	err = json.Unmarshal([]byte(data), &u)
	return u, err
}

func (s *DocStore) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.userBy(ctx, "email", email)
}

func (s *DocStore) UserByUsername(ctx context.Context, username string) (User, error) {
	return s.userBy(ctx, "username", username)
}

func (s *DocStore) ListUsers(ctx context.Context) ([]User, error) {
	return all[User](ctx, s.db, "users", "")
}

// UpdateUser loads a user, applies fn, and saves it in a transaction.
func (s *DocStore) UpdateUser(ctx context.Context, id string, fn func(*User) error) (User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, err
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx, `SELECT json(data) FROM users WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}

	var u User
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		return User{}, err
	}
	if err := fn(&u); err != nil {
		return User{}, err
	}
	u.ID = id

	updated, err := json.Marshal(u)
	if err != nil {
		return User{}, err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE users SET email = ?, username = ?, data = jsonb(?) WHERE id = ?`,
		u.Email, u.Username, string(updated), id,
	)
	if isUniqueViolation(err) {
		return User{}, ErrConflict
	}
	if err != nil {
		return User{}, err
	}
	return u, tx.Commit()
}

// Sessions

func (s *DocStore) CreateSession(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	now := s.now().UTC()
	doc := sessionDoc{
		Token:     newID(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, data) VALUES (?, ?, jsonb(?))`,
		doc.Token, userID, string(data),
	)
	return doc.Token, err
}

func (s *DocStore) UserFromSession(ctx context.Context, token string) (User, error) {
	var sess sessionDoc
	if err := s.get(ctx, "sessions", token, &sess); err != nil {
		return User{}, err
	}
	if !s.now().Before(sess.ExpiresAt) {
		s.del(ctx, "sessions", token)
		return User{}, ErrNotFound
	}
	return s.UserByID(ctx, sess.UserID)
}

func (s *DocStore) DeleteSession(ctx context.Context, token string) error {
	return s.del(ctx, "sessions", token)
}

func (s *DocStore) DeleteUserSessions(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

// Friendships

func (s *DocStore) CreateFriendship(ctx context.Context, requesterID, addresseeID string) (Friendship, error) {
	existing, err := s.ListFriendships(ctx, requesterID)
	if err != nil {
		return Friendship{}, err
	}
	for _, f := range existing {
		if f.Other(requesterID) == addresseeID {
			return Friendship{}, ErrConflict
		}
	}

	f := Friendship{
		ID:          newID(),
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      FriendPending,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.put(ctx, "friendships", f.ID, f); err != nil {
		return Friendship{}, err
	}
	return f, nil
}

func (s *DocStore) ListFriendships(ctx context.Context, userID string) ([]Friendship, error) {
	return all[Friendship](ctx, s.db, "friendships",
		`data ->> '$.requesterId' = ? OR data ->> '$.addresseeId' = ?`, userID, userID)
}

func (s *DocStore) AcceptFriendship(ctx context.Context, id, addresseeID string) (Friendship, error) {
	var f Friendship
	if err := s.get(ctx, "friendships", id, &f); err != nil {
		return Friendship{}, err
	}
	if f.AddresseeID != addresseeID {
		return Friendship{}, ErrNotFound
	}
	if f.Status == FriendAccepted {
		return f, nil
	}
	f.Status = FriendAccepted
	if err := s.put(ctx, "friendships", f.ID, f); err != nil {
		return Friendship{}, err
	}
	return f, nil
}

// Invites

func (s *DocStore) CreateInvite(ctx context.Context, inv Invite) (Invite, error) {
	if inv.ID == "" {
		inv.ID = newID()
	}
	if inv.Status == "" {
		inv.Status = InvitePending
	}
	if err := s.put(ctx, "invites", inv.ID, inv); err != nil {
		return Invite{}, err
	}
	return inv, nil
}

func (s *DocStore) GetInvite(ctx context.Context, id string) (Invite, error) {
	var inv Invite
	err := s.get(ctx, "invites", id, &inv)
	return inv, err
}

func (s *DocStore) ListInvites(ctx context.Context) ([]Invite, error) {
	return all[Invite](ctx, s.db, "invites", "")
}

// UpdatePendingInvite replaces an invite only while the stored copy is still
// pending. ErrConflict means another answer got there first.
func (s *DocStore) UpdatePendingInvite(ctx context.Context, inv Invite) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE invites SET data = jsonb(?) WHERE id = ? AND data ->> '$.status' = ?`,
		string(data), inv.ID, InvitePending,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 1 {
		return nil
	}
	if _, err := s.GetInvite(ctx, inv.ID); err != nil {
		return err
	}
	return ErrConflict
}

func (s *DocStore) DeleteInvite(ctx context.Context, id string) error {
	return s.del(ctx, "invites", id)
}

// Course enrollments

func enrollmentID(userID, courseID string) string { return userID + ":" + courseID }

func (s *DocStore) Enrollment(ctx context.Context, userID, courseID string) (Enrollment, error) {
	var e Enrollment
	err := s.get(ctx, "enrollments", enrollmentID(userID, courseID), &e)
	return e, err
}

func (s *DocStore) ListEnrollments(ctx context.Context, userID string) ([]Enrollment, error) {
	return all[Enrollment](ctx, s.db, "enrollments", "user_id = ?", userID)
}

func (s *DocStore) PutEnrollment(ctx context.Context, e Enrollment) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO enrollments (id, user_id, data) VALUES (?, ?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		enrollmentID(e.UserID, e.CourseID), e.UserID, string(data),
	)
	return err
}

// Puzzle progress

func (s *DocStore) PuzzleProgress(ctx context.Context, userID string) (PuzzleProgress, error) {
	var p PuzzleProgress
	err := s.get(ctx, "puzzle_progress", userID, &p)
	if errors.Is(err, ErrNotFound) {
		return PuzzleProgress{UserID: userID, Completed: []int{}}, nil
	}
	return p, err
}

func (s *DocStore) PutPuzzleProgress(ctx context.Context, p PuzzleProgress) error {
	return s.put(ctx, "puzzle_progress", p.UserID, p)
}

var _ Store = (*DocStore)(nil)
