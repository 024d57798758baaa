package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	demoPlayerID       = "user_player"
	demoPlayerEmail    = "player@shatranj.example"
	demoPlayerPassword = "changeme"
)

type seedUser struct {
	id       string
	username string
	email    string
	rating   int
	wins     int
	losses   int
	draws    int
	presence string
	banned   bool
}

var demoUsers = []seedUser{
	{id: demoPlayerID, username: "اللاعب الذكي", email: demoPlayerEmail, rating: 1200, wins: 45, losses: 23, draws: 12, presence: PresenceOnline},
	{id: "user_ahmed", username: "أحمد محمد", email: "ahmed@example.com", rating: 1245, wins: 30, losses: 18, draws: 7, presence: PresenceOnline},
	{id: "user_sara", username: "سارة أحمد", email: "sara@example.com", rating: 1156, wins: 21, losses: 19, draws: 5, presence: PresenceInGame},
	{id: "user_omar", username: "عمر خالد", email: "omar@example.com", rating: 1332, wins: 52, losses: 20, draws: 9, presence: PresenceOffline},
	{id: "user_spam", username: "محمد سبام", email: "spam@example.com", rating: 800, losses: 3, presence: PresenceOffline, banned: true},
	{id: "user_layla", username: "ليلى أحمد", email: "layla@example.com", rating: 1180, wins: 12, losses: 10, draws: 2, presence: PresenceOnline},
	{id: "user_yousef", username: "يوسف محمد", email: "yousef@example.com", rating: 1290, wins: 40, losses: 25, draws: 6, presence: PresenceOnline},
	{id: "user_fatima", username: "فاطمة سالم", email: "fatima@example.com", rating: 1210, wins: 15, losses: 14, draws: 3, presence: PresenceOffline},
}

// SeedDemo fills an empty database with the demo community and opens the
// demo games. Users are only created when none exist; rooms are in memory
// and are reopened on every start while their players exist.
func SeedDemo(ctx context.Context, logger *slog.Logger, store Store, rooms *Rooms, adminEmail, adminPassword string, inviteTTL time.Duration) error {
	existing, err := store.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		if err := seedUsers(ctx, store, adminEmail, adminPassword, inviteTTL); err != nil {
			return err
		}
		logger.Info("demo users seeded", "count", len(demoUsers)+1)
	}

	if err := seedRooms(ctx, store, rooms); err != nil {
		return err
	}
	logger.Info("demo games opened")
	return nil
}

func seedUsers(ctx context.Context, store Store, adminEmail, adminPassword string, inviteTTL time.Duration) error {
	adminHash, err := hashPassword(adminPassword)
	if err != nil {
		return err
	}
	playerHash, err := hashPassword(demoPlayerPassword)
	if err != nil {
		return err
	}

	if _, err := store.CreateUser(ctx, User{
		ID:           "user_admin",
		Username:     "المشرف",
		Email:        adminEmail,
		PasswordHash: adminHash,
		Role:         RoleAdmin,
		Avatar:       "♔",
		Rating:       1500,
		Presence:     PresenceOffline,
	}); err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}

	for _, su := range demoUsers {
		if _, err := store.CreateUser(ctx, User{
			ID:           su.id,
			Username:     su.username,
			Email:        su.email,
			PasswordHash: playerHash,
			Role:         RolePlayer,
			Avatar:       "♟",
			Rating:       su.rating,
			Wins:         su.wins,
			Losses:       su.losses,
			Draws:        su.draws,
			Presence:     su.presence,
			Banned:       su.banned,
		}); err != nil {
			return fmt.Errorf("seeding user %s: %w", su.id, err)
		}
	}

	for _, friend := range []string{"user_ahmed", "user_sara", "user_omar", "user_layla", "user_yousef", "user_fatima"} {
		f, err := store.CreateFriendship(ctx, demoPlayerID, friend)
		if err != nil {
			return fmt.Errorf("seeding friendship: %w", err)
		}
		if _, err := store.AcceptFriendship(ctx, f.ID, friend); err != nil {
			return fmt.Errorf("accepting friendship: %w", err)
		}
	}
	if _, err := store.CreateFriendship(ctx, "user_spam", demoPlayerID); err != nil {
		return fmt.Errorf("seeding friend request: %w", err)
	}

	now := time.Now().UTC()
	for _, inv := range []Invite{
		{ID: "inv_layla", FromID: "user_layla", ToID: demoPlayerID, TimeControl: 10},
		{ID: "inv_yousef", FromID: "user_yousef", ToID: demoPlayerID, TimeControl: 5},
		{ID: "inv_fatima", FromID: demoPlayerID, ToID: "user_fatima", TimeControl: 15},
	} {
		inv.GameType = GameOnline
		inv.Status = InvitePending
		inv.CreatedAt = now
		inv.ExpiresAt = now.Add(inviteTTL)
		if _, err := store.CreateInvite(ctx, inv); err != nil {
			return fmt.Errorf("seeding invite: %w", err)
		}
	}

	if err := store.PutPuzzleProgress(ctx, PuzzleProgress{
		UserID:    demoPlayerID,
		Completed: []int{1, 2, 3},
		Score:     18,
	}); err != nil {
		return fmt.Errorf("seeding puzzle progress: %w", err)
	}

	for _, e := range []Enrollment{
		{UserID: demoPlayerID, CourseID: "intro-basics", CompletedLessons: []string{"1", "2", "3"}},
		{UserID: demoPlayerID, CourseID: "openings-guide", CompletedLessons: []string{"1"}},
	} {
		e.EnrolledAt = now
		if err := store.PutEnrollment(ctx, e); err != nil {
			return fmt.Errorf("seeding enrollment: %w", err)
		}
	}
	return nil
}

func seedRooms(ctx context.Context, store Store, rooms *Rooms) error {
	games := []struct {
		id          string
		white       string
		black       string
		timeControl int
		moves       []string
	}{
		{id: "game_001", white: "user_ahmed", black: "user_sara", timeControl: 10, moves: []string{"e2e4", "e7e5", "g1f3"}},
		{id: "game_002", white: "user_omar", black: "user_layla", timeControl: 5,
			moves: []string{"e2e4", "e7e5", "f1c4", "b8c6", "d1h5", "g8f6", "h5f7"}},
		{id: "game_123", white: demoPlayerID, black: "user_yousef", timeControl: 10},
	}

	for _, g := range games {
		if _, ok := rooms.Get(g.id); ok {
			continue
		}
		white, err := store.UserByID(ctx, g.white)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		black, err := store.UserByID(ctx, g.black)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		rm := rooms.create(roomOptions{
			ID:          g.id,
			White:       seatOf(white),
			Black:       seatOf(black),
			TimeControl: g.timeControl,
			GameType:    GameOnline,
		})
		if err := rm.replay(g.moves...); err != nil {
			return fmt.Errorf("replaying %s: %w", g.id, err)
		}
	}
	return nil
}
