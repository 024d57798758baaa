package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, store Store, rooms *Rooms, broker *Broker, opts Options) {
	v := NewValidator()
	puzzles := NewPuzzles(store, opts.PuzzleTimeLimit)
	courses := NewCourses(store)
	boards := NewBoards(opts.PairingDelay, boardPairedHook(broker, logger))

	rooms.OnEnd(gameEndHook(store, broker, logger))

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Shatranj API", "/openapi.json", "/docs"))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", handleRegister(store, v, opts.SessionTTL, logger))
		r.Post("/auth/login", handleLogin(store, v, opts.SessionTTL))
		r.Get("/events", handleEvents(store, broker))

		r.Group(func(r chi.Router) {
			r.Use(userAuthMiddleware(store))

			r.Post("/auth/logout", handleLogout(store))
			r.Get("/me", handleMe())
			r.Get("/user/profile", handleProfile())

			r.Get("/friends", handleListFriends(store, rooms))
			r.Get("/friends/search", handleSearchUsers(store, rooms))
			r.Get("/friends/requests", handleListFriendRequests(store))
			r.Post("/friends/requests", handleSendFriendRequest(store, broker, v))
			r.Post("/friends/requests/{requestID}/accept", handleAcceptFriendRequest(store, broker))

			r.Get("/invites", handleListInvites(store))
			r.Post("/invites", handleCreateInvite(store, broker, v, opts.InviteTTL))
			r.Post("/invites/{inviteID}/accept", handleAcceptInvite(store, rooms, broker, logger))
			r.Post("/invites/{inviteID}/decline", handleDeclineInvite(store, broker))

			r.Get("/games/active", handleActiveGames(rooms))
			r.Post("/games/quick", handleQuickPlay(store, rooms, v))
			r.Route("/games/{gameID}", func(r chi.Router) {
				r.Get("/", handleGameState(rooms))
				r.Post("/click", handleGameClick(rooms, v))
				r.Post("/move", handleGameMove(rooms, v))
				r.Post("/chat", handleGameChat(rooms, v))
				r.Post("/resign", handleGameAction(rooms, (*Room).Resign))
				r.Post("/draw/offer", handleGameAction(rooms, (*Room).OfferDraw))
				r.Post("/draw/respond", handleDrawRespond(rooms))
			})

			r.Get("/puzzles", handleListPuzzles(puzzles))
			r.Get("/puzzles/progress", handlePuzzleProgress(puzzles))
			r.Post("/puzzles/{level}/start", handleStartPuzzle(puzzles))
			r.Get("/puzzles/current", handleCurrentPuzzle(puzzles))
			r.Post("/puzzles/current/click", handlePuzzleClick(puzzles, v))
			r.Post("/puzzles/current/hint", handlePuzzleHint(puzzles))
			r.Post("/puzzles/current/solution", handlePuzzleSolution(puzzles))

			r.Get("/courses", handleListCourses(courses))
			r.Get("/courses/{courseID}", handleGetCourse(courses))
			r.Post("/courses/{courseID}/enroll", handleEnrollCourse(courses))
			r.Post("/courses/{courseID}/lessons/{lessonID}/start", handleStartLesson(courses))

			r.Post("/boards/connect", handleConnectBoard(boards, v))
			r.Get("/boards/status", handleBoardStatus(boards))
			r.Post("/boards/disconnect", handleDisconnectBoard(boards))

			r.Route("/admin", func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/users", handleAdminListUsers(store, rooms))
				r.Post("/users/{userID}/ban", handleAdminSetBan(store, true, logger))
				r.Post("/users/{userID}/unban", handleAdminSetBan(store, false, logger))
				r.Get("/games", handleAdminListGames(rooms))
				r.Post("/games/{gameID}/end", handleAdminEndGame(rooms))
				r.Get("/invites", handleAdminListInvites(store))
				r.Delete("/invites/{inviteID}", handleAdminDeleteInvite(store))
				r.Get("/stats", handleAdminStats(store, rooms))
			})
		})
	})

	if opts.SPADir != "" {
		if info, err := os.Stat(opts.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", opts.SPADir)
			r.NotFound(handleSPA(opts.SPADir))
		}
	}
}
