package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/shatranj/arena/internal/handler/health"
)

type resp struct {
	status int
	body   any
}

// Request parameters. Routes with placeholders must declare every one of
// them or the reflector rejects the operation.
type (
	GamePath struct {
		GameID string `path:"gameID"`
	}
	InvitePath struct {
		InviteID string `path:"inviteID"`
	}
	FriendRequestPath struct {
		RequestID string `path:"requestID"`
	}
	PuzzleLevelPath struct {
		Level int `path:"level"`
	}
	CoursePath struct {
		CourseID string `path:"courseID"`
	}
	LessonPath struct {
		CourseID string `path:"courseID"`
		LessonID string `path:"lessonID"`
	}
	UserPath struct {
		UserID string `path:"userID"`
	}
	SearchQuery struct {
		Q string `query:"q"`
	}
	PuzzleQuery struct {
		Difficulty string `query:"difficulty"`
	}
	CourseQuery struct {
		Category string `query:"category"`
	}
	EventsQuery struct {
		Token string `query:"token"`
	}
)

// addOp registers one operation. A nil req means no parameters and no body.
// The document is static, so a rejected operation is a programming error.
func addOp(r *openapi3.Reflector, method, path, summary, desc string, req any, resps ...resp) {
	op, err := r.NewOperationContext(method, path)
	if err != nil {
		panic(fmt.Sprintf("openapi %s %s: %v", method, path, err))
	}
	op.SetSummary(summary)
	op.SetDescription(desc)
	if req != nil {
		op.AddReqStructure(req)
	}
	for _, rs := range resps {
		op.AddRespStructure(rs.body, openapi.WithHTTPStatus(rs.status))
	}
	if err := r.AddOperation(op); err != nil {
		panic(fmt.Sprintf("openapi %s %s: %v", method, path, err))
	}
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Shatranj API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the Shatranj Arabic chess platform.")

	var (
		ok         = func(body any) resp { return resp{http.StatusOK, body} }
		created    = func(body any) resp { return resp{http.StatusCreated, body} }
		noContent  = resp{http.StatusNoContent, nil}
		badRequest = resp{http.StatusBadRequest, ErrorResponse{}}
		unauth     = resp{http.StatusUnauthorized, ErrorResponse{}}
		forbidden  = resp{http.StatusForbidden, ErrorResponse{}}
		notFound   = resp{http.StatusNotFound, ErrorResponse{}}
		conflict   = resp{http.StatusConflict, ErrorResponse{}}
	)

	addOp(r, http.MethodGet, "/healthz", "Health check",
		"Returns the health status of backend dependencies.", nil,
		ok(health.Response{}), resp{http.StatusServiceUnavailable, health.Response{}})

	// Accounts
	addOp(r, http.MethodPost, "/api/auth/register", "Register",
		"Creates a player account and returns a session token.", RegisterRequest{},
		created(AuthResponse{}), badRequest, conflict)
	addOp(r, http.MethodPost, "/api/auth/login", "Login",
		"Verifies email and password and returns a session token. Banned users get 403.", LoginRequest{},
		ok(AuthResponse{}), badRequest, unauth, forbidden)
	addOp(r, http.MethodPost, "/api/auth/logout", "Logout",
		"Deletes the session and marks the user offline. Requires Bearer token.", nil,
		noContent, unauth)
	addOp(r, http.MethodGet, "/api/me", "Current user",
		"Returns the authenticated user. Requires Bearer token.", nil,
		ok(UserResponse{}), unauth, forbidden)
	addOp(r, http.MethodGet, "/api/user/profile", "Profile",
		"Returns rating and game statistics. Requires Bearer token.", nil,
		ok(ProfileResponse{}), unauth)

	// Notifications
	op, err := r.NewOperationContext(http.MethodGet, "/api/events")
	if err != nil {
		panic(fmt.Sprintf("openapi GET /api/events: %v", err))
	}
	op.SetSummary("SSE notice stream")
	op.SetDescription("Server-Sent Events stream of notices for the user. Pass token as query parameter.")
	op.AddReqStructure(EventsQuery{})
	op.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	op.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	if err := r.AddOperation(op); err != nil {
		panic(fmt.Sprintf("openapi GET /api/events: %v", err))
	}

	// Friends
	addOp(r, http.MethodGet, "/api/friends", "List friends",
		"Returns accepted friends with presence and current opponent.", nil,
		ok([]FriendResponse{}), unauth)
	addOp(r, http.MethodGet, "/api/friends/search", "Search users",
		"Finds users whose username contains q.", SearchQuery{},
		ok([]UserSearchResult{}), unauth)
	addOp(r, http.MethodGet, "/api/friends/requests", "Incoming friend requests",
		"Lists pending requests addressed to the user.", nil,
		ok([]FriendRequestResponse{}), unauth)
	addOp(r, http.MethodPost, "/api/friends/requests", "Send friend request",
		"Sends a friend request by username.", FriendRequestBody{},
		created(Friendship{}), badRequest, notFound, conflict)
	addOp(r, http.MethodPost, "/api/friends/requests/{requestID}/accept", "Accept friend request",
		"Accepts a pending request addressed to the user.", FriendRequestPath{},
		ok(Friendship{}), notFound)

	// Invites
	addOp(r, http.MethodGet, "/api/invites", "List invites",
		"Returns pending, unexpired incoming and outgoing invites.", nil,
		ok(InviteListResponse{}), unauth)
	addOp(r, http.MethodPost, "/api/invites", "Send invite",
		"Invites a friend to a game with a time control in minutes.", InviteRequest{},
		created(InviteResponse{}), badRequest, forbidden, notFound)
	addOp(r, http.MethodPost, "/api/invites/{inviteID}/accept", "Accept invite",
		"Creates a live game with the inviter as white.", InvitePath{},
		ok(GameCreatedResponse{}), forbidden, notFound, conflict)
	addOp(r, http.MethodPost, "/api/invites/{inviteID}/decline", "Decline invite",
		"Removes the invite and tells the inviter.", InvitePath{},
		noContent, forbidden, notFound, conflict)

	// Games
	addOp(r, http.MethodGet, "/api/games/active", "Active games",
		"Lists the user's unfinished games.", nil,
		ok([]ActiveGame{}), unauth)
	addOp(r, http.MethodPost, "/api/games/quick", "Quick play",
		"Starts a game against the house opponent.", QuickPlayRequest{},
		created(GameCreatedResponse{}), badRequest)
	addOp(r, http.MethodGet, "/api/games/{gameID}", "Game state",
		"Returns the board, clocks, moves, chat and the viewer's selection.", GamePath{},
		ok(GameState{}), notFound)
	addOp(r, http.MethodPost, "/api/games/{gameID}/click", "Click square",
		"Drives the viewer's selection. 409 when the viewer may not move.", struct {
			GamePath
			ClickRequest
		}{},
		ok(ClickResponse{}), badRequest, forbidden, notFound, conflict)
	addOp(r, http.MethodPost, "/api/games/{gameID}/move", "Move",
		"Plays a move directly. 409 when not the viewer's turn or illegal.", struct {
			GamePath
			MoveRequest
		}{},
		ok(MoveResponse{}), badRequest, forbidden, notFound, conflict)
	addOp(r, http.MethodPost, "/api/games/{gameID}/chat", "Chat",
		"Appends a chat message.", struct {
			GamePath
			ChatRequest
		}{},
		created(ChatMessage{}), badRequest, forbidden, notFound)
	addOp(r, http.MethodPost, "/api/games/{gameID}/resign", "Resign",
		"Ends the game in the opponent's favour.", GamePath{},
		ok(GameState{}), forbidden, notFound, conflict)
	addOp(r, http.MethodPost, "/api/games/{gameID}/draw/offer", "Offer draw",
		"Offers a draw to the opponent.", GamePath{},
		ok(GameState{}), forbidden, notFound, conflict)
	addOp(r, http.MethodPost, "/api/games/{gameID}/draw/respond", "Answer draw offer",
		"Accepting ends the game drawn; declining clears the offer.", struct {
			GamePath
			DrawResponseRequest
		}{},
		ok(GameState{}), forbidden, notFound, conflict)

	// Puzzles
	addOp(r, http.MethodGet, "/api/puzzles", "List puzzles",
		"Lists puzzles, optionally by difficulty, with locked and completed flags.", PuzzleQuery{},
		ok([]PuzzleListItem{}), unauth)
	addOp(r, http.MethodGet, "/api/puzzles/progress", "Puzzle progress",
		"Returns completed levels and score.", nil,
		ok(PuzzleProgressResponse{}), unauth)
	addOp(r, http.MethodPost, "/api/puzzles/{level}/start", "Start puzzle",
		"Starts a level. 403 when its predecessor is not completed.", PuzzleLevelPath{},
		ok(PuzzleState{}), forbidden, notFound)
	addOp(r, http.MethodGet, "/api/puzzles/current", "Current puzzle",
		"Returns the active puzzle session.", nil,
		ok(PuzzleState{}), notFound)
	addOp(r, http.MethodPost, "/api/puzzles/current/click", "Click puzzle square",
		"Drives the puzzle selection. Any legal move solves the puzzle.", ClickRequest{},
		ok(PuzzleClickResult{}), badRequest, notFound, conflict)
	addOp(r, http.MethodPost, "/api/puzzles/current/hint", "Hint",
		"Reveals the target square and costs two points.", nil,
		ok(PuzzleHint{}), notFound)
	addOp(r, http.MethodPost, "/api/puzzles/current/solution", "Reveal solution",
		"Returns the solution line and stops the timer.", nil,
		ok(PuzzleSolution{}), notFound)

	// Courses
	addOp(r, http.MethodGet, "/api/courses", "List courses",
		"Lists courses by category with enrollment and progress.", CourseQuery{},
		ok([]CourseResponse{}), unauth)
	addOp(r, http.MethodGet, "/api/courses/{courseID}", "Course detail",
		"Returns a course with lessons and completion flags.", CoursePath{},
		ok(CourseDetailResponse{}), notFound)
	addOp(r, http.MethodPost, "/api/courses/{courseID}/enroll", "Enroll",
		"Enrolls the user. Repeating is harmless.", CoursePath{},
		ok(CourseResponse{}), notFound)
	addOp(r, http.MethodPost, "/api/courses/{courseID}/lessons/{lessonID}/start", "Start lesson",
		"Marks the lesson completed. Requires enrollment.", LessonPath{},
		ok(LessonStartResponse{}), forbidden, notFound)

	// Boards
	addOp(r, http.MethodPost, "/api/boards/connect", "Connect board",
		"Starts pairing a physical board by QR or serial number.", ConnectBoardRequest{},
		resp{http.StatusAccepted, PairingStatus{}}, badRequest)
	addOp(r, http.MethodGet, "/api/boards/status", "Board status",
		"Returns the pairing state.", nil,
		ok(PairingStatus{}), unauth)
	addOp(r, http.MethodPost, "/api/boards/disconnect", "Disconnect board",
		"Forgets the paired board.", nil,
		ok(PairingStatus{}), unauth)

	// Admin
	addOp(r, http.MethodGet, "/api/admin/users", "Admin: list users",
		"Lists users, optionally filtered by q. Requires admin role.", SearchQuery{},
		ok([]UserResponse{}), forbidden)
	addOp(r, http.MethodPost, "/api/admin/users/{userID}/ban", "Admin: ban user",
		"Bans a user and revokes their sessions.", UserPath{},
		ok(UserResponse{}), forbidden, notFound, conflict)
	addOp(r, http.MethodPost, "/api/admin/users/{userID}/unban", "Admin: unban user",
		"Lifts a ban.", UserPath{},
		ok(UserResponse{}), forbidden, notFound)
	addOp(r, http.MethodGet, "/api/admin/games", "Admin: list games",
		"Lists all live and finished games.", nil,
		ok([]GameSummary{}), forbidden)
	addOp(r, http.MethodPost, "/api/admin/games/{gameID}/end", "Admin: end game",
		"Aborts a game without rating changes.", GamePath{},
		ok(GameSummary{}), forbidden, notFound, conflict)
	addOp(r, http.MethodGet, "/api/admin/invites", "Admin: list invites",
		"Lists all invites; stale pending ones read expired.", nil,
		ok([]InviteResponse{}), forbidden)
	addOp(r, http.MethodDelete, "/api/admin/invites/{inviteID}", "Admin: delete invite",
		"Deletes an invite.", InvitePath{},
		noContent, forbidden, notFound)
	addOp(r, http.MethodGet, "/api/admin/stats", "Admin: statistics",
		"Returns platform counters.", nil,
		ok(AdminStats{}), forbidden)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
