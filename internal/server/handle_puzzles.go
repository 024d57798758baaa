package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shatranj/arena/internal/board"
)

func writePuzzleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errLevelLocked):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "puzzle not found")
	case errors.Is(err, errNoActivePuzzle):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errPuzzleSolved):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, board.ErrInvalidSquare):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func handleListPuzzles(puzzles *Puzzles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := puzzles.List(r.Context(), userFrom(r).ID, r.URL.Query().Get("difficulty"))
		if err != nil {
			writePuzzleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handlePuzzleProgress(puzzles *Puzzles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prog, err := puzzles.Progress(r.Context(), userFrom(r).ID)
		if err != nil {
			writePuzzleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, prog)
	}
}

func handleStartPuzzle(puzzles *Puzzles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		level, err := strconv.Atoi(chi.URLParam(r, "level"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid level")
			return
		}
		st, err := puzzles.Start(r.Context(), userFrom(r).ID, level)
		if err != nil {
			writePuzzleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func handleCurrentPuzzle(puzzles *Puzzles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := puzzles.State(userFrom(r).ID)
		if err != nil {
			writePuzzleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func handlePuzzleClick(puzzles *Puzzles, v *Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ClickRequest
		if !v.decode(w, r, &req) {
			return
		}
		sq, err := board.ParseSquare(req.Square)
		if err != nil {
			writePuzzleError(w, err)
			return
		}
		res, err := puzzles.Click(r.Context(), userFrom(r).ID, sq)
		if err != nil {
			writePuzzleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handlePuzzleHint(puzzles *Puzzles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hint, err := puzzles.Hint(userFrom(r).ID)
		if err != nil {
			writePuzzleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, hint)
	}
}

func handlePuzzleSolution(puzzles *Puzzles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sol, err := puzzles.RevealSolution(userFrom(r).ID)
		if err != nil {
			writePuzzleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sol)
	}
}
