package board

import "slices"

// Engine answers the rules questions the selector needs.
type Engine interface {
	Turn() Color
	PieceAt(sq Square) (Piece, bool)
	LegalDestinations(from Square) []Square
}

// MoveFunc attempts a move and reports whether it was accepted.
type MoveFunc func(from, to Square) bool

// Outcome describes what a click did.
type Outcome string

const (
	Ignored    Outcome = "ignored"
	Selected   Outcome = "selected"
	Deselected Outcome = "deselected"
	Moved      Outcome = "moved"
	Rejected   Outcome = "rejected"
)

// Snapshot is the externally visible selection state.
type Snapshot struct {
	Selected     *Square  `json:"selected"`
	Destinations []Square `json:"destinations"`
}

// Selector is the two-state (idle/selected) click machine. It is not safe for
// concurrent use; callers guard it with the lock of whatever owns the game.
type Selector struct {
	engine Engine
	move   MoveFunc

	selected     *Square
	destinations []Square
}

func NewSelector(engine Engine, move MoveFunc) *Selector {
	return &Selector{engine: engine, move: move}
}

// Click applies one square click.
func (s *Selector) Click(sq Square) Outcome {
	if s.selected == nil {
		if s.trySelect(sq) {
			return Selected
		}
		return Ignored
	}

	origin := *s.selected
	switch {
	case origin == sq:
		s.Reset()
		return Deselected
	case slices.Contains(s.destinations, sq):
		if !s.move(origin, sq) {
			return Rejected
		}
		s.Reset()
		return Moved
	case s.trySelect(sq):
		return Selected
	default:
		s.Reset()
		return Deselected
	}
}

// trySelect selects sq when it holds a piece of the side to move.
func (s *Selector) trySelect(sq Square) bool {
	p, ok := s.engine.PieceAt(sq)
	if !ok || p.Color != s.engine.Turn() {
		return false
	}
	s.selected = &sq
	s.destinations = s.engine.LegalDestinations(sq)
	return true
}

// Reset returns to idle.
func (s *Selector) Reset() {
	s.selected = nil
	s.destinations = nil
}

// Idle reports whether nothing is selected.
func (s *Selector) Idle() bool { return s.selected == nil }

func (s *Selector) Snapshot() Snapshot {
	snap := Snapshot{Destinations: slices.Clone(s.destinations)}
	if snap.Destinations == nil {
		snap.Destinations = []Square{}
	}
	if s.selected != nil {
		sq := *s.selected
		snap.Selected = &sq
	}
	return snap
}
