// Package board holds the board-interaction model shared by every page that
// renders a chess board: squares, pieces and the click-driven selection state
// machine. It knows nothing about chess rules; legality is answered by an
// Engine.
package board

import (
	"errors"
	"fmt"
)

// Square is a board coordinate in algebraic form, "a1" through "h8".
type Square string

var ErrInvalidSquare = errors.New("invalid square")

// ParseSquare validates s and returns it as a Square.
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return "", fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	return Square(s), nil
}

// File returns the zero-based file index (a=0).
func (s Square) File() int { return int(s[0] - 'a') }

// Rank returns the zero-based rank index (1=0).
func (s Square) Rank() int { return int(s[1] - '1') }

func (s Square) String() string { return string(s) }

// SquareAt builds the square for zero-based file and rank indexes.
func SquareAt(file, rank int) Square {
	return Square([]byte{byte('a' + file), byte('1' + rank)})
}

type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opposite returns the other side.
func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

// Piece is a colored piece. Kind is one of k, q, r, b, n, p.
type Piece struct {
	Color Color  `json:"color"`
	Kind  string `json:"kind"`
}

var symbols = map[Piece]string{
	{White, "k"}: "♔", {White, "q"}: "♕", {White, "r"}: "♖", {White, "b"}: "♗", {White, "n"}: "♘", {White, "p"}: "♙",
	{Black, "k"}: "♚", {Black, "q"}: "♛", {Black, "r"}: "♜", {Black, "b"}: "♝", {Black, "n"}: "♞", {Black, "p"}: "♟",
}

// Symbol returns the Unicode glyph of the piece.
func (p Piece) Symbol() string { return symbols[p] }
