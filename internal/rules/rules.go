// Package rules adapts the corentings/chess engine to the board package.
// Everything about legality, check and game termination is answered here.
package rules

import (
	"errors"
	"fmt"

	chess "github.com/corentings/chess/v2"

	"github.com/shatranj/arena/internal/board"
)

const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrInvalidFEN  = errors.New("invalid fen")
)

// Outcome values follow PGN result notation.
const (
	Ongoing  = "*"
	WhiteWon = "1-0"
	BlackWon = "0-1"
	Drawn    = "1/2-1/2"
)

// Played describes a move that was applied.
type Played struct {
	From  board.Square `json:"from"`
	To    board.Square `json:"to"`
	SAN   string       `json:"san"`
	UCI   string       `json:"uci"`
	FEN   string       `json:"fen"`
	Color board.Color  `json:"color"`
	Check bool         `json:"check"`
}

// Game is a chess game in progress. It implements board.Engine.
type Game struct {
	g *chess.Game
}

func New() *Game {
	return &Game{g: chess.NewGame()}
}

// FromFEN starts a game from an arbitrary position.
func FromFEN(fen string) (*Game, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return &Game{g: chess.NewGame(opt)}, nil
}

func (g *Game) FEN() string { return g.g.FEN() }

// Clone copies the current position. Move history is not carried over, so
// repetition draws start counting afresh on the copy.
func (g *Game) Clone() (*Game, error) {
	c, err := FromFEN(g.FEN())
	if err != nil {
		return nil, fmt.Errorf("cloning %q: %w", g.FEN(), err)
	}
	return c, nil
}

func (g *Game) Turn() board.Color { return colorOf(g.g.Position().Turn()) }

func (g *Game) PieceAt(sq board.Square) (board.Piece, bool) {
	p := g.g.Position().Board().Piece(toSquare(sq))
	if p == chess.NoPiece {
		return board.Piece{}, false
	}
	return pieceOf(p), true
}

// LegalDestinations lists where the piece on from may go. Promotion variants
// of the same move collapse into one destination.
func (g *Game) LegalDestinations(from board.Square) []board.Square {
	origin := toSquare(from)
	var dests []board.Square
	seen := make(map[chess.Square]bool)
	for _, m := range g.g.ValidMoves() {
		if m.S1() != origin || seen[m.S2()] {
			continue
		}
		seen[m.S2()] = true
		dests = append(dests, fromSquare(m.S2()))
	}
	return dests
}

// Move plays from→to. promo is one of q, r, b, n and only matters for pawn
// promotions; it defaults to a queen.
func (g *Game) Move(from, to board.Square, promo string) (Played, error) {
	if g.Over() {
		return Played{}, fmt.Errorf("%w: game is over", ErrIllegalMove)
	}

	uci := from.String() + to.String()
	legal, promotes := false, false
	for _, m := range g.g.ValidMoves() {
		if m.S1() == toSquare(from) && m.S2() == toSquare(to) {
			legal = true
			promotes = promotes || m.Promo() != chess.NoPieceType
		}
	}
	if !legal {
		return Played{}, fmt.Errorf("%w: %s", ErrIllegalMove, uci)
	}
	if promotes {
		switch promo {
		case "q", "r", "b", "n":
			uci += promo
		default:
			uci += "q"
		}
	}

	mover := g.Turn()
	pos := g.g.Position()
	if err := g.g.PushNotationMove(uci, chess.UCINotation{}, nil); err != nil {
		return Played{}, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	last := g.lastMove()

	return Played{
		From:  from,
		To:    to,
		SAN:   chess.AlgebraicNotation{}.Encode(pos, last),
		UCI:   uci,
		FEN:   g.g.FEN(),
		Color: mover,
		Check: last.HasTag(chess.Check),
	}, nil
}

func (g *Game) lastMove() *chess.Move {
	moves := g.g.Moves()
	if len(moves) == 0 {
		return nil
	}
	return moves[len(moves)-1]
}

// InCheck reports whether the side to move is in check after the last move.
func (g *Game) InCheck() bool {
	last := g.lastMove()
	return last != nil && last.HasTag(chess.Check)
}

// Outcome returns the PGN result of the game so far.
func (g *Game) Outcome() string {
	switch g.g.Outcome() {
	case chess.WhiteWon:
		return WhiteWon
	case chess.BlackWon:
		return BlackWon
	case chess.Draw:
		return Drawn
	default:
		return Ongoing
	}
}

func (g *Game) Over() bool { return g.Outcome() != Ongoing }

// Method names how a finished game ended.
func (g *Game) Method() string {
	switch g.g.Method() {
	case chess.Checkmate:
		return "checkmate"
	case chess.Stalemate:
		return "stalemate"
	case chess.NoMethod:
		return ""
	default:
		return "draw"
	}
}

func (g *Game) IsCheckmate() bool { return g.Method() == "checkmate" }

func (g *Game) IsDraw() bool { return g.Outcome() == Drawn }

// Board returns the position as eight ranks from rank 8 down to rank 1, each
// listing files a through h. Empty squares are nil.
func (g *Game) Board() [][]*board.Piece {
	b := g.g.Position().Board()
	rows := make([][]*board.Piece, 0, 8)
	for rank := 7; rank >= 0; rank-- {
		row := make([]*board.Piece, 8)
		for file := 0; file < 8; file++ {
			if p := b.Piece(chess.NewSquare(chess.File(file), chess.Rank(rank))); p != chess.NoPiece {
				piece := pieceOf(p)
				row[file] = &piece
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func toSquare(sq board.Square) chess.Square {
	return chess.NewSquare(chess.File(sq.File()), chess.Rank(sq.Rank()))
}

func fromSquare(sq chess.Square) board.Square {
	return board.SquareAt(int(sq.File()), int(sq.Rank()))
}

func colorOf(c chess.Color) board.Color {
	if c == chess.Black {
		return board.Black
	}
	return board.White
}

func pieceOf(p chess.Piece) board.Piece {
	var kind string
	switch p.Type() {
	case chess.King:
		kind = "k"
	case chess.Queen:
		kind = "q"
	case chess.Rook:
		kind = "r"
	case chess.Bishop:
		kind = "b"
	case chess.Knight:
		kind = "n"
	case chess.Pawn:
		kind = "p"
	}
	return board.Piece{Color: colorOf(p.Color()), Kind: kind}
}

var _ board.Engine = (*Game)(nil)
