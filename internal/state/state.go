// Package state implements the two-player falling-block stacking game the
// search engine plays: the board, the pieces, the piece queue, and a coarse
// opponent model.
//
// Game is deliberately a value type. The search copies states into jobs and
// mutates each copy independently, so everything a Game holds -- board, queue,
// RNG, opponent -- is embedded by value.
package state

import (
	"fmt"
	"math/bits"

	"github.com/cespare/xxhash/v2"
	"github.com/gomlx/exceptions"
	"golang.org/x/exp/rand"
)

// QueueLen is the length of the piece queue. The last slot may be NoPiece
// while a chance draw is pending (between Apply and ResolveChance).
const QueueLen = 6

// attackForLines maps the number of simultaneously cleared lines to the
// attack sent at the opponent.
var attackForLines = [5]uint32{0, 0, 1, 2, 4}

// Move is a placement of a piece: rotation index and leftmost column.
// When Piece is the held piece rather than the current one, applying the
// move swaps them first.
type Move struct {
	Piece    Piece
	Rotation uint8
	Column   uint8
}

// String returns a compact text form, e.g. "S/r1@c4".
func (m Move) String() string {
	return fmt.Sprintf("%s/r%d@c%d", m.Piece, m.Rotation, m.Column)
}

// Game is one player's complete game state plus the opponent model.
type Game struct {
	Board   Board
	Current Piece
	Hold    Piece
	Queue   [QueueLen]Piece

	// Pieces, Lines, Attack and TrueAttack are counters since the start of
	// the current search horizon.
	Pieces     uint32
	Lines      uint32
	Attack     uint32
	TrueAttack uint32

	GameOver bool

	Opponent Opponent

	rng rand.PCGSource
	bag uint8 // bitmask of pieces left in the current 7-bag
}

// NewGame returns an empty-board game with the piece queue drawn from seed.
func NewGame(seed uint64) Game {
	g := Game{Opponent: NewOpponent(defaultOpponentSeed)}
	g.rng.Seed(seed)
	g.Current = g.drawPiece()
	for i := range g.Queue {
		g.Queue[i] = g.drawPiece()
	}
	return g
}

// NewSeed rewinds the game's chance stream to the given seed, making the
// upcoming piece draws independent of previous traversals.
func (g *Game) NewSeed(seed uint64) {
	g.rng.Seed(seed)
}

// Hash returns a 32-bit identity of the position: board, pieces in play and
// the visible queue. Counters and the opponent are transient and excluded, so
// transposed lines reach the same node.
func (g *Game) Hash() uint32 {
	var buf [4*NumCols + 2 + QueueLen]byte
	for c, col := range g.Board.Cols {
		buf[4*c] = byte(col)
		buf[4*c+1] = byte(col >> 8)
		buf[4*c+2] = byte(col >> 16)
		buf[4*c+3] = byte(col >> 24)
	}
	buf[4*NumCols] = byte(g.Current)
	buf[4*NumCols+1] = byte(g.Hold)
	for i, p := range g.Queue {
		buf[4*NumCols+2+i] = byte(p)
	}
	h := xxhash.Sum64(buf[:])
	return uint32(h ^ h>>32)
}

// IsTerminal reports whether this game is over (the player topped out).
func (g *Game) IsTerminal() bool { return g.GameOver }

// LegalActions enumerates every placement of the current piece and, when one
// is held, of the held piece. The order is deterministic, so the index of a
// move is a stable action identifier for this state.
func (g *Game) LegalActions() []Move {
	if g.GameOver || g.Current == NoPiece {
		return nil
	}
	moves := make([]Move, 0, 40)
	moves = appendPlacements(moves, g.Current)
	if g.Hold != NoPiece && g.Hold != g.Current {
		moves = appendPlacements(moves, g.Hold)
	}
	return moves
}

func appendPlacements(moves []Move, p Piece) []Move {
	for rotation := 0; rotation < RotationCount(p); rotation++ {
		width := Width(p, uint8(rotation))
		for col := 0; col <= NumCols-width; col++ {
			moves = append(moves, Move{Piece: p, Rotation: uint8(rotation), Column: uint8(col)})
		}
	}
	return moves
}

// Apply performs the placement: swaps in the held piece if the move plays it,
// hard-drops, scores cleared lines as attack and pulls the next piece from
// the queue. The queue's freed slot stays empty until ResolveChance.
func (g *Game) Apply(m Move) {
	if g.GameOver {
		return
	}
	if m.Piece != g.Current {
		if m.Piece != g.Hold {
			exceptions.Panicf("move plays piece %s, but current is %s and hold is %s",
				m.Piece, g.Current, g.Hold)
		}
		g.Current, g.Hold = g.Hold, g.Current
	}

	cleared, topOut := g.Board.Place(g.Current, m.Rotation, int(m.Column))
	g.Pieces++
	g.Lines += uint32(cleared)
	if cleared > 4 {
		cleared = 4 // boards handed to us may have pre-filled rows
	}
	attack := attackForLines[cleared]
	g.Attack += attack
	g.TrueAttack += attack
	g.Opponent.receiveAttack(attack)
	if topOut {
		g.GameOver = true
		return
	}

	g.Current = g.Queue[0]
	copy(g.Queue[:], g.Queue[1:])
	g.Queue[QueueLen-1] = NoPiece
}

// ResolveChance resolves the chance move that follows a placement: pending
// empty queue slots (the one freed by Apply, plus the one a benchmark
// position may start with) are filled from the 7-bag and the opponent plays
// one chance step. Deterministic given the state's RNG.
func (g *Game) ResolveChance() {
	if !g.GameOver {
		for i := range g.Queue {
			if g.Queue[i] == NoPiece {
				g.Queue[i] = g.drawPiece()
			}
		}
	}
	g.Opponent.step()
}

// TrueAPP returns the true attack-per-piece rate so far.
func (g *Game) TrueAPP() float32 {
	if g.Pieces == 0 {
		return 0
	}
	return float32(g.TrueAttack) / float32(g.Pieces)
}

// APP returns the attack-per-piece rate so far.
func (g *Game) APP() float32 {
	if g.Pieces == 0 {
		return 0
	}
	return float32(g.Attack) / float32(g.Pieces)
}

// ResetCounters clears the transient per-search counters and gives the game a
// fresh opponent. Used when a search continues on a tree built earlier.
func (g *Game) ResetCounters() {
	g.Pieces = 0
	g.Lines = 0
	g.Attack = 0
	g.TrueAttack = 0
	g.Opponent = NewOpponent(defaultOpponentSeed)
}

// drawPiece draws from the 7-bag, refilling it when empty.
func (g *Game) drawPiece() Piece {
	const fullBag = 1<<NumPieces - 1
	if g.bag == 0 {
		g.bag = fullBag
	}
	remaining := bits.OnesCount8(g.bag)
	nth := int(g.rng.Uint64() % uint64(remaining))
	for p := I; p < LastPiece; p++ {
		bit := uint8(1) << (uint8(p) - 1)
		if g.bag&bit == 0 {
			continue
		}
		if nth == 0 {
			g.bag &^= bit
			return p
		}
		nth--
	}
	panic("7-bag accounting broken")
}
