package state

import "github.com/pkg/errors"

// The benchmark positions: mid-game boards with known piece queues, used by
// the benchmark harness and by tests that need a non-trivial position.

// testBoards holds one column bitmask per playfield column, left to right.
var testBoards = [...][NumCols]uint32{
	{
		0b00011111,
		0b00011111,
		0b00111101,
		0b00011011,
		0b00111111,
		0b00011110,
		0b00011111,
		0b00000111,
		0b01111111,
		0b11111111,
	},
	{
		0b1111111111,
		0b1111111111,
		0b1111011111,
		0b1011111111,
		0b0011111111,
		0b0011100000,
		0b0000111111,
		0b0111111111,
		0b0111111111,
		0b0111111111,
	},
}

var (
	// The last queue slot is empty: the chance draw after the previous
	// placement is still pending when the benchmark position is entered.
	testQueues   = [...][QueueLen]Piece{{Z, L, S, S, O, NoPiece}, {L, Z, O, S, I, NoPiece}}
	testCurrents = [...]Piece{O, J}
	testHolds    = [...]Piece{S, O}
)

// NumTestGames is the number of canned benchmark positions.
const NumTestGames = len(testBoards)

// testGameSeed makes benchmark runs reproducible for a given position.
const testGameSeed = 0x51AC2B07

// TestGame returns the canned benchmark position with the given index.
func TestGame(index int) (Game, error) {
	if index < 0 || index >= NumTestGames {
		return Game{}, errors.Errorf("test game index must be in [0, %d), got %d", NumTestGames, index)
	}
	g := Game{
		Board:    Board{Cols: testBoards[index]},
		Current:  testCurrents[index],
		Hold:     testHolds[index],
		Queue:    testQueues[index],
		Opponent: NewOpponent(defaultOpponentSeed),
	}
	g.rng.Seed(testGameSeed + uint64(index))
	return g, nil
}
