package state

import "golang.org/x/exp/rand"

const (
	// opponentDeathHeight is the garbage stack height that kills the opponent.
	opponentDeathHeight = 20

	// defaultOpponentSeed is the seed restored by ResetRNG, so that
	// traversals started from the same root face the same opponent.
	defaultOpponentSeed = 0x9E3779B97F4A7C15
)

// Opponent is a coarse model of the other player: a garbage stack fed by the
// attack we send, drained and occasionally raised by its own (seeded) play.
// It is a value type, copied along with the Game that embeds it.
type Opponent struct {
	// Garbage is the current height of the opponent's stack.
	Garbage uint8

	// Deaths counts how many times the opponent topped out.
	Deaths uint32

	dead bool
	seed uint64
	rng  rand.PCGSource
}

// NewOpponent returns an opponent whose chance moves follow the given seed.
func NewOpponent(seed uint64) Opponent {
	o := Opponent{seed: seed}
	o.rng.Seed(seed)
	return o
}

// GarbageHeight returns the opponent's current stack height.
func (o *Opponent) GarbageHeight() int { return int(o.Garbage) }

// IsDead reports whether the opponent topped out at some point along this line.
func (o *Opponent) IsDead() bool { return o.dead }

// ResetRNG rewinds the opponent's chance stream to its seed.
func (o *Opponent) ResetRNG() {
	o.rng.Seed(o.seed)
}

// receiveAttack raises the opponent's stack by the attack sent at it.
func (o *Opponent) receiveAttack(lines uint32) {
	o.Garbage += uint8(lines)
	if o.Garbage >= opponentDeathHeight {
		o.die()
	}
}

// step plays one chance move of the opponent: in 3 of 8 draws it digs a row,
// in 1 of 8 its own play raises the stack, otherwise the stack is unchanged.
func (o *Opponent) step() {
	switch o.rng.Uint64() % 8 {
	case 0, 1, 2:
		if o.Garbage > 0 {
			o.Garbage--
		}
	case 3:
		o.Garbage++
		if o.Garbage >= opponentDeathHeight {
			o.die()
		}
	}
}

func (o *Opponent) die() {
	o.dead = true
	o.Deaths++
	o.Garbage = 0
}
