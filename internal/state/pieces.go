package state

import "github.com/gomlx/exceptions"

// Piece is one of the 7 falling tetromino pieces, plus NoPiece, the null value.
type Piece uint8

const (
	NoPiece Piece = iota
	I
	O
	T
	S
	Z
	J
	L
	LastPiece
)

// NumPieces doesn't include the NoPiece type.
const NumPieces = int(LastPiece) - 1

var PieceLetters = [LastPiece]string{"-", "I", "O", "T", "S", "Z", "J", "L"}

// String returns the one-letter piece name.
func (p Piece) String() string {
	if p >= LastPiece {
		return "?"
	}
	return PieceLetters[p]
}

// shapeColumn describes the cells a piece occupies in one column of its
// bounding box: count cells starting rise rows above the piece's base row.
type shapeColumn struct {
	rise  uint8
	count uint8
}

// shape is one rotation of a piece, columns left to right.
type shape []shapeColumn

// pieceShapes indexes shapes by piece and rotation. Pieces only list their
// distinct rotations: I, S and Z have 2, O has 1, T, J and L have 4.
var pieceShapes = [LastPiece][]shape{
	I: {
		{{0, 1}, {0, 1}, {0, 1}, {0, 1}},
		{{0, 4}},
	},
	O: {
		{{0, 2}, {0, 2}},
	},
	T: {
		{{0, 1}, {0, 2}, {0, 1}}, // flat side down
		{{0, 3}, {1, 1}},
		{{1, 1}, {0, 2}, {1, 1}},
		{{1, 1}, {0, 3}},
	},
	S: {
		{{0, 1}, {0, 2}, {1, 1}},
		{{1, 2}, {0, 2}},
	},
	Z: {
		{{1, 1}, {0, 2}, {0, 1}},
		{{0, 2}, {1, 2}},
	},
	J: {
		{{0, 2}, {0, 1}, {0, 1}},
		{{2, 1}, {0, 3}},
		{{1, 1}, {1, 1}, {0, 2}},
		{{0, 3}, {0, 1}},
	},
	L: {
		{{0, 1}, {0, 1}, {0, 2}},
		{{0, 3}, {2, 1}},
		{{0, 2}, {1, 1}, {1, 1}},
		{{0, 1}, {0, 3}},
	},
}

// RotationCount returns the number of distinct rotations of the piece.
func RotationCount(p Piece) int {
	if p == NoPiece || p >= LastPiece {
		return 0
	}
	return len(pieceShapes[p])
}

func shapeOf(p Piece, rotation uint8) shape {
	if p == NoPiece || p >= LastPiece || int(rotation) >= len(pieceShapes[p]) {
		exceptions.Panicf("no shape for piece %s rotation %d", p, rotation)
	}
	return pieceShapes[p][rotation]
}

// Width returns the number of board columns the piece covers at the given rotation.
func Width(p Piece, rotation uint8) int {
	return len(shapeOf(p, rotation))
}
