package paktype

import "strconv"

// Dialect selects one of the two known pak layouts.
//
// The format carries no self-describing magic, so the caller must know which
// dialect a file uses.
type Dialect int

const (
	// DialectAvatar is the tag 7 layout used by avatar paks.
	// Entry paths are stored inline in the entry table.
	DialectAvatar Dialect = 7

	// DialectGame is the tag 10 layout used by the main game paks.
	// Entry paths are stored in a directory table after the entries.
	DialectGame Dialect = 10
)

// Valid reports whether d is a known dialect.
func (d Dialect) Valid() bool {
	return d == DialectAvatar || d == DialectGame
}

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case DialectAvatar:
		return "avatar(7)"
	case DialectGame:
		return "game(10)"
	default:
		return "dialect(" + strconv.Itoa(int(d)) + ")"
	}
}
