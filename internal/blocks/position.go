// Package blocks implements the stacking-blocks planning domain: the world
// state and its operators, goals, the per-block status classifier and the
// task-decomposition methods consumed by the htn driver.
package blocks

import "fmt"

// Block identifies one block. Identifiers are dense and assigned by the
// problem loader; the domain never interprets them beyond ordering.
type Block int

// Position describes where a block rests: on another block or on the table.
//
// The zero value is Table.
type Position struct {
	support Block
	onBlock bool
}

// Table is the position of a block resting directly on the table.
var Table = Position{}

// On returns the position "resting on b".
func On(b Block) Position {
	return Position{support: b, onBlock: true}
}

// Support returns the supporting block and true, or false for Table.
func (p Position) Support() (Block, bool) {
	return p.support, p.onBlock
}

// IsTable reports whether p is the table.
func (p Position) IsTable() bool {
	return !p.onBlock
}

func (p Position) String() string {
	if !p.onBlock {
		return "Table"
	}
	return fmt.Sprintf("On(%d)", p.support)
}

// Pair records that Top rests on Bottom.
type Pair struct {
	Top    Block
	Bottom Block
}

func (p Pair) String() string {
	return fmt.Sprintf("(%d on %d)", p.Top, p.Bottom)
}
