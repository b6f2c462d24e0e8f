// Package turing defines the data model shared by the CTM pipeline: symbols,
// moves, states, transitions, and the transition-table <-> integer codec
// (component C1).
package turing

import "fmt"

// Symbol is a binary tape value.
type Symbol uint8

const (
	Zero Symbol = 0
	One  Symbol = 1
)

// Complement flips a symbol.
func (s Symbol) Complement() Symbol {
	return 1 - s
}

// Move is the carriage displacement applied after a transition.
type Move int8

const (
	Left  Move = -1
	None  Move = 0
	Right Move = 1
)

// Reverse swaps Left and Right; None is its own reverse, used only for the
// halt state's implicit non-move.
func (m Move) Reverse() Move {
	return -m
}

// State is a machine state; State 0 is the distinguished halt state.
type State int

// Halt is the distinguished sink state.
const Halt State = 0

// Transition is the action taken for a given (state, symbol) pair.
type Transition struct {
	NextState State
	Write     Symbol
	Move      Move
}

// IsHalting reports whether this transition enters the halt state.
func (t Transition) IsHalting() bool {
	return t.NextState == Halt
}

// Table is a total transition function over active states 1..N and symbols
// {0,1}, stored as a flat 2*N slice indexed by (state-1)*2+symbol.
type Table struct {
	N       int
	entries []Transition
}

// NewTable allocates a table for n active states; all entries default to
// the zero Transition (halt, write 0), which callers are expected to
// overwrite via Set before using the table.
func NewTable(n int) Table {
	if n <= 0 {
		panic("turing: n must be positive")
	}
	return Table{N: n, entries: make([]Transition, 2*n)}
}

func index(n int, state State, sym Symbol) int {
	if state < 1 || int(state) > n {
		panic(fmt.Sprintf("turing: state %d out of range for n=%d", state, n))
	}
	return 2*(int(state)-1) + int(sym)
}

// Get returns the transition for (state, sym). state must be in 1..N.
func (t Table) Get(state State, sym Symbol) Transition {
	return t.entries[index(t.N, state, sym)]
}

// Set installs the transition for (state, sym).
func (t Table) Set(state State, sym Symbol, tr Transition) {
	t.entries[index(t.N, state, sym)] = tr
}

// Clone returns an independent copy of the table.
func (t Table) Clone() Table {
	cp := Table{N: t.N, entries: make([]Transition, len(t.entries))}
	copy(cp.entries, t.entries)
	return cp
}

// HasHaltTransition reports whether any of the table's 2N entries transitions
// to the halt state. Used by the pre-run filter (C3).
func (t Table) HasHaltTransition() bool {
	for _, tr := range t.entries {
		if tr.IsHalting() {
			return true
		}
	}
	return false
}

// InitialTransition returns the transition for (state 1, blank); this is the
// transition examined by the reduced enumerator's trivial-initial-transition
// exclusion (spec §4.2 step c).
func (t Table) InitialTransition(blank Symbol) Transition {
	return t.Get(1, blank)
}
