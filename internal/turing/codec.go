package turing

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrCodeOutOfRange is returned when a code presented to Decode falls outside
// [0, Base(n)^(2n)). The driver treats this as a CodecOutOfRange failure,
// fatal within the worker that produced it (spec §7).
var ErrCodeOutOfRange = errors.New("turing: machine code out of range")

// Code is a machine-code integer, in bijection with a Table for a fixed n
// (spec §4.1). Codes are restricted to fit in a uint64, which bounds the
// supported n (see SpaceSize).
type Code uint64

// Base returns base = 4n+2, the digit radix used to serialize a table of n
// active states.
func Base(n int) uint64 {
	return uint64(4*n + 2)
}

// spaceSize returns base(n)^(2n) as a uint64 plus whether computing it
// overflowed a uint64.
func spaceSize(n int) (uint64, bool) {
	base := Base(n)
	result := uint64(1)
	for i := 0; i < 2*n; i++ {
		hi, lo := bits.Mul64(result, base)
		if hi != 0 {
			return 0, true
		}
		result = lo
	}
	return result, false
}

// SpaceSize returns the size of the raw machine-code space, base(n)^(2n), for
// n active states. It returns an error if the value would overflow a
// uint64 (ConfigurationError territory: the caller picked an n too large
// for this codec's integer width).
func SpaceSize(n int) (uint64, error) {
	v, overflow := spaceSize(n)
	if overflow {
		return 0, fmt.Errorf("turing: base(%d)^%d overflows uint64; n too large for this codec", n, 2*n)
	}
	return v, nil
}

// digitToTransition decodes one base-B digit into a Transition, per spec
// §4.1:
//
//	d = 0          -> (halt, write=0, move=None)
//	d = 1          -> (halt, write=1, move=None)
//	d >= 2, e=d-2  -> next_state = 1 + e/4, write = (e/2) mod 2, move = L if e%2==0 else R
func digitToTransition(d uint64) Transition {
	switch d {
	case 0:
		return Transition{NextState: Halt, Write: Zero, Move: None}
	case 1:
		return Transition{NextState: Halt, Write: One, Move: None}
	default:
		e := d - 2
		nextState := State(1 + e/4)
		write := Symbol((e / 2) % 2)
		move := Right
		if e%2 == 0 {
			move = Left
		}
		return Transition{NextState: nextState, Write: write, Move: move}
	}
}

// transitionToDigit is the inverse of digitToTransition.
func transitionToDigit(t Transition) uint64 {
	if t.NextState == Halt {
		if t.Write == Zero {
			return 0
		}
		return 1
	}
	e := uint64(t.NextState-1)*4 + uint64(t.Write)*2
	if t.Move == Right {
		e++
	}
	return e + 2
}

// Encode serialises a table into its machine code, per the mixed-radix,
// big-endian digit layout of spec §4.1: the digit for (state, symbol)
// occupies position 2*(state-1)+symbol, with state 1/symbol 0 most
// significant.
func Encode(t Table) Code {
	base := Base(t.N)
	var code uint64
	for state := 1; state <= t.N; state++ {
		for _, sym := range []Symbol{Zero, One} {
			code = code*base + transitionToDigit(t.Get(State(state), sym))
		}
	}
	return Code(code)
}

// Decode is the inverse of Encode: it reconstructs the transition table for
// n active states from a machine code. It returns ErrCodeOutOfRange if code
// is not in [0, Base(n)^(2n)).
func Decode(n int, code Code) (Table, error) {
	size, err := SpaceSize(n)
	if err != nil {
		return Table{}, err
	}
	if uint64(code) >= size {
		return Table{}, fmt.Errorf("%w: %d not in [0, %d)", ErrCodeOutOfRange, code, size)
	}

	base := Base(n)
	digits := make([]uint64, 2*n)
	remaining := uint64(code)
	for p := 2*n - 1; p >= 0; p-- {
		digits[p] = remaining % base
		remaining /= base
	}

	table := NewTable(n)
	for state := 1; state <= n; state++ {
		for symIdx, sym := range []Symbol{Zero, One} {
			p := 2*(state-1) + symIdx
			table.Set(State(state), sym, digitToTransition(digits[p]))
		}
	}
	return table, nil
}
