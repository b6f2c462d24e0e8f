// Package enumerate implements the machine enumerator (spec component C2):
// either the raw machine-code space in order, or the symmetry-reduced
// subset of canonical representatives, each exposed by a stable,
// randomly-addressable enumeration index so batches can be computed
// independently of one another (spec §5).
package enumerate

import (
	"fmt"

	"github.com/niceyeti/ctm/internal/turing"
)

// Mode selects which machine-code space an Enumerator walks.
type Mode int

const (
	// Raw walks every code in [0, base(n)^(2n)).
	Raw Mode = iota
	// Reduced walks only the canonical representative of each symmetry
	// orbit, after excluding trivial-initial-transition machines (spec
	// §4.2).
	Reduced
)

// Enumerator exposes a fixed-size, randomly-addressable sequence of machine
// codes for a given n, mode, and blank symbol.
type Enumerator struct {
	n     int
	mode  Mode
	blank turing.Symbol
	size  uint64
	// codes holds the ascending list of canonical codes; nil in Raw mode,
	// where CodeAt(i) == Code(i) directly.
	codes []turing.Code
}

// New builds an Enumerator for n active states. In Reduced mode this scans
// the entire raw code space once to materialise the canonical subset, so
// that CodeAt is afterwards O(1) and batches can be computed without
// coordination between workers (spec §5's statelessness requirement).
func New(n int, mode Mode, blank turing.Symbol) (*Enumerator, error) {
	rawSize, err := turing.SpaceSize(n)
	if err != nil {
		return nil, err
	}

	if mode == Raw {
		return &Enumerator{n: n, mode: mode, blank: blank, size: rawSize}, nil
	}

	codes := make([]turing.Code, 0, rawSize/4+1)
	for c := turing.Code(0); uint64(c) < rawSize; c++ {
		table, err := turing.Decode(n, c)
		if err != nil {
			return nil, err
		}
		if IsTrivialInitial(table, blank) {
			continue
		}
		if CanonicalCode(n, table) == c {
			codes = append(codes, c)
		}
	}
	return &Enumerator{n: n, mode: mode, blank: blank, size: uint64(len(codes)), codes: codes}, nil
}

// Size returns the enumeration size E: the number of codes this Enumerator
// yields.
func (e *Enumerator) Size() uint64 {
	return e.size
}

// N returns the number of active states this Enumerator was built for.
func (e *Enumerator) N() int {
	return e.n
}

// Mode returns whether this is a Raw or Reduced enumerator.
func (e *Enumerator) Mode() Mode {
	return e.mode
}

// CodeAt returns the machine code at enumeration index i, where
// 0 <= i < Size(). It is the addressing primitive the driver (C7) uses to
// compute a batch [start, end) without needing the preceding indices.
func (e *Enumerator) CodeAt(i uint64) (turing.Code, error) {
	if i >= e.size {
		return 0, fmt.Errorf("enumerate: index %d out of range [0, %d)", i, e.size)
	}
	if e.mode == Raw {
		return turing.Code(i), nil
	}
	return e.codes[i], nil
}

// IsTrivialInitial reports whether table's (state 1, blank) transition
// either halts immediately or returns to state 1 without change of state
// (spec §4.2 step c). Both conditions depend only on NextState, which is
// invariant under Complement and ReverseMoves, so triviality is a property
// of the whole symmetry orbit, not just one representative.
func IsTrivialInitial(table turing.Table, blank turing.Symbol) bool {
	init := table.InitialTransition(blank)
	return init.NextState == turing.Halt || init.NextState == 1
}

// CanonicalCode returns the minimum code, by integer value, among the
// 4-element symmetry orbit {t, complement(t), reverse(t), complement(reverse(t))}.
// For any non-trivial-initial table this orbit always has exactly 4 distinct
// members (Complement and ReverseMoves are both fixed-point-free on such
// tables, and never coincide with one another), so this selection is a
// well-defined, deterministic canonicalisation.
func CanonicalCode(n int, table turing.Table) turing.Code {
	c := table.Complement()
	r := table.ReverseMoves()
	cr := c.ReverseMoves()

	min := turing.Encode(table)
	for _, variant := range []turing.Code{turing.Encode(c), turing.Encode(r), turing.Encode(cr)} {
		if variant < min {
			min = variant
		}
	}
	return min
}
