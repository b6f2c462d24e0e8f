package filter

import (
	"hash/fnv"

	"github.com/niceyeti/ctm/internal/turing"
)

// EscapeeFilter implements C5's escapee detector: after n+1 consecutive
// moves into fresh blank territory without revisiting a cell, the finite
// state must have repeated while the tape ahead is uniformly blank, so the
// machine diverges monotonically (spec §4.5).
type EscapeeFilter struct {
	n     int
	blank turing.Symbol
	seen  map[int]struct{}
	run   int
}

// NewEscapeeFilter returns a filter for an n-state machine with the given
// blank symbol.
func NewEscapeeFilter(n int, blank turing.Symbol) *EscapeeFilter {
	return &EscapeeFilter{n: n, blank: blank, seen: make(map[int]struct{})}
}

// Step records the step that just moved the head to pos, where sym is the
// symbol under the head after the move. It reports whether the escapee
// verdict now holds.
func (f *EscapeeFilter) Step(pos int, sym turing.Symbol) bool {
	_, visited := f.seen[pos]
	if sym == f.blank && !visited {
		f.run++
		f.seen[pos] = struct{}{}
	} else {
		f.run = 0
	}
	return f.run > f.n
}

// Period2Filter implements C5's period-2 cycle detector: a configuration
// (state, head, visited-tape-content) recurring every two steps indicates a
// non-halting loop (spec §4.5). Per the §9 design note, configurations are
// compared by a cheap hash first, falling back to full equality only on
// collision, without changing observable behavior.
type Period2Filter struct {
	history []configFingerprint
}

type configFingerprint struct {
	state turing.State
	head  int
	hash  uint64
	snap  string
}

// NewPeriod2Filter returns a fresh period-2 detector.
func NewPeriod2Filter() *Period2Filter {
	return &Period2Filter{history: make([]configFingerprint, 0, 3)}
}

// Step records the configuration after a step — state, head, and a snapshot
// of the visited tape region, captured now since the tape mutates in place
// and past content is otherwise unrecoverable — and reports whether the
// period-2 verdict now holds: the configuration from two steps ago recurs
// exactly. Per the §9 design note, the hash is compared first and the full
// snapshot only as a collision fallback.
func (f *Period2Filter) Step(state turing.State, head int, tapeSnapshot func() string) bool {
	snap := tapeSnapshot()
	cur := configFingerprint{state: state, head: head, snap: snap, hash: fnvHash(snap)}

	f.history = append(f.history, cur)
	if len(f.history) > 3 {
		f.history = f.history[len(f.history)-3:]
	}
	if len(f.history) < 3 {
		return false
	}

	first, third := f.history[0], f.history[2]
	return first.state == third.state &&
		first.head == third.head &&
		first.hash == third.hash &&
		first.snap == third.snap
}

func fnvHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
