// Package aggregate implements the output-frequency aggregator (spec
// component C6): recording per-machine outcomes, merging partial
// aggregates from parallel workers, and completing a reduced-enumeration
// aggregate back into the distribution a raw enumeration would have
// produced.
package aggregate

import (
	"math/bits"

	"github.com/niceyeti/ctm/internal/turing"
)

// Aggregator accumulates halting-output counts and non-halting-reason
// counts across a set of machine outcomes (spec §4.3, §4.6).
type Aggregator struct {
	// Counts maps a halting output string to the number of machines that
	// produced it.
	Counts map[string]uint64
	// NonHalt maps a non-halting reason to the number of machines judged
	// not to halt for that reason.
	NonHalt map[turing.NonHaltReason]uint64
	// TotalSeen is the number of machines recorded, halting or not.
	TotalSeen uint64
	// CompletionApplied is set once ApplyCompletion has run, so it cannot
	// be applied twice to the same aggregator.
	CompletionApplied bool
}

// New returns an empty aggregator.
func New() *Aggregator {
	return &Aggregator{
		Counts:  make(map[string]uint64),
		NonHalt: make(map[turing.NonHaltReason]uint64),
	}
}

// Record folds a single machine outcome into the aggregator.
func (a *Aggregator) Record(o turing.Outcome) {
	a.TotalSeen++
	if o.Halted {
		a.Counts[o.Output]++
		return
	}
	a.NonHalt[o.Reason]++
}

// Merge folds other into a. The operation is associative and commutative,
// so partial aggregates from any number of workers, combined in any order,
// produce the same result (spec §4.3).
func (a *Aggregator) Merge(other *Aggregator) {
	for s, c := range other.Counts {
		a.Counts[s] += c
	}
	for r, c := range other.NonHalt {
		a.NonHalt[r] += c
	}
	a.TotalSeen += other.TotalSeen
}

// CompletionParams configures ApplyCompletion for a given run (spec §4.6).
type CompletionParams struct {
	// N is the number of active states the enumeration ran over.
	N int
	// EscapeeFilterEnabled reflects whether the escapee runtime filter was
	// enabled for the run, which determines which bucket trivial-initial
	// self-loop machines are attributed to: such machines always escape
	// monotonically, so with the escapee filter enabled they are caught by
	// it; with it disabled they run to the step budget and time out.
	EscapeeFilterEnabled bool
}

// ApplyCompletion reconstructs the aggregate a raw enumeration would have
// produced from an aggregate built by simulating only the canonical,
// non-trivial-initial representatives a Reduced enumerator yields (spec
// §4.6). It must be called exactly once, after all workers' partial
// aggregates have been merged in, and before Finalise.
//
// Three corrections are applied, in order:
//
//  1. Blank-symbol symmetry: for every recorded output s, the complement
//     machine (write fields flipped, same next-state/move) follows an
//     identical state/head trajectory and so produces complement(s); its
//     count is folded in.
//  2. Move symmetry: for every output s now recorded (including the ones
//     just added by step 1), the move-reversed machine produces reverse(s);
//     its count is folded in. Applying this after step 1 accounts for all
//     four members of each orbit: identity, complement, reverse, and
//     complement+reverse.
//  3. Trivial-initial contributions: machines excluded from the reduced
//     enumeration entirely (not merely orbit-deduplicated) are added back
//     in closed form. A table whose (state 1, blank) transition halts
//     immediately produces a one-character output regardless of the
//     remaining 2n-1 entries, which are free: base(n)^(2n-1) machines for
//     each of the two possible write values. A table whose (state 1,
//     blank) transition returns to state 1 never leaves that transition —
//     it rereads blank, rewrites, and steps monotonically in one direction
//     forever — so it is always a non-halting escapee; there are 4 choices
//     of (write, move) for that transition and base(n)^(2n-1) free
//     remaining entries.
func (a *Aggregator) ApplyCompletion(p CompletionParams) {
	if a.CompletionApplied {
		panic("aggregate: ApplyCompletion called twice")
	}

	applyOutputSymmetry(a.Counts, complementString)
	applyOutputSymmetry(a.Counts, reverseString)

	// Each simulated representative stands for its whole 4-member orbit, so
	// its non-halting verdicts and its share of TotalSeen count four times.
	for r, c := range a.NonHalt {
		a.NonHalt[r] = 4 * c
	}
	a.TotalSeen *= 4

	base := turing.Base(p.N)
	freeEntries := 2*p.N - 1
	freeSpace := pow(base, freeEntries)

	a.Counts["0"] += freeSpace
	a.Counts["1"] += freeSpace
	a.TotalSeen += 2 * freeSpace

	selfLoopReason := turing.ReasonTimeout
	if p.EscapeeFilterEnabled {
		selfLoopReason = turing.ReasonEscapee
	}
	selfLoopCount := 4 * freeSpace
	a.NonHalt[selfLoopReason] += selfLoopCount
	a.TotalSeen += selfLoopCount

	a.CompletionApplied = true
}

// applyOutputSymmetry snapshots counts' current keys and, for each, adds
// its count to transform(key), implementing one completion pass without
// the in-progress additions feeding back into the same pass.
func applyOutputSymmetry(counts map[string]uint64, transform func(string) string) {
	type kv struct {
		s string
		c uint64
	}
	snapshot := make([]kv, 0, len(counts))
	for s, c := range counts {
		snapshot = append(snapshot, kv{s, c})
	}
	for _, e := range snapshot {
		counts[transform(e.s)] += e.c
	}
}

func complementString(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c == '0' {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}

func reverseString(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// pow computes base^exp via repeated squaring, panicking on uint64
// overflow; exp is always 2n-1 for a codec-supported n, which SpaceSize has
// already validated fits in a uint64 alongside the full 2n-digit space.
func pow(base uint64, exp int) uint64 {
	result := uint64(1)
	for i := 0; i < exp; i++ {
		hi, lo := bits.Mul64(result, base)
		if hi != 0 {
			panic("aggregate: completion arithmetic overflowed uint64")
		}
		result = lo
	}
	return result
}

// Distribution is the finalised output-frequency distribution: halting
// output string to empirical probability, D(s) = count(s) / H, where H is
// the sum of halting counts only (spec §3, §4.6).
type Distribution map[string]float64

// Finalise converts the aggregator's raw counts into a probability
// distribution over halting outputs. The denominator H is the sum of
// a.Counts alone, excluding non-halting machines, so that Σ D(s) over all
// halting s equals 1 (spec §8's "distribution sums to 1" property).
func (a *Aggregator) Finalise() Distribution {
	var halting uint64
	for _, c := range a.Counts {
		halting += c
	}

	d := make(Distribution, len(a.Counts))
	if halting == 0 {
		return d
	}
	for s, c := range a.Counts {
		d[s] = float64(c) / float64(halting)
	}
	return d
}
