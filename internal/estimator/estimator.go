// Package estimator answers Coding Theorem Method complexity queries
// against a previously-finalised, persisted distribution: K̂(s) = -log2
// D(s), with K̂ defined as +Inf for any string the distribution never
// produced (spec §1, §8 scenario 3; supplemented per SPEC_FULL.md §4).
package estimator

import (
	"fmt"
	"math"

	"github.com/niceyeti/ctm/internal/aggregate"
	"github.com/niceyeti/ctm/internal/distfile"
)

// Estimator holds a loaded distribution and answers K̂ queries against it.
type Estimator struct {
	distribution aggregate.Distribution
	meta         distfile.File
}

// Load reads a distribution JSON file written by the driver (spec §4.7,
// §6) and returns an Estimator over it. Files saved with save_raw_counts
// are accepted too; the distribution is derived from the raw counts on
// load.
func Load(path string) (*Estimator, error) {
	f, err := distfile.Load(path)
	if err != nil {
		return nil, fmt.Errorf("estimator: %w", err)
	}
	return &Estimator{distribution: f.AsDistribution(), meta: f}, nil
}

// N returns the number of active states the loaded distribution was
// computed over.
func (e *Estimator) N() int { return e.meta.N }

// Probability returns D(s), or 0 if s never appeared as a halting output.
func (e *Estimator) Probability(s string) float64 {
	return e.distribution[s]
}

// K returns K̂(s) = -log2(D(s)), or +Inf if s is absent from the
// distribution (it was never produced by any halting machine).
func (e *Estimator) K(s string) float64 {
	p, ok := e.distribution[s]
	if !ok || p == 0 {
		return math.Inf(1)
	}
	return -math.Log2(p)
}
