// Package filter implements the pre-run and runtime non-halting filters
// (spec components C3 and C5): static rejection before simulation, and
// escapee/period-2 detection during simulation.
package filter

import "github.com/niceyeti/ctm/internal/turing"

// PreRunReject implements C3: a table is rejected before simulation iff none
// of its 2n entries has NextState == Halt, since such a machine can never
// reach the halt state.
func PreRunReject(t turing.Table) bool {
	return !t.HasHaltTransition()
}
