// Package simulate implements the tape-bounded machine simulator (spec
// component C4), driven against the runtime filters (C5).
package simulate

import (
	"github.com/niceyeti/ctm/internal/filter"
	"github.com/niceyeti/ctm/internal/turing"
)

// Options configures a single run (spec §4.4, §4.5).
type Options struct {
	// StepBudget is the per-machine step budget T.
	StepBudget uint64
	// Blank is the blank symbol the tape starts filled with.
	Blank turing.Symbol
	// EnableEscapeeFilter toggles the escapee runtime filter.
	EnableEscapeeFilter bool
	// EnablePeriod2Filter toggles the period-2 runtime filter.
	EnablePeriod2Filter bool
}

// Run executes table on a blank tape up to opts.StepBudget steps, applying
// the enabled runtime filters after every step, and returns the outcome
// (spec §4.4).
func Run(table turing.Table, opts Options) turing.Outcome {
	tape := turing.NewTape(opts.Blank)
	head := 0
	state := turing.State(1)

	var escapee *filter.EscapeeFilter
	if opts.EnableEscapeeFilter {
		escapee = filter.NewEscapeeFilter(table.N, opts.Blank)
	}
	var period2 *filter.Period2Filter
	if opts.EnablePeriod2Filter {
		period2 = filter.NewPeriod2Filter()
	}

	var steps uint64
	for {
		if state == turing.Halt {
			return turing.HaltedWith(tape.Output())
		}

		sym := tape.Read(head)
		tr := table.Get(state, sym)
		tape.Write(head, tr.Write)
		state = tr.NextState
		head += int(tr.Move)

		steps++
		if steps >= opts.StepBudget {
			return turing.NonHaltingWith(turing.ReasonTimeout)
		}

		if state == turing.Halt {
			// Machine just transitioned to the halt state; report it as
			// halted on the next loop iteration rather than risking a
			// runtime filter false positive on a configuration that will
			// never be visited again.
			continue
		}

		if escapee != nil {
			symAtHead := tape.Read(head)
			if escapee.Step(head, symAtHead) {
				return turing.NonHaltingWith(turing.ReasonEscapee)
			}
		}
		if period2 != nil {
			if period2.Step(state, head, tape.Snapshot) {
				return turing.NonHaltingWith(turing.ReasonCycleTwo)
			}
		}
	}
}
