package turing

// Complement returns the table obtained by flipping the write field of
// every transition, leaving next-state and move untouched (spec §4.2 step
// a / §4.6 "blank-symbol symmetry"). Simulating Complement(t) on a blank
// tape with the same blank symbol as t follows an identical (state, head)
// trajectory to t step for step — next-state and move are unchanged — so
// its output is exactly the bitwise complement of t's output.
func (t Table) Complement() Table {
	cp := t.Clone()
	for i, tr := range cp.entries {
		tr.Write = tr.Write.Complement()
		cp.entries[i] = tr
	}
	return cp
}

// ReverseMoves returns the table obtained by reversing the move of every
// non-halting transition (halting transitions keep Move == None by
// convention). This is the L/R-mirror machine used by the "move symmetry"
// completion rule (spec §4.2 step b / §4.6).
func (t Table) ReverseMoves() Table {
	cp := t.Clone()
	for i, tr := range cp.entries {
		if tr.Move != None {
			tr.Move = tr.Move.Reverse()
			cp.entries[i] = tr
		}
	}
	return cp
}
