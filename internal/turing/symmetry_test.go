package turing

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSymmetry(t *testing.T) {
	Convey("Given a non-trivial table", t, func() {
		table := NewTable(2)
		table.Set(1, Zero, Transition{NextState: 2, Write: One, Move: Right})
		table.Set(1, One, Transition{NextState: Halt, Write: Zero, Move: None})
		table.Set(2, Zero, Transition{NextState: Halt, Write: One, Move: None})
		table.Set(2, One, Transition{NextState: 1, Write: Zero, Move: Left})

		Convey("Complement flips every write field and leaves next-state and move alone", func() {
			c := table.Complement()
			for state := 1; state <= table.N; state++ {
				for _, sym := range []Symbol{Zero, One} {
					orig := table.Get(State(state), sym)
					got := c.Get(State(state), sym)
					So(got.Write, ShouldEqual, orig.Write.Complement())
					So(got.NextState, ShouldEqual, orig.NextState)
					So(got.Move, ShouldEqual, orig.Move)
				}
			}
		})

		Convey("Complement is its own inverse", func() {
			So(table.Complement().Complement(), ShouldResemble, table)
		})

		Convey("ReverseMoves flips the move of every non-halting transition only", func() {
			r := table.ReverseMoves()
			for state := 1; state <= table.N; state++ {
				for _, sym := range []Symbol{Zero, One} {
					orig := table.Get(State(state), sym)
					got := r.Get(State(state), sym)
					So(got.Write, ShouldEqual, orig.Write)
					So(got.NextState, ShouldEqual, orig.NextState)
					if orig.Move == None {
						So(got.Move, ShouldEqual, None)
					} else {
						So(got.Move, ShouldEqual, orig.Move.Reverse())
					}
				}
			}
		})

		Convey("ReverseMoves is its own inverse", func() {
			So(table.ReverseMoves().ReverseMoves(), ShouldResemble, table)
		})

		Convey("Complement and ReverseMoves never coincide on a table with a non-halting transition", func() {
			So(Encode(table.Complement()), ShouldNotEqual, Encode(table.ReverseMoves()))
		})
	})
}
