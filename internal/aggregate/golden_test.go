package aggregate

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/niceyeti/ctm/internal/turing"
)

// TestCompletionArithmeticGoldenValues pins ApplyCompletion's trivial-initial
// free-space arithmetic (spec §4.6 bullet 3, flagged in spec §9 as "the
// single most bug-prone piece of arithmetic in the system") against
// independently-computed base(n)^(2n-1) values for every n this codec
// supports without overflowing a uint64 comfortably, per spec §8's demand
// for "a dedicated golden-value test per supported n".
func TestCompletionArithmeticGoldenValues(t *testing.T) {
	Convey("Given the closed-form free-entry space for n in {1,2,3}", t, func() {
		cases := []struct {
			n         int
			freeSpace uint64 // base(n)^(2n-1), computed independently of pow()
		}{
			{n: 1, freeSpace: 6},       // base=6,  6^1
			{n: 2, freeSpace: 1000},    // base=10, 10^3
			{n: 3, freeSpace: 537_824}, // base=14, 14^5
		}

		for _, c := range cases {
			c := c
			Convey("ApplyCompletion attributes exactly that much free space to each trivial-initial bucket", func() {
				base := turing.Base(c.n)
				want := uint64(1)
				for i := 0; i < 2*c.n-1; i++ {
					want *= base
				}
				So(want, ShouldEqual, c.freeSpace)

				a := New()
				a.ApplyCompletion(CompletionParams{N: c.n, EscapeeFilterEnabled: true})

				So(a.Counts["0"], ShouldEqual, c.freeSpace)
				So(a.Counts["1"], ShouldEqual, c.freeSpace)
				So(a.NonHalt[turing.ReasonEscapee], ShouldEqual, 4*c.freeSpace)
				So(a.TotalSeen, ShouldEqual, 6*c.freeSpace)
			})
		}
	})

	Convey("Given EscapeeFilterEnabled is false", t, func() {
		Convey("the self-loop bucket is attributed to Timeout instead of Escapee", func() {
			a := New()
			a.ApplyCompletion(CompletionParams{N: 2, EscapeeFilterEnabled: false})

			base := turing.Base(2)
			freeSpace := base * base * base // base(2)^3
			So(a.NonHalt[turing.ReasonTimeout], ShouldEqual, 4*freeSpace)
			So(a.NonHalt[turing.ReasonEscapee], ShouldEqual, uint64(0))
		})
	})
}
