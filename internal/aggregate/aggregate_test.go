package aggregate

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/niceyeti/ctm/internal/enumerate"
	"github.com/niceyeti/ctm/internal/simulate"
	"github.com/niceyeti/ctm/internal/turing"
)

func TestRecordAndMerge(t *testing.T) {
	Convey("Given two aggregators fed disjoint outcomes", t, func() {
		a := New()
		a.Record(turing.HaltedWith("1"))
		a.Record(turing.HaltedWith("1"))
		a.Record(turing.NonHaltingWith(turing.ReasonTimeout))

		b := New()
		b.Record(turing.HaltedWith("0"))
		b.Record(turing.NonHaltingWith(turing.ReasonEscapee))

		Convey("merging a into b (or b into a) sums counts, commutatively", func() {
			ab := New()
			ab.Merge(a)
			ab.Merge(b)

			ba := New()
			ba.Merge(b)
			ba.Merge(a)

			So(ab.Counts, ShouldResemble, ba.Counts)
			So(ab.NonHalt, ShouldResemble, ba.NonHalt)
			So(ab.TotalSeen, ShouldEqual, ba.TotalSeen)
			So(ab.TotalSeen, ShouldEqual, uint64(5))
			So(ab.Counts["1"], ShouldEqual, uint64(2))
			So(ab.Counts["0"], ShouldEqual, uint64(1))
		})
	})
}

func TestFinalise(t *testing.T) {
	Convey("Given an aggregator with a mix of halting and non-halting outcomes", t, func() {
		a := New()
		a.Record(turing.HaltedWith("1"))
		a.Record(turing.HaltedWith("1"))
		a.Record(turing.HaltedWith("0"))
		a.Record(turing.NonHaltingWith(turing.ReasonTimeout))

		Convey("Finalise divides each count by the halting total only, so the distribution sums to 1", func() {
			d := a.Finalise()
			So(d["1"], ShouldEqual, 2.0/3.0)
			So(d["0"], ShouldEqual, 1.0/3.0)

			var sum float64
			for _, p := range d {
				sum += p
			}
			So(sum, ShouldEqual, 1.0)
		})
	})
}

// simulateAll runs every code in [0, e.Size()) that e yields through the
// simulator and folds the outcomes into a fresh aggregator.
func simulateAll(t *testing.T, n int, codes func(i uint64) turing.Code, size uint64, opts simulate.Options) *Aggregator {
	t.Helper()
	agg := New()
	for i := uint64(0); i < size; i++ {
		table, err := turing.Decode(n, codes(i))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		agg.Record(simulate.Run(table, opts))
	}
	return agg
}

func TestRawVsReducedEquivalence(t *testing.T) {
	Convey("Given matching raw and reduced enumerations of the same n", t, func() {
		for _, n := range []int{1, 2} {
			n := n

			Convey("their completed aggregates agree exactly", func() {
				opts := simulate.Options{
					StepBudget:          200,
					Blank:               turing.Zero,
					EnableEscapeeFilter: true,
					EnablePeriod2Filter: true,
				}

				rawEnum, err := enumerate.New(n, enumerate.Raw, turing.Zero)
				So(err, ShouldBeNil)
				rawAgg := simulateAll(t, n, func(i uint64) turing.Code {
					c, _ := rawEnum.CodeAt(i)
					return c
				}, rawEnum.Size(), opts)

				reducedEnum, err := enumerate.New(n, enumerate.Reduced, turing.Zero)
				So(err, ShouldBeNil)
				reducedAgg := simulateAll(t, n, func(i uint64) turing.Code {
					c, _ := reducedEnum.CodeAt(i)
					return c
				}, reducedEnum.Size(), opts)
				reducedAgg.ApplyCompletion(CompletionParams{N: n, EscapeeFilterEnabled: true})

				So(reducedAgg.TotalSeen, ShouldEqual, rawAgg.TotalSeen)
				So(reducedAgg.TotalSeen, ShouldEqual, rawEnum.Size())
				So(reducedAgg.Counts, ShouldResemble, rawAgg.Counts)
				So(reducedAgg.NonHalt, ShouldResemble, rawAgg.NonHalt)
			})
		}
	})
}
