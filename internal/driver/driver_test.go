package driver

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/niceyeti/ctm/internal/aggregate"
	"github.com/niceyeti/ctm/internal/enumerate"
	"github.com/niceyeti/ctm/internal/filter"
	"github.com/niceyeti/ctm/internal/simulate"
	"github.com/niceyeti/ctm/internal/turing"
)

// recordPipeline mirrors Driver.runBatch's C3-then-C4/C5 sequencing, for
// tests that build a "want" aggregator by sweeping an enumeration directly.
func recordPipeline(agg *aggregate.Aggregator, table turing.Table, opts simulate.Options) {
	if filter.PreRunReject(table) {
		agg.Record(turing.NonHaltingWith(turing.ReasonNoHaltTransitionReachable))
		return
	}
	agg.Record(simulate.Run(table, opts))
}

func TestDriverRun(t *testing.T) {
	Convey("Given a driver over the raw n=1 enumeration split into small batches", t, func() {
		enum, err := enumerate.New(1, enumerate.Raw, turing.Zero)
		So(err, ShouldBeNil)

		var progressCalls []uint64
		d := &Driver{
			Enumerator: enum,
			SimOptions: simulate.Options{
				StepBudget:          200,
				Blank:               turing.Zero,
				EnableEscapeeFilter: true,
				EnablePeriod2Filter: true,
			},
			BatchSize:  4,
			NumWorkers: 3,
			Progress: func(completed, total uint64, global *aggregate.Aggregator) {
				progressCalls = append(progressCalls, completed)
			},
		}

		Convey("TotalBatches rounds up", func() {
			So(d.TotalBatches(), ShouldEqual, uint64(9)) // ceil(36/4)
		})

		Convey("Run merges every batch exactly once into a global aggregate matching a direct sweep", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			global, watermark, err := d.Run(ctx, 0)
			So(err, ShouldBeNil)
			So(watermark, ShouldEqual, d.TotalBatches())

			want := aggregate.New()
			for i := uint64(0); i < enum.Size(); i++ {
				code, err := enum.CodeAt(i)
				So(err, ShouldBeNil)
				table, err := turing.Decode(1, code)
				So(err, ShouldBeNil)
				recordPipeline(want, table, d.SimOptions)
			}

			So(global.TotalSeen, ShouldEqual, want.TotalSeen)
			So(global.Counts, ShouldResemble, want.Counts)
			So(global.NonHalt, ShouldResemble, want.NonHalt)
		})

		Convey("Tables with no halt transition are rejected by C3 before simulation, not bucketed as Timeout/Escapee/CycleTwo", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			global, _, err := d.Run(ctx, 0)
			So(err, ShouldBeNil)
			So(global.NonHalt[turing.ReasonNoHaltTransitionReachable], ShouldBeGreaterThan, uint64(0))
		})

		Convey("Progress is called with a strictly increasing, contiguous watermark", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			_, _, err := d.Run(ctx, 0)
			So(err, ShouldBeNil)

			for i, c := range progressCalls {
				So(c, ShouldEqual, uint64(i+1))
			}
			So(len(progressCalls), ShouldEqual, int(d.TotalBatches()))
		})
	})

	Convey("Given a driver with a Limit smaller than the enumeration", t, func() {
		enum, err := enumerate.New(1, enumerate.Raw, turing.Zero)
		So(err, ShouldBeNil)

		d := &Driver{
			Enumerator: enum,
			SimOptions: simulate.Options{StepBudget: 200, Blank: turing.Zero},
			BatchSize:  4,
			NumWorkers: 2,
			Limit:      10,
		}

		Convey("TotalBatches and the run only cover the first Limit codes", func() {
			So(d.TotalBatches(), ShouldEqual, uint64(3)) // ceil(10/4)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			global, watermark, err := d.Run(ctx, 0)
			So(err, ShouldBeNil)
			So(watermark, ShouldEqual, d.TotalBatches())

			want := aggregate.New()
			for i := uint64(0); i < 10; i++ {
				code, err := enum.CodeAt(i)
				So(err, ShouldBeNil)
				table, err := turing.Decode(1, code)
				So(err, ShouldBeNil)
				recordPipeline(want, table, d.SimOptions)
			}
			So(global.TotalSeen, ShouldEqual, want.TotalSeen)
		})
	})

	Convey("Given a driver seeded with a pre-populated aggregator", t, func() {
		enum, err := enumerate.New(1, enumerate.Raw, turing.Zero)
		So(err, ShouldBeNil)

		seed := aggregate.New()
		seed.Record(turing.NonHaltingWith(turing.ReasonTimeout))

		d := &Driver{
			Enumerator: enum,
			SimOptions: simulate.Options{StepBudget: 200, Blank: turing.Zero},
			BatchSize:  4,
			NumWorkers: 2,
			Seed:       seed,
		}

		Convey("Run's result includes the seed's counts", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			global, _, err := d.Run(ctx, 0)
			So(err, ShouldBeNil)
			So(global.NonHalt[turing.ReasonTimeout], ShouldBeGreaterThanOrEqualTo, uint64(1))
			So(global.TotalSeen, ShouldEqual, enum.Size()+1)
		})
	})

	Convey("Given a driver resumed from a nonzero start batch", t, func() {
		enum, err := enumerate.New(1, enumerate.Raw, turing.Zero)
		So(err, ShouldBeNil)

		d := &Driver{
			Enumerator: enum,
			SimOptions: simulate.Options{StepBudget: 200, Blank: turing.Zero},
			BatchSize:  4,
			NumWorkers: 2,
		}

		Convey("Run only processes batches from startBatch onward", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			global, watermark, err := d.Run(ctx, 5)
			So(err, ShouldBeNil)
			So(watermark, ShouldEqual, d.TotalBatches())

			want := aggregate.New()
			start, _ := d.batchRange(5)
			for i := start; i < enum.Size(); i++ {
				code, err := enum.CodeAt(i)
				So(err, ShouldBeNil)
				table, err := turing.Decode(1, code)
				So(err, ShouldBeNil)
				recordPipeline(want, table, d.SimOptions)
			}
			So(global.TotalSeen, ShouldEqual, want.TotalSeen)
		})
	})
}
