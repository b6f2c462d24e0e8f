package estimator

import (
	"math"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/niceyeti/ctm/internal/aggregate"
	"github.com/niceyeti/ctm/internal/distfile"
	"github.com/niceyeti/ctm/internal/enumerate"
	"github.com/niceyeti/ctm/internal/turing"
)

func TestLoadAndK(t *testing.T) {
	Convey("Given a saved distribution where \"0\" is twice as likely as \"01\"", t, func() {
		agg := aggregate.New()
		agg.Record(turing.HaltedWith("0"))
		agg.Record(turing.HaltedWith("0"))
		agg.Record(turing.HaltedWith("01"))

		f := distfile.Build(3, enumerate.Reduced, turing.Zero, 200, agg, false)
		path := filepath.Join(t.TempDir(), "dist.json")
		So(distfile.Save(path, f), ShouldBeNil)

		e, err := Load(path)
		So(err, ShouldBeNil)

		Convey("K(\"0\") < K(\"01\"), matching spec §8 scenario 3", func() {
			So(e.K("0"), ShouldBeLessThan, e.K("01"))
		})

		Convey("N reports the n the distribution was computed over", func() {
			So(e.N(), ShouldEqual, 3)
		})

		Convey("K of a string absent from the distribution is +Inf", func() {
			So(math.IsInf(e.K("0101010101"), 1), ShouldBeTrue)
		})

		Convey("Probability of an absent string is 0", func() {
			So(e.Probability("111"), ShouldEqual, 0)
		})
	})
}
