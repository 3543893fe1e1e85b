package scoring_test

import (
	"testing"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEvaluateBonus(t *testing.T) {
	Convey("Given the outcome A..J", t, func() {
		eval := func(ids ...string) model.Bonus {
			return scoring.EvaluateBonus(scoring.Calculate(picks(ids...), order).Details)
		}

		Convey("When the podium is exact", func() {
			b := eval("A", "B", "C")
			So(b.Pole, ShouldBeTrue)
			So(b.Podium, ShouldBeTrue)
			So(b.Points(), ShouldEqual, scoring.PoleBonusPoints+scoring.PodiumBonusPoints)
		})

		Convey("When only slot one is exact", func() {
			b := eval("A", "C", "B")
			So(b.Pole, ShouldBeTrue)
			So(b.PolePoints, ShouldEqual, 3)
			So(b.Podium, ShouldBeFalse)
			So(b.PodiumPoints, ShouldEqual, 0)
		})

		Convey("When slots two and three are exact but one is wrong", func() {
			b := eval("D", "B", "C")
			So(b.Pole, ShouldBeFalse)
			So(b.Podium, ShouldBeFalse)
			So(b.Points(), ShouldEqual, 0)
		})

		Convey("When slot three is missing", func() {
			b := eval("A", "B")
			So(b.Pole, ShouldBeTrue)
			So(b.Podium, ShouldBeFalse)
		})

		Convey("When later slots are exact", func() {
			b := scoring.EvaluateBonus(scoring.Calculate([]model.Pick{{Slot: 4, EntityID: "D"}, {Slot: 5, EntityID: "E"}}, order).Details)
			So(b, ShouldResemble, model.Bonus{})
		})
	})
}
