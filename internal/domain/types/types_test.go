package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/podium/internal/domain/model"
	types "github.com/okian/podium/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEntry(t *testing.T) {
	Convey("Given an Entry struct", t, func() {
		entry := types.Entry{
			Rank: 2,
			LeaderboardEntry: model.LeaderboardEntry{
				ParticipantID: "p-7", DisplayName: "Sam", TotalPoints: 41, PerfectMatches: 3, EventsScored: 2,
			},
		}

		Convey("When encoding to JSON", func() {
			raw, err := json.Marshal(entry)
			So(err, ShouldBeNil)

			Convey("Then the aggregate fields are flattened next to the rank", func() {
				var m map[string]any
				So(json.Unmarshal(raw, &m), ShouldBeNil)
				So(m["rank"], ShouldEqual, 2)
				So(m["participant_id"], ShouldEqual, "p-7")
				So(m["total_points"], ShouldEqual, 41)
				So(m["events_scored"], ShouldEqual, 2)
			})
		})

		Convey("When creating an entry with zero values", func() {
			var zero types.Entry
			So(zero.Rank, ShouldEqual, 0)
			So(zero.ParticipantID, ShouldEqual, "")
		})
	})
}
