// Package standings turns persisted score rows into leaderboard entries.
package standings

import (
	"cmp"
	"slices"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
)

// Aggregate sums rows per participant. Excluded participants are dropped
// even when rows exist for them; eligible participants without rows get a
// zero entry. Rows for unknown participants are ignored. The result is
// ordered by participant ID so equal inputs give equal output.
func Aggregate(participants []model.Participant, rows []model.ScoreRow) []model.LeaderboardEntry {
	idx := make(map[string]int, len(participants))
	out := make([]model.LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		if p.Excluded() {
			continue
		}
		if _, dup := idx[p.ID]; dup {
			continue
		}
		idx[p.ID] = len(out)
		out = append(out, model.LeaderboardEntry{ParticipantID: p.ID, DisplayName: p.DisplayName})
	}

	for _, r := range rows {
		i, ok := idx[r.ParticipantID]
		if !ok {
			continue
		}
		out[i].TotalPoints += r.TotalPoints
		out[i].PerfectMatches += r.PerfectMatches
		out[i].EventsScored++
	}

	slices.SortFunc(out, func(a, b model.LeaderboardEntry) int { return cmp.Compare(a.ParticipantID, b.ParticipantID) })
	return out
}

// Rank orders entries by total points, then perfect matches, both
// descending. Display name and participant ID break remaining ties so the
// order is total. Entries equal on points and perfect matches share a rank
// and the next rank skips accordingly (1, 2, 2, 4).
func Rank(entries []model.LeaderboardEntry) []types.Entry {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b model.LeaderboardEntry) int {
		if c := cmp.Compare(b.TotalPoints, a.TotalPoints); c != 0 {
			return c
		}
		if c := cmp.Compare(b.PerfectMatches, a.PerfectMatches); c != 0 {
			return c
		}
		if c := cmp.Compare(a.DisplayName, b.DisplayName); c != 0 {
			return c
		}
		return cmp.Compare(a.ParticipantID, b.ParticipantID)
	})

	out := make([]types.Entry, len(sorted))
	for i, e := range sorted {
		rank := i + 1
		if i > 0 {
			prev := sorted[i-1]
			if prev.TotalPoints == e.TotalPoints && prev.PerfectMatches == e.PerfectMatches {
				rank = out[i-1].Rank
			}
		}
		out[i] = types.Entry{Rank: rank, LeaderboardEntry: e}
	}
	return out
}
