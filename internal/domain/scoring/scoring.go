// Package scoring computes points for a ranked prediction against a
// finalized outcome. Everything here is pure and safe to call concurrently.
package scoring

import (
	"cmp"
	"slices"

	"github.com/okian/podium/internal/domain/model"
)

// Point values.
const (
	SelectionPoints = 1
	MaxSlotPoints   = SelectionPoints + 6
	MaxBasePoints   = MaxSlotPoints * model.MaxScoredSlot
	MaxTotalPoints  = MaxBasePoints + PoleBonusPoints + PodiumBonusPoints
)

// positionPoints is indexed by |predicted - actual|.
var positionPoints = [...]int{6, 4, 3, 2, 1} //nolint:gochecknoglobals // lookup table

// PositionPoints returns the accuracy reward for a slot distance.
// Distances of five or more earn nothing.
func PositionPoints(diff int) int {
	if diff < 0 {
		diff = -diff
	}
	if diff >= len(positionPoints) {
		return 0
	}
	return positionPoints[diff]
}

// Result is the base score of one prediction list.
type Result struct {
	BasePoints     int
	PerfectMatches int
	Details        []model.SlotDetail
}

// Calculate scores picks against the outcome order. Only the first ten
// entries of order count. Picks outside slots 1..10 are skipped rather than
// failing the whole list.
func Calculate(picks []model.Pick, order []string) Result {
	if len(order) > model.MaxScoredSlot {
		order = order[:model.MaxScoredSlot]
	}
	actual := make(map[string]int, len(order))
	for i, id := range order {
		if _, dup := actual[id]; !dup {
			actual[id] = i + 1
		}
	}

	sorted := make([]model.Pick, 0, len(picks))
	for _, p := range picks {
		if p.Slot < model.MinSlot || p.Slot > model.MaxScoredSlot {
			continue
		}
		sorted = append(sorted, p)
	}
	slices.SortFunc(sorted, func(a, b model.Pick) int {
		if c := cmp.Compare(a.Slot, b.Slot); c != 0 {
			return c
		}
		return cmp.Compare(a.EntityID, b.EntityID)
	})

	res := Result{Details: make([]model.SlotDetail, 0, len(sorted))}
	for _, p := range sorted {
		d := model.SlotDetail{EntityID: p.EntityID, PredictedSlot: p.Slot}
		if slot, ok := actual[p.EntityID]; ok {
			d.ActualSlot = &slot
			d.SelectionPoints = SelectionPoints
			d.PositionPoints = PositionPoints(p.Slot - slot)
			d.Points = d.SelectionPoints + d.PositionPoints
			if slot == p.Slot {
				res.PerfectMatches++
			}
		}
		res.BasePoints += d.Points
		res.Details = append(res.Details, d)
	}
	return res
}

// Score builds the full ScoreRow for a resolved prediction list.
func Score(event model.EventID, r model.Resolution, order []string) model.ScoreRow {
	base := Calculate(r.Picks, order)
	bonus := EvaluateBonus(base.Details)
	return model.ScoreRow{
		ParticipantID:  r.ParticipantID,
		Event:          event,
		BasePoints:     base.BasePoints,
		Bonus:          bonus,
		TotalPoints:    base.BasePoints + bonus.Points(),
		PerfectMatches: base.PerfectMatches,
		Details:        base.Details,
		Provenance:     r.Provenance,
	}
}
