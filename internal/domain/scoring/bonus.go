package scoring

import "github.com/okian/podium/internal/domain/model"

// Bonus amounts.
const (
	PoleBonusPoints   = 3
	PodiumBonusPoints = 5
)

// EvaluateBonus looks at the picks for predicted slots 1-3 only. The pole
// bonus needs slot 1 exact; the podium bonus needs slots 1, 2 and 3 exact.
// The two are independent and add up.
func EvaluateBonus(details []model.SlotDetail) model.Bonus {
	var exact [4]bool
	var seen [4]bool
	for _, d := range details {
		if d.PredictedSlot < 1 || d.PredictedSlot > 3 || seen[d.PredictedSlot] {
			continue
		}
		// details are ordered, so the first pick for a slot decides it
		seen[d.PredictedSlot] = true
		exact[d.PredictedSlot] = d.Exact()
	}

	var b model.Bonus
	if exact[1] {
		b.Pole = true
		b.PolePoints = PoleBonusPoints
	}
	if exact[1] && exact[2] && exact[3] {
		b.Podium = true
		b.PodiumPoints = PodiumBonusPoints
	}
	return b
}
