// Package fallback decides which prediction list a participant is scored
// with for an event.
package fallback

import (
	"cmp"
	"slices"

	"github.com/okian/podium/internal/domain/model"
)

// Resolve returns the picks used to score one participant. Event-scoped
// predictions win outright; season picks are only consulted when the
// participant has none for the event. The boolean is false when neither
// source yields a pick.
//
// Season picks past slot 10 and picks for inactive entities are dropped,
// then the rest are renumbered 1..N keeping their relative order.
func Resolve(eventPicks []model.Prediction, seasonPicks []model.SeasonPick) (model.Resolution, bool) {
	if len(eventPicks) > 0 {
		r := model.Resolution{
			ParticipantID: eventPicks[0].ParticipantID,
			Provenance:    model.ProvenanceOwn,
			Picks:         make([]model.Pick, 0, len(eventPicks)),
		}
		for _, p := range eventPicks {
			r.Picks = append(r.Picks, model.Pick{Slot: p.Slot, EntityID: p.EntityID})
		}
		return r, true
	}

	kept := make([]model.SeasonPick, 0, len(seasonPicks))
	for _, p := range seasonPicks {
		if !p.Active || p.Slot < model.MinSlot || p.Slot > model.MaxScoredSlot {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return model.Resolution{}, false
	}
	slices.SortStableFunc(kept, func(a, b model.SeasonPick) int { return cmp.Compare(a.Slot, b.Slot) })

	r := model.Resolution{
		ParticipantID: kept[0].ParticipantID,
		Provenance:    model.ProvenanceFallback,
		Picks:         make([]model.Pick, len(kept)),
	}
	for i, p := range kept {
		r.Picks[i] = model.Pick{Slot: i + 1, EntityID: p.EntityID}
	}
	return r, true
}
