// Package model contains domain models passed between layers.
package model

import "time"

// Slot bounds for scoring. Only the first MaxScoredSlot slots of a
// prediction or an outcome take part in scoring.
const (
	MinSlot       = 1
	MaxScoredSlot = 10
)

// EventID is a race round number within a season. Valid events are > 0.
type EventID int

// Valid reports whether e names a real round.
func (e EventID) Valid() bool { return e > 0 }

// Scope says what a prediction is for: a single event, or the whole season.
type Scope struct {
	// Event is the round number; zero means season scope.
	Event EventID
	// SeasonYear is set for season-scoped predictions.
	SeasonYear int
}

// EventScope returns the scope of a single event.
func EventScope(e EventID) Scope { return Scope{Event: e} }

// SeasonScope returns the season scope for year.
func SeasonScope(year int) Scope { return Scope{SeasonYear: year} }

// IsSeason reports whether the scope is the season pseudo-event.
func (s Scope) IsSeason() bool { return s.Event == 0 }

// Prediction is one participant's claim that an entity finishes in a slot.
type Prediction struct {
	ParticipantID string
	EntityID      string
	Scope         Scope
	Slot          int
	CreatedAt     time.Time
}

// SeasonPick is a season-scoped prediction joined with the entity's
// current eligibility.
type SeasonPick struct {
	ParticipantID string
	EntityID      string
	Slot          int
	Active        bool
}

// Pick is the (slot, entity) pair the calculator scores.
type Pick struct {
	Slot     int    `json:"slot"`
	EntityID string `json:"entity_id"`
}

// Provenance records where a scored prediction came from.
type Provenance string

// Provenance values.
const (
	ProvenanceOwn      Provenance = "own"
	ProvenanceFallback Provenance = "fallback"
)

// Resolution is the prediction list a participant is scored with.
type Resolution struct {
	ParticipantID string
	Picks         []Pick
	Provenance    Provenance
}

// Participant is a competitor as seen by the scoring core.
type Participant struct {
	ID          string
	DisplayName string
	Admin       bool
	Test        bool
}

// Excluded reports whether the participant is kept out of competition.
func (p Participant) Excluded() bool { return p.Admin || p.Test }

// Entity is something that can be placed in an outcome, e.g. a driver.
type Entity struct {
	ID          string
	DisplayName string
	Active      bool
}
