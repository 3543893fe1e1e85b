package model

import "time"

// Outcome is the declared finishing order of an event.
type Outcome struct {
	Event       EventID   `json:"event"`
	Order       []string  `json:"order"`
	Finalized   bool      `json:"finalized"`
	FinalizedAt time.Time `json:"finalized_at,omitzero"`
}

// Top returns at most the first MaxScoredSlot entries of the order.
func (o Outcome) Top() []string {
	if len(o.Order) > MaxScoredSlot {
		return o.Order[:MaxScoredSlot]
	}
	return o.Order
}

// EventState is the lifecycle state of an event.
type EventState string

// Event states.
const (
	StateOpen     EventState = "OPEN"
	StateFinished EventState = "FINISHED"
)

// State derives the event state from the outcome.
func (o Outcome) State() EventState {
	if o.Finalized {
		return StateFinished
	}
	return StateOpen
}

// SlotDetail is the audit trail for one scored pick.
type SlotDetail struct {
	EntityID        string `json:"entity_id"`
	PredictedSlot   int    `json:"predicted_slot"`
	ActualSlot      *int   `json:"actual_slot"`
	SelectionPoints int    `json:"selection_points"`
	PositionPoints  int    `json:"position_points"`
	Points          int    `json:"points"`
}

// Exact reports whether the pick landed on its predicted slot.
func (d SlotDetail) Exact() bool {
	return d.ActualSlot != nil && *d.ActualSlot == d.PredictedSlot
}

// Bonus holds the bonus flags and the amounts they awarded.
type Bonus struct {
	Pole         bool `json:"pole"`
	Podium       bool `json:"podium"`
	PolePoints   int  `json:"pole_points"`
	PodiumPoints int  `json:"podium_points"`
}

// Points is the sum of awarded bonus amounts.
func (b Bonus) Points() int { return b.PolePoints + b.PodiumPoints }

// ScoreRow is a participant's computed result for one event. The pair
// (ParticipantID, Event) is its key. It carries no timestamps so that
// rescoring identical inputs yields identical rows.
type ScoreRow struct {
	ParticipantID  string       `json:"participant_id"`
	Event          EventID      `json:"event"`
	BasePoints     int          `json:"base_points"`
	Bonus          Bonus        `json:"bonus"`
	TotalPoints    int          `json:"total_points"`
	PerfectMatches int          `json:"perfect_matches"`
	Details        []SlotDetail `json:"details"`
	Provenance     Provenance   `json:"provenance"`
}

// Clone returns a deep copy of the row.
func (r ScoreRow) Clone() ScoreRow {
	out := r
	if r.Details != nil {
		out.Details = make([]SlotDetail, len(r.Details))
		for i, d := range r.Details {
			if d.ActualSlot != nil {
				v := *d.ActualSlot
				d.ActualSlot = &v
			}
			out.Details[i] = d
		}
	}
	return out
}

// LeaderboardEntry aggregates every ScoreRow of a participant.
type LeaderboardEntry struct {
	ParticipantID  string `json:"participant_id"`
	DisplayName    string `json:"display_name"`
	TotalPoints    int    `json:"total_points"`
	PerfectMatches int    `json:"perfect_matches"`
	EventsScored   int    `json:"events_scored"`
}
