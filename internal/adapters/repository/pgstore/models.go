package pgstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/okian/podium/internal/domain/model"
)

type participantRow struct {
	bun.BaseModel `bun:"table:participants,alias:pa"`

	ID          string `bun:"id,pk"`
	DisplayName string `bun:"display_name,notnull"`
	Admin       bool   `bun:"admin,notnull"`
	Test        bool   `bun:"test,notnull"`
}

func (r participantRow) toModel() model.Participant {
	return model.Participant{ID: r.ID, DisplayName: r.DisplayName, Admin: r.Admin, Test: r.Test}
}

type entityRow struct {
	bun.BaseModel `bun:"table:entities,alias:en"`

	ID          string `bun:"id,pk"`
	DisplayName string `bun:"display_name,notnull"`
	Active      bool   `bun:"active,notnull"`
}

// predictionRow stores season picks with event = 0.
type predictionRow struct {
	bun.BaseModel `bun:"table:predictions,alias:pr"`

	ParticipantID string    `bun:"participant_id,pk"`
	Event         int       `bun:"event,pk"`
	SeasonYear    int       `bun:"season_year,pk"`
	Slot          int       `bun:"slot,pk"`
	EntityID      string    `bun:"entity_id,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type seasonPickRow struct {
	ParticipantID string `bun:"participant_id"`
	EntityID      string `bun:"entity_id"`
	Slot          int    `bun:"slot"`
	Active        bool   `bun:"active"`
}

type outcomeRow struct {
	bun.BaseModel `bun:"table:outcomes,alias:o"`

	Event       int       `bun:"event,pk"`
	Order       []string  `bun:"entity_order,type:jsonb,notnull"`
	Finalized   bool      `bun:"finalized,notnull"`
	FinalizedAt time.Time `bun:"finalized_at,nullzero"`
}

type scoreRow struct {
	bun.BaseModel `bun:"table:score_rows,alias:sr"`

	ParticipantID  string             `bun:"participant_id,pk"`
	Event          int                `bun:"event,pk"`
	BasePoints     int                `bun:"base_points,notnull"`
	Bonus          model.Bonus        `bun:"bonus,type:jsonb,notnull"`
	TotalPoints    int                `bun:"total_points,notnull"`
	PerfectMatches int                `bun:"perfect_matches,notnull"`
	Details        []model.SlotDetail `bun:"details,type:jsonb,notnull"`
	Provenance     string             `bun:"provenance,notnull"`
}

func fromScoreRow(r model.ScoreRow) *scoreRow {
	details := r.Details
	if details == nil {
		details = []model.SlotDetail{}
	}
	return &scoreRow{
		ParticipantID:  r.ParticipantID,
		Event:          int(r.Event),
		BasePoints:     r.BasePoints,
		Bonus:          r.Bonus,
		TotalPoints:    r.TotalPoints,
		PerfectMatches: r.PerfectMatches,
		Details:        details,
		Provenance:     string(r.Provenance),
	}
}

func (r scoreRow) toModel() model.ScoreRow {
	return model.ScoreRow{
		ParticipantID:  r.ParticipantID,
		Event:          model.EventID(r.Event),
		BasePoints:     r.BasePoints,
		Bonus:          r.Bonus,
		TotalPoints:    r.TotalPoints,
		PerfectMatches: r.PerfectMatches,
		Details:        r.Details,
		Provenance:     model.Provenance(r.Provenance),
	}
}
