// Package repository defines the scoring store interface and an in-memory
// implementation of it.
package repository

import (
	"context"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/metrics"
)

// Store provides read/write access to predictions, outcomes and score rows.
// Implementations must make every single-row write all-or-nothing: a reader
// never sees a half-written ScoreRow.
type Store interface {
	// Participants returns every known participant, excluded ones included.
	Participants(ctx context.Context) ([]model.Participant, error)
	// Participant returns one participant or ErrNotFound.
	Participant(ctx context.Context, id string) (model.Participant, error)
	// Entities returns every known entity.
	Entities(ctx context.Context) ([]model.Entity, error)

	// EventPredictions returns all event-scoped predictions for event,
	// restricted to slots 1..10, ordered by participant then slot.
	EventPredictions(ctx context.Context, event model.EventID) ([]model.Prediction, error)
	// SeasonPicks returns season-scoped picks for year joined with entity
	// eligibility, restricted to slots 1..10, ordered by participant then slot.
	SeasonPicks(ctx context.Context, year int) ([]model.SeasonPick, error)

	// Outcome returns the outcome for event. An event that was never
	// finished yields an open outcome and no error.
	Outcome(ctx context.Context, event model.EventID) (model.Outcome, error)
	// SaveOutcome creates or overwrites the outcome of o.Event.
	SaveOutcome(ctx context.Context, o model.Outcome) error
	// ClearOutcome resets the outcome of event to open with an empty order.
	ClearOutcome(ctx context.Context, event model.EventID) error

	// UpsertScoreRow creates or replaces the row keyed by
	// (row.ParticipantID, row.Event).
	UpsertScoreRow(ctx context.Context, row model.ScoreRow) error
	// DeleteScoreRow removes one row; missing rows are not an error.
	DeleteScoreRow(ctx context.Context, participantID string, event model.EventID) error
	// DeleteScoreRows removes every row for event.
	DeleteScoreRows(ctx context.Context, event model.EventID) error
	// ScoreRows returns the rows for event ordered by participant.
	ScoreRows(ctx context.Context, event model.EventID) ([]model.ScoreRow, error)
	// AllScoreRows returns every row ordered by event then participant.
	AllScoreRows(ctx context.Context) ([]model.ScoreRow, error)
}

// Seeder accepts reference data and raw predictions.
type Seeder interface {
	PutParticipant(ctx context.Context, p model.Participant) error
	PutEntity(ctx context.Context, e model.Entity) error
	// PutPrediction replaces any prediction with the same participant, scope
	// and slot.
	PutPrediction(ctx context.Context, p model.Prediction) error
}

// Observe records the latency and result of a store operation.
func Observe(store, op string, start time.Time, err error) {
	metrics.RecordRepositoryOp(store, op, float64(time.Since(start).Microseconds())/1000.0, err != nil)
}
