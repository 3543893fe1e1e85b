package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/standings"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/metrics"
)

// EventDetail is the audit view of one event.
type EventDetail struct {
	Event   model.EventID    `json:"event"`
	State   model.EventState `json:"state"`
	Outcome model.Outcome    `json:"outcome"`
	Rows    []model.ScoreRow `json:"rows"`
}

// Standings aggregates every persisted row into one entry per eligible
// participant, ordered by participant ID.
func (s *Service) Standings(ctx context.Context) ([]model.LeaderboardEntry, error) {
	const op = "standings"
	end, err := s.begin(op)
	if err != nil {
		return nil, err
	}
	defer end()
	participants, err := s.store.Participants(ctx)
	if err != nil {
		return nil, newError(KindPersistence, op, err, "read participants")
	}
	rows, err := s.store.AllScoreRows(ctx)
	if err != nil {
		return nil, newError(KindPersistence, op, err, "read score rows")
	}
	return standings.Aggregate(participants, rows), nil
}

// Leaderboard returns ranked standings. A limit <= 0 returns everyone.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]types.Entry, error) {
	ctx, span := s.tracer.Start(ctx, "service.Leaderboard", trace.WithAttributes(attribute.Int("limit", limit)))
	defer span.End()

	entries, err := s.Standings(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	ranked := standings.Rank(entries)
	metrics.RecordLeaderboardRead(len(ranked))
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// EventDetail returns the outcome, state and every row of event.
func (s *Service) EventDetail(ctx context.Context, event model.EventID) (EventDetail, error) {
	const op = "event_detail"
	end, err := s.begin(op)
	if err != nil {
		return EventDetail{}, err
	}
	defer end()
	if !event.Valid() {
		return EventDetail{}, newError(KindValidation, op, nil, "event must be a positive round number, got %d", event)
	}
	outcome, err := s.store.Outcome(ctx, event)
	if err != nil {
		return EventDetail{}, newError(KindPersistence, op, err, "read outcome")
	}
	rows, err := s.store.ScoreRows(ctx, event)
	if err != nil {
		return EventDetail{}, newError(KindPersistence, op, err, "read score rows")
	}
	if outcome.Order == nil {
		outcome.Order = []string{}
	}
	if rows == nil {
		rows = []model.ScoreRow{}
	}
	return EventDetail{Event: event, State: outcome.State(), Outcome: outcome, Rows: rows}, nil
}

// Rank returns the ranked entry of one participant. Excluded and unknown
// participants are not found.
func (s *Service) Rank(ctx context.Context, participantID string) (types.Entry, error) {
	ranked, err := s.Leaderboard(ctx, 0)
	if err != nil {
		return types.Entry{}, err
	}
	for _, e := range ranked {
		if e.ParticipantID == participantID {
			return e, nil
		}
	}
	return types.Entry{}, newError(KindNotFound, "rank", nil, "participant %q is not on the leaderboard", participantID)
}
