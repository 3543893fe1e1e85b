package service

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	workerpool "github.com/okian/podium/internal/adapters/mq/worker"
	"github.com/okian/podium/internal/domain/fallback"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/scoring"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// FinishResult reports a successful finish or recompute.
type FinishResult struct {
	PassID             string        `json:"pass_id"`
	Event              model.EventID `json:"event"`
	ParticipantsScored int           `json:"participants_scored"`
	FallbackUsed       int           `json:"fallback_used"`
	StaleRowsRemoved   int           `json:"stale_rows_removed"`
	Recompute          bool          `json:"recompute"`
}

// ReopenResult reports a successful reopen.
type ReopenResult struct {
	PassID      string        `json:"pass_id"`
	Event       model.EventID `json:"event"`
	RowsDeleted int           `json:"rows_deleted"`
}

// snapshot is the event state before a pass, used to undo it.
type snapshot struct {
	outcome model.Outcome
	rows    []model.ScoreRow
}

// Finish declares the finishing order of event and scores every
// participant with a usable prediction. Finishing an already finished
// event replaces its outcome and all of its rows. On any failure the event
// is put back the way it was.
func (s *Service) Finish(ctx context.Context, callerID string, event model.EventID, order []string) (FinishResult, error) {
	const op = "finish"
	passID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "service.Finish", trace.WithAttributes(
		attribute.Int("event", int(event)),
		attribute.String("pass_id", passID),
		attribute.Int("order_len", len(order)),
	))
	defer span.End()

	start := s.clock.Now()
	res, err := s.finish(ctx, passID, callerID, event, order)
	s.observe(op, start, span, err)
	if err == nil {
		span.SetAttributes(attribute.Int("participants_scored", res.ParticipantsScored))
		metrics.RecordParticipantsScored(res.ParticipantsScored)
	}
	return res, err
}

func (s *Service) finish(ctx context.Context, passID, callerID string, event model.EventID, order []string) (FinishResult, error) {
	const op = "finish"
	end, err := s.begin(op)
	if err != nil {
		return FinishResult{}, err
	}
	defer end()
	log := s.logger.With(logger.String("pass_id", passID), logger.Int("event", int(event)))

	if err := s.authorize(ctx, op, callerID); err != nil {
		log.Warn(ctx, "finish rejected", logger.String("caller", callerID), logger.Error(err))
		return FinishResult{}, err
	}
	order, err = validateOrder(op, event, order)
	if err != nil {
		return FinishResult{}, err
	}

	release, err := s.acquire(ctx, op, event)
	if err != nil {
		return FinishResult{}, err
	}
	defer release()

	snap, err := s.snapshot(ctx, op, event)
	if err != nil {
		return FinishResult{}, err
	}

	rows, fallbackUsed, err := s.scoreEvent(ctx, op, event, order)
	if err != nil {
		return FinishResult{}, err
	}

	outcome := model.Outcome{Event: event, Order: order, Finalized: true, FinalizedAt: s.clock.Now().UTC()}
	stale, err := s.apply(ctx, outcome, rows, snap)
	if err != nil {
		log.Error(ctx, "finish failed, restoring previous state", logger.Error(err))
		s.restore(ctx, log, event, snap)
		return FinishResult{}, newError(KindPersistence, op, err, "event %d left unchanged", event)
	}

	res := FinishResult{
		PassID:             passID,
		Event:              event,
		ParticipantsScored: len(rows),
		FallbackUsed:       fallbackUsed,
		StaleRowsRemoved:   stale,
		Recompute:          snap.outcome.Finalized,
	}
	log.Info(ctx, "event finished",
		logger.Int("scored", res.ParticipantsScored),
		logger.Int("fallback", res.FallbackUsed),
		logger.Int("stale", res.StaleRowsRemoved),
		logger.Bool("recompute", res.Recompute),
	)
	return res, nil
}

// Reopen removes every row of event and clears its outcome. Reopening an
// open event succeeds and changes nothing.
func (s *Service) Reopen(ctx context.Context, callerID string, event model.EventID) (ReopenResult, error) {
	const op = "reopen"
	passID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "service.Reopen", trace.WithAttributes(
		attribute.Int("event", int(event)),
		attribute.String("pass_id", passID),
	))
	defer span.End()

	start := s.clock.Now()
	res, err := s.reopen(ctx, passID, callerID, event)
	s.observe(op, start, span, err)
	return res, err
}

func (s *Service) reopen(ctx context.Context, passID, callerID string, event model.EventID) (ReopenResult, error) {
	const op = "reopen"
	end, err := s.begin(op)
	if err != nil {
		return ReopenResult{}, err
	}
	defer end()
	log := s.logger.With(logger.String("pass_id", passID), logger.Int("event", int(event)))

	if err := s.authorize(ctx, op, callerID); err != nil {
		log.Warn(ctx, "reopen rejected", logger.String("caller", callerID), logger.Error(err))
		return ReopenResult{}, err
	}
	if !event.Valid() {
		return ReopenResult{}, newError(KindValidation, op, nil, "event must be a positive round number, got %d", event)
	}

	release, err := s.acquire(ctx, op, event)
	if err != nil {
		return ReopenResult{}, err
	}
	defer release()

	snap, err := s.snapshot(ctx, op, event)
	if err != nil {
		return ReopenResult{}, err
	}

	err = s.store.DeleteScoreRows(ctx, event)
	if err == nil {
		err = s.store.ClearOutcome(ctx, event)
	}
	if err != nil {
		log.Error(ctx, "reopen failed, restoring previous state", logger.Error(err))
		s.restore(ctx, log, event, snap)
		return ReopenResult{}, newError(KindPersistence, op, err, "event %d left unchanged", event)
	}

	log.Info(ctx, "event reopened", logger.Int("rowsDeleted", len(snap.rows)))
	return ReopenResult{PassID: passID, Event: event, RowsDeleted: len(snap.rows)}, nil
}

func (s *Service) authorize(ctx context.Context, op, callerID string) error {
	ok, err := s.authorizer.CanManageEvents(ctx, callerID)
	if err != nil {
		return newError(KindPersistence, op, err, "authorization lookup failed")
	}
	if !ok {
		return newError(KindAuthorization, op, nil, "caller %q may not manage events", callerID)
	}
	return nil
}

// acquire claims the per-event guard so two passes on one event never
// interleave.
func (s *Service) acquire(ctx context.Context, op string, event model.EventID) (func(), error) {
	key := "event:" + strconv.Itoa(int(event))
	if s.inFlight.SeenAndRecord(ctx, key) {
		return nil, newError(KindConflict, op, nil, "event %d is already being processed", event)
	}
	return func() { s.inFlight.Unrecord(ctx, key) }, nil
}

func (s *Service) snapshot(ctx context.Context, op string, event model.EventID) (snapshot, error) {
	outcome, err := s.store.Outcome(ctx, event)
	if err != nil {
		return snapshot{}, newError(KindPersistence, op, err, "read outcome")
	}
	rows, err := s.store.ScoreRows(ctx, event)
	if err != nil {
		return snapshot{}, newError(KindPersistence, op, err, "read score rows")
	}
	return snapshot{outcome: outcome, rows: rows}, nil
}

// scoreEvent resolves and scores every eligible participant. Rows come
// back ordered by participant ID.
func (s *Service) scoreEvent(ctx context.Context, op string, event model.EventID, order []string) ([]model.ScoreRow, int, error) {
	participants, err := s.store.Participants(ctx)
	if err != nil {
		return nil, 0, newError(KindPersistence, op, err, "read participants")
	}
	preds, err := s.store.EventPredictions(ctx, event)
	if err != nil {
		return nil, 0, newError(KindPersistence, op, err, "read event predictions")
	}
	season, err := s.store.SeasonPicks(ctx, s.seasonYear)
	if err != nil {
		return nil, 0, newError(KindPersistence, op, err, "read season picks")
	}

	excluded := make(map[string]bool, len(participants))
	for _, p := range participants {
		if p.Excluded() {
			excluded[p.ID] = true
		}
	}
	own := make(map[string][]model.Prediction)
	for _, p := range preds {
		own[p.ParticipantID] = append(own[p.ParticipantID], p)
	}
	seasonBy := make(map[string][]model.SeasonPick)
	for _, p := range season {
		seasonBy[p.ParticipantID] = append(seasonBy[p.ParticipantID], p)
	}

	ids := make([]string, 0, len(own)+len(seasonBy))
	for id := range own {
		ids = append(ids, id)
	}
	for id := range seasonBy {
		if _, dup := own[id]; !dup {
			ids = append(ids, id)
		}
	}
	ids = slices.DeleteFunc(ids, func(id string) bool { return excluded[id] })
	slices.Sort(ids)

	resolved := make([]model.Resolution, 0, len(ids))
	fallbackUsed := 0
	for _, id := range ids {
		r, ok := fallback.Resolve(own[id], seasonBy[id])
		if !ok {
			continue
		}
		if r.Provenance == model.ProvenanceFallback {
			fallbackUsed++
		}
		resolved = append(resolved, r)
	}

	rows, err := workerpool.Map(ctx, s.pool, resolved, func(_ context.Context, r model.Resolution) (model.ScoreRow, error) {
		return scoring.Score(event, r, order), nil
	})
	if err != nil {
		return nil, 0, newError(KindPersistence, op, err, "scoring interrupted")
	}
	return rows, fallbackUsed, nil
}

// apply saves the finalized outcome, upserts every row and removes rows of
// participants that no longer have a prediction. It returns the number of
// stale rows removed.
func (s *Service) apply(ctx context.Context, outcome model.Outcome, rows []model.ScoreRow, snap snapshot) (int, error) {
	if err := s.store.SaveOutcome(ctx, outcome); err != nil {
		return 0, err
	}

	err := workerpool.Each(ctx, s.pool, rows, func(ctx context.Context, r model.ScoreRow) error {
		if err := s.store.UpsertScoreRow(ctx, r); err != nil {
			metrics.RecordRowWriteError()
			return err
		}
		metrics.RecordRowWritten()
		if r.Provenance == model.ProvenanceFallback {
			metrics.RecordFallbackRow()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	scored := make(map[string]bool, len(rows))
	for _, r := range rows {
		scored[r.ParticipantID] = true
	}
	stale := 0
	for _, r := range snap.rows {
		if scored[r.ParticipantID] {
			continue
		}
		if err := s.store.DeleteScoreRow(ctx, r.ParticipantID, outcome.Event); err != nil {
			return 0, err
		}
		stale++
	}
	return stale, nil
}

// restore puts the event back to snap. It runs detached from the caller's
// cancellation so a timed-out request still gets undone.
func (s *Service) restore(ctx context.Context, log logger.Logger, event model.EventID, snap snapshot) {
	ctx = context.WithoutCancel(ctx)

	err := s.store.DeleteScoreRows(ctx, event)
	if err == nil {
		err = workerpool.Each(ctx, s.pool, snap.rows, s.store.UpsertScoreRow)
	}
	if err == nil {
		if snap.outcome.Finalized {
			err = s.store.SaveOutcome(ctx, snap.outcome)
		} else {
			err = s.store.ClearOutcome(ctx, event)
		}
	}
	if err != nil {
		metrics.RecordRollback("failed")
		log.Error(ctx, "restoring previous state failed", logger.Error(err))
		return
	}
	metrics.RecordRollback("ok")
}

// validateOrder trims ids and rejects an empty order, blank ids and
// repeated ids.
func validateOrder(op string, event model.EventID, order []string) ([]string, error) {
	if !event.Valid() {
		return nil, newError(KindValidation, op, nil, "event must be a positive round number, got %d", event)
	}
	if len(order) == 0 {
		return nil, newError(KindValidation, op, nil, "finishing order must not be empty")
	}
	out := make([]string, len(order))
	seen := make(map[string]int, len(order))
	var errs []error
	for i, id := range order {
		id = strings.TrimSpace(id)
		if id == "" {
			errs = append(errs, newError(KindValidation, op, nil, "position %d is blank", i+1))
			continue
		}
		if prev, dup := seen[id]; dup {
			errs = append(errs, newError(KindValidation, op, nil, "%q appears at positions %d and %d", id, prev, i+1))
			continue
		}
		seen[id] = i + 1
		out[i] = id
	}
	if len(errs) > 0 {
		return nil, newError(KindValidation, op, errors.Join(errs...), "malformed finishing order")
	}
	return out, nil
}
