// Package pgstore implements repository.Store on Postgres through bun.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/adapters/repository/pgstore/migrations"
	"github.com/okian/podium/internal/domain/model"
)

const storeName = "postgres"

// Store is a Postgres-backed repository.Store. Every ScoreRow write is a
// single-statement upsert, so readers never see a partial row.
type Store struct {
	db *bun.DB
}

var (
	_ repository.Store  = (*Store)(nil)
	_ repository.Seeder = (*Store)(nil)
)

// Open connects to dsn and pings the server.
func Open(ctx context.Context, dsn string) (*Store, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(bun.NewDB(sqldb, pgdialect.New())), nil
}

// New wraps an existing bun DB.
func New(db *bun.DB) *Store {
	db.RegisterModel((*participantRow)(nil), (*entityRow)(nil), (*predictionRow)(nil), (*outcomeRow)(nil), (*scoreRow)(nil))
	return &Store{db: db}
}

// DB exposes the underlying handle, e.g. for migrations.
func (s *Store) DB() *bun.DB { return s.db }

// Migrator returns a migrator over this package's schema.
func (s *Store) Migrator() *migrate.Migrator {
	return migrate.NewMigrator(s.db, migrations.Migrations)
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) PutParticipant(ctx context.Context, p model.Participant) (err error) {
	start := time.Now()
	defer func() { repository.Observe(storeName, "put_participant", start, err) }()
	row := &participantRow{ID: p.ID, DisplayName: p.DisplayName, Admin: p.Admin, Test: p.Test}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("display_name = EXCLUDED.display_name").
		Set("admin = EXCLUDED.admin").
		Set("test = EXCLUDED.test").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("pgstore.PutParticipant: %w", err)
	}
	return nil
}

func (s *Store) PutEntity(ctx context.Context, e model.Entity) (err error) {
	start := time.Now()
	defer func() { repository.Observe(storeName, "put_entity", start, err) }()
	row := &entityRow{ID: e.ID, DisplayName: e.DisplayName, Active: e.Active}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("display_name = EXCLUDED.display_name").
		Set("active = EXCLUDED.active").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("pgstore.PutEntity: %w", err)
	}
	return nil
}

func (s *Store) PutPrediction(ctx context.Context, p model.Prediction) (err error) {
	start := time.Now()
	defer func() { repository.Observe(storeName, "put_prediction", start, err) }()
	row := &predictionRow{
		ParticipantID: p.ParticipantID,
		Event:         int(p.Scope.Event),
		SeasonYear:    p.Scope.SeasonYear,
		Slot:          p.Slot,
		EntityID:      p.EntityID,
		CreatedAt:     p.CreatedAt,
	}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (participant_id, event, season_year, slot) DO UPDATE").
		Set("entity_id = EXCLUDED.entity_id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("pgstore.PutPrediction: %w", err)
	}
	return nil
}

func (s *Store) Participants(ctx context.Context) ([]model.Participant, error) {
	var rows []participantRow
	if err := s.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("pgstore.Participants: %w", err)
	}
	out := make([]model.Participant, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *Store) Participant(ctx context.Context, id string) (model.Participant, error) {
	row := new(participantRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Participant{}, fmt.Errorf("participant %q: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return model.Participant{}, fmt.Errorf("pgstore.Participant: %w", err)
	}
	return row.toModel(), nil
}

func (s *Store) Entities(ctx context.Context) ([]model.Entity, error) {
	var rows []entityRow
	if err := s.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("pgstore.Entities: %w", err)
	}
	out := make([]model.Entity, len(rows))
	for i, r := range rows {
		out[i] = model.Entity{ID: r.ID, DisplayName: r.DisplayName, Active: r.Active}
	}
	return out, nil
}

func (s *Store) EventPredictions(ctx context.Context, event model.EventID) (_ []model.Prediction, err error) {
	start := time.Now()
	defer func() { repository.Observe(storeName, "event_predictions", start, err) }()
	var rows []predictionRow
	err = s.db.NewSelect().
		Model(&rows).
		Where("event = ?", int(event)).
		Where("slot BETWEEN ? AND ?", model.MinSlot, model.MaxScoredSlot).
		Order("participant_id ASC", "slot ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("pgstore.EventPredictions: %w", err)
	}
	out := make([]model.Prediction, len(rows))
	for i, r := range rows {
		out[i] = model.Prediction{
			ParticipantID: r.ParticipantID,
			EntityID:      r.EntityID,
			Scope:         model.EventScope(model.EventID(r.Event)),
			Slot:          r.Slot,
			CreatedAt:     r.CreatedAt,
		}
	}
	return out, nil
}

func (s *Store) SeasonPicks(ctx context.Context, year int) (_ []model.SeasonPick, err error) {
	start := time.Now()
	defer func() { repository.Observe(storeName, "season_picks", start, err) }()
	var rows []seasonPickRow
	err = s.db.NewRaw(`
		SELECT pr.participant_id, pr.entity_id, pr.slot, COALESCE(en.active, FALSE) AS active
		FROM predictions AS pr
		LEFT JOIN entities AS en ON en.id = pr.entity_id
		WHERE pr.event = 0 AND pr.season_year = ? AND pr.slot BETWEEN ? AND ?
		ORDER BY pr.participant_id ASC, pr.slot ASC`,
		year, model.MinSlot, model.MaxScoredSlot,
	).Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("pgstore.SeasonPicks: %w", err)
	}
	out := make([]model.SeasonPick, len(rows))
	for i, r := range rows {
		out[i] = model.SeasonPick(r)
	}
	return out, nil
}

func (s *Store) Outcome(ctx context.Context, event model.EventID) (model.Outcome, error) {
	row := new(outcomeRow)
	err := s.db.NewSelect().Model(row).Where("event = ?", int(event)).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Outcome{Event: event}, nil
	}
	if err != nil {
		return model.Outcome{}, fmt.Errorf("pgstore.Outcome: %w", err)
	}
	return model.Outcome{Event: event, Order: row.Order, Finalized: row.Finalized, FinalizedAt: row.FinalizedAt}, nil
}

func (s *Store) SaveOutcome(ctx context.Context, o model.Outcome) (err error) {
	start := time.Now()
	defer func() { repository.Observe(storeName, "save_outcome", start, err) }()
	order := o.Order
	if order == nil {
		order = []string{}
	}
	row := &outcomeRow{Event: int(o.Event), Order: order, Finalized: o.Finalized, FinalizedAt: o.FinalizedAt}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (event) DO UPDATE").
		Set("entity_order = EXCLUDED.entity_order").
		Set("finalized = EXCLUDED.finalized").
		Set("finalized_at = EXCLUDED.finalized_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("pgstore.SaveOutcome: %w", err)
	}
	return nil
}

func (s *Store) ClearOutcome(ctx context.Context, event model.EventID) (err error) {
	start := time.Now()
	defer func() { repository.Observe(storeName, "clear_outcome", start, err) }()
	_, err = s.db.NewDelete().Model((*outcomeRow)(nil)).Where("event = ?", int(event)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("pgstore.ClearOutcome: %w", err)
	}
	return nil
}

func (s *Store) UpsertScoreRow(ctx context.Context, r model.ScoreRow) (err error) {
	start := time.Now()
	defer func() { repository.Observe(storeName, "upsert_score_row", start, err) }()
	_, err = s.db.NewInsert().
		Model(fromScoreRow(r)).
		On("CONFLICT (participant_id, event) DO UPDATE").
		Set("base_points = EXCLUDED.base_points").
		Set("bonus = EXCLUDED.bonus").
		Set("total_points = EXCLUDED.total_points").
		Set("perfect_matches = EXCLUDED.perfect_matches").
		Set("details = EXCLUDED.details").
		Set("provenance = EXCLUDED.provenance").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("pgstore.UpsertScoreRow: %w", err)
	}
	return nil
}

func (s *Store) DeleteScoreRow(ctx context.Context, participantID string, event model.EventID) error {
	_, err := s.db.NewDelete().
		Model((*scoreRow)(nil)).
		Where("participant_id = ?", participantID).
		Where("event = ?", int(event)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("pgstore.DeleteScoreRow: %w", err)
	}
	return nil
}

func (s *Store) DeleteScoreRows(ctx context.Context, event model.EventID) (err error) {
	start := time.Now()
	defer func() { repository.Observe(storeName, "delete_score_rows", start, err) }()
	_, err = s.db.NewDelete().Model((*scoreRow)(nil)).Where("event = ?", int(event)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("pgstore.DeleteScoreRows: %w", err)
	}
	return nil
}

func (s *Store) ScoreRows(ctx context.Context, event model.EventID) ([]model.ScoreRow, error) {
	var rows []scoreRow
	err := s.db.NewSelect().Model(&rows).Where("event = ?", int(event)).Order("participant_id ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("pgstore.ScoreRows: %w", err)
	}
	return toModels(rows), nil
}

func (s *Store) AllScoreRows(ctx context.Context) (_ []model.ScoreRow, err error) {
	start := time.Now()
	defer func() { repository.Observe(storeName, "all_score_rows", start, err) }()
	var rows []scoreRow
	err = s.db.NewSelect().Model(&rows).Order("event ASC", "participant_id ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("pgstore.AllScoreRows: %w", err)
	}
	return toModels(rows), nil
}

func toModels(rows []scoreRow) []model.ScoreRow {
	out := make([]model.ScoreRow, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out
}
