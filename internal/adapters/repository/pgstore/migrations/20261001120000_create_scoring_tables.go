package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			stmts := []string{
				`CREATE TABLE IF NOT EXISTS participants (
					id TEXT PRIMARY KEY,
					display_name TEXT NOT NULL DEFAULT '',
					admin BOOLEAN NOT NULL DEFAULT FALSE,
					test BOOLEAN NOT NULL DEFAULT FALSE
				)`,
				`CREATE TABLE IF NOT EXISTS entities (
					id TEXT PRIMARY KEY,
					display_name TEXT NOT NULL DEFAULT '',
					active BOOLEAN NOT NULL DEFAULT TRUE
				)`,
				`CREATE TABLE IF NOT EXISTS predictions (
					participant_id TEXT NOT NULL REFERENCES participants(id) ON DELETE CASCADE,
					event INTEGER NOT NULL DEFAULT 0,
					season_year INTEGER NOT NULL DEFAULT 0,
					slot INTEGER NOT NULL,
					entity_id TEXT NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					PRIMARY KEY (participant_id, event, season_year, slot)
				)`,
				`CREATE INDEX IF NOT EXISTS idx_predictions_event ON predictions (event) WHERE event > 0`,
				`CREATE INDEX IF NOT EXISTS idx_predictions_season ON predictions (season_year) WHERE event = 0`,
				`CREATE TABLE IF NOT EXISTS outcomes (
					event INTEGER PRIMARY KEY,
					entity_order JSONB NOT NULL DEFAULT '[]',
					finalized BOOLEAN NOT NULL DEFAULT FALSE,
					finalized_at TIMESTAMPTZ
				)`,
				`CREATE TABLE IF NOT EXISTS score_rows (
					participant_id TEXT NOT NULL,
					event INTEGER NOT NULL,
					base_points INTEGER NOT NULL,
					bonus JSONB NOT NULL,
					total_points INTEGER NOT NULL,
					perfect_matches INTEGER NOT NULL,
					details JSONB NOT NULL,
					provenance TEXT NOT NULL,
					PRIMARY KEY (participant_id, event)
				)`,
				`CREATE INDEX IF NOT EXISTS idx_score_rows_event ON score_rows (event)`,
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					return fmt.Errorf("create scoring tables: %w", err)
				}
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS score_rows, outcomes, predictions, entities, participants`)
		if err != nil {
			return fmt.Errorf("drop scoring tables: %w", err)
		}
		return nil
	})
}
