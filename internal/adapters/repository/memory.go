package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/podium/internal/domain/model"
)

const memoryStoreName = "memory"

type predictionKey struct {
	participant string
	scope       model.Scope
	slot        int
}

type rowKey struct {
	participant string
	event       model.EventID
}

// MemoryStore keeps everything in maps behind one RWMutex. Rows are cloned
// on the way in and out so callers never share detail slices with the store.
type MemoryStore struct {
	mu           sync.RWMutex
	participants map[string]model.Participant
	entities     map[string]model.Entity
	predictions  map[predictionKey]model.Prediction
	outcomes     map[model.EventID]model.Outcome
	rows         map[rowKey]model.ScoreRow

	seed *Seed
}

var (
	_ Store  = (*MemoryStore)(nil)
	_ Seeder = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty store, applying the seed if one is given.
func NewMemoryStore(ctx context.Context, opts ...Option) (*MemoryStore, error) {
	m := &MemoryStore{
		participants: make(map[string]model.Participant),
		entities:     make(map[string]model.Entity),
		predictions:  make(map[predictionKey]model.Prediction),
		outcomes:     make(map[model.EventID]model.Outcome),
		rows:         make(map[rowKey]model.ScoreRow),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.seed != nil {
		if err := m.seed.Apply(ctx, m); err != nil {
			return nil, fmt.Errorf("apply seed: %w", err)
		}
	}
	return m, nil
}

func (m *MemoryStore) PutParticipant(_ context.Context, p model.Participant) error {
	if p.ID == "" {
		return fmt.Errorf("%w: participant id is empty", ErrInvalidSeed)
	}
	m.mu.Lock()
	m.participants[p.ID] = p
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) PutEntity(_ context.Context, e model.Entity) error {
	if e.ID == "" {
		return fmt.Errorf("%w: entity id is empty", ErrInvalidSeed)
	}
	m.mu.Lock()
	m.entities[e.ID] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) PutPrediction(_ context.Context, p model.Prediction) error {
	if p.ParticipantID == "" || p.EntityID == "" {
		return fmt.Errorf("%w: prediction needs participant and entity", ErrInvalidSeed)
	}
	m.mu.Lock()
	m.predictions[predictionKey{participant: p.ParticipantID, scope: p.Scope, slot: p.Slot}] = p
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Participants(_ context.Context) ([]model.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Participant, 0, len(m.participants))
	for _, p := range m.participants {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b model.Participant) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *MemoryStore) Participant(_ context.Context, id string) (model.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.participants[id]
	if !ok {
		return model.Participant{}, fmt.Errorf("participant %q: %w", id, ErrNotFound)
	}
	return p, nil
}

func (m *MemoryStore) Entities(_ context.Context) ([]model.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Entity, 0, len(m.entities))
	for _, e := range m.entities {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b model.Entity) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *MemoryStore) EventPredictions(_ context.Context, event model.EventID) ([]model.Prediction, error) {
	start := time.Now()
	m.mu.RLock()
	out := make([]model.Prediction, 0)
	for k, p := range m.predictions {
		if k.scope.IsSeason() || k.scope.Event != event || !inScoredRange(k.slot) {
			continue
		}
		out = append(out, p)
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b model.Prediction) int {
		if c := cmp.Compare(a.ParticipantID, b.ParticipantID); c != 0 {
			return c
		}
		return cmp.Compare(a.Slot, b.Slot)
	})
	Observe(memoryStoreName, "event_predictions", start, nil)
	return out, nil
}

func (m *MemoryStore) SeasonPicks(_ context.Context, year int) ([]model.SeasonPick, error) {
	start := time.Now()
	m.mu.RLock()
	out := make([]model.SeasonPick, 0)
	for k, p := range m.predictions {
		if !k.scope.IsSeason() || k.scope.SeasonYear != year || !inScoredRange(k.slot) {
			continue
		}
		out = append(out, model.SeasonPick{
			ParticipantID: p.ParticipantID,
			EntityID:      p.EntityID,
			Slot:          p.Slot,
			Active:        m.entities[p.EntityID].Active,
		})
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b model.SeasonPick) int {
		if c := cmp.Compare(a.ParticipantID, b.ParticipantID); c != 0 {
			return c
		}
		return cmp.Compare(a.Slot, b.Slot)
	})
	Observe(memoryStoreName, "season_picks", start, nil)
	return out, nil
}

func (m *MemoryStore) Outcome(_ context.Context, event model.EventID) (model.Outcome, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.outcomes[event]
	if !ok {
		return model.Outcome{Event: event}, nil
	}
	o.Order = slices.Clone(o.Order)
	return o, nil
}

func (m *MemoryStore) SaveOutcome(_ context.Context, o model.Outcome) error {
	start := time.Now()
	o.Order = slices.Clone(o.Order)
	m.mu.Lock()
	m.outcomes[o.Event] = o
	m.mu.Unlock()
	Observe(memoryStoreName, "save_outcome", start, nil)
	return nil
}

func (m *MemoryStore) ClearOutcome(_ context.Context, event model.EventID) error {
	m.mu.Lock()
	delete(m.outcomes, event)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) UpsertScoreRow(_ context.Context, row model.ScoreRow) error {
	start := time.Now()
	c := row.Clone()
	m.mu.Lock()
	m.rows[rowKey{participant: row.ParticipantID, event: row.Event}] = c
	m.mu.Unlock()
	Observe(memoryStoreName, "upsert_score_row", start, nil)
	return nil
}

func (m *MemoryStore) DeleteScoreRow(_ context.Context, participantID string, event model.EventID) error {
	m.mu.Lock()
	delete(m.rows, rowKey{participant: participantID, event: event})
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteScoreRows(_ context.Context, event model.EventID) error {
	start := time.Now()
	m.mu.Lock()
	for k := range m.rows {
		if k.event == event {
			delete(m.rows, k)
		}
	}
	m.mu.Unlock()
	Observe(memoryStoreName, "delete_score_rows", start, nil)
	return nil
}

func (m *MemoryStore) ScoreRows(_ context.Context, event model.EventID) ([]model.ScoreRow, error) {
	m.mu.RLock()
	out := make([]model.ScoreRow, 0)
	for k, r := range m.rows {
		if k.event == event {
			out = append(out, r.Clone())
		}
	}
	m.mu.RUnlock()
	sortRows(out)
	return out, nil
}

func (m *MemoryStore) AllScoreRows(_ context.Context) ([]model.ScoreRow, error) {
	start := time.Now()
	m.mu.RLock()
	out := make([]model.ScoreRow, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r.Clone())
	}
	m.mu.RUnlock()
	sortRows(out)
	Observe(memoryStoreName, "all_score_rows", start, nil)
	return out, nil
}

func sortRows(rows []model.ScoreRow) {
	slices.SortFunc(rows, func(a, b model.ScoreRow) int {
		if c := cmp.Compare(a.Event, b.Event); c != 0 {
			return c
		}
		return cmp.Compare(a.ParticipantID, b.ParticipantID)
	})
}

func inScoredRange(slot int) bool {
	return slot >= model.MinSlot && slot <= model.MaxScoredSlot
}
