package repository

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/podium/internal/domain/model"
)

// Seed is the YAML layout used to preload a store.
//
//	season_year: 2025
//	participants:
//	  - {id: p1, name: Ann}
//	  - {id: root, name: Admin, admin: true}
//	entities:
//	  - {id: VER, name: Max Verstappen, active: true}
//	predictions:
//	  - {participant: p1, event: 3, order: [VER, NOR, LEC]}
//	  - {participant: p1, season: true, order: [VER, LEC]}
type Seed struct {
	SeasonYear   int               `yaml:"season_year"`
	Participants []SeedParticipant `yaml:"participants"`
	Entities     []SeedEntity      `yaml:"entities"`
	Predictions  []SeedPrediction  `yaml:"predictions"`
}

// SeedParticipant is a participant row in a seed file.
type SeedParticipant struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Admin bool   `yaml:"admin"`
	Test  bool   `yaml:"test"`
}

// SeedEntity is an entity row in a seed file.
type SeedEntity struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Active bool   `yaml:"active"`
}

// SeedPrediction is one participant's ranked list. Order[i] goes into
// slot i+1. Season lists use the seed's season year unless Year is set.
type SeedPrediction struct {
	Participant string   `yaml:"participant"`
	Event       int      `yaml:"event"`
	Season      bool     `yaml:"season"`
	Year        int      `yaml:"year"`
	Order       []string `yaml:"order"`
}

// LoadSeed reads and parses a seed file.
func LoadSeed(path string) (*Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	return ParseSeed(raw)
}

// ParseSeed parses seed YAML.
func ParseSeed(raw []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	for i, p := range s.Predictions {
		if p.Season == (p.Event > 0) {
			return nil, fmt.Errorf("%w: prediction %d must set exactly one of event or season", ErrInvalidSeed, i)
		}
	}
	return &s, nil
}

// Apply writes the seed into dst.
func (s *Seed) Apply(ctx context.Context, dst Seeder) error {
	for _, p := range s.Participants {
		if err := dst.PutParticipant(ctx, model.Participant{ID: p.ID, DisplayName: p.Name, Admin: p.Admin, Test: p.Test}); err != nil {
			return err
		}
	}
	for _, e := range s.Entities {
		if err := dst.PutEntity(ctx, model.Entity{ID: e.ID, DisplayName: e.Name, Active: e.Active}); err != nil {
			return err
		}
	}
	for _, sp := range s.Predictions {
		scope := model.EventScope(model.EventID(sp.Event))
		if sp.Season {
			year := sp.Year
			if year == 0 {
				year = s.SeasonYear
			}
			scope = model.SeasonScope(year)
		}
		for i, entity := range sp.Order {
			p := model.Prediction{ParticipantID: sp.Participant, EntityID: entity, Scope: scope, Slot: i + 1}
			if err := dst.PutPrediction(ctx, p); err != nil {
				return err
			}
		}
	}
	return nil
}
