// Package types contains common types used across the application
package types

import "github.com/okian/podium/internal/domain/model"

// Entry represents a ranked leaderboard entry. Participants tied on points
// and perfect matches share a rank.
type Entry struct {
	Rank int `json:"rank"`
	model.LeaderboardEntry
}
