package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RecommendationRun is one persisted scoring and search pass.
type RecommendationRun struct {
	ID           uuid.UUID       `json:"id"`
	CreatedAt    time.Time       `json:"created_at"`
	Status       string          `json:"status"`
	Message      string          `json:"message,omitempty"`
	PropsScored  int             `json:"props_scored"`
	AcceptedLegs int             `json:"accepted_legs"`
	Combinations int             `json:"combinations"`
	Config       json.RawMessage `json:"config,omitempty"`
	Parlays      []Parlay        `json:"parlays"`
}
