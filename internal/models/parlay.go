package models

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Relationship classifies how two legs are connected.
type Relationship string

// Relationship types between two legs
const (
	RelSamePlayer        Relationship = "same_player_different_market"
	RelQBPassCatcher     Relationship = "qb_pass_catcher_same_team"
	RelRBOwnQB           Relationship = "rb_own_qb"
	RelSameTeamUnrelated Relationship = "same_team_unrelated"
	RelOpposingSameGame  Relationship = "opposing_teams_same_game"
	RelDifferentGames    Relationship = "different_games"
)

// CorrelationPair is the symmetric relation between two legs.
type CorrelationPair struct {
	A            LegKey       `json:"a"`
	B            LegKey       `json:"b"`
	Coefficient  float64      `json:"coefficient"`
	Relationship Relationship `json:"relationship"`
}

// RiskLabel summarizes how strongly a parlay's legs move together.
type RiskLabel string

// Correlation risk labels
const (
	RiskLow    RiskLabel = "Low"
	RiskMedium RiskLabel = "Medium"
	RiskHigh   RiskLabel = "High"
)

// Rank orders labels from Low (0) to High (2).
func (r RiskLabel) Rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	default:
		return 2
	}
}

// Parlay is a scored combination of three or four legs.
type Parlay struct {
	ID                     uuid.UUID         `json:"id"`
	Legs                   []Leg             `json:"legs"`
	Pairs                  []CorrelationPair `json:"pairs,omitempty"`
	IndependentProbability float64           `json:"independent_probability"`
	JointHitProbability    float64           `json:"joint_hit_probability"`
	PayoutMultiplier       float64           `json:"payout_multiplier"`
	EV                     float64           `json:"ev"`
	MeanAbsCorrelation     float64           `json:"mean_abs_correlation"`
	CorrelationRisk        RiskLabel         `json:"correlation_risk"`
	SameGame               bool              `json:"same_game"`
}

// Size returns the number of legs.
func (p Parlay) Size() int {
	return len(p.Legs)
}

// Signature is an order-independent identity built from the leg keys, used for stable sorting.
func (p Parlay) Signature() string {
	keys := make([]string, len(p.Legs))
	for i, leg := range p.Legs {
		keys[i] = leg.Key().String() + "|" + string(leg.Direction)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}
