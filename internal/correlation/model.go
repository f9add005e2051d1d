// Package correlation assigns pairwise hit correlations to legs of a parlay.
package correlation

import (
	"math"

	"github.com/yourusername/parlay-edge/internal/models"
)

// Model estimates the correlation between two legs. Implementations must be
// symmetric: Pair(a, b) and Pair(b, a) carry the same coefficient.
type Model interface {
	Pair(a, b models.Leg) models.CorrelationPair
}

// Range is the plausible coefficient interval for a relationship.
type Range struct {
	Low  float64
	High float64
}

// Midpoint is the point estimate used when no override is configured.
func (r Range) Midpoint() float64 {
	return (r.Low + r.High) / 2
}

// DefaultRanges returns the coefficient table for same-direction legs.
func DefaultRanges() map[models.Relationship]Range {
	return map[models.Relationship]Range{
		models.RelQBPassCatcher: {Low: 0.4, High: 0.7},
		models.RelRBOwnQB:       {Low: -0.4, High: -0.2},
	}
}

// StaticModel is a lookup table keyed by relationship. Relationships missing from
// the table are treated as independent.
type StaticModel struct {
	ranges    map[models.Relationship]Range
	overrides map[models.Relationship]float64
}

// NewStaticModel creates a model with the default ranges and optional overrides.
func NewStaticModel(overrides map[models.Relationship]float64) *StaticModel {
	o := make(map[models.Relationship]float64, len(overrides))
	for rel, c := range overrides {
		o[rel] = math.Max(-maxCoefficient, math.Min(maxCoefficient, c))
	}
	return &StaticModel{ranges: DefaultRanges(), overrides: o}
}

// maxCoefficient keeps every correlation matrix away from singular.
const maxCoefficient = 0.95

// Pair classifies the two legs and returns their coefficient.
func (m *StaticModel) Pair(a, b models.Leg) models.CorrelationPair {
	rel := Classify(a.Prop, b.Prop)
	coef := m.Coefficient(rel)
	if coef != 0 && a.IsUnder() != b.IsUnder() {
		coef = -coef
	}
	return models.CorrelationPair{
		A:            a.Key(),
		B:            b.Key(),
		Coefficient:  coef,
		Relationship: rel,
	}
}

// Coefficient returns the same-direction coefficient for a relationship.
func (m *StaticModel) Coefficient(rel models.Relationship) float64 {
	if c, ok := m.overrides[rel]; ok {
		return c
	}
	if r, ok := m.ranges[rel]; ok {
		return r.Midpoint()
	}
	return 0
}

// Classify determines how two props are related.
func Classify(a, b models.Prop) models.Relationship {
	if a.Game != b.Game {
		return models.RelDifferentGames
	}
	if a.Key().Player == b.Key().Player {
		return models.RelSamePlayer
	}
	if a.Team == "" || b.Team == "" || a.Team != b.Team {
		return models.RelOpposingSameGame
	}

	ra, rb := a.Role(), b.Role()
	switch {
	case ra == models.PositionQB && rb.IsPassCatcher(), rb == models.PositionQB && ra.IsPassCatcher():
		return models.RelQBPassCatcher
	case ra == models.PositionQB && rb == models.PositionRB, rb == models.PositionQB && ra == models.PositionRB:
		return models.RelRBOwnQB
	default:
		return models.RelSameTeamUnrelated
	}
}

// Pairs evaluates the model over every unordered pair of legs.
func Pairs(model Model, legs []models.Leg) []models.CorrelationPair {
	pairs := make([]models.CorrelationPair, 0, len(legs)*(len(legs)-1)/2)
	for i := 0; i < len(legs); i++ {
		for j := i + 1; j < len(legs); j++ {
			pairs = append(pairs, model.Pair(legs[i], legs[j]))
		}
	}
	return pairs
}
