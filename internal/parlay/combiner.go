// Package parlay combines accepted legs into a parlay with a correlated joint
// hit probability, payout, expected value and correlation risk label.
package parlay

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/yourusername/parlay-edge/internal/correlation"
	"github.com/yourusername/parlay-edge/internal/models"
	"github.com/yourusername/parlay-edge/internal/odds"
)

// ErrDegenerateParlay is returned for a leg count outside 3..4 or a repeated (player, market).
var ErrDegenerateParlay = errors.New("degenerate parlay")

// Allowed parlay sizes
const (
	MinLegs = 3
	MaxLegs = 4
)

// Risk label cut-offs on mean absolute correlation
const (
	lowRiskBelow    = 0.15
	mediumRiskBelow = 0.4
)

// parlayNamespace scopes deterministic parlay IDs derived from leg signatures.
var parlayNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("parlay-edge/parlay"))

// Combiner scores a fixed set of legs as one parlay.
type Combiner struct {
	model correlation.Model
	joint JointEstimator
}

// NewCombiner creates a combiner. Nil arguments select the static correlation
// table and the pairwise correction.
func NewCombiner(model correlation.Model, joint JointEstimator) *Combiner {
	if model == nil {
		model = correlation.NewStaticModel(nil)
	}
	if joint == nil {
		joint = PairwiseCorrection{}
	}
	return &Combiner{model: model, joint: joint}
}

// Combine builds the parlay for the given legs.
func (c *Combiner) Combine(legs []models.Leg) (models.Parlay, error) {
	k := len(legs)
	if k < MinLegs || k > MaxLegs {
		return models.Parlay{}, fmt.Errorf("%w: %d legs", ErrDegenerateParlay, k)
	}

	seen := make(map[models.LegKey]struct{}, k)
	game := legs[0].Game
	sameGame := true
	p := make([]float64, k)
	payout := 1.0
	for i, leg := range legs {
		key := leg.Key()
		if _, dup := seen[key]; dup {
			return models.Parlay{}, fmt.Errorf("%w: duplicate leg %s", ErrDegenerateParlay, key)
		}
		seen[key] = struct{}{}

		mult, err := odds.DecimalMultiplier(leg.Odds)
		if err != nil {
			return models.Parlay{}, fmt.Errorf("leg %s: %w", key, err)
		}
		payout *= mult
		p[i] = leg.TrueProbability
		if leg.Game != game {
			sameGame = false
		}
	}

	pairs := correlation.Pairs(c.model, legs)
	coefficients := make([]float64, len(pairs))
	absSum := 0.0
	for i, pair := range pairs {
		coefficients[i] = pair.Coefficient
		absSum += math.Abs(pair.Coefficient)
	}
	meanAbs := absSum / float64(len(pairs))

	independent := 1.0
	for _, pi := range p {
		independent *= pi
	}
	joint := c.joint.Joint(p, CorrelationMatrix(k, coefficients))

	parlay := models.Parlay{
		Legs:                   append([]models.Leg(nil), legs...),
		Pairs:                  pairs,
		IndependentProbability: independent,
		JointHitProbability:    joint,
		PayoutMultiplier:       payout,
		EV:                     ExpectedValue(joint, payout),
		MeanAbsCorrelation:     meanAbs,
		CorrelationRisk:        RiskFor(meanAbs),
		SameGame:               sameGame,
	}
	parlay.ID = uuid.NewSHA1(parlayNamespace, []byte(parlay.Signature()))
	return parlay, nil
}

// ExpectedValue returns the EV of a $100 stake on a parlay returning decimal
// multiplier `payout` (stake included): J·(payout−1)·100 − (1−J)·100.
func ExpectedValue(joint, payout float64) float64 {
	return joint*(payout-1)*100 - (1-joint)*100
}

// RiskFor maps mean absolute correlation to a label.
func RiskFor(meanAbs float64) models.RiskLabel {
	switch {
	case meanAbs < lowRiskBelow:
		return models.RiskLow
	case meanAbs < mediumRiskBelow:
		return models.RiskMedium
	default:
		return models.RiskHigh
	}
}
