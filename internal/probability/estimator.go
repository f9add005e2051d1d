// Package probability estimates the true probability that a player prop hits,
// given an external projection of the player's output.
//
// Yardage markets are modeled as Normal(μ, σ), touchdown and reception counts as
// Poisson(λ), and anytime touchdowns as 1 − e^(−λ). Injury and weather dampening
// is applied afterwards, in that order.
package probability

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/yourusername/parlay-edge/internal/models"
)

var (
	// ErrInsufficientData is returned when a projection is missing or its dispersion is not positive.
	ErrInsufficientData = errors.New("insufficient projection data")
	// ErrPlayerOut is returned for players ruled out; such legs are never estimated.
	ErrPlayerOut = errors.New("player ruled out")
)

// Clamp bounds keep estimates strictly inside (0, 1).
const (
	minProbability = 1e-6
	maxProbability = 1 - 1e-6
)

// Adjustments holds the post-estimate dampening factors.
type Adjustments struct {
	// QuestionableFade pulls a questionable player's probability toward 0.5 by this fraction.
	QuestionableFade float64 `json:"questionable_fade"`
	// WindThresholdMPH is the venue wind speed above which passing Overs are damped.
	WindThresholdMPH float64 `json:"wind_threshold_mph"`
	// WindDamping is the multiplicative reduction applied to passing Overs in high wind.
	WindDamping float64 `json:"wind_damping"`
}

// DefaultAdjustments returns the standard dampening factors.
func DefaultAdjustments() Adjustments {
	return Adjustments{
		QuestionableFade: 0.25,
		WindThresholdMPH: 15,
		WindDamping:      0.10,
	}
}

// Estimator maps a projection and a prop line to a true hit probability.
type Estimator struct {
	adj Adjustments
}

// NewEstimator creates an estimator with the given adjustments.
func NewEstimator(adj Adjustments) *Estimator {
	return &Estimator{adj: adj}
}

// Estimate returns the adjusted probability that the prop hits.
func (e *Estimator) Estimate(prop models.Prop, proj *models.Projection) (float64, error) {
	if proj == nil {
		return 0, fmt.Errorf("%w: no projection for %s", ErrInsufficientData, prop.Key())
	}
	if proj.Injury.IsOut() {
		return 0, fmt.Errorf("%w: %s", ErrPlayerOut, prop.Player)
	}

	p, err := RawProbability(prop, *proj)
	if err != nil {
		return 0, err
	}
	return e.adjust(p, prop, *proj), nil
}

// RawProbability is the distribution estimate before any adjustments.
func RawProbability(prop models.Prop, proj models.Projection) (float64, error) {
	switch {
	case prop.Market.IsContinuous():
		if proj.StdDev <= 0 {
			return 0, fmt.Errorf("%w: std dev %.3f for %s", ErrInsufficientData, proj.StdDev, prop.Key())
		}
		return NormalHit(prop.Line, proj.Mean, proj.StdDev, prop.Direction)
	case prop.Market.IsCount():
		lambda := proj.CountRate()
		if lambda <= 0 {
			return 0, fmt.Errorf("%w: rate %.3f for %s", ErrInsufficientData, lambda, prop.Key())
		}
		return PoissonHit(prop.Line, lambda, prop.Direction)
	case prop.Market == models.MarketAnytimeTD:
		lambda := proj.TouchdownRate()
		if lambda <= 0 {
			return 0, fmt.Errorf("%w: touchdown rate %.3f for %s", ErrInsufficientData, lambda, prop.Key())
		}
		return AnytimeTD(lambda), nil
	default:
		return 0, fmt.Errorf("%w: unsupported market %q", ErrInsufficientData, prop.Market)
	}
}

// NormalHit returns P(X > line) for Over and P(X < line) for Under with X ~ Normal(mean, sd).
func NormalHit(line, mean, sd float64, dir models.Direction) (float64, error) {
	dist := distuv.Normal{Mu: mean, Sigma: sd}
	below := dist.CDF(line)
	switch dir {
	case models.DirectionOver:
		return 1 - below, nil
	case models.DirectionUnder:
		return below, nil
	default:
		return 0, fmt.Errorf("%w: direction %q on a yardage market", ErrInsufficientData, dir)
	}
}

// PoissonHit returns the hit probability of a count line with X ~ Poisson(lambda).
// Over L hits on X > L; Under L hits on X < L. A whole-number line that lands exactly
// is a push and counts as a hit for neither side.
func PoissonHit(line, lambda float64, dir models.Direction) (float64, error) {
	dist := distuv.Poisson{Lambda: lambda}
	k := math.Floor(line)
	switch dir {
	case models.DirectionOver:
		// floor(1.5) = 1, so a half line needs no boundary correction
		return 1 - dist.CDF(k), nil
	case models.DirectionUnder:
		if k == line {
			return dist.CDF(k - 1), nil
		}
		return dist.CDF(k), nil
	default:
		return 0, fmt.Errorf("%w: direction %q on a count market", ErrInsufficientData, dir)
	}
}

// AnytimeTD returns 1 − e^(−λ): at least one touchdown with independent scoring chances.
func AnytimeTD(lambda float64) float64 {
	return 1 - math.Exp(-lambda)
}

func (e *Estimator) adjust(p float64, prop models.Prop, proj models.Projection) float64 {
	// (a) injury: questionable fades toward a coin flip
	if proj.Injury.IsUncertain() {
		p = 0.5 + (p-0.5)*(1-e.adj.QuestionableFade)
	}
	// (b) weather: high wind damps passing Overs only
	if proj.WindMPH > e.adj.WindThresholdMPH && prop.Market.IsPassing() && prop.Direction == models.DirectionOver {
		p *= 1 - e.adj.WindDamping
	}
	return Clamp(p)
}

// Clamp keeps a probability strictly inside (0, 1).
func Clamp(p float64) float64 {
	if math.IsNaN(p) {
		return minProbability
	}
	return math.Min(maxProbability, math.Max(minProbability, p))
}
