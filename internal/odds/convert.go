// Package odds converts American odds to probabilities and payouts.
package odds

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidOdds is returned for zero odds or odds with magnitude under 100.
var ErrInvalidOdds = errors.New("invalid american odds")

// Validate checks that odds are a legal American price.
func Validate(american int) error {
	if american == 0 || abs(american) < 100 {
		return fmt.Errorf("%w: %d", ErrInvalidOdds, american)
	}
	return nil
}

// ImpliedProbability converts American odds to implied probability
// Example: -150 → 0.6 (60%), +150 → 0.4 (40%)
func ImpliedProbability(american int) (float64, error) {
	if err := Validate(american); err != nil {
		return 0, err
	}
	if american > 0 {
		// Underdog: probability = 100 / (odds + 100)
		return 100.0 / (float64(american) + 100.0), nil
	}
	// Favorite: probability = |odds| / (|odds| + 100)
	a := float64(abs(american))
	return a / (a + 100.0), nil
}

// PayoutMultiplier returns profit per $1 staked: +150 → 1.5, -200 → 0.5.
func PayoutMultiplier(american int) (float64, error) {
	if err := Validate(american); err != nil {
		return 0, err
	}
	if american > 0 {
		return float64(american) / 100.0, nil
	}
	return 100.0 / float64(abs(american)), nil
}

// DecimalMultiplier returns total return per $1 staked, stake included.
func DecimalMultiplier(american int) (float64, error) {
	profit, err := PayoutMultiplier(american)
	if err != nil {
		return 0, err
	}
	return 1 + profit, nil
}

// ExpectedValue returns the EV of a $100 stake at the given win probability:
// p × payout × 100 − (1 − p) × 100.
func ExpectedValue(probability float64, american int) (float64, error) {
	profit, err := PayoutMultiplier(american)
	if err != nil {
		return 0, err
	}
	return probability*profit*100 - (1-probability)*100, nil
}

// FairAmericanOdds returns the zero-vig American price for a probability.
// Probabilities at or above 0.5 produce negative (favorite) prices.
func FairAmericanOdds(probability float64) (int, error) {
	if probability <= 0 || probability >= 1 || math.IsNaN(probability) {
		return 0, fmt.Errorf("%w: probability %.4f has no price", ErrInvalidOdds, probability)
	}
	if probability >= 0.5 {
		return -int(math.Round(100 * probability / (1 - probability))), nil
	}
	return int(math.Round(100 * (1 - probability) / probability)), nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// AmericanFromDecimal converts a decimal multiplier (stake included) to an American price.
func AmericanFromDecimal(multiplier float64) (int, error) {
	if multiplier <= 1 || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		return 0, fmt.Errorf("%w: decimal multiplier %.4f", ErrInvalidOdds, multiplier)
	}
	if multiplier >= 2 {
		return int(math.Round((multiplier - 1) * 100)), nil
	}
	return -int(math.Round(100 / (multiplier - 1))), nil
}
