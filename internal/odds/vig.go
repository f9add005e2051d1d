package odds

// RemoveVig removes the vig/juice from a two-way market
// Returns the no-vig probabilities that sum to 1.0
//
// Method: Multiplicative vig removal (proportional)
// fairA = impliedA / (impliedA + impliedB)
func RemoveVig(overOdds, underOdds int) (float64, float64, error) {
	impliedA, err := ImpliedProbability(overOdds)
	if err != nil {
		return 0, 0, err
	}
	impliedB, err := ImpliedProbability(underOdds)
	if err != nil {
		return 0, 0, err
	}
	total := impliedA + impliedB
	return impliedA / total, impliedB / total, nil
}

// Overround returns the bookmaker margin of a two-way market (0.0476 for -110/-110).
func Overround(overOdds, underOdds int) (float64, error) {
	impliedA, err := ImpliedProbability(overOdds)
	if err != nil {
		return 0, err
	}
	impliedB, err := ImpliedProbability(underOdds)
	if err != nil {
		return 0, err
	}
	return impliedA + impliedB - 1, nil
}
