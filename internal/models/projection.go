package models

import "strings"

// InjuryStatus is a player's game-status designation.
type InjuryStatus string

// Injury designations
const (
	InjuryActive       InjuryStatus = "active"
	InjuryQuestionable InjuryStatus = "questionable"
	InjuryDoubtful     InjuryStatus = "doubtful"
	InjuryOut          InjuryStatus = "out"
)

// Normalize lower-cases the status and maps an empty value to active.
func (s InjuryStatus) Normalize() InjuryStatus {
	n := InjuryStatus(strings.ToLower(strings.TrimSpace(string(s))))
	if n == "" || n == "healthy" {
		return InjuryActive
	}
	return n
}

// IsOut reports whether the player will not play.
func (s InjuryStatus) IsOut() bool {
	return s.Normalize() == InjuryOut
}

// IsUncertain reports whether the player's participation is in doubt.
func (s InjuryStatus) IsUncertain() bool {
	n := s.Normalize()
	return n == InjuryQuestionable || n == InjuryDoubtful
}

// Projection is a player's expected statistical output for one market.
type Projection struct {
	Player   string       `json:"player" validate:"required"`
	PlayerID string       `json:"player_id,omitempty"`
	Market   Market       `json:"market" validate:"required"`
	Mean     float64      `json:"mean"`
	StdDev   float64      `json:"std_dev,omitempty"`
	Rate     float64      `json:"rate,omitempty"`
	Touches  float64      `json:"touches,omitempty"`
	TDRate   float64      `json:"td_rate,omitempty"`
	Injury   InjuryStatus `json:"injury,omitempty"`
	WindMPH  float64      `json:"wind_mph,omitempty"`
}

// Key returns the (player, market) identity the projection applies to.
func (p Projection) Key() LegKey {
	ref := p.PlayerID
	if ref == "" {
		ref = p.Player
	}
	return LegKey{Player: ref, Market: p.Market}
}

// CountRate returns the Poisson rate, falling back to the mean.
func (p Projection) CountRate() float64 {
	if p.Rate > 0 {
		return p.Rate
	}
	return p.Mean
}

// TouchdownRate returns λ for the anytime-TD market: the explicit rate, or touches x scoring rate.
func (p Projection) TouchdownRate() float64 {
	if p.Rate > 0 {
		return p.Rate
	}
	if p.Touches > 0 && p.TDRate > 0 {
		return p.Touches * p.TDRate
	}
	return p.Mean
}

// IndexProjections builds a lookup by (player, market).
func IndexProjections(projections []Projection) map[LegKey]Projection {
	index := make(map[LegKey]Projection, len(projections))
	for _, p := range projections {
		index[p.Key()] = p
	}
	return index
}
