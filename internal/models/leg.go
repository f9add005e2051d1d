package models

import (
	"encoding/json"

	"github.com/yourusername/parlay-edge/internal/odds"
)

// Verdict is the outcome of scoring a leg.
type Verdict string

// Leg verdicts
const (
	VerdictAccepted Verdict = "accepted"
	VerdictRejected Verdict = "rejected"
)

// RejectReason explains why a leg was rejected.
type RejectReason string

// Rejection reasons, in rule order
const (
	ReasonNone             RejectReason = ""
	ReasonInvalidOdds      RejectReason = "invalid_odds"
	ReasonInsufficientData RejectReason = "insufficient_data"
	ReasonInjuryOut        RejectReason = "injury_out"
	ReasonEdgeBelowMinimum RejectReason = "edge_below_minimum"
	ReasonJuiceExceeded    RejectReason = "juice_exceeded"
)

// Leg is a prop paired with its scored probabilities and verdict.
type Leg struct {
	Prop
	TrueProbability    float64      `json:"true_probability"`
	ImpliedProbability float64      `json:"implied_probability"`
	NoVigProbability   float64      `json:"no_vig_probability,omitempty"` // Set when the book quotes both sides
	Overround          float64      `json:"overround,omitempty"`
	Verdict            Verdict      `json:"verdict"`
	Reason             RejectReason `json:"reason,omitempty"`
	Detail             string       `json:"detail,omitempty"`
}

// Edge is always derived from the stored probabilities.
func (l Leg) Edge() float64 {
	return l.TrueProbability - l.ImpliedProbability
}

// EV is the expected value of a $100 single bet on the leg at its true probability.
// Legs with unusable odds report zero.
func (l Leg) EV() float64 {
	ev, err := odds.ExpectedValue(l.TrueProbability, l.Odds)
	if err != nil {
		return 0
	}
	return ev
}

// Accepted reports whether the leg passed every scoring rule.
func (l Leg) Accepted() bool {
	return l.Verdict == VerdictAccepted
}

// MarshalJSON adds the derived edge to the serialized leg.
func (l Leg) MarshalJSON() ([]byte, error) {
	type plain Leg
	return json.Marshal(struct {
		plain
		Edge float64 `json:"edge"`
		EV   float64 `json:"ev"`
	}{plain: plain(l), Edge: l.Edge(), EV: l.EV()})
}

// AcceptedLegs filters the accepted legs, preserving order.
func AcceptedLegs(legs []Leg) []Leg {
	accepted := make([]Leg, 0, len(legs))
	for _, leg := range legs {
		if leg.Accepted() {
			accepted = append(accepted, leg)
		}
	}
	return accepted
}
