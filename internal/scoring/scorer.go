// Package scoring turns props and projections into scored legs with verdicts.
package scoring

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/parlay-edge/internal/models"
	"github.com/yourusername/parlay-edge/internal/odds"
	"github.com/yourusername/parlay-edge/internal/probability"
)

const evTolerance = 1e-9

// Config holds leg acceptance thresholds
type Config struct {
	MinEdge     float64 // Minimum true-minus-implied probability (e.g., 0.03 = 3%)
	MaxJuice    int     // Most negative price accepted without positive EV (e.g., -180)
	Adjustments probability.Adjustments
	Workers     int // Props scored concurrently; <= 1 scores sequentially
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		MinEdge:     0.03,
		MaxJuice:    -180,
		Adjustments: probability.DefaultAdjustments(),
		Workers:     1,
	}
}

// Scorer applies the leg acceptance rules.
type Scorer struct {
	cfg       Config
	estimator *probability.Estimator
}

// NewScorer creates a scorer for one configuration.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{
		cfg:       cfg,
		estimator: probability.NewEstimator(cfg.Adjustments),
	}
}

// ScoreLegs scores every prop against its projection. The output has one leg per prop,
// in input order; per-leg failures become rejected legs and never abort the run.
func (s *Scorer) ScoreLegs(props []models.Prop, projections []models.Projection) []models.Leg {
	index := models.IndexProjections(projections)
	legs := make([]models.Leg, len(props))

	if s.cfg.Workers <= 1 || len(props) < 2 {
		for i, prop := range props {
			legs[i] = s.ScoreLeg(prop, lookup(index, prop))
		}
		PairMarkets(legs)
		return legs
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i := range props {
		i := i
		g.Go(func() error {
			legs[i] = s.ScoreLeg(props[i], lookup(index, props[i]))
			return nil
		})
	}
	_ = g.Wait()
	PairMarkets(legs)
	return legs
}

type marketKey struct {
	leg  models.LegKey
	line float64
	book string
}

// PairMarkets matches Over and Under quotes for the same player, market, line
// and book, and sets each side's no-vig probability and the market overround.
// Unpaired legs and legs with invalid odds are left untouched.
func PairMarkets(legs []models.Leg) {
	type sides struct{ over, under int }
	markets := make(map[marketKey]*sides)
	for i, leg := range legs {
		if leg.Direction != models.DirectionOver && leg.Direction != models.DirectionUnder {
			continue
		}
		k := marketKey{leg: leg.Key(), line: leg.Line, book: strings.ToLower(leg.Book)}
		m, ok := markets[k]
		if !ok {
			m = &sides{over: -1, under: -1}
			markets[k] = m
		}
		if leg.Direction == models.DirectionOver {
			m.over = i
		} else {
			m.under = i
		}
	}

	for _, m := range markets {
		if m.over < 0 || m.under < 0 {
			continue
		}
		over, under := &legs[m.over], &legs[m.under]
		pOver, pUnder, err := odds.RemoveVig(over.Odds, under.Odds)
		if err != nil {
			continue
		}
		margin, err := odds.Overround(over.Odds, under.Odds)
		if err != nil {
			continue
		}
		over.NoVigProbability, under.NoVigProbability = pOver, pUnder
		over.Overround, under.Overround = margin, margin
	}
}

// ScoreLeg applies, in order: odds validation, injury, projection, minimum edge, juice.
func (s *Scorer) ScoreLeg(prop models.Prop, proj *models.Projection) models.Leg {
	leg := models.Leg{Prop: prop}

	implied, err := odds.ImpliedProbability(prop.Odds)
	if err != nil {
		return reject(leg, models.ReasonInvalidOdds, err)
	}
	leg.ImpliedProbability = implied

	if proj != nil && proj.Injury.IsOut() {
		return reject(leg, models.ReasonInjuryOut, fmt.Errorf("%s ruled out", prop.Player))
	}

	p, err := s.estimator.Estimate(prop, proj)
	if err != nil {
		if errors.Is(err, probability.ErrPlayerOut) {
			return reject(leg, models.ReasonInjuryOut, err)
		}
		return reject(leg, models.ReasonInsufficientData, err)
	}
	leg.TrueProbability = p

	return s.Judge(leg)
}

// Judge applies the minimum-edge and juice rules to a leg whose probabilities are set.
func (s *Scorer) Judge(leg models.Leg) models.Leg {
	if leg.Edge() < s.cfg.MinEdge {
		return reject(leg, models.ReasonEdgeBelowMinimum,
			fmt.Errorf("edge %.4f below %.4f", leg.Edge(), s.cfg.MinEdge))
	}

	if leg.Odds < s.cfg.MaxJuice {
		ev, err := odds.ExpectedValue(leg.TrueProbability, leg.Odds)
		if err != nil {
			return reject(leg, models.ReasonInvalidOdds, err)
		}
		// EV within rounding noise of zero is not positive
		if ev <= evTolerance {
			return reject(leg, models.ReasonJuiceExceeded,
				fmt.Errorf("odds %d worse than %d with EV %.2f", leg.Odds, s.cfg.MaxJuice, ev))
		}
	}

	leg.Verdict = models.VerdictAccepted
	leg.Reason = models.ReasonNone
	leg.Detail = ""
	return leg
}

func reject(leg models.Leg, reason models.RejectReason, err error) models.Leg {
	leg.Verdict = models.VerdictRejected
	leg.Reason = reason
	if err != nil {
		leg.Detail = err.Error()
	}
	return leg
}

func lookup(index map[models.LegKey]models.Projection, prop models.Prop) *models.Projection {
	proj, ok := index[prop.Key()]
	if !ok {
		return nil
	}
	return &proj
}
