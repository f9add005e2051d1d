// Package engine is the entry point to the selection engine: it scores props
// into legs and searches accepted legs for the best parlays, recording logs
// and metrics for each run.
package engine

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/parlay-edge/internal/correlation"
	"github.com/yourusername/parlay-edge/internal/logger"
	"github.com/yourusername/parlay-edge/internal/metrics"
	"github.com/yourusername/parlay-edge/internal/models"
	"github.com/yourusername/parlay-edge/internal/parlay"
	"github.com/yourusername/parlay-edge/internal/probability"
	"github.com/yourusername/parlay-edge/internal/scoring"
	"github.com/yourusername/parlay-edge/internal/search"
)

// Config carries every threshold of one engine run. It is passed by value so
// that concurrent runs with different settings never share state.
type Config struct {
	MinEdge        float64 `json:"min_edge"`
	MaxJuice       int     `json:"max_juice"`
	MinLegs        int     `json:"min_legs"`
	MaxLegs        int     `json:"max_legs"`
	JointHitFloor3 float64 `json:"joint_hit_floor_3"`
	JointHitFloor4 float64 `json:"joint_hit_floor_4"`
	TopN           int     `json:"top_n"`

	Adjustments probability.Adjustments `json:"adjustments"`

	MaxPoolPerGame   int  `json:"max_pool_per_game"`
	IncludeCrossGame bool `json:"include_cross_game"`
	MaxCrossGamePool int  `json:"max_cross_game_pool"`

	JointMethod          string                          `json:"joint_method"`
	MonteCarloSamples    int                             `json:"monte_carlo_samples,omitempty"`
	MonteCarloSeed       uint64                          `json:"monte_carlo_seed,omitempty"`
	CorrelationOverrides map[models.Relationship]float64 `json:"correlation_overrides,omitempty"`

	Workers int `json:"-"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		MinEdge:           0.03,
		MaxJuice:          -180,
		MinLegs:           parlay.MinLegs,
		MaxLegs:           parlay.MaxLegs,
		JointHitFloor3:    0.18,
		JointHitFloor4:    0.12,
		TopN:              3,
		Adjustments:       probability.DefaultAdjustments(),
		MaxPoolPerGame:    20,
		IncludeCrossGame:  true,
		MaxCrossGamePool:  12,
		JointMethod:       parlay.JointPairwise,
		MonteCarloSamples: parlay.DefaultSamples,
		MonteCarloSeed:    42,
		Workers:           4,
	}
}

// Scoring returns the leg scorer settings.
func (c Config) Scoring() scoring.Config {
	return scoring.Config{
		MinEdge:     c.MinEdge,
		MaxJuice:    c.MaxJuice,
		Adjustments: c.Adjustments,
		Workers:     c.Workers,
	}
}

// Search returns the parlay search settings.
func (c Config) Search() search.Config {
	return search.Config{
		MinLegs:          c.MinLegs,
		MaxLegs:          c.MaxLegs,
		JointHitFloor3:   c.JointHitFloor3,
		JointHitFloor4:   c.JointHitFloor4,
		TopN:             c.TopN,
		MaxPoolPerGame:   c.MaxPoolPerGame,
		IncludeCrossGame: c.IncludeCrossGame,
		MaxCrossGamePool: c.MaxCrossGamePool,
		Workers:          c.Workers,
	}
}

// Combiner builds the parlay combiner for this configuration.
func (c Config) Combiner() *parlay.Combiner {
	return parlay.NewCombiner(
		correlation.NewStaticModel(c.CorrelationOverrides),
		parlay.NewJointEstimator(c.JointMethod, c.MonteCarloSamples, c.MonteCarloSeed),
	)
}

// Engine runs scoring and search with logging and metrics.
type Engine struct {
	log *logger.EngineLogger
}

// New creates an engine that logs through the given logger.
func New(log *logrus.Logger) *Engine {
	return &Engine{log: logger.NewEngineLogger(log)}
}

// ScoreLegs scores each prop against its projection. One leg is returned per
// prop; malformed props become rejected legs.
func (e *Engine) ScoreLegs(props []models.Prop, projections []models.Projection, cfg Config) []models.Leg {
	start := time.Now()
	legs := scoring.NewScorer(cfg.Scoring()).ScoreLegs(props, projections)
	elapsed := time.Since(start)

	accepted := 0
	for _, leg := range legs {
		metrics.RecordLegScored(string(leg.Verdict), string(leg.Reason))
		if leg.Accepted() {
			accepted++
			continue
		}
		e.log.LogLegRejected(leg.Player, string(leg.Market), leg.Odds, leg.Edge(), string(leg.Reason), leg.Detail)
	}
	metrics.RecordScoringRun(accepted, elapsed.Seconds())
	e.log.LogScoringRun(len(legs), accepted, float64(elapsed.Microseconds())/1000)
	return legs
}

// BuildParlays searches the accepted legs for the top parlays.
func (e *Engine) BuildParlays(ctx context.Context, legs []models.Leg, cfg Config) (search.Result, error) {
	searcher, err := search.NewSearcher(cfg.Search(), cfg.Combiner())
	if err != nil {
		return search.Result{}, err
	}

	start := time.Now()
	result, err := searcher.BuildParlays(ctx, legs)
	if err != nil {
		return search.Result{}, err
	}
	elapsed := time.Since(start)

	metrics.RecordSearchRun(string(result.Status), result.CombinationsEvaluated, elapsed.Seconds())
	if result.Status == search.StatusNoQualifyingParlay {
		e.log.LogNoQualifyingParlay(result.AcceptedLegs, result.CombinationsEvaluated, result.Message)
		return result, nil
	}

	for _, p := range result.Parlays {
		metrics.RecordParlay(strconv.Itoa(p.Size()), string(p.CorrelationRisk), p.JointHitProbability)
	}
	best := result.Parlays[0].EV
	metrics.UpdateBestEV(best)
	e.log.LogSearchRun(result.AcceptedLegs, result.CombinationsEvaluated, result.Qualifying,
		len(result.Parlays), best, float64(elapsed.Microseconds())/1000)
	return result, nil
}

// Run is the output of scoring followed by search.
type Run struct {
	Legs   []models.Leg  `json:"legs"`
	Result search.Result `json:"result"`
}

// Evaluate scores props and builds parlays in one call.
func (e *Engine) Evaluate(ctx context.Context, props []models.Prop, projections []models.Projection, cfg Config) (Run, error) {
	legs := e.ScoreLegs(props, projections, cfg)
	result, err := e.BuildParlays(ctx, legs, cfg)
	if err != nil {
		return Run{}, err
	}
	return Run{Legs: legs, Result: result}, nil
}
