// Package search enumerates 3- and 4-leg combinations of accepted legs and
// returns the highest-EV parlays that clear the joint-hit floors.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/parlay-edge/internal/models"
	"github.com/yourusername/parlay-edge/internal/parlay"
)

// ErrInvalidConfig is returned when leg bounds or floors are unusable.
var ErrInvalidConfig = errors.New("invalid search config")

// Status describes the outcome of a search.
type Status string

// Search statuses
const (
	StatusOK                 Status = "ok"
	StatusNoQualifyingParlay Status = "no_qualifying_parlay"
)

// Config holds search bounds and floors
type Config struct {
	MinLegs          int
	MaxLegs          int
	JointHitFloor3   float64
	JointHitFloor4   float64
	TopN             int
	MaxPoolPerGame   int  // Legs kept per game after ranking by edge
	IncludeCrossGame bool // Also search combinations spanning several games
	MaxCrossGamePool int  // Legs kept for the cross-game pass
	Workers          int  // Games searched concurrently
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		MinLegs:          parlay.MinLegs,
		MaxLegs:          parlay.MaxLegs,
		JointHitFloor3:   0.18,
		JointHitFloor4:   0.12,
		TopN:             3,
		MaxPoolPerGame:   20,
		IncludeCrossGame: true,
		MaxCrossGamePool: 12,
		Workers:          4,
	}
}

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	if c.MinLegs < parlay.MinLegs || c.MaxLegs > parlay.MaxLegs || c.MinLegs > c.MaxLegs {
		return fmt.Errorf("%w: legs %d..%d outside %d..%d", ErrInvalidConfig, c.MinLegs, c.MaxLegs, parlay.MinLegs, parlay.MaxLegs)
	}
	if c.JointHitFloor3 < 0 || c.JointHitFloor3 >= 1 || c.JointHitFloor4 < 0 || c.JointHitFloor4 >= 1 {
		return fmt.Errorf("%w: floors must be in [0, 1)", ErrInvalidConfig)
	}
	if c.TopN < 1 {
		return fmt.Errorf("%w: top_n %d", ErrInvalidConfig, c.TopN)
	}
	return nil
}

// Floor returns the minimum joint hit probability for a parlay size.
func (c Config) Floor(size int) float64 {
	if size >= 4 {
		return c.JointHitFloor4
	}
	return c.JointHitFloor3
}

// Result is the outcome of one search.
type Result struct {
	Parlays               []models.Parlay `json:"parlays"`
	Status                Status          `json:"status"`
	Message               string          `json:"message,omitempty"`
	AcceptedLegs          int             `json:"accepted_legs"`
	CombinationsEvaluated int             `json:"combinations_evaluated"`
	Qualifying            int             `json:"qualifying"`
}

// Searcher runs bounded exhaustive parlay searches.
type Searcher struct {
	cfg      Config
	combiner *parlay.Combiner
}

// NewSearcher creates a searcher. A nil combiner uses the default correlation
// model and joint estimator.
func NewSearcher(cfg Config, combiner *parlay.Combiner) (*Searcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if combiner == nil {
		combiner = parlay.NewCombiner(nil, nil)
	}
	return &Searcher{cfg: cfg, combiner: combiner}, nil
}

type passResult struct {
	parlays   []models.Parlay
	evaluated int
}

// BuildParlays searches the accepted legs and returns the top-N parlays.
// Rejected legs in the input are ignored.
func (s *Searcher) BuildParlays(ctx context.Context, legs []models.Leg) (Result, error) {
	accepted := models.AcceptedLegs(legs)
	games := partition(accepted)

	names := make([]string, 0, len(games))
	for game := range games {
		names = append(names, game)
	}
	sort.Strings(names)

	passes := make([]passResult, len(names)+1)

	g, gctx := errgroup.WithContext(ctx)
	if s.cfg.Workers > 0 {
		g.SetLimit(s.cfg.Workers)
	}
	for i, game := range names {
		i, pool := i, topByEdge(games[game], s.cfg.MaxPoolPerGame)
		g.Go(func() error {
			res, err := s.enumerate(gctx, pool, false)
			passes[i] = res
			return err
		})
	}
	if s.cfg.IncludeCrossGame && len(names) > 1 {
		pool := topByEdge(accepted, s.cfg.MaxCrossGamePool)
		g.Go(func() error {
			res, err := s.enumerate(gctx, pool, true)
			passes[len(names)] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	result := Result{AcceptedLegs: len(accepted)}
	var candidates []models.Parlay
	for _, pass := range passes {
		candidates = append(candidates, pass.parlays...)
		result.CombinationsEvaluated += pass.evaluated
	}
	Rank(candidates)
	result.Qualifying = len(candidates)

	if len(candidates) > s.cfg.TopN {
		candidates = candidates[:s.cfg.TopN]
	}
	result.Parlays = candidates
	if len(candidates) == 0 {
		result.Status = StatusNoQualifyingParlay
		result.Message = fmt.Sprintf("no parlay of %d-%d legs from %d accepted legs cleared the joint hit floors (%.2f / %.2f)",
			s.cfg.MinLegs, s.cfg.MaxLegs, len(accepted), s.cfg.JointHitFloor3, s.cfg.JointHitFloor4)
		return result, nil
	}
	result.Status = StatusOK
	return result, nil
}

// enumerate scores every combination of the pool. With crossGame set, only
// combinations spanning more than one game are kept.
func (s *Searcher) enumerate(ctx context.Context, pool []models.Leg, crossGame bool) (passResult, error) {
	var res passResult
	for size := s.cfg.MinLegs; size <= s.cfg.MaxLegs; size++ {
		var err error
		combinations(len(pool), size, func(idx []int) bool {
			if err = ctx.Err(); err != nil {
				return false
			}
			legs := make([]models.Leg, size)
			keys := make(map[models.LegKey]struct{}, size)
			games := make(map[string]struct{}, size)
			for i, n := range idx {
				legs[i] = pool[n]
				keys[pool[n].Key()] = struct{}{}
				games[pool[n].Game] = struct{}{}
			}
			if len(keys) < size || (crossGame && len(games) < 2) {
				return true
			}

			res.evaluated++
			p, cerr := s.combiner.Combine(legs)
			if cerr != nil {
				err = fmt.Errorf("combine %d legs: %w", size, cerr)
				return false
			}
			if p.JointHitProbability >= s.cfg.Floor(size) {
				res.parlays = append(res.parlays, p)
			}
			return true
		})
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// Rank sorts parlays best first. Same-game parlays always precede cross-game
// ones, so cross-game results only fill the slots left over. Within each group
// the order is EV, then joint hit probability, then lower correlation risk,
// then leg signature.
func Rank(parlays []models.Parlay) {
	sort.SliceStable(parlays, func(i, j int) bool {
		a, b := parlays[i], parlays[j]
		if a.SameGame != b.SameGame {
			return a.SameGame
		}
		if a.EV != b.EV {
			return a.EV > b.EV
		}
		if a.JointHitProbability != b.JointHitProbability {
			return a.JointHitProbability > b.JointHitProbability
		}
		if ra, rb := a.CorrelationRisk.Rank(), b.CorrelationRisk.Rank(); ra != rb {
			return ra < rb
		}
		return a.Signature() < b.Signature()
	})
}

func partition(legs []models.Leg) map[string][]models.Leg {
	games := make(map[string][]models.Leg)
	for _, leg := range legs {
		games[leg.Game] = append(games[leg.Game], leg)
	}
	return games
}

// topByEdge ranks legs by edge, breaking ties by key, and keeps at most limit.
func topByEdge(legs []models.Leg, limit int) []models.Leg {
	ranked := append([]models.Leg(nil), legs...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ei, ej := ranked[i].Edge(), ranked[j].Edge(); ei != ej {
			return ei > ej
		}
		ki, kj := ranked[i].Key().String(), ranked[j].Key().String()
		if ki != kj {
			return ki < kj
		}
		return ranked[i].Direction < ranked[j].Direction
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// combinations calls visit with each k-subset of 0..n-1 in lexicographic order
// until visit returns false.
func combinations(n, k int, visit func([]int) bool) {
	if k > n || k <= 0 {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		if !visit(idx) {
			return
		}
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
