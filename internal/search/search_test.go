package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/parlay-edge/internal/models"
)

func accepted(player string, pos models.Position, market models.Market, team, game string, p float64, odds int) models.Leg {
	return models.Leg{
		Prop: models.Prop{
			Player: player, Position: pos, Market: market, Direction: models.DirectionOver,
			Line: 0.5, Odds: odds, Team: team, Game: game, Book: "draftkings",
		},
		TrueProbability:    p,
		ImpliedProbability: 0.52,
		Verdict:            models.VerdictAccepted,
	}
}

func slate() []models.Leg {
	return []models.Leg{
		accepted("Josh Allen", models.PositionQB, models.MarketPassYards, "BUF", "BUF@MIA", 0.62, -110),
		accepted("Stefon Diggs", models.PositionWR, models.MarketRecYards, "BUF", "BUF@MIA", 0.60, -115),
		accepted("Dawson Knox", models.PositionTE, models.MarketReceptions, "BUF", "BUF@MIA", 0.58, 105),
		accepted("James Cook", models.PositionRB, models.MarketRushYards, "BUF", "BUF@MIA", 0.57, -105),
		accepted("Tyreek Hill", models.PositionWR, models.MarketRecYards, "MIA", "BUF@MIA", 0.61, -120),
		accepted("Patrick Mahomes", models.PositionQB, models.MarketPassYards, "KC", "KC@LV", 0.63, -110),
		accepted("Travis Kelce", models.PositionTE, models.MarketRecYards, "KC", "KC@LV", 0.60, -110),
		accepted("Rashee Rice", models.PositionWR, models.MarketReceptions, "KC", "KC@LV", 0.59, 100),
	}
}

func newSearcher(t *testing.T, cfg Config) *Searcher {
	t.Helper()
	s, err := NewSearcher(cfg, nil)
	require.NoError(t, err)
	return s
}

func TestBuildParlaysInvariants(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TopN = 50
	s := newSearcher(t, cfg)

	result, err := s.BuildParlays(context.Background(), slate())
	require.NoError(t, err)
	require.Equal(t, StatusOK, result.Status)
	require.NotEmpty(t, result.Parlays)
	assert.LessOrEqual(t, len(result.Parlays), cfg.TopN)
	assert.Equal(t, 8, result.AcceptedLegs)
	assert.Positive(t, result.CombinationsEvaluated)

	for i, p := range result.Parlays {
		assert.GreaterOrEqual(t, p.Size(), 3)
		assert.LessOrEqual(t, p.Size(), 4)
		assert.GreaterOrEqual(t, p.JointHitProbability, cfg.Floor(p.Size()))

		keys := make(map[models.LegKey]bool)
		for _, leg := range p.Legs {
			assert.False(t, keys[leg.Key()], "duplicate leg %s", leg.Key())
			keys[leg.Key()] = true
		}
		if i > 0 {
			prev := result.Parlays[i-1]
			assert.False(t, !prev.SameGame && p.SameGame, "same-game parlay ranked after cross-game")
			if prev.SameGame == p.SameGame {
				assert.GreaterOrEqual(t, prev.EV, p.EV)
			}
		}
	}
}

func TestTopNDefault(t *testing.T) {
	s := newSearcher(t, DefaultConfig())

	result, err := s.BuildParlays(context.Background(), slate())
	require.NoError(t, err)
	assert.Len(t, result.Parlays, 3)
	assert.Greater(t, result.Qualifying, 3)
}

func TestNoQualifyingParlayIsNotAnError(t *testing.T) {
	s := newSearcher(t, DefaultConfig())

	result, err := s.BuildParlays(context.Background(), slate()[:2])
	require.NoError(t, err)
	assert.Equal(t, StatusNoQualifyingParlay, result.Status)
	assert.Empty(t, result.Parlays)
	assert.NotEmpty(t, result.Message)
}

func TestFloorsDiscardIndependentCoinFlips(t *testing.T) {
	var legs []models.Leg
	for i := 0; i < 5; i++ {
		game := fmt.Sprintf("G%d", i)
		legs = append(legs, accepted(fmt.Sprintf("P%d", i), models.PositionWR, models.MarketRecYards, "T", game, 0.5, 120))
	}
	s := newSearcher(t, DefaultConfig())

	result, err := s.BuildParlays(context.Background(), legs)
	require.NoError(t, err)
	// 0.5^3 = 0.125 < 0.18 and 0.5^4 = 0.0625 < 0.12
	assert.Equal(t, StatusNoQualifyingParlay, result.Status)
	assert.Equal(t, 10+5, result.CombinationsEvaluated)
}

func TestRejectedLegsIgnored(t *testing.T) {
	legs := slate()
	for i := range legs {
		legs[i].Verdict = models.VerdictRejected
	}
	s := newSearcher(t, DefaultConfig())

	result, err := s.BuildParlays(context.Background(), legs)
	require.NoError(t, err)
	assert.Zero(t, result.AcceptedLegs)
	assert.Equal(t, StatusNoQualifyingParlay, result.Status)
}

func TestSameKeyFromTwoBooksNeverCombined(t *testing.T) {
	legs := slate()
	alt := legs[0]
	alt.Book = "fanduel"
	alt.Odds = -105
	legs = append(legs, alt)

	cfg := DefaultConfig()
	cfg.TopN = 100
	s := newSearcher(t, cfg)

	result, err := s.BuildParlays(context.Background(), legs)
	require.NoError(t, err)
	for _, p := range result.Parlays {
		seen := make(map[models.LegKey]bool)
		for _, leg := range p.Legs {
			require.False(t, seen[leg.Key()])
			seen[leg.Key()] = true
		}
	}
}

func TestCrossGameToggle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TopN = 100
	cfg.IncludeCrossGame = false
	s := newSearcher(t, cfg)

	result, err := s.BuildParlays(context.Background(), slate())
	require.NoError(t, err)
	for _, p := range result.Parlays {
		assert.True(t, p.SameGame)
	}

	cfg.IncludeCrossGame = true
	s = newSearcher(t, cfg)
	withCross, err := s.BuildParlays(context.Background(), slate())
	require.NoError(t, err)
	assert.Greater(t, withCross.CombinationsEvaluated, result.CombinationsEvaluated)
}

func TestDeterministicAcrossWorkers(t *testing.T) {
	seq := DefaultConfig()
	seq.Workers = 1
	seq.TopN = 20
	par := seq
	par.Workers = 8

	a, err := newSearcher(t, seq).BuildParlays(context.Background(), slate())
	require.NoError(t, err)
	b, err := newSearcher(t, par).BuildParlays(context.Background(), slate())
	require.NoError(t, err)

	require.Equal(t, len(a.Parlays), len(b.Parlays))
	for i := range a.Parlays {
		assert.Equal(t, a.Parlays[i].Signature(), b.Parlays[i].Signature())
		assert.Equal(t, a.Parlays[i].ID, b.Parlays[i].ID)
	}
	assert.Equal(t, a.CombinationsEvaluated, b.CombinationsEvaluated)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newSearcher(t, DefaultConfig()).BuildParlays(ctx, slate())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRankTieBreaks(t *testing.T) {
	parlays := []models.Parlay{
		{EV: 10, JointHitProbability: 0.2, CorrelationRisk: models.RiskHigh},
		{EV: 10, JointHitProbability: 0.2, CorrelationRisk: models.RiskLow},
		{EV: 10, JointHitProbability: 0.3, CorrelationRisk: models.RiskHigh},
		{EV: 12, JointHitProbability: 0.1, CorrelationRisk: models.RiskHigh},
	}
	Rank(parlays)

	assert.Equal(t, 12.0, parlays[0].EV)
	assert.Equal(t, 0.3, parlays[1].JointHitProbability)
	assert.Equal(t, models.RiskLow, parlays[2].CorrelationRisk)
	assert.Equal(t, models.RiskHigh, parlays[3].CorrelationRisk)
}

func TestCrossGameOnlyFillsRemainingSlots(t *testing.T) {
	legs := []models.Leg{
		accepted("Josh Allen", models.PositionQB, models.MarketPassYards, "BUF", "BUF@MIA", 0.70, -110),
		accepted("James Cook", models.PositionRB, models.MarketRushYards, "BUF", "BUF@MIA", 0.70, -110),
		accepted("Tyreek Hill", models.PositionWR, models.MarketRecYards, "MIA", "BUF@MIA", 0.70, -110),
		accepted("Patrick Mahomes", models.PositionQB, models.MarketPassYards, "KC", "KC@LV", 0.70, 150),
		accepted("Jalen Hurts", models.PositionQB, models.MarketPassYards, "PHI", "PHI@DAL", 0.70, 150),
		accepted("Brock Purdy", models.PositionQB, models.MarketPassYards, "SF", "SF@SEA", 0.70, 150),
	}

	cfg := DefaultConfig()
	cfg.TopN = 1
	result, err := newSearcher(t, cfg).BuildParlays(context.Background(), legs)
	require.NoError(t, err)
	require.Len(t, result.Parlays, 1)
	assert.True(t, result.Parlays[0].SameGame)
	assert.Greater(t, result.Qualifying, 1)

	cfg.TopN = 50
	all, err := newSearcher(t, cfg).BuildParlays(context.Background(), legs)
	require.NoError(t, err)
	require.Greater(t, len(all.Parlays), 1)
	assert.True(t, all.Parlays[0].SameGame)
	best := all.Parlays[0].EV
	for _, p := range all.Parlays[1:] {
		assert.False(t, p.SameGame)
		assert.Greater(t, p.EV, best, "cross-game parlays here pay more but rank lower")
	}
}

func TestRankPutsSameGameFirst(t *testing.T) {
	parlays := []models.Parlay{
		{EV: 50, JointHitProbability: 0.3, SameGame: false},
		{EV: 5, JointHitProbability: 0.3, SameGame: true},
		{EV: 8, JointHitProbability: 0.3, SameGame: true},
	}
	Rank(parlays)

	assert.Equal(t, 8.0, parlays[0].EV)
	assert.Equal(t, 5.0, parlays[1].EV)
	assert.Equal(t, 50.0, parlays[2].EV)
}

func TestInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLegs = 5
	_, err := NewSearcher(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.MinLegs = 4
	cfg.MaxLegs = 3
	_, err = NewSearcher(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCombinations(t *testing.T) {
	var got [][]int
	combinations(4, 3, func(idx []int) bool {
		got = append(got, append([]int(nil), idx...))
		return true
	})
	assert.Equal(t, [][]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}}, got)
}
