// Package report renders parlay recommendations for terminals, Markdown and subscribers.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourusername/parlay-edge/internal/models"
	"github.com/yourusername/parlay-edge/internal/odds"
	"github.com/yourusername/parlay-edge/internal/search"
)

// DefaultStake is the notional stake amounts are quoted against.
var DefaultStake = decimal.NewFromInt(100)

// LegSummary is one leg as shown on a bet slip.
type LegSummary struct {
	Description     string  `json:"description"`
	Player          string  `json:"player"`
	Market          string  `json:"market"`
	Direction       string  `json:"direction,omitempty"`
	Line            float64 `json:"line"`
	Odds            int     `json:"odds"`
	Book            string  `json:"book"`
	Game            string  `json:"game"`
	TrueProbability float64 `json:"true_probability"`
	NoVig           float64 `json:"no_vig_probability,omitempty"`
	Overround       float64 `json:"overround,omitempty"`
	Edge            float64 `json:"edge"`
}

// ParlaySummary is a ranked parlay with money amounts at a stake.
type ParlaySummary struct {
	Rank                int             `json:"rank"`
	ID                  uuid.UUID       `json:"id"`
	Legs                []LegSummary    `json:"legs"`
	JointHitProbability float64         `json:"joint_hit_probability"`
	PayoutMultiplier    float64         `json:"payout_multiplier"`
	BookOdds            int             `json:"book_odds"`
	FairOdds            int             `json:"fair_odds"`
	EV                  float64         `json:"ev"`
	Stake               decimal.Decimal `json:"stake"`
	ToWin               decimal.Decimal `json:"to_win"`
	ExpectedProfit      decimal.Decimal `json:"expected_profit"`
	CorrelationRisk     string          `json:"correlation_risk"`
	SameGame            bool            `json:"same_game"`
}

// Summary is a full recommendation run.
type Summary struct {
	RunID       uuid.UUID       `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Status      string          `json:"status"`
	Message     string          `json:"message,omitempty"`
	Accepted    int             `json:"accepted_legs"`
	Evaluated   int             `json:"combinations_evaluated"`
	Parlays     []ParlaySummary `json:"parlays"`
}

// Summarize converts a search result into a Summary quoted at stake.
func Summarize(runID uuid.UUID, generatedAt time.Time, result search.Result, stake decimal.Decimal) Summary {
	summary := Summary{
		RunID:       runID,
		GeneratedAt: generatedAt.UTC(),
		Status:      string(result.Status),
		Message:     result.Message,
		Accepted:    result.AcceptedLegs,
		Evaluated:   result.CombinationsEvaluated,
		Parlays:     make([]ParlaySummary, 0, len(result.Parlays)),
	}
	for i, p := range result.Parlays {
		summary.Parlays = append(summary.Parlays, SummarizeParlay(i+1, p, stake))
	}
	return summary
}

// SummarizeParlay prices one parlay at stake. EV is per $100, so the expected
// profit scales it by stake/100.
func SummarizeParlay(rank int, p models.Parlay, stake decimal.Decimal) ParlaySummary {
	bookOdds, _ := odds.AmericanFromDecimal(p.PayoutMultiplier)
	fairOdds, _ := odds.FairAmericanOdds(p.JointHitProbability)

	legs := make([]LegSummary, len(p.Legs))
	for i, leg := range p.Legs {
		legs[i] = LegSummary{
			Description:     leg.Prop.String(),
			Player:          leg.Player,
			Market:          string(leg.Market),
			Direction:       string(leg.Direction),
			Line:            leg.Line,
			Odds:            leg.Odds,
			Book:            leg.Book,
			Game:            leg.Game,
			TrueProbability: leg.TrueProbability,
			NoVig:           leg.NoVigProbability,
			Overround:       leg.Overround,
			Edge:            leg.Edge(),
		}
	}

	multiplier := decimal.NewFromFloat(p.PayoutMultiplier)
	return ParlaySummary{
		Rank:                rank,
		ID:                  p.ID,
		Legs:                legs,
		JointHitProbability: p.JointHitProbability,
		PayoutMultiplier:    p.PayoutMultiplier,
		BookOdds:            bookOdds,
		FairOdds:            fairOdds,
		EV:                  p.EV,
		Stake:               stake.Round(2),
		ToWin:               stake.Mul(multiplier.Sub(decimal.NewFromInt(1))).Round(2),
		ExpectedProfit:      stake.Mul(decimal.NewFromFloat(p.EV)).Div(decimal.NewFromInt(100)).Round(2),
		CorrelationRisk:     string(p.CorrelationRisk),
		SameGame:            p.SameGame,
	}
}

// GenerateConsoleReport formats a summary for terminal output
func GenerateConsoleReport(summary Summary) string {
	var builder strings.Builder
	builder.WriteString("Parlay Recommendations\n")
	builder.WriteString("======================\n")
	builder.WriteString(fmt.Sprintf("Run: %s (%s)\n", summary.RunID, summary.GeneratedAt.Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Accepted legs: %d, combinations evaluated: %d\n", summary.Accepted, summary.Evaluated))

	if len(summary.Parlays) == 0 {
		builder.WriteString(fmt.Sprintf("Status: %s\n", summary.Status))
		if summary.Message != "" {
			builder.WriteString(summary.Message + "\n")
		}
		return builder.String()
	}

	for _, p := range summary.Parlays {
		builder.WriteString("\n")
		builder.WriteString(fmt.Sprintf("#%d  %d legs  %s  risk %s\n", p.Rank, len(p.Legs), formatAmerican(p.BookOdds), p.CorrelationRisk))
		for _, leg := range p.Legs {
			builder.WriteString(fmt.Sprintf("  - %s  p=%.3f edge=%+.3f", leg.Description, leg.TrueProbability, leg.Edge))
			if leg.NoVig > 0 {
				builder.WriteString(fmt.Sprintf(" no-vig=%.3f hold=%.1f%%", leg.NoVig, leg.Overround*100))
			}
			builder.WriteString("\n")
		}
		builder.WriteString(fmt.Sprintf("  Joint hit: %.2f%% (fair %s)\n", p.JointHitProbability*100, formatAmerican(p.FairOdds)))
		builder.WriteString(fmt.Sprintf("  Stake $%s to win $%s, EV $%s\n", p.Stake.StringFixed(2), p.ToWin.StringFixed(2), p.ExpectedProfit.StringFixed(2)))
	}
	return builder.String()
}

// GenerateMarkdownReport renders the summary as a Markdown table.
func GenerateMarkdownReport(summary Summary) string {
	var builder strings.Builder
	builder.WriteString("# Parlay Recommendations\n\n")
	builder.WriteString(fmt.Sprintf("Generated %s. Status `%s`.\n\n", summary.GeneratedAt.Format(time.RFC3339), summary.Status))

	if len(summary.Parlays) == 0 {
		if summary.Message != "" {
			builder.WriteString(summary.Message + "\n")
		}
		return builder.String()
	}

	builder.WriteString("| # | Legs | Odds | Fair | Joint hit | To win | EV | Risk |\n")
	builder.WriteString("|---|------|------|------|-----------|--------|----|------|\n")
	for _, p := range summary.Parlays {
		descriptions := make([]string, len(p.Legs))
		for i, leg := range p.Legs {
			descriptions[i] = strings.ReplaceAll(leg.Description, "|", "/")
		}
		builder.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %.1f%% | $%s | $%s | %s |\n",
			p.Rank,
			strings.Join(descriptions, "<br>"),
			formatAmerican(p.BookOdds),
			formatAmerican(p.FairOdds),
			p.JointHitProbability*100,
			p.ToWin.StringFixed(2),
			p.ExpectedProfit.StringFixed(2),
			p.CorrelationRisk,
		))
	}
	return builder.String()
}

func formatAmerican(price int) string {
	if price == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%+d", price)
}
