package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/yourusername/parlay-edge/internal/engine"
	"github.com/yourusername/parlay-edge/internal/models"
	"github.com/yourusername/parlay-edge/internal/parlay"
	"github.com/yourusername/parlay-edge/internal/provider"
	"github.com/yourusername/parlay-edge/internal/report"
)

var (
	buildPropsFile       string
	buildProjectionsFile string
	buildDate            string
	buildBooks           string
	buildTopN            int
	buildMinEdge         float64
	buildMethod          string
	buildStake           string
	buildFormat          string
)

func init() {
	buildCmd.Flags().StringVar(&buildPropsFile, "props", "", "Props JSON file; when empty props are fetched from the provider")
	buildCmd.Flags().StringVar(&buildProjectionsFile, "projections", "", "Projections JSON file (default from config)")
	buildCmd.Flags().StringVar(&buildDate, "date", "", "Slate date for live props (YYYY-MM-DD)")
	buildCmd.Flags().StringVar(&buildBooks, "books", "", "Comma-separated sportsbooks for live props")
	buildCmd.Flags().IntVar(&buildTopN, "top-n", 0, "Number of parlays to return (default from config)")
	buildCmd.Flags().Float64Var(&buildMinEdge, "min-edge", -1, "Minimum leg edge (default from config)")
	buildCmd.Flags().StringVar(&buildMethod, "method", "", "Joint estimator: pairwise or monte_carlo (default from config)")
	buildCmd.Flags().StringVar(&buildStake, "stake", "100", "Stake the dollar amounts are quoted at")
	buildCmd.Flags().StringVar(&buildFormat, "format", "console", "Output format: console, markdown or json")
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the top parlays from props and projections",
	RunE: func(cmd *cobra.Command, args []string) error {
		engineCfg, err := buildEngineConfig()
		if err != nil {
			return err
		}
		stake, err := decimal.NewFromString(buildStake)
		if err != nil || !stake.IsPositive() {
			return fmt.Errorf("invalid stake %q", buildStake)
		}

		ctx, cancel := withTimeout(cmd, 5*time.Minute)
		defer cancel()

		props, err := loadBuildProps(ctx)
		if err != nil {
			return err
		}
		projections, err := provider.LoadProjections(projectionsPath(buildProjectionsFile))
		if err != nil {
			return err
		}

		run, err := engine.New(log).Evaluate(ctx, props, projections, engineCfg)
		if err != nil {
			return err
		}
		summary := report.Summarize(uuid.New(), time.Now(), run.Result, stake)

		out := cmd.OutOrStdout()
		switch buildFormat {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		case "markdown":
			_, err = fmt.Fprint(out, report.GenerateMarkdownReport(summary))
		default:
			_, err = fmt.Fprint(out, report.GenerateConsoleReport(summary))
		}
		return err
	},
}

func buildEngineConfig() (engine.Config, error) {
	engineCfg := cfg.Engine.ToEngineConfig()
	if buildTopN > 0 {
		engineCfg.TopN = buildTopN
	}
	if buildMinEdge >= 0 {
		engineCfg.MinEdge = buildMinEdge
	}
	if buildMethod != "" {
		if buildMethod != parlay.JointPairwise && buildMethod != parlay.JointMonteCarlo {
			return engineCfg, fmt.Errorf("unknown joint method %q", buildMethod)
		}
		engineCfg.JointMethod = buildMethod
	}
	return engineCfg, nil
}

func loadBuildProps(ctx context.Context) ([]models.Prop, error) {
	if buildPropsFile != "" {
		return provider.LoadProps(buildPropsFile)
	}
	client := provider.NewClientFromConfig(cfg.Provider, log)
	return client.FetchProps(ctx, buildDate, splitBooks(buildBooks))
}

func withTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, d)
}
