package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/parlay-edge/internal/engine"
	"github.com/yourusername/parlay-edge/internal/models"
	"github.com/yourusername/parlay-edge/internal/provider"
)

var (
	scorePropsFile       string
	scoreProjectionsFile string
	scoreJSON            bool
	scoreAcceptedOnly    bool
)

func init() {
	scoreCmd.Flags().StringVar(&scorePropsFile, "props", "", "Props JSON file, as written by `parlayctl props`")
	scoreCmd.Flags().StringVar(&scoreProjectionsFile, "projections", "", "Projections JSON file (default from config)")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "Print scored legs as JSON")
	scoreCmd.Flags().BoolVar(&scoreAcceptedOnly, "accepted", false, "Only print accepted legs")
	_ = scoreCmd.MarkFlagRequired("props")
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score props against projections and report accepted and rejected legs",
	RunE: func(cmd *cobra.Command, args []string) error {
		props, err := provider.LoadProps(scorePropsFile)
		if err != nil {
			return err
		}
		projections, err := provider.LoadProjections(projectionsPath(scoreProjectionsFile))
		if err != nil {
			return err
		}

		legs := engine.New(log).ScoreLegs(props, projections, cfg.Engine.ToEngineConfig())
		if scoreAcceptedOnly {
			accepted := legs[:0]
			for _, leg := range legs {
				if leg.Accepted() {
					accepted = append(accepted, leg)
				}
			}
			legs = accepted
		}

		if scoreJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(legs)
		}
		return printLegs(cmd.OutOrStdout(), legs)
	},
}

func printLegs(out io.Writer, legs []models.Leg) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERDICT\tPROP\tTRUE P\tIMPLIED\tEDGE\tREASON")
	for _, leg := range legs {
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%.3f\t%+.3f\t%s\n",
			leg.Verdict, leg.Prop.String(), leg.TrueProbability, leg.ImpliedProbability, leg.Edge(), leg.Reason)
	}
	return w.Flush()
}

func projectionsPath(flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Provider.ProjectionsPath
}
