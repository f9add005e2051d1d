package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/parlay-edge/internal/provider"
)

var (
	propsDate  string
	propsBooks string
	propsOut   string
)

func init() {
	propsCmd.Flags().StringVar(&propsDate, "date", "", "Slate date (YYYY-MM-DD); empty for the provider's current slate")
	propsCmd.Flags().StringVar(&propsBooks, "books", "", "Comma-separated sportsbooks (default from config)")
	propsCmd.Flags().StringVarP(&propsOut, "out", "o", "", "Write props to this file instead of stdout")
}

var propsCmd = &cobra.Command{
	Use:   "props",
	Short: "Fetch and normalize player props from the odds provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := provider.NewClientFromConfig(cfg.Provider, log)

		ctx, cancel := withTimeout(cmd, 2*time.Minute)
		defer cancel()

		props, err := client.FetchProps(ctx, propsDate, splitBooks(propsBooks))
		if err != nil {
			return err
		}

		var out io.Writer = cmd.OutOrStdout()
		if propsOut != "" {
			f, err := os.Create(propsOut)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", propsOut, err)
			}
			defer f.Close()
			out = f
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(props); err != nil {
			return fmt.Errorf("failed to write props: %w", err)
		}

		log.WithField("props", len(props)).Info("Props fetched")
		return nil
	},
}

func splitBooks(raw string) []string {
	var books []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			books = append(books, b)
		}
	}
	return books
}
