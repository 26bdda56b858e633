// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-service/internal/app"
)

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "List the depth tiers requests can name",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ts, err := app.NewTiers(cfg.Research)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "%-12s  %-16s  %5s  %7s  %9s\n", "Tier", "Report", "Depth", "Breadth", "Min words")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 57))
		for _, t := range ts.All() {
			fmt.Fprintf(os.Stdout, "%-12s  %-16s  %5d  %7d  %9d\n", t.Name, t.ReportType, t.Depth, t.Breadth, t.MinWords)
		}
		if cfg.Research.MaxDepthTier != "" {
			fmt.Fprintf(os.Stdout, "\nDeeper tiers are capped at %q.\n", cfg.Research.MaxDepthTier)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tiersCmd)
}
