// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-service/internal/app"
	"github.com/pdiddy/research-service/internal/events"
	"github.com/pdiddy/research-service/internal/research"
	"github.com/pdiddy/research-service/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Run one research pipeline and print the report",
	Long: `Run executes the full pipeline for a single query in the foreground.
Progress events are logged to stderr; the report (or the full result with
--format json|yaml) is written to stdout.`,
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	if query == "" && len(args) > 0 {
		query = args[0]
	}
	if query == "" {
		return fmt.Errorf("query required: pass --query or a positional argument")
	}
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "markdown", "json", "yaml":
	default:
		return fmt.Errorf("unknown format %q: use markdown, json, or yaml", format)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tiers, err := app.NewTiers(cfg.Research)
	if err != nil {
		return err
	}
	params, err := paramsFromFlags(cmd, tiers)
	if err != nil {
		return err
	}
	engine, err := app.NewEngine(cfg, tiers, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := engine.Run(ctx, query, params, events.SinkFunc(logEvent))
	if err != nil {
		return err
	}
	return writeResult(os.Stdout, res, format)
}

func paramsFromFlags(cmd *cobra.Command, tiers *research.TierSet) (research.Params, error) {
	tier, _ := cmd.Flags().GetString("tier")
	reportType, _ := cmd.Flags().GetString("report-type")
	if reportType != "" && !research.ValidReportType(types.ReportType(reportType)) {
		return research.Params{}, fmt.Errorf("unknown report type %q", reportType)
	}

	var depth, breadth *int
	if cmd.Flags().Changed("depth") {
		d, _ := cmd.Flags().GetInt("depth")
		depth = &d
	}
	if cmd.Flags().Changed("breadth") {
		b, _ := cmd.Flags().GetInt("breadth")
		breadth = &b
	}
	return tiers.ResolveParams(tier, depth, breadth, reportType)
}

// logEvent writes progress to the logger; results are printed separately.
func logEvent(name string, data any) {
	switch d := data.(type) {
	case events.StartedData:
		logger.Info("research started", zap.String("task_id", d.TaskID))
	case events.StatusData:
		logger.Info(d.Message, zap.String("step", d.Step), zap.Int("level", d.Level), zap.Int("breadth", d.Breadth))
	case events.FindingData:
		logger.Debug("finding", zap.String("source", d.Source))
	case events.ErrorData:
		logger.Error("research error", zap.String("message", d.Message))
	default:
		logger.Debug("event", zap.String("event", name))
	}
}

func writeResult(w io.Writer, res types.ResearchResult, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(res)
	default:
		_, err := fmt.Fprintln(w, res.Report)
		return err
	}
}

func init() {
	runCmd.Flags().String("query", "", "research question")
	runCmd.Flags().String("tier", "", "depth tier (quick, standard, deep, or a configured tier)")
	runCmd.Flags().Int("depth", 0, "research levels (ignored when --tier is set)")
	runCmd.Flags().Int("breadth", 0, "sub-queries at the first level (ignored when --tier is set)")
	runCmd.Flags().String("report-type", "", "research_report or detailed_report")
	runCmd.Flags().String("format", "markdown", "output format: markdown, json, or yaml")

	rootCmd.AddCommand(runCmd)
}
