package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/liftwatch/liftwatch/internal/report"
	"github.com/liftwatch/liftwatch/internal/repository"
	"github.com/spf13/cobra"
)

var (
	analyzeSectors      []int
	analyzeOutputFormat string
	predictOutputFormat string
	commandTimeout      time.Duration
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [flags]",
		Short: "Score the fleet once and print the summary",
		Long: `Score every asset of the fleet (or of the selected sectors) against the
configured repository and print the fleet summary.

Examples:
  # Analyze the whole fleet
  liftwatch analyze

  # Analyze sectors 1 and 4 as JSON
  liftwatch analyze --sector 1 --sector 4 -o json`,
		Args: cobra.NoArgs,
		RunE: runAnalyze,
	}

	cmd.Flags().IntSliceVarP(&analyzeSectors, "sector", "s", nil, "Restrict the analysis to these sectors")
	cmd.Flags().StringVarP(&analyzeOutputFormat, "output", "o", report.FormatHuman, "Output format (human, json, yaml)")
	cmd.Flags().DurationVar(&commandTimeout, "timeout", 2*time.Minute, "Abort the analysis after this long")

	return cmd
}

func newPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict CODE",
		Short: "Score one asset from its full fault history",
		Args:  cobra.ExactArgs(1),
		RunE:  runPredict,
	}

	cmd.Flags().StringVarP(&predictOutputFormat, "output", "o", report.FormatHuman, "Output format (human, json, yaml)")
	cmd.Flags().DurationVar(&commandTimeout, "timeout", 2*time.Minute, "Abort the lookup after this long")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}
	defer repo.Close()

	aggregator, err := newAggregator(cfg, repo, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	s := newSpinner(analyzeOutputFormat, " Analyzing fleet...")
	s.Start()
	summary := aggregator.AnalyzeFleet(ctx, analyzeSectors)
	s.Stop()

	if analyzeOutputFormat == report.FormatHuman {
		printSuccess(fmt.Sprintf("Scored %d assets", summary.AssetCount))
	}
	return report.WriteSummary(cmd.OutOrStdout(), summary, analyzeOutputFormat)
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}
	defer repo.Close()

	aggregator, err := newAggregator(cfg, repo, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	code := args[0]
	s := newSpinner(predictOutputFormat, " Scoring "+code+"...")
	s.Start()
	prediction, err := aggregator.GetAssetPrediction(ctx, code)
	s.Stop()

	if err != nil {
		return fmt.Errorf("failed to score asset %s: %w", code, err)
	}
	if prediction == nil {
		return fmt.Errorf("asset %q not found", code)
	}
	return report.WritePrediction(cmd.OutOrStdout(), prediction, predictOutputFormat)
}

type progress struct {
	s       *spinner.Spinner
	enabled bool
}

// newSpinner writes to stderr and only animates for human output.
func newSpinner(format, suffix string) *progress {
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = suffix
	return &progress{s: s, enabled: format == report.FormatHuman}
}

func (p *progress) Start() {
	if p.enabled {
		p.s.Start()
	}
}

func (p *progress) Stop() {
	if p.enabled {
		p.s.Stop()
	}
}

func printSuccess(msg string) {
	green := color.New(color.FgGreen)
	green.Fprintf(os.Stderr, "✓ %s\n", msg)
}
