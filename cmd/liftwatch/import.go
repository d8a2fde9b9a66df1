package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/liftwatch/liftwatch/internal/ingest"
	"github.com/liftwatch/liftwatch/internal/report"
	"github.com/spf13/cobra"
)

var (
	importCSVPath string
	importBaseURL string
	importLimit   int
	importWorkers int
	importVerbose bool
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import --csv FILE [flags]",
		Short: "Load a fault log CSV export into a running server",
		Long: `Post every row of a fault log CSV export to a running liftwatch server.

The header must contain an asset_code column. An id column becomes the record
id; date, cause, type and label columns are stored as the record payload.

Examples:
  liftwatch import --csv faults.csv --url http://localhost:8080 --workers 20`,
		Args: cobra.NoArgs,
		RunE: runImport,
	}

	cmd.Flags().StringVar(&importCSVPath, "csv", "", "Path to the fault log CSV export")
	cmd.Flags().StringVar(&importBaseURL, "url", "http://localhost:8080", "Liftwatch base URL")
	cmd.Flags().IntVar(&importLimit, "limit", 0, "Maximum rows to import (0 = all)")
	cmd.Flags().IntVar(&importWorkers, "workers", 10, "Number of concurrent workers")
	cmd.Flags().BoolVarP(&importVerbose, "verbose", "v", false, "Print each failed row")
	cmd.MarkFlagRequired("csv")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	im := ingest.NewImporter(importBaseURL, importWorkers)

	if err := im.CheckHealth(ctx); err != nil {
		return fmt.Errorf("liftwatch not reachable at %s: %w", importBaseURL, err)
	}
	printSuccess("Liftwatch is healthy")

	file, err := os.Open(importCSVPath)
	if err != nil {
		return err
	}
	defer file.Close()

	rows, skipped, err := ingest.ReadCSV(file, importLimit)
	if err != nil {
		return fmt.Errorf("failed to read CSV: %w", err)
	}
	printSuccess(fmt.Sprintf("Loaded %d rows (%d skipped)", len(rows), skipped))

	s := newSpinner(report.FormatHuman, fmt.Sprintf(" Importing with %d workers...", importWorkers))
	s.Start()
	start := time.Now()
	stats := im.Run(ctx, rows, func(row ingest.Row, err error) {
		if importVerbose {
			color.New(color.FgRed).Fprintf(os.Stderr, "✗ %s: %v\n", row.AssetCode, err)
		}
	})
	duration := time.Since(start)
	s.Stop()

	printImportResults(stats, duration)
	if stats.Errors > 0 {
		return fmt.Errorf("%d rows failed", stats.Errors)
	}
	return nil
}

func printImportResults(st *ingest.Stats, duration time.Duration) {
	white := color.New(color.FgWhite, color.Bold)

	fmt.Println()
	white.Println("IMPORT RESULTS")
	fmt.Printf("   Sent:            %d\n", st.Sent)
	fmt.Printf("   Created:         %d\n", st.Created)
	fmt.Printf("   Unknown assets:  %d\n", st.UnknownAsset)
	fmt.Printf("   Errors:          %d\n", st.Errors)
	fmt.Printf("   Duration:        %v\n", duration.Round(time.Millisecond))
	if st.Sent > 0 {
		fmt.Printf("   Avg latency:     %.2f ms\n", st.AvgLatencyMs())
		fmt.Printf("   Throughput:      %.2f rows/sec\n", float64(st.Sent)/duration.Seconds())
	}
	fmt.Println()
}
