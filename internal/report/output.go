// Package report renders fleet summaries and predictions for the command line.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/liftwatch/liftwatch/internal/domain"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatHuman = "human"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// WriteSummary renders a fleet summary in the given format.
// Unknown formats fall back to human output.
func WriteSummary(w io.Writer, summary *domain.FleetSummary, format string) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, summary)
	case FormatYAML:
		return writeYAML(w, summary)
	default:
		writeHumanSummary(w, summary)
		return nil
	}
}

// WritePrediction renders one asset prediction in the given format.
func WritePrediction(w io.Writer, p *domain.Prediction, format string) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, p)
	case FormatYAML:
		return writeYAML(w, p)
	default:
		writeHumanPrediction(w, p)
		return nil
	}
}

func writeJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

// writeYAML goes through JSON first so YAML keys match the API field names.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}

	output, err := yaml.Marshal(generic)
	if err != nil {
		return err
	}
	_, err = w.Write(output)
	return err
}

func levelColor(level domain.RiskLevel) *color.Color {
	switch level {
	case domain.LevelCritical:
		return color.New(color.FgRed, color.Bold)
	case domain.LevelHigh:
		return color.New(color.FgYellow, color.Bold)
	case domain.LevelMedium:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgGreen)
	}
}

func writeHumanSummary(w io.Writer, s *domain.FleetSummary) {
	cyan := color.New(color.FgCyan, color.Bold)
	white := color.New(color.FgWhite, color.Bold)

	fmt.Fprintln(w)
	cyan.Fprintf(w, "Fleet analysis %s\n", s.ID)
	fmt.Fprintf(w, "  Generated:  %s\n", s.GeneratedAt.Format("2006-01-02 15:04 MST"))
	if len(s.Sectors) > 0 {
		fmt.Fprintf(w, "  Sectors:    %s\n", joinInts(s.Sectors))
	}
	fmt.Fprintf(w, "  Assets:     %d (%d degraded)\n", s.AssetCount, s.DegradedCount)
	fmt.Fprintf(w, "  Average:    %.1f\n", s.AverageScore)
	fmt.Fprintf(w, "  Critical:   %d\n", s.CriticalCount)
	fmt.Fprintf(w, "  High:       %d\n", s.HighCount)
	fmt.Fprintf(w, "  Trend:      %s\n", s.OverallTrend)
	fmt.Fprintln(w)

	if len(s.Alerts) > 0 {
		white.Fprintln(w, "ALERTS:")
		for _, a := range s.Alerts {
			c := color.New(color.FgYellow)
			if a.Priority == domain.PriorityHigh {
				c = color.New(color.FgRed, color.Bold)
			}
			c.Fprintf(w, "  ! %s", a.Message)
			fmt.Fprintf(w, " [%s]\n", strings.Join(a.AssetCodes, ", "))
		}
		fmt.Fprintln(w)
	}

	if len(s.Predictions) == 0 {
		fmt.Fprintln(w, "  No assets to report.")
		return
	}

	white.Fprintf(w, "%-12s %5s  %-8s %5s %5s  %-8s %s\n", "CODE", "SCORE", "LEVEL", "P7", "P30", "TREND", "CITY")
	for _, p := range s.Predictions {
		fmt.Fprintf(w, "%-12s %5d  ", p.Code, p.Score)
		levelColor(p.Level).Fprintf(w, "%-8s", p.Level)
		fmt.Fprintf(w, " %4.0f%% %4.0f%%  %-8s %s\n", p.Probability7d, p.Probability30d, p.Trend, p.City)
	}
}

func writeHumanPrediction(w io.Writer, p *domain.Prediction) {
	cyan := color.New(color.FgCyan, color.Bold)
	white := color.New(color.FgWhite, color.Bold)

	fmt.Fprintln(w)
	cyan.Fprintf(w, "Asset %s\n", p.Code)
	if p.Address != "" || p.City != "" {
		fmt.Fprintf(w, "  %s, %s (sector %d)\n", p.Address, p.City, p.Sector)
	}
	fmt.Fprintln(w)

	fmt.Fprint(w, "  Risk:       ")
	levelColor(p.Level).Fprintf(w, "%d/100 %s\n", p.Score, strings.ToUpper(string(p.Level)))
	fmt.Fprintf(w, "  Failure:    %.0f%% within 7 days, %.0f%% within 30 days\n", p.Probability7d, p.Probability30d)
	fmt.Fprintf(w, "  Trend:      %s\n", p.Trend)
	fmt.Fprintf(w, "  Faults:     %d (7d) / %d (30d) / %d (90d)\n", p.FaultCount7d, p.FaultCount30d, p.FaultCount90d)
	if p.LastFaultDate != nil {
		fmt.Fprintf(w, "  Last fault: %s\n", p.LastFaultDate.Format("2006-01-02"))
	}
	if p.Degraded {
		color.New(color.FgYellow).Fprintln(w, "  Score unavailable, showing the default prediction")
	}
	fmt.Fprintln(w)

	if len(p.Factors) > 0 {
		white.Fprintln(w, "FACTORS:")
		for _, f := range p.Factors {
			c := color.New(color.FgRed)
			if f.Kind == domain.FactorProtective {
				c = color.New(color.FgGreen)
			}
			c.Fprintf(w, "  %+4d ", f.Weight)
			fmt.Fprintf(w, "%s: %s\n", f.Name, f.Description)
		}
		fmt.Fprintln(w)
	}

	if len(p.RecurringFaults) > 0 {
		white.Fprintln(w, "RECURRING FAULTS:")
		for _, rf := range p.RecurringFaults {
			fmt.Fprintf(w, "  %-20s x%d (last %s)\n", rf.Type, rf.Count, rf.LastOccurrence.Format("2006-01-02"))
		}
		fmt.Fprintln(w)
	}

	white.Fprintln(w, "RECOMMENDATIONS:")
	for i, r := range p.Recommendations {
		fmt.Fprintf(w, "  %d. %s\n", i+1, r)
	}
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
