package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/be4breach/reportd/pkg/docx"
	"github.com/be4breach/reportd/pkg/types"
)

var (
	parseFormat  string
	parseSummary bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <report.docx>",
	Short: "Parse a pentest report and print the dashboard payload",
	Long: `Parse reads a .docx penetration test report, extracts and correlates
its findings, and prints the full dashboard payload to stdout.

The structured output goes to stdout; the optional colored severity
summary goes to stderr so the payload stays pipeable.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVarP(&parseFormat, "format", "f", "json", "output format (json, yaml)")
	parseCmd.Flags().BoolVar(&parseSummary, "summary", true, "print a colored severity summary to stderr")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	parser := docx.NewParser(log)
	report, err := parser.Parse(cmd.Context(), data)
	if err != nil {
		return fmt.Errorf("failed to parse report: %w", err)
	}

	switch parseFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	default:
		return fmt.Errorf("unsupported output format: %s", parseFormat)
	}

	if parseSummary {
		printSummary(report)
	}
	return nil
}

var severityPrinters = map[string]*color.Color{
	"critical":      color.New(color.FgRed, color.Bold),
	"high":          color.New(color.FgRed),
	"medium":        color.New(color.FgYellow),
	"low":           color.New(color.FgWhite),
	"informational": color.New(color.FgCyan),
}

func printSummary(report *types.PentestReport) {
	fmt.Fprintf(os.Stderr, "\n%s", color.New(color.Bold).Sprint("Findings: "))
	fmt.Fprintf(os.Stderr, "%d total", report.TotalFindings)
	if report.Engagement.Client != "" {
		fmt.Fprintf(os.Stderr, " (%s)", report.Engagement.Client)
	}
	fmt.Fprintln(os.Stderr)

	for _, level := range types.SeverityOrder {
		count := report.Summary[string(level)]
		printer, ok := severityPrinters[string(level)]
		if !ok {
			printer = color.New(color.FgWhite)
		}
		fmt.Fprintf(os.Stderr, "  %s %d\n", printer.Sprintf("%-13s", string(level)), count)
	}

	if report.CVSS != nil {
		fmt.Fprintf(os.Stderr, "  CVSS avg %.1f, max %.1f across %d scored findings\n",
			report.CVSS.Average, report.CVSS.Max, report.CVSS.Count)
	}
}
