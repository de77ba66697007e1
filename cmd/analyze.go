package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/ecomdash/internal/analysis"
	"github.com/KaramelBytes/ecomdash/internal/charts"
	"github.com/KaramelBytes/ecomdash/internal/parser"
	"github.com/KaramelBytes/ecomdash/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anaOutputPath string
	anaChartsDir  string
	anaDelimiter  string
	anaSampleRows int
	anaMaxRows    int
	anaGroupBy    []string
	anaCorr       bool
	anaDecimal    string
	anaThousands  string
	anaOutliers   bool
	anaOutlierThr float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Summarize a product CSV/TSV and optionally export the dashboard charts as SVG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		opt := analysis.DefaultOptions()
		if anaSampleRows > 0 {
			opt.SampleRows = anaSampleRows
		}
		if anaMaxRows > 0 {
			opt.MaxRows = anaMaxRows
		}
		if anaDelimiter != "" {
			switch anaDelimiter {
			case ",":
				opt.Delimiter = ','
			case "\t", "tab":
				opt.Delimiter = '\t'
			case ";":
				opt.Delimiter = ';'
			default:
				return fmt.Errorf("unsupported --delimiter: %s", anaDelimiter)
			}
		}
		// Locale separators
		switch strings.ToLower(strings.TrimSpace(anaDecimal)) {
		case ",", "comma":
			opt.DecimalSeparator = ','
		case ".", "dot":
			opt.DecimalSeparator = '.'
		case "":
		default:
			return fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", anaDecimal)
		}
		switch strings.ToLower(strings.TrimSpace(anaThousands)) {
		case ",":
			opt.ThousandsSeparator = ','
		case ".":
			opt.ThousandsSeparator = '.'
		case "space", " ":
			opt.ThousandsSeparator = ' '
		case "":
		default:
			return fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", anaThousands)
		}
		opt.GroupBy = anaGroupBy
		opt.Correlations = anaCorr
		opt.Outliers = anaOutliers
		if anaOutlierThr > 0 {
			opt.OutlierThreshold = anaOutlierThr
		}

		tbl, err := parser.LoadFile(path, opt)
		if err != nil {
			return err
		}
		md := analysis.Summarize(tbl, opt).Markdown()
		out := cmd.OutOrStdout()

		if anaChartsDir != "" {
			if err := exportCharts(cmd, tbl, anaChartsDir); err != nil {
				return err
			}
		}
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(out, "✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		if anaChartsDir == "" {
			fmt.Fprintln(out, md)
		}
		return nil
	},
}

// exportCharts renders the dashboard chart sequence into dir, one SVG per chart.
func exportCharts(cmd *cobra.Command, tbl *analysis.Table, dir string) error {
	if err := utils.EnsureDir(dir); err != nil {
		return fmt.Errorf("create charts dir: %w", err)
	}
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	res := charts.RenderAll(tbl)
	written := 0
	for i, c := range res.Charts {
		if c.Err != nil {
			fmt.Fprintf(errOut, "⚠ %s: %v\n", c.Spec.Title, c.Err)
			continue
		}
		p := filepath.Join(dir, utils.ChartFileName(i+1, c.Spec.Title))
		if err := utils.SafeWriteFile(p, c.SVG); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		written++
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(errOut, "⚠ %s\n", w)
	}
	fmt.Fprintf(out, "✓ Wrote %d charts to %s\n", written, dir)
	return nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write analysis (Markdown)")
	analyzeCmd.Flags().StringVar(&anaChartsDir, "charts-dir", "", "directory to write the dashboard charts as SVG files")
	analyzeCmd.Flags().StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	analyzeCmd.Flags().StringVar(&anaDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	analyzeCmd.Flags().StringVar(&anaThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of sample rows to include")
	analyzeCmd.Flags().IntVar(&anaMaxRows, "max-rows", 100000, "maximum rows to process (0 = unlimited)")
	analyzeCmd.Flags().StringSliceVar(&anaGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	analyzeCmd.Flags().BoolVar(&anaCorr, "correlations", true, "compute Pearson correlations among numeric columns")
	analyzeCmd.Flags().BoolVar(&anaOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	analyzeCmd.Flags().Float64Var(&anaOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
}

