package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vizloom/vizloom-cli/internal/pipeline"
	"github.com/vizloom/vizloom-cli/internal/table"
)

var (
	runLLM       llmFlags
	runOutputDir string
	runDelimiter string
	runMaxRows   int
	runTolerance float64
	runNoCharts  bool
	runPlain     bool
	runPreviewN  int
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run the full pipeline: load, profile, plan, render, report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		delim, err := parseDelimiter(runDelimiter)
		if err != nil {
			return err
		}
		outDir := runOutputDir
		if outDir == "" {
			outDir = cfg.OutputDir
		}

		orch := pipeline.New(buildPlanner(runLLM))
		debugf("planner: %s\n", orch.Planner.Name())

		res, err := orch.Run(context.Background(), pipeline.Options{
			InputPath: args[0],
			OutputDir: outDir,
			Load: table.Options{
				Delimiter:        delim,
				MaxRows:          runMaxRows,
				NumericTolerance: runTolerance,
			},
			PreviewN:  runPreviewN,
			NoCharts:  runNoCharts,
			PlainText: runPlain,
		})
		if err != nil {
			if g := res.Guidance(); g != "" {
				fmt.Fprintln(os.Stderr, "⚠", g)
			}
			return err
		}

		fmt.Println(res.Report)
		if len(res.Charts) > 0 {
			fmt.Printf("✓ Wrote %d chart(s) to %s\n", len(res.Charts), outDir)
		}
		for _, se := range res.StageErrors {
			fmt.Fprintf(os.Stderr, "⚠ Stage %s: %v\n", se.Stage, se.Err)
		}
		return nil
	},
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	case " ", "space":
		return ' ', nil
	default:
		return 0, fmt.Errorf("unsupported --delimiter: %q (use ','|';'|'tab'|'space')", s)
	}
}

func init() {
	runCmd.Flags().StringVarP(&runOutputDir, "output-dir", "o", "", "directory for rendered charts (default from config)")
	runCmd.Flags().StringVar(&runDelimiter, "delimiter", "", "field delimiter (default inferred from extension)")
	runCmd.Flags().IntVar(&runMaxRows, "max-rows", 0, "limit data rows read (0 = unlimited)")
	runCmd.Flags().Float64Var(&runTolerance, "numeric-tolerance", 0, "fraction of unparseable values a numeric column may contain")
	runCmd.Flags().BoolVar(&runNoCharts, "no-charts", false, "plan but do not render charts")
	runCmd.Flags().BoolVar(&runPlain, "plain", false, "print the report as plain markdown")
	runCmd.Flags().IntVar(&runPreviewN, "preview-rows", 5, "rows to include in the preview table")
	registerLLMFlags(runCmd, &runLLM)
	rootCmd.AddCommand(runCmd)
}
