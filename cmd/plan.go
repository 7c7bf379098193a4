package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vizloom/vizloom-cli/internal/profile"
	"github.com/vizloom/vizloom-cli/internal/report"
	"github.com/vizloom/vizloom-cli/internal/table"
	"github.com/vizloom/vizloom-cli/internal/utils"
)

var (
	planLLM       llmFlags
	planDelimiter string
	planJSON      bool
	planPlain     bool
)

var planCmd = &cobra.Command{
	Use:   "plan <file>",
	Short: "Produce a chart plan without rendering anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		delim, err := parseDelimiter(planDelimiter)
		if err != nil {
			return err
		}
		t, err := table.Load(args[0], table.Options{Delimiter: delim})
		if err != nil {
			return err
		}
		prof := profile.Profile(t, profile.DefaultOptions())
		planner := buildPlanner(planLLM)
		debugf("planner: %s\n", planner.Name())
		p := planner.Plan(context.Background(), t, prof)

		if planJSON {
			b, err := utils.PrettyJSON(p)
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		}
		out, _ := report.Render(p.Markdown(), planPlain)
		fmt.Println(out)
		return nil
	},
}

func init() {
	planCmd.Flags().StringVar(&planDelimiter, "delimiter", "", "field delimiter (default inferred from extension)")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "print the plan as JSON")
	planCmd.Flags().BoolVar(&planPlain, "plain", false, "print plain markdown")
	registerLLMFlags(planCmd, &planLLM)
	rootCmd.AddCommand(planCmd)
}
