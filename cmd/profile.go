package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vizloom/vizloom-cli/internal/profile"
	"github.com/vizloom/vizloom-cli/internal/report"
	"github.com/vizloom/vizloom-cli/internal/table"
)

var (
	profDelimiter string
	profMaxRows   int
	profTolerance float64
	profPlain     bool
)

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Load a dataset and print its column profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		delim, err := parseDelimiter(profDelimiter)
		if err != nil {
			return err
		}
		t, err := table.Load(args[0], table.Options{
			Delimiter:        delim,
			MaxRows:          profMaxRows,
			NumericTolerance: profTolerance,
		})
		if err != nil {
			return err
		}
		res := profile.Profile(t, profile.DefaultOptions())
		md := fmt.Sprintf("# %s (%d rows, %d columns)\n\n%s", t.Name, t.Rows(), len(t.Columns), res.Markdown())
		out, _ := report.Render(md, profPlain)
		fmt.Println(out)
		return nil
	},
}

func init() {
	profileCmd.Flags().StringVar(&profDelimiter, "delimiter", "", "field delimiter (default inferred from extension)")
	profileCmd.Flags().IntVar(&profMaxRows, "max-rows", 0, "limit data rows read (0 = unlimited)")
	profileCmd.Flags().Float64Var(&profTolerance, "numeric-tolerance", 0, "fraction of unparseable values a numeric column may contain")
	profileCmd.Flags().BoolVar(&profPlain, "plain", false, "print plain markdown")
	rootCmd.AddCommand(profileCmd)
}
