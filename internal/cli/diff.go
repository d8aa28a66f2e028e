package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"pelvicpics/pkg/compare"
	"pelvicpics/pkg/report"
)

// NewDiffCmd creates the diff command
func NewDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff FIRST SECOND",
		Short: "Measure how far the row edges of two landmark sets moved",
		Long: "Normalize both landmark sets, then report the displacement of every row's\n" +
			"left and right edge and flag landmarks whose nearest point in the second\n" +
			"set carries another name.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			defer cliCtx.Logger.Sync()

			out := cmd.OutOrStdout()
			printBanner(out, "PICS3D LANDMARK DIFFERENCES")

			// both sets go through one run so a failure in either is fatal
			cfg := *cliCtx.Config
			cfg.Processing.SkipInvalidSubjects = false
			res, _, err := runPipeline(cmd.Context(), &CLIContext{Config: &cfg, Logger: cliCtx.Logger}, args)
			if err != nil {
				return err
			}
			first, second := res.Subjects[0], res.Subjects[1]
			fmt.Fprintf(out, "%s -> %s\n", first.ID, second.ID)

			return report.WriteDifferences(out,
				compare.EdgeDifferences(first, second),
				compare.NearestMatches(first, second))
		},
	}
}
