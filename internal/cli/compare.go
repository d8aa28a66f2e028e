package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pelvicpics/pkg/compare"
	"pelvicpics/pkg/report"
)

// NewCompareCmd creates the compare command
func NewCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare EXEMPLAR COHORT...",
		Short: "Compare one subject against the range of a cohort",
		Long: "Normalize the exemplar and the cohort with the same settings, then report\n" +
			"for every exemplar landmark and row width its z-score and whether it lies\n" +
			"outside the cohort's box plot whiskers.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			defer cliCtx.Logger.Sync()

			out := cmd.OutOrStdout()
			printBanner(out, "PICS3D EXEMPLAR COMPARISON")

			cohort, elapsed, err := runPipeline(cmd.Context(), cliCtx, args[1:])
			if err != nil {
				return fmt.Errorf("cohort: %w", err)
			}
			fmt.Fprintf(out, "Processed %d cohort subjects in %.2f seconds\n", len(cohort.Subjects), elapsed.Seconds())
			printVerification(out, cohort)

			exemplar, _, err := runPipeline(cmd.Context(), cliCtx, args[:1])
			if err != nil {
				return fmt.Errorf("exemplar: %w", err)
			}
			printVerification(out, exemplar)

			comparisons := compare.Compare(exemplar.Collection, cohort.Collection)
			widths := compare.CompareWidths(exemplar.Group, cohort.Group)
			if err := report.WriteComparison(out, comparisons, widths); err != nil {
				return err
			}

			if path := cliCtx.Config.Output.Workbook; path != "" {
				if err := report.ExportWorkbook(path, cohort.Group, cohort.Collection, comparisons); err != nil {
					return err
				}
				cliCtx.Logger.Info("workbook written", zap.String("path", path))
			}
			return nil
		},
	}
}
