package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pelvicpics/pkg/report"
)

// NewStatsCmd creates the stats command
func NewStatsCmd() *cobra.Command {
	var (
		showSubjects bool
		htmlPath     string
	)

	cmd := &cobra.Command{
		Use:   "stats FILE...",
		Short: "Compute cohort statistics for a set of landmark files",
		Long: "Normalize every landmark file (FCSV, MRML or a directory of ACSV files)\n" +
			"and report row widths, tilt correction angles and per-landmark statistics.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			defer cliCtx.Logger.Sync()

			out := cmd.OutOrStdout()
			printBanner(out, "PICS3D PELVIC LANDMARK STATISTICS")

			res, elapsed, err := runPipeline(cmd.Context(), cliCtx, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Processed %d subjects in %.2f seconds\n", len(res.Subjects), elapsed.Seconds())
			printVerification(out, res)

			if showSubjects {
				for _, s := range res.Subjects {
					if err := report.WriteSubject(out, s); err != nil {
						return err
					}
				}
			}
			if err := report.WriteText(out, res.Group, res.Collection); err != nil {
				return err
			}

			if path := cliCtx.Config.Output.Workbook; path != "" {
				if err := report.ExportWorkbook(path, res.Group, res.Collection, nil); err != nil {
					return err
				}
				cliCtx.Logger.Info("workbook written", zap.String("path", path))
			}

			if htmlPath != "" {
				f, err := os.Create(htmlPath)
				if err != nil {
					return fmt.Errorf("error creating html report: %w", err)
				}
				defer f.Close()
				if err := report.WriteHTML(f, res.Group, res.Collection); err != nil {
					return err
				}
				cliCtx.Logger.Info("html report written", zap.String("path", htmlPath))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSubjects, "subjects", false, "print a readout for every normalized subject")
	cmd.Flags().StringVar(&htmlPath, "html", "", "write an HTML report to this path")
	return cmd
}
