package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"pelvicpics/pkg/compare"
	"pelvicpics/pkg/statistics"
)

// Sheet names of the exported workbook
const (
	SheetLandmarks  = "Landmarks"
	SheetRowWidths  = "RowWidths"
	SheetTilt       = "Tilt"
	SheetComparison = "Comparison"
)

var (
	landmarkHeader = []interface{}{
		"Name", "N", "Mean X", "Mean Y", "Mean Z", "SD X", "SD Y", "SD Z",
		"Gap mean", "Gap SD", "Vertical gap mean", "Vertical gap SD",
		"Horizontal gap mean", "Horizontal gap SD",
	}
	widthHeader      = []interface{}{"Row", "N", "Mean", "SD", "Min", "Median", "Max"}
	tiltHeader       = []interface{}{"Angle", "N", "Mean (deg)", "SD (deg)", "Min (deg)", "Median (deg)", "Max (deg)"}
	comparisonHeader = []interface{}{
		"Name", "Measure", "Exemplar", "N", "Mean", "SD", "Z", "Q1", "Median", "Q3", "Outlier",
	}
)

// ExportWorkbook saves the cohort statistics to an Excel workbook. The
// Comparison sheet is only written when comparisons are given.
func ExportWorkbook(path string, group *statistics.SubjectGroupStatistics, collection *statistics.StatCollection, comparisons []compare.Comparison) error {
	f := excelize.NewFile()
	defer f.Close()

	// The default sheet becomes the landmark sheet
	if err := f.SetSheetName("Sheet1", SheetLandmarks); err != nil {
		return fmt.Errorf("error preparing workbook: %w", err)
	}

	landmarks := [][]interface{}{landmarkHeader}
	for _, s := range collection.All() {
		landmarks = append(landmarks, []interface{}{
			s.Name, s.Len(),
			s.Mean.Coords.X, s.Mean.Coords.Y, s.Mean.Coords.Z,
			s.StdDev.X, s.StdDev.Y, s.StdDev.Z,
			s.Gap.Mean, s.Gap.StdDev,
			s.GapAxial.Mean, s.GapAxial.StdDev,
			s.GapPlanar.Mean, s.GapPlanar.StdDev,
		})
	}
	if err := writeRows(f, SheetLandmarks, landmarks); err != nil {
		return err
	}

	widths := [][]interface{}{widthHeader}
	for i, s := range group.WidthSummaries() {
		widths = append(widths, summaryRow(i+1, s))
	}
	if err := addSheet(f, SheetRowWidths, widths); err != nil {
		return err
	}

	pitch, roll, yaw := group.Tilt()
	tilt := [][]interface{}{
		tiltHeader,
		summaryRow("Pitch", pitch),
		summaryRow("Roll", roll),
		summaryRow("Yaw", yaw),
	}
	if err := addSheet(f, SheetTilt, tilt); err != nil {
		return err
	}

	if len(comparisons) > 0 {
		rows := [][]interface{}{comparisonHeader}
		for _, c := range comparisons {
			rows = append(rows, measureRow(c.Name, "X", c.X))
			rows = append(rows, measureRow(c.Name, "Y", c.Y))
			rows = append(rows, measureRow(c.Name, "Z", c.Z))
			if c.HasGap {
				rows = append(rows, measureRow(c.Name, "Gap", c.Gap))
			}
		}
		if err := addSheet(f, SheetComparison, rows); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("error saving workbook: %w", err)
	}
	return nil
}

func addSheet(f *excelize.File, sheet string, rows [][]interface{}) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("error creating sheet %s: %w", sheet, err)
	}
	return writeRows(f, sheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[r]); err != nil {
			return fmt.Errorf("error writing sheet %s: %w", sheet, err)
		}
	}
	return nil
}

func summaryRow(label interface{}, s statistics.Summary) []interface{} {
	return []interface{}{label, s.N, s.Mean, s.StdDev, s.Min, s.Median, s.Max}
}

func measureRow(name, measure string, m compare.Measure) []interface{} {
	return []interface{}{name, measure, m.Value, m.N, m.Mean, m.StdDev, m.ZScore, m.Q1, m.Median, m.Q3, m.Outlier}
}
