package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"pelvicpics/pkg/statistics"
)

// Markdown renders the cohort statistics as markdown tables
func Markdown(group *statistics.SubjectGroupStatistics, collection *statistics.StatCollection) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Cohort statistics\n\n%d subjects.\n\n", group.Len())

	b.WriteString("## Row widths\n\n")
	b.WriteString("| Row | N | Mean | SD |\n|---|---|---|---|\n")
	for i, s := range group.WidthSummaries() {
		fmt.Fprintf(&b, "| %d | %d | %.4f | %.4f |\n", i+1, s.N, s.Mean, s.StdDev)
	}

	pitch, roll, yaw := group.Tilt()
	b.WriteString("\n## Tilt correction\n\n")
	b.WriteString("| Angle | Mean (deg) | SD (deg) |\n|---|---|---|\n")
	fmt.Fprintf(&b, "| Pitch | %.4f | %.4f |\n", pitch.Mean, pitch.StdDev)
	fmt.Fprintf(&b, "| Roll | %.4f | %.4f |\n", roll.Mean, roll.StdDev)
	fmt.Fprintf(&b, "| Yaw | %.4f | %.4f |\n", yaw.Mean, yaw.StdDev)

	b.WriteString("\n## Landmarks\n\n")
	b.WriteString("| Name | N | X | Y | Z | SD X | SD Y | SD Z | Gap | Gap SD |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|---|\n")
	for _, s := range collection.All() {
		fmt.Fprintf(&b, "| %s | %d | %.3f | %.3f | %.3f | %.3f | %.3f | %.3f | %.3f | %.3f |\n",
			s.Name, s.Len(),
			s.Mean.Coords.X, s.Mean.Coords.Y, s.Mean.Coords.Z,
			s.StdDev.X, s.StdDev.Y, s.StdDev.Z,
			s.Gap.Mean, s.Gap.StdDev)
	}
	return b.Bytes()
}

// WriteHTML renders the markdown report to a standalone HTML page
func WriteHTML(w io.Writer, group *statistics.SubjectGroupStatistics, collection *statistics.StatCollection) error {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "Cohort statistics",
	})
	if _, err := w.Write(markdown.ToHTML(Markdown(group, collection), p, renderer)); err != nil {
		return fmt.Errorf("error writing html report: %w", err)
	}
	return nil
}
