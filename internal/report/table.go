package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

// PrintTable writes the title and an aligned, pipe-separated grid.
// An empty table prints "(no rows)".
func PrintTable(w io.Writer, t Table) error {
	if t.Title != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, color.CyanString(t.Title))
	}
	if t.Empty() {
		_, err := fmt.Fprintln(w, "(no rows)")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.Debug)
	fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))

	rule := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		rule[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(rule, "\t"))

	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
