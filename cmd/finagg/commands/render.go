package commands

import (
	"fmt"
	"io"
	"strings"

	"finagg/lib/scraper"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

func tableRow(values ...any) table.Row {
	return table.Row(values)
}

func formatAmount(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func renderResults(out io.Writer, results []scraper.FetchResult) {
	for _, r := range results {
		renderResult(out, r)
	}
}

func renderResult(out io.Writer, r scraper.FetchResult) {
	fmt.Fprintf(out, "%s (run %s): %s in %s\n", r.Platform, r.RunID, r.Outcome(), r.Duration.Round(1e6))

	if r.Fatal != nil {
		fmt.Fprintf(out, "  %s: %v\n", r.State, r.Fatal)
		return
	}

	if len(r.Products) > 0 {
		t := newTable(out)
		t.AppendHeader(tableRow("Type", "ID", "Name", "Labels", "Initial", "Value", "ROI"))
		for _, p := range r.Products {
			t.AppendRow(tableRow(
				p.Type, p.ID, p.Name, p.Labels,
				formatAmount(p.InitialValue),
				formatAmount(p.Value),
				fmt.Sprintf("%.2f%%", p.ROI()),
			))
		}
		t.AppendFooter(tableRow("", "", "", "Total", "", formatAmount(r.TotalValue()), ""))
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 5, Align: text.AlignRight},
			{Number: 6, Align: text.AlignRight},
			{Number: 7, Align: text.AlignRight},
		})
		t.Render()
	} else {
		fmt.Fprintln(out, "  no products found")
	}

	if len(r.Failures) > 0 {
		t := newTable(out)
		t.AppendHeader(tableRow("Failed category", "Error"))
		for _, c := range r.FailedCategories() {
			t.AppendRow(tableRow(c, r.Failures[c].Error()))
		}
		t.Render()
	}

	if len(r.Unsupported) > 0 {
		var names []string
		for _, c := range r.Unsupported {
			names = append(names, string(c))
		}
		fmt.Fprintf(out, "  not supported by %s: %s\n", r.Platform, strings.Join(names, ", "))
	}
}
