package outwriter

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/huangsam/grimoire/core/normalize"
	"github.com/huangsam/grimoire/internal/contract"
	"github.com/huangsam/grimoire/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// writeReportText writes the human-readable tables of a report.
func writeReportText(w io.Writer, report *schema.Report, cfg *contract.Config) error {
	header, muted := fmt.Sprint, fmt.Sprint
	if cfg.UseColors {
		header = contract.HeaderColor.SprintFunc()
		muted = contract.MutedColor.SprintFunc()
	}
	f := formatter{precision: cfg.Precision, human: true}

	title := fmt.Sprintf("📊 %s %s %s", report.Source, report.Kind, report.Filter.Range)
	if report.Kind == schema.TimeSeriesReport {
		title += " by " + string(report.Filter.Period)
	}
	if report.Days > 0 {
		title += fmt.Sprintf(" (last %d days)", report.Days)
	}
	if _, err := fmt.Fprintln(w, header(title)); err != nil {
		return err
	}

	if len(report.Entries) == 0 {
		if _, err := fmt.Fprintln(w, "No metrics to show"); err != nil {
			return err
		}
	}

	switch report.Kind {
	case schema.AggregateReport, schema.TrendsReport:
		if err := writeScalarTable(w, report.Entries, f); err != nil {
			return err
		}
	default:
		for _, e := range report.Entries {
			if _, err := fmt.Fprintf(w, "\n%s\n", header(e.Name)); err != nil {
				return err
			}
			if err := writeSeriesTable(w, report.Kind, e.Result, f, muted, cfg); err != nil {
				return err
			}
		}
	}

	_, err := fmt.Fprintf(w, "Computed %d metrics in %v (run %s)\n", len(report.Entries), report.Elapsed.Round(time.Millisecond), report.RunID)
	return err
}

// writeScalarTable lists every column of aggregate-shaped entries.
func writeScalarTable(w io.Writer, entries []schema.ReportEntry, f formatter) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Column", "Value"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.PerColumn = []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignRight}
	})

	var data [][]string
	for _, e := range entries {
		for _, c := range e.Result.Columns {
			v, ok := e.Result.Value(c.Name)
			if !ok {
				continue
			}
			data = append(data, []string{e.Name, c.Name, f.Value(v.Scalar())})
		}
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// seriesColumns returns the columns a table shows. Bucket keys are replaced by the date label.
func seriesColumns(kind schema.ReportKind, res *schema.Result) []schema.Column {
	var cols []schema.Column
	for _, c := range res.Columns {
		switch {
		case kind == schema.TimeSeriesReport && (c.Name == normalize.IDColumn || c.Name == normalize.UnixTimeColumn):
			continue
		case kind == schema.TimeSeriesReport && slices.ContainsFunc(schema.AllPeriods, func(p schema.Period) bool { return p.Key() == c.Name }):
			continue
		case kind != schema.TimeSeriesReport && c.Name == "id":
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

// writeSeriesTable writes one row per bucket or per ranked entity.
func writeSeriesTable(w io.Writer, kind schema.ReportKind, res *schema.Result, f formatter, muted func(...any) string, cfg *contract.Config) error {
	cols := seriesColumns(kind, res)
	ranked := kind == schema.TopListReport || kind == schema.ListReport

	var headers []string
	var align []tw.Align
	if ranked {
		headers = append(headers, "Rank")
		align = append(align, tw.AlignRight)
	}
	numeric := 0
	for _, c := range cols {
		headers = append(headers, c.Name)
		if c.Kind == schema.LabelColumn {
			align = append(align, tw.AlignLeft)
		} else {
			align = append(align, tw.AlignRight)
			numeric++
		}
	}
	labelWidth := getMaxTableLabelWidth(cfg, numeric)

	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.PerColumn = align
	})

	var data [][]string
	for i := range res.Len() {
		var row []string
		if ranked {
			row = append(row, strconv.Itoa(i+1))
		}
		idle := kind == schema.TimeSeriesReport
		for _, c := range cols {
			v, _ := res.Value(c.Name)
			cell := v.At(i)
			if c.Kind == schema.LabelColumn {
				row = append(row, contract.TruncateText(f.Value(cell), labelWidth))
				continue
			}
			if n, ok := schema.ToFloat(cell); ok && n != 0 && !math.IsNaN(n) {
				idle = false
			}
			row = append(row, f.Value(cell))
		}
		if idle {
			for j := range row {
				row[j] = muted(row[j])
			}
		}
		data = append(data, row)
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
