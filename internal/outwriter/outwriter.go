// Package outwriter has output and writer logic.
package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/huangsam/grimoire/internal/contract"
	"github.com/huangsam/grimoire/schema"
)

// WriteReport outputs a report, dispatching based on the output format configured.
// Parquet exports are handled by the parquet package.
func WriteReport(report *schema.Report, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVReport(w, report, cfg.Precision)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is written by the parquet exporter")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReportText(w, report, cfg)
		}, "Wrote table")
	}
	return nil
}

// writeCSVReport writes a report in long format, one line per cell:
// metric, row, column, value. Scalars use row 0.
func writeCSVReport(w io.Writer, report *schema.Report, precision int) error {
	f := formatter{precision: precision}
	return writeCSVWithHeader(w, []string{"metric", "row", "column", "value"}, func(cw *csv.Writer) error {
		for _, e := range report.Entries {
			for _, c := range e.Result.Columns {
				v, ok := e.Result.Value(c.Name)
				if !ok {
					continue
				}
				for i := range v.Len() {
					record := []string{e.Metric, fmt.Sprint(i), c.Name, f.Value(v.At(i))}
					if err := cw.Write(record); err != nil {
						return fmt.Errorf("failed to write CSV record: %w", err)
					}
				}
			}
		}
		return nil
	})
}
