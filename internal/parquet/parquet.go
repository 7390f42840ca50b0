// Package parquet exports grimoire reports to Parquet files using
// github.com/parquet-go/parquet-go.
package parquet

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/huangsam/grimoire/schema"
	"github.com/parquet-go/parquet-go"
)

// MetricValue is one cell of a report in long format. Every row carries the
// run metadata so files from several runs can be concatenated.
type MetricValue struct {
	// RunID identifies the report run
	RunID string `parquet:"run_id,snappy,dict"`

	// Generated is when the report was computed
	Generated time.Time `parquet:"generated,snappy"`

	Source string `parquet:"source,snappy,dict"`
	Kind   string `parquet:"kind,snappy,dict"`
	Period string `parquet:"period,snappy,dict"`

	// RangeStart and RangeEnd bound the half-open report range
	RangeStart time.Time `parquet:"range_start,snappy"`
	RangeEnd   time.Time `parquet:"range_end,snappy"`

	Metric string `parquet:"metric,snappy,dict"`

	// Row is the bucket or rank position, 0 for aggregates
	Row int32 `parquet:"row,snappy"`

	Column string `parquet:"column,snappy,dict"`

	// Number holds counts and ratios, null when the value is missing
	Number *float64 `parquet:"number,optional,snappy"`

	// Label holds text columns such as entity names and bucket dates
	Label *string `parquet:"label,optional,snappy"`
}

// Flatten converts a report to long-format rows in entry, column, row order.
func Flatten(report *schema.Report) []MetricValue {
	var out []MetricValue
	for _, e := range report.Entries {
		for _, c := range e.Result.Columns {
			v, ok := e.Result.Value(c.Name)
			if !ok {
				continue
			}
			for i := range v.Len() {
				mv := MetricValue{
					RunID:      report.RunID,
					Generated:  report.Generated,
					Source:     string(report.Source),
					Kind:       string(report.Kind),
					Period:     string(report.Filter.Period),
					RangeStart: report.Filter.Range.Start,
					RangeEnd:   report.Filter.Range.End,
					Metric:     e.Metric,
					Row:        int32(i),
					Column:     c.Name,
				}
				switch cell := v.At(i).(type) {
				case string:
					mv.Label = &cell
				default:
					if n, ok := schema.ToFloat(cell); ok && !math.IsNaN(n) {
						mv.Number = &n
					}
				}
				out = append(out, mv)
			}
		}
	}
	return out
}

// WriteReport writes the long-format rows of a report to a Parquet file.
func WriteReport(outputPath string, report *schema.Report) error {
	if outputPath == "" {
		return errors.New("parquet output requires an output file")
	}
	return WriteMetricValuesParquet(Flatten(report), outputPath)
}

// WriteMetricValuesParquet writes a slice of MetricValue structs to a Parquet file.
func WriteMetricValuesParquet(data []MetricValue, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// The schema is derived from the MetricValue struct tags
	writer := parquet.NewGenericWriter[MetricValue](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "💾 Wrote %d parquet rows to %s\n", len(data), outputPath)
	return nil
}
