package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/grimoire/core/metrics"
	"github.com/huangsam/grimoire/internal/contract"
	"github.com/huangsam/grimoire/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportRange = schema.NewTimeRange(
	time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC),
	time.Date(2014, 3, 1, 0, 0, 0, 0, time.UTC),
)

func aggregateReport() *schema.Report {
	return &schema.Report{
		RunID:  "run-1",
		Kind:   schema.AggregateReport,
		Source: schema.SCM,
		Filter: schema.Filter{Period: schema.PeriodMonth, Range: reportRange},
		Entries: []schema.ReportEntry{
			{Metric: "commits", Name: "Commits", Result: schema.NewResult(schema.AggregateShape,
				[]schema.Column{schema.Count("commits")},
				map[string]schema.Value{"commits": schema.ScalarValue(int64(12345))})},
			{Metric: "avg_commits_author", Name: "Average Commits per Author", Result: schema.NewResult(schema.AggregateShape,
				[]schema.Column{schema.Ratio("avg_commits_author")},
				map[string]schema.Value{"avg_commits_author": schema.ScalarValue(math.NaN())})},
		},
	}
}

func timeSeriesReport() *schema.Report {
	return &schema.Report{
		RunID:  "run-2",
		Kind:   schema.TimeSeriesReport,
		Source: schema.SCM,
		Filter: schema.Filter{Period: schema.PeriodMonth, Range: reportRange},
		Entries: []schema.ReportEntry{
			{Metric: "commits", Name: "Commits", Result: schema.NewResult(schema.TimeSeriesShape,
				[]schema.Column{schema.Count("id"), schema.Count("month"), schema.Count("unixtime"), schema.Label("date"), schema.Count("commits")},
				map[string]schema.Value{
					"id":       schema.SeriesValue([]any{int64(0), int64(1)}),
					"month":    schema.SeriesValue([]any{int64(24169), int64(24170)}),
					"unixtime": schema.SeriesValue([]any{int64(1388534400), int64(1391212800)}),
					"date":     schema.SeriesValue([]any{"Jan 2014", "Feb 2014"}),
					"commits":  schema.SeriesValue([]any{int64(7), int64(0)}),
				})},
		},
	}
}

func topReport() *schema.Report {
	return &schema.Report{
		RunID:  "run-3",
		Kind:   schema.TopListReport,
		Source: schema.SCM,
		Filter: schema.Filter{Range: reportRange, Limit: 2},
		Days:   30,
		Entries: []schema.ReportEntry{
			{Metric: "authors", Name: "Authors", Result: schema.NewResult(schema.TopListShape,
				[]schema.Column{schema.Count("id"), schema.Label("name"), schema.Count("commits")},
				map[string]schema.Value{
					"id":      schema.SeriesValue([]any{int64(3), int64(1)}),
					"name":    schema.SeriesValue([]any{"carol", "alice"}),
					"commits": schema.SeriesValue([]any{int64(20), int64(4)}),
				})},
		},
	}
}

func textConfig() *contract.Config {
	return &contract.Config{Output: schema.TextOut, Precision: 2, Width: 120}
}

func TestWriteReportText_Aggregate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReportText(&buf, aggregateReport(), textConfig()))
	out := buf.String()

	assert.Contains(t, out, "scm aggregate [2014-01-01, 2014-03-01)")
	assert.Contains(t, out, "12,345")
	assert.Contains(t, out, "Average Commits per Author")
	assert.Contains(t, out, "Computed 2 metrics")
	assert.Contains(t, out, "run-1")
}

func TestWriteReportText_TimeSeries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReportText(&buf, timeSeriesReport(), textConfig()))
	out := buf.String()

	assert.Contains(t, out, "by month")
	assert.Contains(t, out, "Jan 2014")
	assert.Contains(t, out, "Feb 2014")
	assert.NotContains(t, out, "24169")
	assert.NotContains(t, out, "1388534400")
}

func TestWriteReportText_Top(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReportText(&buf, topReport(), textConfig()))
	out := buf.String()

	assert.Contains(t, out, "(last 30 days)")
	assert.Less(t, strings.Index(out, "carol"), strings.Index(out, "alice"))
	assert.Contains(t, strings.ToUpper(out), "RANK")
}

func TestWriteReportText_Empty(t *testing.T) {
	var buf bytes.Buffer
	report := &schema.Report{Kind: schema.TimeSeriesReport, Source: schema.IRC, Filter: schema.Filter{Range: reportRange}}
	require.NoError(t, writeReportText(&buf, report, textConfig()))
	assert.Contains(t, buf.String(), "No metrics to show")
}

func TestWriteCSVReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCSVReport(&buf, aggregateReport(), 2))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"metric", "row", "column", "value"},
		{"commits", "0", "commits", "12345"},
		{"avg_commits_author", "0", "avg_commits_author", "NaN"},
	}, records)

	buf.Reset()
	require.NoError(t, writeCSVReport(&buf, timeSeriesReport(), 2))
	records, err = csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1+5*2)
	assert.Contains(t, records, []string{"commits", "1", "date", "Feb 2014"})
}

func TestWriteReport_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	cfg := &contract.Config{Output: schema.JSONOut, OutputFile: path, Precision: 2}
	require.NoError(t, WriteReport(aggregateReport(), cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded struct {
		RunID   string `json:"run_id"`
		Kind    string `json:"kind"`
		Metrics []struct {
			Metric string         `json:"metric"`
			Result map[string]any `json:"result"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, "aggregate", decoded.Kind)
	require.Len(t, decoded.Metrics, 2)
	assert.Equal(t, 12345.0, decoded.Metrics[0].Result["commits"])
	assert.Nil(t, decoded.Metrics[1].Result["avg_commits_author"])
}

func TestWriteReport_Parquet(t *testing.T) {
	err := WriteReport(aggregateReport(), &contract.Config{Output: schema.ParquetOut})
	assert.Error(t, err)
}

func TestWriteCatalog(t *testing.T) {
	infos := []metrics.Info{
		{ID: "commits", Name: "Commits", Desc: "Changes", Source: schema.SCM, Capabilities: []schema.Capability{schema.AggregateCap, schema.TimeSeriesCap}},
	}
	var buf bytes.Buffer
	require.NoError(t, writeCatalogText(&buf, schema.SCM, infos, textConfig()))
	assert.Contains(t, buf.String(), "aggregate|time-series")

	buf.Reset()
	require.NoError(t, writeCSVCatalog(&buf, infos))
	assert.Equal(t, "id,name,source,capabilities,description\ncommits,Commits,scm,aggregate|time-series,Changes\n", buf.String())
}
