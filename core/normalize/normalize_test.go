package normalize

import (
	"math"
	"testing"
	"time"

	"github.com/huangsam/grimoire/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var commitsCols = []schema.Column{schema.Count("commits"), schema.Ratio("avg"), schema.Label("name")}

func TestNormalize_Aggregate(t *testing.T) {
	t.Run("zero rows gives sentinels", func(t *testing.T) {
		res, err := Normalize(&schema.Rows{Columns: []string{"commits", "avg", "name"}}, schema.AggregateShape, commitsCols)
		require.NoError(t, err)
		v, _ := res.Value("commits")
		assert.Equal(t, int64(0), v.Scalar())
		f, ok := res.Float("avg")
		require.True(t, ok)
		assert.True(t, math.IsNaN(f))
		v, _ = res.Value("name")
		assert.Equal(t, "", v.Scalar())
	})

	t.Run("one row gives scalars", func(t *testing.T) {
		rows := &schema.Rows{
			Columns: []string{"name", "commits", "avg", "extra"},
			Values:  [][]any{{[]byte("core"), "12", nil, 1}},
		}
		res, err := Normalize(rows, schema.AggregateShape, commitsCols)
		require.NoError(t, err)
		assert.Equal(t, []string{"commits", "avg", "name"}, res.Names())
		v, _ := res.Value("commits")
		assert.False(t, v.IsSeries())
		assert.Equal(t, int64(12), v.Scalar())
		f, _ := res.Float("avg")
		assert.True(t, math.IsNaN(f), "NULL ratio is NaN")
		v, _ = res.Value("name")
		assert.Equal(t, "core", v.Scalar())
	})

	t.Run("many rows", func(t *testing.T) {
		rows := &schema.Rows{Columns: []string{"commits", "avg", "name"}, Values: [][]any{{1, 1.0, "a"}, {2, 2.0, "b"}}}
		_, err := Normalize(rows, schema.AggregateShape, commitsCols)
		assert.ErrorIs(t, err, ErrUnexpectedRows)
	})

	t.Run("missing column", func(t *testing.T) {
		rows := &schema.Rows{Columns: []string{"commits"}, Values: [][]any{{int64(1)}}}
		_, err := Normalize(rows, schema.AggregateShape, commitsCols)
		assert.ErrorIs(t, err, ErrMissingColumn)
	})
}

func TestNormalize_Series(t *testing.T) {
	cols := []schema.Column{schema.Count("month"), schema.Count("commits")}

	t.Run("single bucket is still a series", func(t *testing.T) {
		rows := &schema.Rows{Columns: []string{"month", "commits"}, Values: [][]any{{int64(24169), int64(3)}}}
		res, err := Normalize(rows, schema.TimeSeriesShape, cols)
		require.NoError(t, err)
		v, _ := res.Value("commits")
		assert.True(t, v.IsSeries())
		assert.Equal(t, []any{int64(3)}, v.Series())
	})

	t.Run("zero rows gives empty series", func(t *testing.T) {
		res, err := Normalize(&schema.Rows{}, schema.TimeSeriesShape, cols)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Len())
		v, ok := res.Value("month")
		require.True(t, ok)
		assert.True(t, v.IsSeries())
	})

	t.Run("equal lengths", func(t *testing.T) {
		rows := &schema.Rows{Columns: []string{"month", "commits"}, Values: [][]any{{int64(1), int64(2)}, {int64(2), nil}}}
		res, err := Normalize(rows, schema.TopListShape, cols)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2}, res.Floats("month"))
		assert.Equal(t, []float64{2, 0}, res.Floats("commits"))
	})

	t.Run("bad value", func(t *testing.T) {
		rows := &schema.Rows{Columns: []string{"month", "commits"}, Values: [][]any{{int64(1), "many"}}}
		_, err := Normalize(rows, schema.TimeSeriesShape, cols)
		assert.Error(t, err)
	})
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		in   any
		kind schema.ColumnKind
		want any
	}{
		{"int64 count", int64(4), schema.CountColumn, int64(4)},
		{"float count", 4.0, schema.CountColumn, int64(4)},
		{"fractional count", 4.5, schema.CountColumn, 4.5},
		{"decimal text", "7.0000", schema.CountColumn, int64(7)},
		{"bytes", []byte("3"), schema.CountColumn, int64(3)},
		{"bool", true, schema.CountColumn, int64(1)},
		{"nil count", nil, schema.CountColumn, int64(0)},
		{"ratio from int", int64(2), schema.RatioColumn, 2.0},
		{"ratio from text", "0.25", schema.RatioColumn, 0.25},
		{"label", []byte("x"), schema.LabelColumn, "x"},
		{"label from int", int64(9), schema.LabelColumn, "9"},
		{"label from time", time.Date(2014, 1, 2, 3, 4, 5, 0, time.UTC), schema.LabelColumn, "2014-01-02 03:04:05"},
		{"nil label", nil, schema.LabelColumn, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.in, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := Convert(nil, schema.RatioColumn)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got.(float64)))

	_, err = Convert(struct{}{}, schema.CountColumn)
	assert.Error(t, err)
}

func TestBackfill_FillsGaps(t *testing.T) {
	r := schema.NewTimeRange(
		time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2014, 5, 1, 0, 0, 0, 0, time.UTC),
	)
	// Jan and Mar have data, Feb and Apr do not
	rows := &schema.Rows{
		Columns: []string{"month", "commits", "avg"},
		Values:  [][]any{{int64(2014*12 + 1), int64(5), 1.5}, {int64(2014*12 + 3), int64(2), 0.5}},
	}
	res, err := Normalize(rows, schema.TimeSeriesShape, []schema.Column{schema.Count("month"), schema.Count("commits"), schema.Ratio("avg")})
	require.NoError(t, err)

	full, err := Backfill(res, schema.PeriodMonth, r)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "month", "unixtime", "date", "commits", "avg"}, full.Names())
	assert.Equal(t, 4, full.Len())
	assert.Equal(t, []float64{0, 1, 2, 3}, full.Floats("id"))
	assert.Equal(t, []float64{24169, 24170, 24171, 24172}, full.Floats("month"))
	assert.Equal(t, []float64{5, 0, 2, 0}, full.Floats("commits"))
	assert.Equal(t, []string{"Jan 2014", "Feb 2014", "Mar 2014", "Apr 2014"}, full.Strings("date"))

	avg := full.Floats("avg")
	assert.Equal(t, 1.5, avg[0])
	assert.True(t, math.IsNaN(avg[1]))
	assert.Equal(t, 0.5, avg[2])
	assert.True(t, math.IsNaN(avg[3]))

	starts := full.Floats("unixtime")
	assert.Equal(t, float64(time.Date(2014, 2, 1, 0, 0, 0, 0, time.UTC).Unix()), starts[1])

	// The input is left untouched
	assert.Equal(t, 2, res.Len())
}

func TestBackfill_Empty(t *testing.T) {
	r := schema.NewTimeRange(
		time.Date(2014, 1, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2014, 1, 9, 0, 0, 0, 0, time.UTC),
	)
	res, err := Normalize(&schema.Rows{}, schema.TimeSeriesShape, []schema.Column{schema.Count("unixtime"), schema.Count("commits")})
	require.NoError(t, err)

	full, err := Backfill(res, schema.PeriodDay, r)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "unixtime", "date", "commits"}, full.Names())
	assert.Equal(t, []float64{1388966400, 1389052800, 1389139200}, full.Floats("unixtime"))
	assert.Equal(t, []float64{0, 0, 0}, full.Floats("commits"))
	assert.Equal(t, "2014-01-06", full.Strings("date")[0])
}

func TestBackfill_NonePeriod(t *testing.T) {
	res := schema.EmptyResult(schema.TimeSeriesShape)
	_, err := Backfill(res, schema.PeriodNone, schema.TimeRange{})
	assert.Error(t, err)
}
