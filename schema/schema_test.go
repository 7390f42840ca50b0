package schema

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeRange(t *testing.T) {
	r := NewTimeRange(
		time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2014, 2, 1, 0, 0, 0, 0, time.UTC),
	)

	t.Run("half open", func(t *testing.T) {
		assert.True(t, r.Contains(r.Start))
		assert.True(t, r.Contains(time.Date(2014, 1, 31, 23, 59, 59, 0, time.UTC)))
		assert.False(t, r.Contains(r.End))
	})

	t.Run("last days", func(t *testing.T) {
		last := r.Last(7)
		assert.Equal(t, time.Date(2014, 1, 25, 0, 0, 0, 0, time.UTC), last.Start)
		assert.Equal(t, r.End, last.End)
	})

	t.Run("string", func(t *testing.T) {
		assert.Equal(t, "[2014-01-01, 2014-02-01)", r.String())
	})
}

func TestFilterCopies(t *testing.T) {
	base := Filter{Period: PeriodMonth, Dimensions: []Dimension{{Kind: CompanyDimension, Value: "Acme"}}}
	scoped := base.WithDimension(Dimension{Kind: RepositoryDimension, Value: "core"})

	assert.Len(t, base.Dimensions, 1)
	assert.Len(t, scoped.Dimensions, 2)
	assert.False(t, Unscoped.IsScoped())
	assert.True(t, scoped.Dimensions[1].IsScoped())
}

func TestPeriodKey(t *testing.T) {
	assert.Equal(t, "unixtime", PeriodDay.Key())
	assert.Equal(t, "week", PeriodWeek.Key())
	assert.Equal(t, "month", PeriodMonth.Key())
	assert.Equal(t, "year", PeriodYear.Key())
}

func TestRowsIndex(t *testing.T) {
	var nilRows *Rows
	assert.Equal(t, 0, nilRows.Len())

	rows := &Rows{Columns: []string{"month", "commits"}, Values: [][]any{{int64(24169), int64(3)}}}
	assert.Equal(t, 1, rows.Len())
	assert.Equal(t, 1, rows.Index("commits"))
	assert.Equal(t, -1, rows.Index("authors"))
}

func TestResultAccessors(t *testing.T) {
	res := NewResult(TimeSeriesShape,
		[]Column{Count("month"), Count("commits"), Ratio("avg"), Label("name")},
		map[string]Value{
			"month":   SeriesValue([]any{int64(1), int64(2)}),
			"commits": SeriesValue([]any{int64(3), int64(0)}),
			"avg":     SeriesValue([]any{1.5, math.NaN()}),
			"name":    SeriesValue([]any{"a", "b"}),
		})

	assert.Equal(t, 2, res.Len())
	assert.Equal(t, []string{"month", "commits", "avg", "name"}, res.Names())
	assert.Equal(t, []float64{3, 0}, res.Floats("commits"))
	assert.Equal(t, []string{"a", "b"}, res.Strings("name"))

	col, ok := res.Column("avg")
	require.True(t, ok)
	assert.Equal(t, RatioColumn, col.Kind)
	assert.True(t, math.IsNaN(res.Floats("avg")[1]))

	_, ok = res.Float("commits")
	assert.False(t, ok, "series columns are not scalars")
}

func TestResultJSON(t *testing.T) {
	t.Run("aggregate with NaN", func(t *testing.T) {
		res := NewResult(AggregateShape,
			[]Column{Count("commits"), Ratio("avg_commits")},
			map[string]Value{
				"commits":     ScalarValue(int64(0)),
				"avg_commits": ScalarValue(math.NaN()),
			})
		b, err := json.Marshal(res)
		require.NoError(t, err)
		assert.JSONEq(t, `{"commits":0,"avg_commits":null}`, string(b))
		assert.Equal(t, `{"commits":0,"avg_commits":null}`, string(b), "keys follow column order")
	})

	t.Run("series", func(t *testing.T) {
		res := NewResult(TimeSeriesShape,
			[]Column{Count("month"), Count("commits")},
			map[string]Value{
				"month":   SeriesValue([]any{int64(24169)}),
				"commits": SeriesValue([]any{int64(2)}),
			})
		b, err := json.Marshal(res)
		require.NoError(t, err)
		assert.Equal(t, `{"month":[24169],"commits":[2]}`, string(b))
	})

	t.Run("empty", func(t *testing.T) {
		b, err := json.Marshal(EmptyResult(TimeSeriesShape))
		require.NoError(t, err)
		assert.Equal(t, `{}`, string(b))
		assert.True(t, EmptyResult(AggregateShape).IsEmpty())
	})
}

func TestMissingSentinels(t *testing.T) {
	assert.Equal(t, int64(0), CountColumn.Missing())
	assert.Equal(t, "", LabelColumn.Missing())
	f, ok := RatioColumn.Missing().(float64)
	require.True(t, ok)
	assert.True(t, math.IsNaN(f))
}
