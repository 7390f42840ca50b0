package normalize

import (
	"fmt"

	"github.com/huangsam/grimoire/core/query"
	"github.com/huangsam/grimoire/schema"
)

// Backfill columns added next to the period key.
const (
	IDColumn       = "id"
	DateColumn     = "date"
	UnixTimeColumn = "unixtime"
)

// Backfill returns a new time series with one row per bucket of the range,
// in increasing order. Buckets without data get the sentinel of each column
// kind, and rows whose bucket falls outside the range are dropped. The
// result also carries the position, a human label and the bucket start.
func Backfill(res *schema.Result, period schema.Period, r schema.TimeRange) (*schema.Result, error) {
	ids, err := query.BucketIDs(period, r)
	if err != nil {
		return nil, err
	}
	key := period.Key()

	rowOf := map[int64]int{}
	if v, ok := res.Value(key); ok {
		for i := range v.Len() {
			f, ok := schema.ToFloat(v.At(i))
			if !ok {
				return nil, fmt.Errorf("%w: %s holds %T", ErrMissingColumn, key, v.At(i))
			}
			rowOf[int64(f)] = i
		}
	} else if res.Len() > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, key)
	}

	n := len(ids)
	pos := make([]any, n)
	keys := make([]any, n)
	dates := make([]any, n)
	starts := make([]any, n)
	for i, id := range ids {
		label, err := query.BucketLabel(period, id)
		if err != nil {
			return nil, err
		}
		start, err := query.BucketStart(period, id)
		if err != nil {
			return nil, err
		}
		pos[i], keys[i], dates[i], starts[i] = int64(i), id, label, start.Unix()
	}

	cols := []schema.Column{schema.Count(IDColumn), schema.Count(key)}
	values := map[string]schema.Value{
		IDColumn:   schema.SeriesValue(pos),
		key:        schema.SeriesValue(keys),
		DateColumn: schema.SeriesValue(dates),
	}
	if key != UnixTimeColumn {
		cols = append(cols, schema.Count(UnixTimeColumn))
		values[UnixTimeColumn] = schema.SeriesValue(starts)
	}
	cols = append(cols, schema.Label(DateColumn))

	for _, c := range res.Columns {
		switch c.Name {
		case key, IDColumn, DateColumn, UnixTimeColumn:
			continue
		}
		src, _ := res.Value(c.Name)
		filled := make([]any, n)
		for i, id := range ids {
			if row, ok := rowOf[id]; ok {
				filled[i] = src.At(row)
			} else {
				filled[i] = c.Kind.Missing()
			}
		}
		cols = append(cols, c)
		values[c.Name] = schema.SeriesValue(filled)
	}
	return schema.NewResult(schema.TimeSeriesShape, cols, values), nil
}
