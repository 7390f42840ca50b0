package metrics

import (
	"context"
	"fmt"
	"math"

	"github.com/huangsam/grimoire/schema"
)

// PercentageDiff returns the change from prev to last in whole percent.
// A zero or undefined prev gives 0.
func PercentageDiff(prev, last float64) int64 {
	if prev == 0 || math.IsNaN(prev) || math.IsNaN(last) {
		return 0
	}
	return int64(math.Round((last - prev) / prev * 100))
}

// Trends compares the last days before the range end with the days before
// them. For every numeric column c it returns c_<days>, diff_netc_<days>
// and percentage_c_<days>.
func (e *Engine) Trends(ctx context.Context, m Metric, f schema.Filter, days int) (*schema.Result, error) {
	if days <= 0 {
		return nil, fmt.Errorf("trends need a positive number of days (received %d)", days)
	}
	end := f.Range.End
	last := schema.NewTimeRange(end.AddDate(0, 0, -days), end)
	prev := schema.NewTimeRange(end.AddDate(0, 0, -2*days), last.Start)

	lastRes, err := e.Aggregate(ctx, m, f.WithRange(last))
	if err != nil {
		return nil, err
	}
	prevRes, err := e.Aggregate(ctx, m, f.WithRange(prev))
	if err != nil {
		return nil, err
	}

	var cols []schema.Column
	values := map[string]schema.Value{}
	for _, c := range lastRes.Columns {
		if c.Kind == schema.LabelColumn {
			continue
		}
		lv, lok := lastRes.Float(c.Name)
		pv, pok := prevRes.Float(c.Name)
		if !lok || !pok {
			continue
		}
		name := fmt.Sprintf("%s_%d", c.Name, days)
		diff := fmt.Sprintf("diff_net%s_%d", c.Name, days)
		pct := fmt.Sprintf("percentage_%s_%d", c.Name, days)

		cur, _ := lastRes.Value(c.Name)
		values[name] = cur
		if c.Kind == schema.CountColumn {
			values[diff] = schema.ScalarValue(int64(lv) - int64(pv))
		} else {
			values[diff] = schema.ScalarValue(lv - pv)
		}
		values[pct] = schema.ScalarValue(PercentageDiff(pv, lv))
		cols = append(cols, schema.Column{Name: name, Kind: c.Kind}, schema.Column{Name: diff, Kind: c.Kind}, schema.Count(pct))
	}
	return schema.NewResult(schema.AggregateShape, cols, values), nil
}
