// Package normalize converts raw store rows into canonical results.
package normalize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/grimoire/schema"
)

var (
	// ErrUnexpectedRows is returned when an aggregate query yields more than one row.
	ErrUnexpectedRows = errors.New("aggregate query returned more than one row")

	// ErrMissingColumn is returned when rows lack an expected column.
	ErrMissingColumn = errors.New("missing result column")
)

// Normalize shapes rows into a Result holding exactly the expected columns.
// Aggregates become scalars and every other shape becomes equal-length series.
func Normalize(rows *schema.Rows, shape schema.Shape, expected []schema.Column) (*schema.Result, error) {
	if shape == schema.AggregateShape {
		return aggregate(rows, expected)
	}

	values := make(map[string]schema.Value, len(expected))
	if rows.Len() == 0 {
		for _, c := range expected {
			values[c.Name] = schema.SeriesValue(nil)
		}
		return schema.NewResult(shape, expected, values), nil
	}

	idx, err := indexes(rows, expected)
	if err != nil {
		return nil, err
	}
	for i, c := range expected {
		series := make([]any, rows.Len())
		for r, row := range rows.Values {
			v, err := Convert(row[idx[i]], c.Kind)
			if err != nil {
				return nil, fmt.Errorf("column %s, row %d: %w", c.Name, r, err)
			}
			series[r] = v
		}
		values[c.Name] = schema.SeriesValue(series)
	}
	return schema.NewResult(shape, expected, values), nil
}

func aggregate(rows *schema.Rows, expected []schema.Column) (*schema.Result, error) {
	values := make(map[string]schema.Value, len(expected))
	switch rows.Len() {
	case 0:
		for _, c := range expected {
			values[c.Name] = schema.ScalarValue(c.Kind.Missing())
		}
	case 1:
		idx, err := indexes(rows, expected)
		if err != nil {
			return nil, err
		}
		for i, c := range expected {
			v, err := Convert(rows.Values[0][idx[i]], c.Kind)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", c.Name, err)
			}
			values[c.Name] = schema.ScalarValue(v)
		}
	default:
		return nil, fmt.Errorf("%w: got %d", ErrUnexpectedRows, rows.Len())
	}
	return schema.NewResult(schema.AggregateShape, expected, values), nil
}

func indexes(rows *schema.Rows, expected []schema.Column) ([]int, error) {
	idx := make([]int, len(expected))
	for i, c := range expected {
		idx[i] = rows.Index(c.Name)
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: %s (have %s)", ErrMissingColumn, c.Name, strings.Join(rows.Columns, ", "))
		}
	}
	return idx, nil
}

// Convert maps a raw driver value to the canonical type of a column kind:
// int64 for counts, float64 for ratios and string for labels. Counts that
// are not whole numbers stay float64.
func Convert(v any, kind schema.ColumnKind) (any, error) {
	if v == nil {
		return kind.Missing(), nil
	}
	if kind == schema.LabelColumn {
		return label(v), nil
	}

	f, err := number(v)
	if err != nil {
		return nil, err
	}
	if kind == schema.RatioColumn {
		return f, nil
	}
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return int64(f), nil
	}
	return f, nil
}

func number(v any) (float64, error) {
	switch n := v.(type) {
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return parseNumber(string(n))
	case string:
		return parseNumber(n)
	default:
		return 0, fmt.Errorf("cannot convert %T to a number", v)
	}
}

// parseNumber handles DECIMAL and NUMERIC values that drivers hand back as text.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %q to a number", s)
	}
	return f, nil
}

func label(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case time.Time:
		return s.UTC().Format(time.DateTime)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
