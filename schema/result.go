package schema

import (
	"bytes"
	"encoding/json"
	"math"
	"slices"
)

// ColumnKind tells the normalizer how to convert and back-fill a column.
type ColumnKind int

// All column kinds supported.
const (
	CountColumn ColumnKind = iota // integer counts, missing = 0
	RatioColumn                   // floating point ratios, missing = NaN
	LabelColumn                   // text, missing = ""
)

// Column describes one expected result column.
type Column struct {
	Name string
	Kind ColumnKind
}

// Count declares a count-like column.
func Count(name string) Column { return Column{Name: name, Kind: CountColumn} }

// Ratio declares a ratio column.
func Ratio(name string) Column { return Column{Name: name, Kind: RatioColumn} }

// Label declares a text column.
func Label(name string) Column { return Column{Name: name, Kind: LabelColumn} }

// Missing returns the sentinel used when a column has no data.
func (k ColumnKind) Missing() any {
	switch k {
	case RatioColumn:
		return math.NaN()
	case LabelColumn:
		return ""
	default:
		return int64(0)
	}
}

// Shape is the canonical layout of a Result.
type Shape string

// All result shapes supported.
const (
	AggregateShape  Shape = "aggregate"
	TimeSeriesShape Shape = "time-series"
	TopListShape    Shape = "top-list"
	ListShape       Shape = "list"
)

// Value is either a scalar or an ordered series.
type Value struct {
	scalar   any
	series   []any
	isSeries bool
}

// ScalarValue wraps a single value.
func ScalarValue(v any) Value { return Value{scalar: v} }

// SeriesValue wraps an ordered sequence. The slice is copied.
func SeriesValue(vs []any) Value {
	cp := make([]any, len(vs))
	copy(cp, vs)
	return Value{series: cp, isSeries: true}
}

// IsSeries reports whether the value is a sequence.
func (v Value) IsSeries() bool { return v.isSeries }

// Scalar returns the scalar, or nil for a series.
func (v Value) Scalar() any { return v.scalar }

// Series returns a copy of the sequence, or nil for a scalar.
func (v Value) Series() []any {
	if !v.isSeries {
		return nil
	}
	return slices.Clone(v.series)
}

// Len returns the sequence length, or 1 for a scalar.
func (v Value) Len() int {
	if v.isSeries {
		return len(v.series)
	}
	return 1
}

// At returns the i-th element of a series, or the scalar when i == 0.
func (v Value) At(i int) any {
	if !v.isSeries {
		if i == 0 {
			return v.scalar
		}
		return nil
	}
	if i < 0 || i >= len(v.series) {
		return nil
	}
	return v.series[i]
}

// MarshalJSON writes NaN and infinities as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.isSeries {
		return json.Marshal(jsonSafe(v.scalar))
	}
	out := make([]any, len(v.series))
	for i, e := range v.series {
		out[i] = jsonSafe(e)
	}
	return json.Marshal(out)
}

func jsonSafe(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}

// Result maps column names to scalars or series. It is built once by the
// normalizer and only read afterwards.
type Result struct {
	Shape   Shape
	Columns []Column
	values  map[string]Value
}

// NewResult builds a Result. Columns without a value are left out of Values lookups.
func NewResult(shape Shape, columns []Column, values map[string]Value) *Result {
	vals := make(map[string]Value, len(values))
	for k, v := range values {
		vals[k] = v
	}
	return &Result{Shape: shape, Columns: slices.Clone(columns), values: vals}
}

// EmptyResult is what a metric returns for a capability it declines to compute.
func EmptyResult(shape Shape) *Result {
	return &Result{Shape: shape, values: map[string]Value{}}
}

// IsEmpty reports whether the result carries no columns.
func (r *Result) IsEmpty() bool {
	return r == nil || len(r.Columns) == 0
}

// Names returns column names in order.
func (r *Result) Names() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the declared column by name.
func (r *Result) Column(name string) (Column, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Value returns the value stored for a column.
func (r *Result) Value(name string) (Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Len returns the number of rows: the series length, or 1 for scalar results.
func (r *Result) Len() int {
	if r.IsEmpty() {
		return 0
	}
	v, ok := r.values[r.Columns[0].Name]
	if !ok {
		return 0
	}
	return v.Len()
}

// Float returns a scalar column as float64.
func (r *Result) Float(name string) (float64, bool) {
	v, ok := r.values[name]
	if !ok || v.IsSeries() {
		return 0, false
	}
	return ToFloat(v.Scalar())
}

// Floats returns a series column as []float64. Non-numeric entries become NaN.
func (r *Result) Floats(name string) []float64 {
	v, ok := r.values[name]
	if !ok {
		return nil
	}
	n := v.Len()
	out := make([]float64, n)
	for i := range n {
		f, ok := ToFloat(v.At(i))
		if !ok {
			f = math.NaN()
		}
		out[i] = f
	}
	return out
}

// Strings returns a series column as []string.
func (r *Result) Strings(name string) []string {
	v, ok := r.values[name]
	if !ok {
		return nil
	}
	n := v.Len()
	out := make([]string, n)
	for i := range n {
		if s, ok := v.At(i).(string); ok {
			out[i] = s
		}
	}
	return out
}

// MarshalJSON writes columns in declaration order.
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, c := range r.Columns {
		v, ok := r.values[c.Name]
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ToFloat converts the numeric types produced by the normalizer.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}
