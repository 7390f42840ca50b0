// Package schema has enums, filters and result models for all parts of grimoire.
package schema

import (
	"fmt"
	"time"
)

// TimeRange is the half-open interval [Start, End) applied to a metric's date column.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeRange builds a TimeRange normalized to UTC.
func NewTimeRange(start, end time.Time) TimeRange {
	return TimeRange{Start: start.UTC(), End: end.UTC()}
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Last returns the window of the given number of days that ends where r ends.
func (r TimeRange) Last(days int) TimeRange {
	return TimeRange{Start: r.End.AddDate(0, 0, -days), End: r.End}
}

// String renders the range for logs and headers.
func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
}

// Dimension scopes a query along one axis. An empty Value keeps the joins
// but drops the equality predicate, which is what grouped lists need.
type Dimension struct {
	Kind    DimensionKind `json:"kind"`
	Value   string        `json:"value,omitempty"`
	Exclude []string      `json:"exclude,omitempty"`
}

// Unscoped is the dimension that adds nothing to a query.
var Unscoped = Dimension{Kind: NoDimension}

// IsScoped reports whether the dimension contributes fragments.
func (d Dimension) IsScoped() bool {
	return d.Kind != "" && d.Kind != NoDimension
}

// Filter carries every per-call parameter of a metric computation.
// Metrics never keep a Filter between calls.
type Filter struct {
	Period       Period      `json:"period"`
	Range        TimeRange   `json:"range"`
	Dimensions   []Dimension `json:"dimensions,omitempty"`
	Limit        int         `json:"limit,omitempty"` // npeople for top-lists, 0 means unlimited
	PeopleOut    []string    `json:"people_out,omitempty"`
	CompaniesOut []string    `json:"companies_out,omitempty"`
}

// WithRange returns a copy of the filter scoped to another range.
func (f Filter) WithRange(r TimeRange) Filter {
	f.Range = r
	return f
}

// WithDimension returns a copy of the filter with one more dimension appended.
func (f Filter) WithDimension(d Dimension) Filter {
	dims := make([]Dimension, 0, len(f.Dimensions)+1)
	dims = append(dims, f.Dimensions...)
	f.Dimensions = append(dims, d)
	return f
}

// Rows holds raw column-labelled rows returned by the store.
type Rows struct {
	Columns []string
	Values  [][]any
}

// Len returns the number of rows.
func (r *Rows) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Values)
}

// Index returns the position of a column, or -1.
func (r *Rows) Index(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}
