// Package metrics defines the metric contract, the engine that runs metrics
// against a store, and the catalog of metrics for every data source.
package metrics

import (
	"context"
	"errors"
	"slices"

	"github.com/huangsam/grimoire/core/dimension"
	"github.com/huangsam/grimoire/core/fragment"
	"github.com/huangsam/grimoire/core/query"
	"github.com/huangsam/grimoire/schema"
)

var (
	// ErrUnknownMetric is returned for a metric id the catalog does not hold.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrCapability is returned when a metric cannot produce the requested shape.
	ErrCapability = errors.New("metric does not support this capability")
)

// Info describes a metric. It never changes after the metric is built.
type Info struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Desc         string              `json:"desc"`
	Source       schema.DataSource   `json:"data_source"`
	Capabilities []schema.Capability `json:"capabilities"`
	Role         schema.Role         `json:"-"` // person column used by dimension joins
	Date         string              `json:"-"` // date column, empty for the source default
}

// Supports reports whether the metric declares the capability.
func (i Info) Supports(c schema.Capability) bool {
	return slices.Contains(i.Capabilities, c)
}

// Scope is what a metric sees while contributing fragments for one call.
type Scope struct {
	Filter  schema.Filter
	Source  dimension.SourceSchema
	Tables  dimension.Tables
	Periods int // buckets of Filter.Period in Filter.Range, for per-period averages
}

// Quote renders a string literal in the store dialect.
func (s Scope) Quote(v string) string { return s.Tables.Quote(v) }

func (s Scope) activity() fragment.Fragments {
	return fragment.Fragments{}.Table(s.Source.Activity)
}

// Metric contributes the fields, tables and filters of one measure. It holds
// no state between calls.
type Metric interface {
	Info() Info
	Columns() []schema.Column
	Fragments(Scope) (fragment.Fragments, error)
}

// Ranked metrics group activity by entity for top-lists and lists.
type Ranked interface {
	Metric
	Ranking(Scope) (fragment.Fragments, query.Ranking, []schema.Column, error)
}

// AggregateOnly metrics have no time series; asking for one yields an empty result.
type AggregateOnly interface {
	Metric
	AggregateOnly() bool
}

// Evaluator metrics post-process raw rows instead of letting SQL aggregate them.
type Evaluator interface {
	Metric
	Evaluate(ctx context.Context, e *Engine, c schema.Capability, f schema.Filter) (*schema.Result, error)
}
