package metrics

import (
	"context"
	"fmt"

	"github.com/huangsam/grimoire/core/dimension"
	"github.com/huangsam/grimoire/core/fragment"
	"github.com/huangsam/grimoire/core/normalize"
	"github.com/huangsam/grimoire/core/query"
	"github.com/huangsam/grimoire/internal/contract"
	"github.com/huangsam/grimoire/schema"
	"go.uber.org/zap"
)

// Engine composes, runs and normalizes metric queries. It is synchronous and
// keeps no per-call state, so one Engine serves any number of calls.
type Engine struct {
	store    contract.Querier
	composer *query.Composer
	resolver *dimension.Resolver
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for composed queries.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine returns an Engine reading from store. The resolver and composer
// must target the store dialect.
func NewEngine(store contract.Querier, composer *query.Composer, resolver *dimension.Resolver, opts ...Option) *Engine {
	e := &Engine{store: store, composer: composer, resolver: resolver, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the project registry behind dimension resolution.
func (e *Engine) Registry() contract.ProjectRegistry { return e.resolver.Registry() }

func (e *Engine) scope(m Metric, f schema.Filter) (Scope, error) {
	src, err := dimension.Source(m.Info().Source)
	if err != nil {
		return Scope{}, err
	}
	s := Scope{Filter: f, Source: src, Tables: e.resolver.Tables()}
	if ao, ok := m.(AggregateOnly); ok && ao.AggregateOnly() {
		period := f.Period
		if period == schema.PeriodNone || period == "" {
			period = schema.PeriodMonth
		}
		if s.Periods, err = query.PeriodCount(period, f.Range); err != nil {
			return Scope{}, err
		}
	}
	return s, nil
}

func dateColumn(m Metric, s Scope) string {
	if d := m.Info().Date; d != "" {
		return d
	}
	return s.Source.Date
}

func supports(m Metric, c schema.Capability) error {
	if !m.Info().Supports(c) {
		return fmt.Errorf("%w: %s does not support %s", ErrCapability, m.Info().ID, c)
	}
	return nil
}

// fragments merges the metric fragments with every dimension of the filter.
func (e *Engine) fragments(ctx context.Context, m Metric, s Scope, own fragment.Fragments) (fragment.Fragments, error) {
	dims, err := e.resolver.ResolveAll(ctx, s.Source.Source, s.Filter.Dimensions, m.Info().Role)
	if err != nil {
		return fragment.Fragments{}, err
	}
	return fragment.Merge(own, dims), nil
}

// Plan returns the SQL a capability would run, without running it.
func (e *Engine) Plan(ctx context.Context, m Metric, c schema.Capability, f schema.Filter) (query.Query, error) {
	if err := supports(m, c); err != nil {
		return query.Query{}, err
	}
	if _, ok := m.(Evaluator); ok {
		return query.Query{}, fmt.Errorf("%w: %s is computed from several queries", ErrCapability, m.Info().ID)
	}
	s, err := e.scope(m, f)
	if err != nil {
		return query.Query{}, err
	}

	switch c {
	case schema.TopListCap, schema.ListCap:
		r, ok := m.(Ranked)
		if !ok {
			return query.Query{}, fmt.Errorf("%w: %s has no ranking", ErrCapability, m.Info().ID)
		}
		own, rank, _, err := r.Ranking(s)
		if err != nil {
			return query.Query{}, err
		}
		frags, err := e.fragments(ctx, m, s, own)
		if err != nil {
			return query.Query{}, err
		}
		if c == schema.ListCap {
			rank.Limit = 0
		}
		q, err := e.composer.Ranked(dateColumn(m, s), frags, f.Range, rank)
		if err != nil {
			return query.Query{}, err
		}
		if c == schema.ListCap {
			q.Shape = schema.ListShape
		}
		return q, nil
	default:
		own, err := m.Fragments(s)
		if err != nil {
			return query.Query{}, err
		}
		frags, err := e.fragments(ctx, m, s, own)
		if err != nil {
			return query.Query{}, err
		}
		return e.composer.Compose(dateColumn(m, s), frags, f.Range, f.Period, c == schema.TimeSeriesCap)
	}
}

// run executes a composed query and normalizes its rows.
func (e *Engine) run(ctx context.Context, m Metric, q query.Query, expected []schema.Column) (*schema.Result, error) {
	e.logger.Debug("running metric query",
		zap.String("metric", m.Info().ID),
		zap.String("shape", string(q.Shape)),
		zap.String("sql", q.SQL))
	rows, err := e.store.Query(ctx, q.SQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", m.Info().ID, err)
	}
	res, err := normalize.Normalize(rows, q.Shape, expected)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize %s: %w", m.Info().ID, err)
	}
	return res, nil
}

// Aggregate returns one scalar per metric column over the filter range.
func (e *Engine) Aggregate(ctx context.Context, m Metric, f schema.Filter) (*schema.Result, error) {
	if ev, ok := m.(Evaluator); ok {
		if err := supports(m, schema.AggregateCap); err != nil {
			return nil, err
		}
		return ev.Evaluate(ctx, e, schema.AggregateCap, f)
	}
	q, err := e.Plan(ctx, m, schema.AggregateCap, f)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, m, q, m.Columns())
}

// TimeSeries returns one row per period bucket of the range, gaps included.
// Aggregate-only metrics return an empty result.
func (e *Engine) TimeSeries(ctx context.Context, m Metric, f schema.Filter) (*schema.Result, error) {
	if ao, ok := m.(AggregateOnly); ok && ao.AggregateOnly() {
		return schema.EmptyResult(schema.TimeSeriesShape), nil
	}
	if ev, ok := m.(Evaluator); ok {
		if err := supports(m, schema.TimeSeriesCap); err != nil {
			return nil, err
		}
		return ev.Evaluate(ctx, e, schema.TimeSeriesCap, f)
	}
	q, err := e.Plan(ctx, m, schema.TimeSeriesCap, f)
	if err != nil {
		return nil, err
	}
	expected := append([]schema.Column{schema.Count(q.Bucket.Alias)}, m.Columns()...)
	res, err := e.run(ctx, m, q, expected)
	if err != nil {
		return nil, err
	}
	return normalize.Backfill(res, f.Period, f.Range)
}

// Top returns the highest ranked entities, at most Filter.Limit of them.
// A positive days narrows the range to its last days.
func (e *Engine) Top(ctx context.Context, m Metric, f schema.Filter, days int) (*schema.Result, error) {
	if days > 0 {
		f = f.WithRange(lastDays(f.Range, days))
	}
	return e.ranked(ctx, m, schema.TopListCap, f)
}

// List returns every entity with activity in the range, ranked.
func (e *Engine) List(ctx context.Context, m Metric, f schema.Filter) (*schema.Result, error) {
	return e.ranked(ctx, m, schema.ListCap, f)
}

func (e *Engine) ranked(ctx context.Context, m Metric, c schema.Capability, f schema.Filter) (*schema.Result, error) {
	if ev, ok := m.(Evaluator); ok {
		if err := supports(m, c); err != nil {
			return nil, err
		}
		return ev.Evaluate(ctx, e, c, f)
	}
	r, ok := m.(Ranked)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no ranking", ErrCapability, m.Info().ID)
	}
	q, err := e.Plan(ctx, m, c, f)
	if err != nil {
		return nil, err
	}
	s, err := e.scope(m, f)
	if err != nil {
		return nil, err
	}
	_, _, cols, err := r.Ranking(s)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, m, q, cols)
}

// lastDays returns the last days of r, never reaching before its start.
func lastDays(r schema.TimeRange, days int) schema.TimeRange {
	last := r.Last(days)
	if last.Start.Before(r.Start) {
		last.Start = r.Start
	}
	return last
}

// rows runs a plain aggregate-shaped query built from frags and returns the
// raw rows. Evaluators use it to fetch the values they post-process.
func (e *Engine) rows(ctx context.Context, m Metric, f schema.Filter, build builder) (*schema.Rows, error) {
	s, err := e.scope(m, f)
	if err != nil {
		return nil, err
	}
	own, err := build(s)
	if err != nil {
		return nil, err
	}
	frags, err := e.fragments(ctx, m, s, own)
	if err != nil {
		return nil, err
	}
	q, err := e.composer.Compose(dateColumn(m, s), frags, f.Range, f.Period, false)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("running metric query", zap.String("metric", m.Info().ID), zap.String("sql", q.SQL))
	rows, err := e.store.Query(ctx, q.SQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", m.Info().ID, err)
	}
	return rows, nil
}
