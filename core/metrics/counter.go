package metrics

import (
	"fmt"
	"slices"

	"github.com/huangsam/grimoire/core/fragment"
	"github.com/huangsam/grimoire/core/query"
	"github.com/huangsam/grimoire/schema"
)

// builder contributes fragments for a scope.
type builder func(Scope) (fragment.Fragments, error)

// ranker contributes the grouped fragments of a top-list.
type ranker func(Scope) (fragment.Fragments, query.Ranking, []schema.Column, error)

// counter is a metric fully expressed as SQL fragments.
type counter struct {
	info      Info
	columns   []schema.Column
	build     builder
	rank      ranker
	perPeriod bool
}

var (
	_ Ranked        = &counter{}
	_ AggregateOnly = &counter{}
)

func (c *counter) Info() Info {
	info := c.info
	info.Capabilities = slices.Clone(c.info.Capabilities)
	return info
}

func (c *counter) Columns() []schema.Column { return slices.Clone(c.columns) }

func (c *counter) Fragments(s Scope) (fragment.Fragments, error) { return c.build(s) }

func (c *counter) Ranking(s Scope) (fragment.Fragments, query.Ranking, []schema.Column, error) {
	if c.rank == nil {
		return fragment.Fragments{}, query.Ranking{}, nil, fmt.Errorf("%w: %s has no ranking", ErrCapability, c.info.ID)
	}
	return c.rank(s)
}

func (c *counter) AggregateOnly() bool { return c.perPeriod }

// caps lists capabilities.
func caps(cs ...schema.Capability) []schema.Capability { return cs }

var (
	aggTS     = caps(schema.AggregateCap, schema.TimeSeriesCap)
	aggTSRank = caps(schema.AggregateCap, schema.TimeSeriesCap, schema.TopListCap, schema.ListCap)
	aggOnly   = caps(schema.AggregateCap)
)

// count builds a counter whose single column is named after the metric.
func count(info Info, expr string, joins builder) *counter {
	return &counter{
		info:    info,
		columns: []schema.Column{schema.Count(info.ID)},
		build:   selecting(joins, expr+" AS "+info.ID),
	}
}

// ratio builds a counter whose single ratio column is named after the metric.
func ratio(info Info, expr string, joins builder) *counter {
	return &counter{
		info:    info,
		columns: []schema.Column{schema.Ratio(info.ID)},
		build:   selecting(joins, expr+" AS "+info.ID),
	}
}

// perPeriod builds an average over the buckets of the filter period. The
// bucket count is computed before composing and inlined.
func perPeriod(info Info, expr string, joins builder) *counter {
	c := &counter{info: info, columns: []schema.Column{schema.Ratio(info.ID)}, perPeriod: true}
	c.build = func(s Scope) (fragment.Fragments, error) {
		f, err := joins(s)
		if err != nil {
			return fragment.Fragments{}, err
		}
		if s.Periods <= 0 {
			return f.Field("NULL AS " + info.ID), nil
		}
		return f.Field(fmt.Sprintf("%s * 1.0 / %d AS %s", expr, s.Periods, info.ID)), nil
	}
	return c
}

// perEntity divides expr by the distinct count of per, NULL when there is none.
func perEntity(num, per string) string {
	return fmt.Sprintf("%s * 1.0 / NULLIF(%s, 0)", num, per)
}

func selecting(joins builder, fields ...string) builder {
	return func(s Scope) (fragment.Fragments, error) {
		f, err := joins(s)
		if err != nil {
			return fragment.Fragments{}, err
		}
		return f.Field(fields...), nil
	}
}

// ranked attaches a ranking to a counter.
func (c *counter) ranked(r ranker) *counter {
	c.rank = r
	return c
}

// --- joins ---

func activity(s Scope) (fragment.Fragments, error) { return s.activity(), nil }

func withFilters(joins builder, filters ...string) builder {
	return func(s Scope) (fragment.Fragments, error) {
		f, err := joins(s)
		if err != nil {
			return fragment.Fragments{}, err
		}
		return f.Filter(filters...), nil
	}
}

func withTables(joins builder, tables []string, filters ...string) builder {
	return func(s Scope) (fragment.Fragments, error) {
		f, err := joins(s)
		if err != nil {
			return fragment.Fragments{}, err
		}
		return f.Table(tables...).Filter(filters...), nil
	}
}

func people(role schema.Role) builder {
	return func(s Scope) (fragment.Fragments, error) {
		return s.Source.PersonLink(role), nil
	}
}

func both(a, b builder) builder {
	return func(s Scope) (fragment.Fragments, error) {
		fa, err := a(s)
		if err != nil {
			return fragment.Fragments{}, err
		}
		fb, err := b(s)
		if err != nil {
			return fragment.Fragments{}, err
		}
		return fragment.Merge(fa, fb), nil
	}
}

func affiliated(kind schema.DimensionKind, role schema.Role) builder {
	return func(s Scope) (fragment.Fragments, error) {
		f, _, err := s.Tables.Affiliation(s.Source, role, kind)
		return f, err
	}
}

// --- rankings ---

// byPerson ranks unique identities by expr. PeopleOut drops identities by identifier.
func byPerson(expr, col string, role schema.Role, joins builder) ranker {
	return func(s Scope) (fragment.Fragments, query.Ranking, []schema.Column, error) {
		f, err := joins(s)
		if err != nil {
			return fragment.Fragments{}, query.Ranking{}, nil, err
		}
		f = fragment.Merge(f, s.Tables.Identity(s.Source, role)).
			Field("up.id AS id", "up.identifier AS name", expr+" AS "+col)
		for _, p := range s.Filter.PeopleOut {
			f = f.Filter("up.identifier <> " + s.Quote(p))
		}
		rank := query.Ranking{GroupBy: []string{"up.id", "up.identifier"}, Count: col, Name: "name", Limit: s.Filter.Limit}
		return f, rank, []schema.Column{schema.Count("id"), schema.Label("name"), schema.Count(col)}, nil
	}
}

// byAffiliation ranks companies, countries or domains by expr. CompaniesOut
// drops companies by name.
func byAffiliation(kind schema.DimensionKind, expr, col string, role schema.Role, joins builder) ranker {
	return func(s Scope) (fragment.Fragments, query.Ranking, []schema.Column, error) {
		f, err := joins(s)
		if err != nil {
			return fragment.Fragments{}, query.Ranking{}, nil, err
		}
		aff, nameCol, err := s.Tables.Affiliation(s.Source, role, kind)
		if err != nil {
			return fragment.Fragments{}, query.Ranking{}, nil, err
		}
		f = fragment.Merge(f, aff).Field(nameCol+" AS name", expr+" AS "+col)
		if kind == schema.CompanyDimension {
			for _, c := range s.Filter.CompaniesOut {
				f = f.Filter(nameCol + " <> " + s.Quote(c))
			}
		}
		rank := query.Ranking{GroupBy: []string{nameCol}, Count: col, Name: "name", Limit: s.Filter.Limit}
		return f, rank, []schema.Column{schema.Label("name"), schema.Count(col)}, nil
	}
}

// byRepository ranks the repository-like entity of the source by expr.
func byRepository(expr, col string, joins builder) ranker {
	return func(s Scope) (fragment.Fragments, query.Ranking, []schema.Column, error) {
		f, err := joins(s)
		if err != nil {
			return fragment.Fragments{}, query.Ranking{}, nil, err
		}
		repo, nameCol, ok := s.Source.Repository()
		if !ok {
			return fragment.Fragments{}, query.Ranking{}, nil, fmt.Errorf("%w: %s has no repositories", ErrCapability, s.Source.Source)
		}
		f = fragment.Merge(f, repo).Field(nameCol+" AS name", expr+" AS "+col)
		rank := query.Ranking{GroupBy: []string{nameCol}, Count: col, Name: "name", Limit: s.Filter.Limit}
		return f, rank, []schema.Column{schema.Label("name"), schema.Count(col)}, nil
	}
}

// affiliationCounters returns the companies, countries and domains metrics of
// a source, each ranked by the given activity count.
func affiliationCounters(src schema.DataSource, role schema.Role, activityExpr, activityCol string) []Metric {
	kinds := []struct {
		id, name string
		kind     schema.DimensionKind
		fk       string
	}{
		{"companies", "Companies", schema.CompanyDimension, "upcom.company_id"},
		{"countries", "Countries", schema.CountryDimension, "upcou.country_id"},
		{"domains", "Domains", schema.DomainDimension, "updom.domain_id"},
	}
	out := make([]Metric, 0, len(kinds))
	for _, k := range kinds {
		info := Info{
			ID: k.id, Name: k.name, Source: src, Capabilities: aggTSRank, Role: role,
			Desc: fmt.Sprintf("%s with %s activity", k.name, src),
		}
		out = append(out, count(info, "COUNT(DISTINCT "+k.fk+")", affiliated(k.kind, role)).
			ranked(byAffiliation(k.kind, activityExpr, activityCol, role, activity)))
	}
	return out
}
