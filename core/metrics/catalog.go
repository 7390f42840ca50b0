package metrics

import (
	"fmt"

	"github.com/huangsam/grimoire/schema"
)

// coreSet lists the metric ids reported by default for a source.
type coreSet struct {
	agg, ts, top, trends []string
}

var coreSets = map[schema.DataSource]coreSet{
	schema.SCM: {
		agg:    []string{"commits", "authors", "committers", "branches", "files", "actions", "lines", "repositories", "avg_commits", "avg_files", "avg_commits_author", "avg_files_author"},
		ts:     []string{"commits", "authors", "committers", "branches", "files", "actions", "lines", "repositories"},
		top:    []string{"authors", "companies", "repositories"},
		trends: []string{"commits", "authors", "files", "lines"},
	},
	schema.ITS: {
		agg:    []string{"opened", "openers", "trackers"},
		ts:     []string{"opened", "openers", "trackers"},
		top:    []string{"openers"},
		trends: []string{"opened", "openers"},
	},
	schema.MLS: {
		agg:    []string{"sent", "senders", "threads", "repositories"},
		ts:     []string{"sent", "senders", "threads", "repositories"},
		top:    []string{"senders"},
		trends: []string{"sent", "senders"},
	},
	schema.SCR: {
		agg:    []string{"submitted", "opened", "closed", "merged", "abandoned", "review_time"},
		ts:     []string{"submitted", "merged", "abandoned"},
		top:    []string{"submitters"},
		trends: []string{"submitted", "merged"},
	},
	schema.IRC: {
		agg:    []string{"sent", "senders", "repositories"},
		ts:     []string{"sent", "senders", "repositories"},
		top:    []string{"senders"},
		trends: []string{"sent", "senders"},
	},
	schema.Mediawiki: {
		agg:    []string{"reviews", "authors"},
		ts:     []string{"reviews", "authors"},
		top:    []string{"authors"},
		trends: []string{"reviews", "authors"},
	},
}

// Catalog indexes metrics by data source and id.
type Catalog struct {
	bySource map[schema.DataSource][]Metric
	byKey    map[string]Metric
}

func catalogKey(src schema.DataSource, id string) string { return string(src) + "/" + id }

// NewCatalog indexes metrics. Ids must be unique within a source.
func NewCatalog(ms ...Metric) (*Catalog, error) {
	c := &Catalog{bySource: map[schema.DataSource][]Metric{}, byKey: map[string]Metric{}}
	for _, m := range ms {
		info := m.Info()
		if _, ok := schema.ValidDataSources[info.Source]; !ok {
			return nil, fmt.Errorf("metric %s has unknown data source %q", info.ID, info.Source)
		}
		key := catalogKey(info.Source, info.ID)
		if _, dup := c.byKey[key]; dup {
			return nil, fmt.Errorf("duplicate metric %s", key)
		}
		c.byKey[key] = m
		c.bySource[info.Source] = append(c.bySource[info.Source], m)
	}
	return c, nil
}

// DefaultCatalog returns every metric of every data source.
func DefaultCatalog() (*Catalog, error) {
	var all []Metric
	all = append(all, scmMetrics()...)
	all = append(all, itsMetrics()...)
	all = append(all, mlsMetrics()...)
	all = append(all, scrMetrics()...)
	all = append(all, ircMetrics()...)
	all = append(all, mediawikiMetrics()...)
	return NewCatalog(all...)
}

// Get returns a metric by source and id.
func (c *Catalog) Get(src schema.DataSource, id string) (Metric, error) {
	m, ok := c.byKey[catalogKey(src, id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownMetric, src, id)
	}
	return m, nil
}

// BySource returns the metrics of a source in definition order.
func (c *Catalog) BySource(src schema.DataSource) []Metric {
	return append([]Metric(nil), c.bySource[src]...)
}

// Infos returns the descriptions of the metrics of a source.
func (c *Catalog) Infos(src schema.DataSource) []Info {
	infos := make([]Info, 0, len(c.bySource[src]))
	for _, m := range c.bySource[src] {
		infos = append(infos, m.Info())
	}
	return infos
}

// Select returns the metrics named by ids, or the core set of the capability
// when ids is empty.
func (c *Catalog) Select(src schema.DataSource, capability schema.Capability, ids []string) ([]Metric, error) {
	if len(ids) == 0 {
		return c.Core(src, capability), nil
	}
	out := make([]Metric, 0, len(ids))
	for _, id := range ids {
		m, err := c.Get(src, id)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Core returns the default metrics of a source for a capability.
func (c *Catalog) Core(src schema.DataSource, capability schema.Capability) []Metric {
	set := coreSets[src]
	var ids []string
	switch capability {
	case schema.AggregateCap:
		ids = set.agg
	case schema.TimeSeriesCap:
		ids = set.ts
	case schema.TopListCap, schema.ListCap:
		ids = set.top
	}
	return c.lookup(src, ids)
}

// Trends returns the metrics a trend report compares by default.
func (c *Catalog) Trends(src schema.DataSource) []Metric {
	return c.lookup(src, coreSets[src].trends)
}

func (c *Catalog) lookup(src schema.DataSource, ids []string) []Metric {
	out := make([]Metric, 0, len(ids))
	for _, id := range ids {
		if m, ok := c.byKey[catalogKey(src, id)]; ok {
			out = append(out, m)
		}
	}
	return out
}
