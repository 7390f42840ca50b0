// Package query turns merged fragments into SQL text for one of the
// canonical query shapes.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/huangsam/grimoire/core/fragment"
	"github.com/huangsam/grimoire/schema"
)

// ErrEmptyFragments is returned when there is nothing to select from.
var ErrEmptyFragments = errors.New("query needs at least one field and one table")

// connectivePattern matches filters that already start with a boolean connective.
var connectivePattern = regexp.MustCompile(`(?i)^\s*(and|or)\b`)

// Query is composed SQL text plus the bucket it was grouped by, if any.
type Query struct {
	SQL    string
	Shape  schema.Shape
	Bucket *Bucket
}

// Ranking describes the grouping of a top-list or list query.
type Ranking struct {
	GroupBy []string // grouping keys
	Count   string   // primary sort column, descending
	Name    string   // tie-break column, ascending
	Limit   int      // 0 means unlimited
}

// Composer builds queries for one dialect.
type Composer struct {
	dialect  Dialect
	bucketer *Bucketer
}

// NewComposer returns a Composer for the dialect.
func NewComposer(d Dialect) *Composer {
	return &Composer{dialect: d, bucketer: NewBucketer(d)}
}

// Dialect returns the dialect the composer renders.
func (c *Composer) Dialect() Dialect { return c.dialect }

// Compose builds the aggregate shape, or the evolutionary shape grouped by
// period. No SQL is produced when the period cannot be bucketed.
func (c *Composer) Compose(dateColumn string, frags fragment.Fragments, r schema.TimeRange, period schema.Period, evolutionary bool) (Query, error) {
	if !evolutionary {
		sql, err := c.base(dateColumn, frags, r, "")
		if err != nil {
			return Query{}, err
		}
		return Query{SQL: sql, Shape: schema.AggregateShape}, nil
	}

	bucket, err := c.bucketer.Bucket(period, dateColumn)
	if err != nil {
		return Query{}, err
	}
	sql, err := c.base(dateColumn, frags, r, bucket.Expr+" AS "+bucket.Alias)
	if err != nil {
		return Query{}, err
	}
	sql += " GROUP BY " + bucket.GroupBy + " ORDER BY " + bucket.OrderBy
	return Query{SQL: sql, Shape: schema.TimeSeriesShape, Bucket: &bucket}, nil
}

// Ranked builds the aggregate shape grouped by entity and ordered by count
// descending with the name as tie-break.
func (c *Composer) Ranked(dateColumn string, frags fragment.Fragments, r schema.TimeRange, rank Ranking) (Query, error) {
	if len(rank.GroupBy) == 0 || rank.Count == "" || rank.Name == "" {
		return Query{}, fmt.Errorf("ranking needs group keys, a count and a name column")
	}
	sql, err := c.base(dateColumn, frags, r, "")
	if err != nil {
		return Query{}, err
	}
	var sb strings.Builder
	sb.WriteString(sql)
	sb.WriteString(" GROUP BY ")
	sb.WriteString(strings.Join(rank.GroupBy, ", "))
	fmt.Fprintf(&sb, " ORDER BY %s DESC, %s ASC", rank.Count, rank.Name)
	if rank.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", rank.Limit)
	}
	return Query{SQL: sb.String(), Shape: schema.TopListShape}, nil
}

func (c *Composer) base(dateColumn string, frags fragment.Fragments, r schema.TimeRange, lead string) (string, error) {
	if frags.Fields.Len() == 0 || frags.Tables.Len() == 0 {
		return "", ErrEmptyFragments
	}
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if lead != "" {
		sb.WriteString(lead)
		sb.WriteString(", ")
	}
	sb.WriteString(frags.Fields.Join(", "))
	sb.WriteString(" FROM ")
	sb.WriteString(frags.Tables.Join(", "))
	fmt.Fprintf(&sb, " WHERE %s >= %s AND %s < %s",
		dateColumn, c.dialect.Timestamp(r.Start), dateColumn, c.dialect.Timestamp(r.End))
	for _, f := range frags.Filters.Items() {
		if connectivePattern.MatchString(f) {
			sb.WriteString(" ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(strings.TrimSpace(f))
	}
	return sb.String(), nil
}

// InList renders values as a parenthesized list of string literals.
func InList(d Dialect, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = d.Quote(v)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}
