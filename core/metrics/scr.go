package metrics

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/huangsam/grimoire/core/fragment"
	"github.com/huangsam/grimoire/core/normalize"
	"github.com/huangsam/grimoire/schema"
)

const scrSubmitted = "COUNT(DISTINCT i.id)"

// scrChanges joins reviews to their change events.
func scrChanges(s Scope) (fragment.Fragments, error) {
	return s.activity().Table("changes ch").Filter("ch.issue_id = i.id"), nil
}

func scrMetrics() []Metric {
	info := func(id, name, desc string, c []schema.Capability) Info {
		return sourceInfo(schema.SCR, id, name, desc, c)
	}
	status := func(id, name, filter string) Metric {
		return count(info(id, name, name+" reviews", aggTS), scrSubmitted, withFilters(activity, filter))
	}
	evaluation := func(id, name, filter string) Metric {
		i := info(id, name, name+" evaluations", aggTS)
		i.Date = "ch.changed_on"
		return count(i, "COUNT(DISTINCT ch.id)", withFilters(scrChanges, filter))
	}

	return []Metric{
		count(info("submitted", "Submitted", "Reviews submitted", aggTS), scrSubmitted, activity),
		status("opened", "Opened", "(i.status = 'NEW' OR i.status = 'WORKINPROGRESS')"),
		status("new", "New", "i.status = 'NEW'"),
		status("inprogress", "In progress", "i.status = 'WORKINPROGRESS'"),
		status("closed", "Closed", "(i.status = 'MERGED' OR i.status = 'ABANDONED')"),
		status("merged", "Merged", "i.status = 'MERGED'"),
		status("abandoned", "Abandoned", "i.status = 'ABANDONED'"),
		evaluation("verified", "Verified", "(ch.field = 'VRIF' OR ch.field = 'Verified')"),
		evaluation("approved", "Approved", "ch.field = 'APRV'"),
		evaluation("codereview", "Code review", "(ch.field = 'CRVW' OR ch.field = 'Code-Review')"),
		evaluation("sent", "Sent", "ch.field = 'SUBM'"),
		count(info("submitters", "Submitters", "People submitting reviews", aggTSRank), "COUNT(DISTINCT pup.upeople_id)", people(schema.AuthorRole)).
			ranked(byPerson(scrSubmitted, "submitted", schema.AuthorRole, activity)),
		&reviewTime{info: Info{
			ID: "review_time", Name: "Review Time", Desc: "Days from submission to merge",
			Source: schema.SCR, Capabilities: aggOnly, Role: schema.AuthorRole, Date: "ch.changed_on",
		}},
	}
}

// reviewTime is the median and average of days from submission to merge
// for reviews merged in the range. Merges by the submitter are left out.
type reviewTime struct {
	info Info
}

var (
	_ Evaluator     = &reviewTime{}
	_ AggregateOnly = &reviewTime{}
)

func (r *reviewTime) Info() Info {
	info := r.info
	info.Capabilities = slices.Clone(r.info.Capabilities)
	return info
}

func (r *reviewTime) Columns() []schema.Column {
	return []schema.Column{schema.Ratio("review_time_days_median"), schema.Ratio("review_time_days_avg")}
}

func (r *reviewTime) AggregateOnly() bool { return true }

func (r *reviewTime) Fragments(s Scope) (fragment.Fragments, error) {
	f, err := scrChanges(s)
	if err != nil {
		return fragment.Fragments{}, err
	}
	return f.
		Field("i.submitted_on AS submitted_on", "ch.changed_on AS changed_on").
		Filter("ch.field = 'status'", "ch.new_value = 'MERGED'", "i.submitted_by <> ch.changed_by"), nil
}

func (r *reviewTime) Evaluate(ctx context.Context, e *Engine, _ schema.Capability, f schema.Filter) (*schema.Result, error) {
	rows, err := e.rows(ctx, r, f, r.Fragments)
	if err != nil {
		return nil, err
	}
	si, ci := rows.Index("submitted_on"), rows.Index("changed_on")
	if rows.Len() > 0 && (si < 0 || ci < 0) {
		return nil, fmt.Errorf("%w: review_time needs submitted_on and changed_on", normalize.ErrMissingColumn)
	}
	days := make([]float64, 0, rows.Len())
	for _, row := range rows.Values {
		submitted, err := asTime(row[si])
		if err != nil {
			return nil, fmt.Errorf("review_time: %w", err)
		}
		merged, err := asTime(row[ci])
		if err != nil {
			return nil, fmt.Errorf("review_time: %w", err)
		}
		days = append(days, merged.Sub(submitted).Hours()/24)
	}
	median, avg := medianAndAverage(days)
	return schema.NewResult(schema.AggregateShape, r.Columns(), map[string]schema.Value{
		"review_time_days_median": schema.ScalarValue(median),
		"review_time_days_avg":    schema.ScalarValue(avg),
	}), nil
}

// medianAndAverage returns NaN for both when values is empty.
func medianAndAverage(values []float64) (float64, float64) {
	if len(values) == 0 {
		return math.NaN(), math.NaN()
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}
	return median, sum / float64(len(sorted))
}

var timeLayouts = []string{time.DateTime, time.RFC3339, "2006-01-02T15:04:05Z"}

func asTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.ParseInLocation(layout, t, time.UTC); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse date %q", t)
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to a date", v)
	}
}
