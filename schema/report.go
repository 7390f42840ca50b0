package schema

import "time"

// ReportKind names what a report computed.
type ReportKind string

// All report kinds supported.
const (
	AggregateReport  ReportKind = "aggregate"
	TimeSeriesReport ReportKind = "time-series"
	TopListReport    ReportKind = "top-list"
	ListReport       ReportKind = "list"
	TrendsReport     ReportKind = "trends"
)

// ReportEntry is the result of one metric.
type ReportEntry struct {
	Metric string  `json:"metric"`
	Name   string  `json:"name"`
	Result *Result `json:"result"`
}

// Report gathers the results of one run over a data source.
type Report struct {
	RunID     string        `json:"run_id"`
	Kind      ReportKind    `json:"kind"`
	Source    DataSource    `json:"source"`
	Filter    Filter        `json:"filter"`
	Days      int           `json:"days,omitempty"`
	Entries   []ReportEntry `json:"metrics"`
	Generated time.Time     `json:"generated"`
	Elapsed   time.Duration `json:"-"`
}

// Capability returns the metric capability a report kind requires.
// Trends are computed from aggregates.
func (k ReportKind) Capability() Capability {
	switch k {
	case TimeSeriesReport:
		return TimeSeriesCap
	case TopListReport:
		return TopListCap
	case ListReport:
		return ListCap
	default:
		return AggregateCap
	}
}

// Entry returns the entry of a metric id.
func (r *Report) Entry(metric string) (ReportEntry, bool) {
	for _, e := range r.Entries {
		if e.Metric == metric {
			return e, true
		}
	}
	return ReportEntry{}, false
}
