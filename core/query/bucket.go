package query

import (
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/grimoire/schema"
)

var (
	// ErrUnsupportedPeriod is returned for a period that cannot be bucketed.
	ErrUnsupportedPeriod = errors.New("unsupported period")

	// ErrAggregateOnly is returned when period none is asked for an evolutionary query.
	ErrAggregateOnly = fmt.Errorf("%w: period none only supports the aggregate shape", ErrUnsupportedPeriod)
)

func unsupported(period schema.Period) error {
	if period == schema.PeriodNone {
		return ErrAggregateOnly
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedPeriod, period)
}

// Bucket is the grouping of an evolutionary query. GroupBy and OrderBy are
// always the same text as Expr.
type Bucket struct {
	Alias   string
	Expr    string
	GroupBy string
	OrderBy string
}

// Bucketer maps periods to bucket expressions of one dialect.
type Bucketer struct {
	dialect Dialect
}

// NewBucketer returns a Bucketer for the dialect.
func NewBucketer(d Dialect) *Bucketer {
	return &Bucketer{dialect: d}
}

// Bucket returns the bucket-id expression of period over dateColumn.
func (b *Bucketer) Bucket(period schema.Period, dateColumn string) (Bucket, error) {
	if _, ok := schema.ValidPeriods[period]; !ok {
		return Bucket{}, unsupported(period)
	}
	expr, err := b.dialect.BucketExpr(period, dateColumn)
	if err != nil {
		return Bucket{}, err
	}
	return Bucket{Alias: period.Key(), Expr: expr, GroupBy: expr, OrderBy: expr}, nil
}

// BucketID computes in Go the id the SQL expression yields for t.
func BucketID(period schema.Period, t time.Time) (int64, error) {
	t = t.UTC()
	switch period {
	case schema.PeriodDay:
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix(), nil
	case schema.PeriodWeek:
		y, w := t.ISOWeek()
		return int64(y*100 + w), nil
	case schema.PeriodMonth:
		return int64(t.Year()*12 + int(t.Month())), nil
	case schema.PeriodYear:
		return int64(t.Year() * 12), nil
	default:
		return 0, unsupported(period)
	}
}

// BucketStart returns the first instant of the bucket with the given id.
func BucketStart(period schema.Period, id int64) (time.Time, error) {
	switch period {
	case schema.PeriodDay:
		return time.Unix(id, 0).UTC(), nil
	case schema.PeriodWeek:
		year, week := int(id/100), int(id%100)
		// Jan 4 always falls in ISO week 1
		jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
		offset := (int(jan4.Weekday()) + 6) % 7
		return jan4.AddDate(0, 0, -offset+(week-1)*7), nil
	case schema.PeriodMonth:
		year := (id - 1) / 12
		month := id - year*12
		return time.Date(int(year), time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
	case schema.PeriodYear:
		return time.Date(int(id/12), time.January, 1, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, unsupported(period)
	}
}

func nextStart(period schema.Period, t time.Time) time.Time {
	switch period {
	case schema.PeriodDay:
		return t.AddDate(0, 0, 1)
	case schema.PeriodWeek:
		return t.AddDate(0, 0, 7)
	case schema.PeriodMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(1, 0, 0)
	}
}

// BucketIDs enumerates, in increasing order, the id of every bucket that
// overlaps the half-open range.
func BucketIDs(period schema.Period, r schema.TimeRange) ([]int64, error) {
	first, err := BucketID(period, r.Start)
	if err != nil {
		return nil, err
	}
	start, err := BucketStart(period, first)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for cur := start; cur.Before(r.End); cur = nextStart(period, cur) {
		id, _ := BucketID(period, cur)
		ids = append(ids, id)
	}
	return ids, nil
}

// PeriodCount returns how many buckets the range spans, the denominator of
// per-period averages.
func PeriodCount(period schema.Period, r schema.TimeRange) (int, error) {
	ids, err := BucketIDs(period, r)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// BucketLabel renders a bucket for humans.
func BucketLabel(period schema.Period, id int64) (string, error) {
	start, err := BucketStart(period, id)
	if err != nil {
		return "", err
	}
	switch period {
	case schema.PeriodDay:
		return start.Format(time.DateOnly), nil
	case schema.PeriodWeek:
		return fmt.Sprintf("%d-W%02d", id/100, id%100), nil
	case schema.PeriodMonth:
		return start.Format("Jan 2006"), nil
	default:
		return start.Format("2006"), nil
	}
}
