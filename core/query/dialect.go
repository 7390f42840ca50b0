package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/grimoire/schema"
)

// Dialect renders the backend-specific pieces of a composed query.
type Dialect interface {
	// Backend returns the database backend the dialect targets.
	Backend() schema.DatabaseBackend

	// BucketExpr returns the bucket-id expression of period over col.
	BucketExpr(period schema.Period, col string) (string, error)

	// Quote renders s as a string literal.
	Quote(s string) string

	// Timestamp renders t as a literal comparable with the date columns.
	Timestamp(t time.Time) string

	// Ident quotes an identifier that collides with a reserved word.
	Ident(name string) string
}

// timestampLayout is how every backend stores activity dates.
const timestampLayout = "2006-01-02 15:04:05"

// NewDialect returns the dialect for a backend.
func NewDialect(backend schema.DatabaseBackend) (Dialect, error) {
	switch backend {
	case schema.MySQLBackend:
		return MySQL{}, nil
	case schema.PostgreSQLBackend:
		return PostgreSQL{}, nil
	case schema.SQLiteBackend:
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("unsupported database backend: %s", backend)
	}
}

// Qualify prefixes table with the schema or attached database holding it.
func Qualify(prefix, table string) string {
	if prefix == "" {
		return table
	}
	return prefix + "." + table
}

func quoteStandard(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// MySQL is the dialect of the reference schema.
type MySQL struct{}

// Backend implements Dialect.
func (MySQL) Backend() schema.DatabaseBackend { return schema.MySQLBackend }

// BucketExpr implements Dialect.
func (MySQL) BucketExpr(period schema.Period, col string) (string, error) {
	switch period {
	case schema.PeriodDay:
		return fmt.Sprintf("UNIX_TIMESTAMP(DATE(%s))", col), nil
	case schema.PeriodWeek:
		return fmt.Sprintf("YEARWEEK(%s,3)", col), nil
	case schema.PeriodMonth:
		return fmt.Sprintf("(YEAR(%s)*12+MONTH(%s))", col, col), nil
	case schema.PeriodYear:
		return fmt.Sprintf("(YEAR(%s)*12)", col), nil
	default:
		return "", unsupported(period)
	}
}

// Quote implements Dialect. Backslashes are escaped too since MySQL treats them as escapes.
func (MySQL) Quote(s string) string {
	return quoteStandard(strings.ReplaceAll(s, `\`, `\\`))
}

// Timestamp implements Dialect.
func (MySQL) Timestamp(t time.Time) string { return "'" + t.UTC().Format(timestampLayout) + "'" }

// Ident implements Dialect.
func (MySQL) Ident(name string) string { return "`" + name + "`" }

// PostgreSQL renders buckets with EXTRACT.
type PostgreSQL struct{}

// Backend implements Dialect.
func (PostgreSQL) Backend() schema.DatabaseBackend { return schema.PostgreSQLBackend }

// BucketExpr implements Dialect.
func (PostgreSQL) BucketExpr(period schema.Period, col string) (string, error) {
	switch period {
	case schema.PeriodDay:
		return fmt.Sprintf("CAST(EXTRACT(EPOCH FROM date_trunc('day', %s)) AS BIGINT)", col), nil
	case schema.PeriodWeek:
		return fmt.Sprintf("(CAST(EXTRACT(ISOYEAR FROM %s) AS INTEGER)*100+CAST(EXTRACT(WEEK FROM %s) AS INTEGER))", col, col), nil
	case schema.PeriodMonth:
		return fmt.Sprintf("(CAST(EXTRACT(YEAR FROM %s) AS INTEGER)*12+CAST(EXTRACT(MONTH FROM %s) AS INTEGER))", col, col), nil
	case schema.PeriodYear:
		return fmt.Sprintf("(CAST(EXTRACT(YEAR FROM %s) AS INTEGER)*12)", col), nil
	default:
		return "", unsupported(period)
	}
}

// Quote implements Dialect.
func (PostgreSQL) Quote(s string) string { return quoteStandard(s) }

// Timestamp implements Dialect.
func (PostgreSQL) Timestamp(t time.Time) string {
	return "'" + t.UTC().Format(timestampLayout) + "'"
}

// Ident implements Dialect.
func (PostgreSQL) Ident(name string) string { return `"` + name + `"` }

// SQLite renders buckets with strftime over text timestamps.
type SQLite struct{}

// Backend implements Dialect.
func (SQLite) Backend() schema.DatabaseBackend { return schema.SQLiteBackend }

// BucketExpr implements Dialect.
func (SQLite) BucketExpr(period schema.Period, col string) (string, error) {
	switch period {
	case schema.PeriodDay:
		return fmt.Sprintf("CAST(strftime('%%s', date(%s)) AS INTEGER)", col), nil
	case schema.PeriodWeek:
		// the Thursday of an ISO week decides its year
		thu := fmt.Sprintf("date(%s, '-3 days', 'weekday 4')", col)
		return fmt.Sprintf("(CAST(strftime('%%Y', %s) AS INTEGER)*100+(CAST(strftime('%%j', %s) AS INTEGER)-1)/7+1)", thu, thu), nil
	case schema.PeriodMonth:
		return fmt.Sprintf("(CAST(strftime('%%Y', %s) AS INTEGER)*12+CAST(strftime('%%m', %s) AS INTEGER))", col, col), nil
	case schema.PeriodYear:
		return fmt.Sprintf("(CAST(strftime('%%Y', %s) AS INTEGER)*12)", col), nil
	default:
		return "", unsupported(period)
	}
}

// Quote implements Dialect.
func (SQLite) Quote(s string) string { return quoteStandard(s) }

// Timestamp implements Dialect.
func (SQLite) Timestamp(t time.Time) string { return "'" + t.UTC().Format(timestampLayout) + "'" }

// Ident implements Dialect.
func (SQLite) Ident(name string) string { return `"` + name + `"` }

var (
	_ Dialect = MySQL{}
	_ Dialect = PostgreSQL{}
	_ Dialect = SQLite{}
)
