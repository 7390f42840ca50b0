package schema

// Custom string types for type safety.
type (
	// Period represents the time bucket used by evolutionary queries.
	Period string

	// DimensionKind represents the axis used to scope a query.
	DimensionKind string

	// DataSource represents the schema family a metric reads from.
	DataSource string

	// Role represents which person column of an activity row is used for identity joins.
	Role string

	// Capability represents one of the shapes a metric can produce.
	Capability string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend holding activity data.
	DatabaseBackend string
)

// All periods supported.
const (
	PeriodNone  Period = "none"
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month" // default
	PeriodYear  Period = "year"
)

// All dimension kinds supported.
const (
	NoDimension         DimensionKind = "none"
	RepositoryDimension DimensionKind = "repository"
	CompanyDimension    DimensionKind = "company"
	CountryDimension    DimensionKind = "country"
	DomainDimension     DimensionKind = "domain"
	ProjectDimension    DimensionKind = "project"
	PersonDimension     DimensionKind = "person"
)

// All data sources supported.
const (
	SCM       DataSource = "scm"       // commit-log schema
	ITS       DataSource = "its"       // issue-tracker schema
	MLS       DataSource = "mls"       // mailing-list schema
	SCR       DataSource = "scr"       // review schema
	IRC       DataSource = "irc"       // chat-log schema
	Mediawiki DataSource = "mediawiki" // wiki revisions
)

// All person roles supported.
const (
	AuthorRole    Role = "author"
	CommitterRole Role = "committer"
)

// All metric capabilities supported.
const (
	TimeSeriesCap Capability = "time-series"
	AggregateCap  Capability = "aggregate"
	TopListCap    Capability = "top-list"
	ListCap       Capability = "list"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
)

// AllPeriods lists periods in increasing bucket size.
var AllPeriods = []Period{PeriodNone, PeriodDay, PeriodWeek, PeriodMonth, PeriodYear}

// AllDataSources lists every data source in a stable order.
var AllDataSources = []DataSource{SCM, ITS, MLS, SCR, IRC, Mediawiki}

// ValidPeriods lists all valid periods.
var ValidPeriods = map[Period]struct{}{
	PeriodNone:  {},
	PeriodDay:   {},
	PeriodWeek:  {},
	PeriodMonth: {},
	PeriodYear:  {},
}

// ValidDimensionKinds lists all valid dimension kinds.
var ValidDimensionKinds = map[DimensionKind]struct{}{
	NoDimension:         {},
	RepositoryDimension: {},
	CompanyDimension:    {},
	CountryDimension:    {},
	DomainDimension:     {},
	ProjectDimension:    {},
	PersonDimension:     {},
}

// ValidDataSources lists all valid data sources.
var ValidDataSources = map[DataSource]struct{}{
	SCM:       {},
	ITS:       {},
	MLS:       {},
	SCR:       {},
	IRC:       {},
	Mediawiki: {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
}

// Key returns the column alias a period's bucket id is selected under.
// Day buckets are unix timestamps, so they share the unixtime column.
func (p Period) Key() string {
	if p == PeriodDay {
		return "unixtime"
	}
	return string(p)
}
