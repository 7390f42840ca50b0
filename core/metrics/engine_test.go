package metrics

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/grimoire/core/dimension"
	"github.com/huangsam/grimoire/core/query"
	"github.com/huangsam/grimoire/internal/datastore"
	"github.com/huangsam/grimoire/internal/registry"
	"github.com/huangsam/grimoire/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func midnight(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// activityFixture spans Jan to Apr 2014. Alice moves from Acme to Globex on Feb 1.
var activityFixture = datastore.Fixture{
	Repositories: []datastore.FixtureRepository{
		{ID: 1, Name: "core", URI: "https://git.example.org/core"},
		{ID: 2, Name: "docs", URI: "https://git.example.org/docs"},
	},
	People: []datastore.FixturePerson{
		{ID: 1, Identifier: "alice", Email: "alice@example.org"},
		{ID: 2, Identifier: "bob", Email: "bob@example.org"},
		{ID: 3, Identifier: "carol", Email: "carol@example.org"},
		{ID: 4, Identifier: "dependabot", Email: "bot@example.org"},
	},
	Companies: []datastore.FixtureNamed{{ID: 1, Name: "Acme"}, {ID: 2, Name: "Globex"}},
	Enrollments: []datastore.FixtureEnrollment{
		{Table: "upeople_companies", UPeopleID: 1, EntityID: 1, End: midnight(2014, 2, 1)},
		{Table: "upeople_companies", UPeopleID: 1, EntityID: 2, Init: midnight(2014, 2, 1)},
		{Table: "upeople_companies", UPeopleID: 2, EntityID: 1},
		{Table: "upeople_companies", UPeopleID: 3, EntityID: 2},
	},
	Commits: []datastore.FixtureCommit{
		{ID: 1, RepoID: 1, AuthorID: 1, Date: day(2014, 1, 10), Files: []string{"a.go"}, Added: 10, Removed: 1},
		{ID: 2, RepoID: 1, AuthorID: 2, Date: day(2014, 1, 20), Files: []string{"b.go"}, Added: 5},
		{ID: 3, RepoID: 2, AuthorID: 1, Date: day(2014, 2, 5), Files: []string{"README"}, Added: 2, Removed: 2},
		{ID: 4, RepoID: 1, AuthorID: 3, CommitterID: 2, Date: day(2014, 3, 3), Files: []string{"a.go", "c.go"}, Added: 3},
		{ID: 5, RepoID: 2, AuthorID: 3, Date: day(2014, 3, 15), Files: []string{"README"}, Removed: 4},
		{ID: 6, RepoID: 1, AuthorID: 2, Date: day(2014, 3, 20), Files: []string{"b.go"}, Added: 1},
		{ID: 7, RepoID: 1, AuthorID: 4, Date: day(2014, 4, 2), Files: []string{"go.mod"}, Added: 1, Removed: 1},
	},
	Projects: []datastore.FixtureProject{
		{ID: "root", Subprojects: []string{"sub"}, Repositories: []string{"https://git.example.org/core"}},
		{ID: "sub", Repositories: []string{"https://git.example.org/docs"}},
		{ID: "dormant"},
	},
}

var fixtureRange = schema.NewTimeRange(midnight(2014, 1, 1), midnight(2014, 5, 1))

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "activity.db")
	_, err := datastore.Migrate(ctx, schema.SQLiteBackend, dbPath, -1)
	require.NoError(t, err)

	store, err := datastore.Open(ctx, schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Load(ctx, activityFixture))

	d := query.SQLite{}
	resolver := dimension.NewResolver(registry.NewSQL(store, d, ""), dimension.NewTables(d, ""))
	return NewEngine(store, query.NewComposer(d), resolver)
}

func mustGet(t *testing.T, src schema.DataSource, id string) Metric {
	t.Helper()
	c, err := DefaultCatalog()
	require.NoError(t, err)
	m, err := c.Get(src, id)
	require.NoError(t, err)
	return m
}

func scalar(t *testing.T, res *schema.Result, col string) float64 {
	t.Helper()
	f, ok := res.Float(col)
	require.True(t, ok, "column %s is not a scalar", col)
	return f
}

func TestEngine_AggregateMatchesMonthlySum(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	commits := mustGet(t, schema.SCM, "commits")
	f := schema.Filter{Period: schema.PeriodMonth, Range: fixtureRange}

	agg, err := e.Aggregate(ctx, commits, f)
	require.NoError(t, err)
	assert.Equal(t, 7.0, scalar(t, agg, "commits"))

	ts, err := e.TimeSeries(ctx, commits, f)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 1, 3, 1}, ts.Floats("commits"))
	assert.Equal(t, []float64{24169, 24170, 24171, 24172}, ts.Floats("month"))

	sum := 0.0
	for _, v := range ts.Floats("commits") {
		sum += v
	}
	assert.Equal(t, scalar(t, agg, "commits"), sum)

	// January alone, aggregated, equals the January bucket
	jan := f.WithRange(schema.NewTimeRange(midnight(2014, 1, 1), midnight(2014, 2, 1)))
	janAgg, err := e.Aggregate(ctx, commits, jan)
	require.NoError(t, err)
	assert.Equal(t, ts.Floats("commits")[0], scalar(t, janAgg, "commits"))
}

func TestEngine_TimeSeriesBackfillsGaps(t *testing.T) {
	e := newTestEngine(t)
	f := schema.Filter{Period: schema.PeriodMonth, Range: schema.NewTimeRange(midnight(2013, 11, 1), midnight(2014, 3, 1))}
	ts, err := e.TimeSeries(context.Background(), mustGet(t, schema.SCM, "commits"), f)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 2, 1}, ts.Floats("commits"))
	assert.Equal(t, []string{"Nov 2013", "Dec 2013", "Jan 2014", "Feb 2014"}, ts.Strings("date"))
}

func TestEngine_WeeklyAndYearly(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	commits := mustGet(t, schema.SCM, "commits")

	ts, err := e.TimeSeries(ctx, commits, schema.Filter{Period: schema.PeriodYear, Range: fixtureRange})
	require.NoError(t, err)
	assert.Equal(t, []float64{7}, ts.Floats("commits"))

	jan := schema.NewTimeRange(midnight(2014, 1, 6), midnight(2014, 1, 27))
	ts, err = e.TimeSeries(ctx, commits, schema.Filter{Period: schema.PeriodWeek, Range: jan})
	require.NoError(t, err)
	// 2014-01-10 falls in week 2 and 2014-01-20 in week 4
	assert.Equal(t, []float64{201402, 201403, 201404}, ts.Floats("week"))
	assert.Equal(t, []float64{1, 0, 1}, ts.Floats("commits"))
}

func TestEngine_TimeScopedAffiliation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	commits := mustGet(t, schema.SCM, "commits")
	base := schema.Filter{Period: schema.PeriodMonth, Range: fixtureRange}

	acme, err := e.Aggregate(ctx, commits, base.WithDimension(schema.Dimension{Kind: schema.CompanyDimension, Value: "Acme"}))
	require.NoError(t, err)
	// Alice's February commit is after she left Acme
	assert.Equal(t, 3.0, scalar(t, acme, "commits"))

	globex, err := e.Aggregate(ctx, commits, base.WithDimension(schema.Dimension{Kind: schema.CompanyDimension, Value: "Globex"}))
	require.NoError(t, err)
	assert.Equal(t, 3.0, scalar(t, globex, "commits"))

	companies, err := e.Aggregate(ctx, mustGet(t, schema.SCM, "companies"), base)
	require.NoError(t, err)
	assert.Equal(t, 2.0, scalar(t, companies, "companies"))
}

func TestEngine_ProjectClosure(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	commits := mustGet(t, schema.SCM, "commits")
	base := schema.Filter{Period: schema.PeriodMonth, Range: fixtureRange}

	tests := []struct {
		project string
		want    float64
	}{
		{"root", 7},
		{"sub", 2},
		{"dormant", 0},
	}
	for _, tt := range tests {
		t.Run(tt.project, func(t *testing.T) {
			res, err := e.Aggregate(ctx, commits, base.WithDimension(schema.Dimension{Kind: schema.ProjectDimension, Value: tt.project}))
			require.NoError(t, err)
			assert.Equal(t, tt.want, scalar(t, res, "commits"))
		})
	}

	list, err := e.List(ctx, mustGet(t, schema.SCM, "projects"), base)
	require.NoError(t, err)
	assert.Equal(t, schema.ListShape, list.Shape)
	assert.Equal(t, []string{"root", "sub"}, list.Strings("name"))
	assert.Equal(t, []float64{7, 2}, list.Floats("commits"))
}

func TestEngine_TopTieBreaksByName(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	authors := mustGet(t, schema.SCM, "authors")

	top, err := e.Top(ctx, authors, schema.Filter{Range: fixtureRange}, 0)
	require.NoError(t, err)
	assert.Equal(t, schema.TopListShape, top.Shape)
	assert.Equal(t, []string{"alice", "bob", "carol", "dependabot"}, top.Strings("name"))
	assert.Equal(t, []float64{2, 2, 2, 1}, top.Floats("commits"))

	top, err = e.Top(ctx, authors, schema.Filter{Range: fixtureRange, Limit: 2, PeopleOut: []string{"alice"}}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, top.Strings("name"))

	// The last 30 days only hold the bot commit
	top, err = e.Top(ctx, authors, schema.Filter{Range: fixtureRange}, 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"dependabot"}, top.Strings("name"))

	repos, err := e.List(ctx, mustGet(t, schema.SCM, "repositories"), schema.Filter{Range: fixtureRange, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "docs"}, repos.Strings("name"), "lists ignore the limit")
	assert.Equal(t, []float64{5, 2}, repos.Floats("commits"))

	companies, err := e.Top(ctx, mustGet(t, schema.SCM, "companies"), schema.Filter{Range: fixtureRange, CompaniesOut: []string{"Globex"}}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme"}, companies.Strings("name"))
	assert.Equal(t, []float64{3}, companies.Floats("commits"))
}

func TestEngine_Committers(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	f := schema.Filter{Range: schema.NewTimeRange(midnight(2014, 3, 1), midnight(2014, 4, 1))}

	authors, err := e.Aggregate(ctx, mustGet(t, schema.SCM, "authors"), f)
	require.NoError(t, err)
	assert.Equal(t, 2.0, scalar(t, authors, "authors"))

	// Bob committed Carol's March 3 change
	committers, err := e.Top(ctx, mustGet(t, schema.SCM, "committers"), f, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, committers.Strings("name"))
	assert.Equal(t, []float64{2, 1}, committers.Floats("commits"))
}

func TestEngine_Averages(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	f := schema.Filter{Period: schema.PeriodMonth, Range: fixtureRange}

	avg, err := e.Aggregate(ctx, mustGet(t, schema.SCM, "avg_commits"), f)
	require.NoError(t, err)
	assert.InDelta(t, 1.75, scalar(t, avg, "avg_commits"), 1e-9)

	ts, err := e.TimeSeries(ctx, mustGet(t, schema.SCM, "avg_commits"), f)
	require.NoError(t, err)
	assert.True(t, ts.IsEmpty())

	perAuthor, err := e.Aggregate(ctx, mustGet(t, schema.SCM, "avg_commits_author"), f)
	require.NoError(t, err)
	assert.InDelta(t, 1.75, scalar(t, perAuthor, "avg_commits_author"), 1e-9)

	empty := f.WithRange(schema.NewTimeRange(midnight(2010, 1, 1), midnight(2010, 2, 1)))
	perAuthor, err = e.Aggregate(ctx, mustGet(t, schema.SCM, "avg_commits_author"), empty)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(scalar(t, perAuthor, "avg_commits_author")))
}

func TestEngine_LinesAndNewAuthors(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	f := schema.Filter{Period: schema.PeriodMonth, Range: fixtureRange}

	lines, err := e.Aggregate(ctx, mustGet(t, schema.SCM, "lines"), f)
	require.NoError(t, err)
	assert.Equal(t, 22.0, scalar(t, lines, "added_lines"))
	assert.Equal(t, 8.0, scalar(t, lines, "removed_lines"))

	files, err := e.Aggregate(ctx, mustGet(t, schema.SCM, "files"), f)
	require.NoError(t, err)
	assert.Equal(t, 5.0, scalar(t, files, "files"))

	march := f.WithRange(schema.NewTimeRange(midnight(2014, 3, 1), midnight(2014, 4, 1)))
	newcomers, err := e.Aggregate(ctx, mustGet(t, schema.SCM, "newauthors"), march)
	require.NoError(t, err)
	assert.Equal(t, 1.0, scalar(t, newcomers, "newauthors"))
}

func TestEngine_PersonAndRepositoryDimensions(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	commits := mustGet(t, schema.SCM, "commits")
	f := schema.Filter{Period: schema.PeriodMonth, Range: fixtureRange}

	alice, err := e.TimeSeries(ctx, commits, f.WithDimension(schema.Dimension{Kind: schema.PersonDimension, Value: "1"}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 0, 0}, alice.Floats("commits"))

	both, err := e.Aggregate(ctx, commits, f.
		WithDimension(schema.Dimension{Kind: schema.RepositoryDimension, Value: "core"}).
		WithDimension(schema.Dimension{Kind: schema.CompanyDimension, Value: "Acme"}))
	require.NoError(t, err)
	assert.Equal(t, 3.0, scalar(t, both, "commits"))
}

func TestEngine_Trends(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.Trends(context.Background(), mustGet(t, schema.SCM, "commits"), schema.Filter{Range: fixtureRange}, 30)
	require.NoError(t, err)

	assert.Equal(t, []string{"commits_30", "diff_netcommits_30", "percentage_commits_30"}, res.Names())
	assert.Equal(t, 1.0, scalar(t, res, "commits_30"))
	assert.Equal(t, -2.0, scalar(t, res, "diff_netcommits_30"))
	assert.Equal(t, -67.0, scalar(t, res, "percentage_commits_30"))

	_, err = e.Trends(context.Background(), mustGet(t, schema.SCM, "commits"), schema.Filter{Range: fixtureRange}, 0)
	assert.Error(t, err)
}

func TestEngine_Capabilities(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	f := schema.Filter{Period: schema.PeriodMonth, Range: fixtureRange}

	_, err := e.Top(ctx, mustGet(t, schema.SCM, "commits"), f, 0)
	assert.ErrorIs(t, err, ErrCapability)

	_, err = e.Aggregate(ctx, mustGet(t, schema.SCM, "projects"), f)
	assert.ErrorIs(t, err, ErrCapability)

	_, err = e.TimeSeries(ctx, mustGet(t, schema.SCM, "commits"), schema.Filter{Period: schema.PeriodNone, Range: fixtureRange})
	assert.ErrorIs(t, err, query.ErrUnsupportedPeriod)
}

func TestEngine_PlanComposesBeforeIO(t *testing.T) {
	q := &datastore.MockQuerier{}
	d := query.SQLite{}
	resolver := dimension.NewResolver(&registry.MockProjectRegistry{}, dimension.NewTables(d, ""))
	e := NewEngine(q, query.NewComposer(d), resolver)

	plan, err := e.Plan(context.Background(), mustGet(t, schema.SCM, "commits"), schema.AggregateCap, schema.Filter{Range: fixtureRange})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT COUNT(DISTINCT s.id) AS commits FROM scmlog s WHERE s.date >= '2014-01-01 00:00:00' AND s.date < '2014-05-01 00:00:00' AND s.id IN (SELECT DISTINCT a.commit_id FROM actions a)",
		plan.SQL)
	assert.NotContains(t, plan.SQL, "GROUP BY")

	plan, err = e.Plan(context.Background(), mustGet(t, schema.SCM, "avg_commits"), schema.AggregateCap, schema.Filter{Period: schema.PeriodMonth, Range: fixtureRange})
	require.NoError(t, err)
	assert.Contains(t, plan.SQL, "COUNT(DISTINCT s.id) * 1.0 / 4 AS avg_commits")

	q.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
}

func TestEngine_StoreErrorsPropagate(t *testing.T) {
	boom := errors.New("connection reset")
	q := &datastore.MockQuerier{}
	q.On("Query", mock.Anything, mock.Anything).Return(nil, boom)
	d := query.SQLite{}
	e := NewEngine(q, query.NewComposer(d), dimension.NewResolver(&registry.MockProjectRegistry{}, dimension.NewTables(d, "")))

	_, err := e.Aggregate(context.Background(), mustGet(t, schema.SCM, "commits"), schema.Filter{Range: fixtureRange})
	assert.ErrorIs(t, err, boom)
}

func TestEngine_ReviewTime(t *testing.T) {
	q := &datastore.MockQuerier{}
	d := query.SQLite{}
	e := NewEngine(q, query.NewComposer(d), dimension.NewResolver(&registry.MockProjectRegistry{}, dimension.NewTables(d, "")))
	m := mustGet(t, schema.SCR, "review_time")

	q.On("Query", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "ch.new_value = 'MERGED'") && strings.Contains(sql, "ch.changed_on >= '2014-01-01 00:00:00'")
	})).Return(&schema.Rows{
		Columns: []string{"submitted_on", "changed_on"},
		Values: [][]any{
			{"2014-01-01 00:00:00", "2014-01-02 00:00:00"},
			{midnight(2014, 1, 1), midnight(2014, 1, 4)},
			{"2014-01-10 00:00:00", "2014-01-20 00:00:00"},
		},
	}, nil).Once()

	res, err := e.Aggregate(context.Background(), m, schema.Filter{Range: fixtureRange})
	require.NoError(t, err)
	assert.Equal(t, 3.0, scalar(t, res, "review_time_days_median"))
	assert.InDelta(t, 14.0/3, scalar(t, res, "review_time_days_avg"), 1e-9)

	ts, err := e.TimeSeries(context.Background(), m, schema.Filter{Period: schema.PeriodMonth, Range: fixtureRange})
	require.NoError(t, err)
	assert.True(t, ts.IsEmpty())

	q.On("Query", mock.Anything, mock.Anything).Return(&schema.Rows{Columns: []string{"submitted_on", "changed_on"}}, nil).Once()
	res, err = e.Aggregate(context.Background(), m, schema.Filter{Range: fixtureRange})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(scalar(t, res, "review_time_days_median")))
	q.AssertExpectations(t)
}
