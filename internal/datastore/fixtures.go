package datastore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/grimoire/core/query"
)

// Fixture is a small activity dataset written into a migrated database.
// Tests and the integration suite seed stores with it.
type Fixture struct {
	Repositories []FixtureRepository
	People       []FixturePerson
	Companies    []FixtureNamed
	Countries    []FixtureNamed
	Domains      []FixtureNamed
	Enrollments  []FixtureEnrollment
	Commits      []FixtureCommit
	Projects     []FixtureProject
}

// FixtureRepository is one row of repositories.
type FixtureRepository struct {
	ID   int
	Name string
	URI  string
}

// FixturePerson is a unique identity. Its source-level people id is the same number.
type FixturePerson struct {
	ID         int
	Identifier string
	Email      string
}

// FixtureNamed is a company, country or domain.
type FixtureNamed struct {
	ID   int
	Name string
}

// FixtureEnrollment ties a person to a company, country or domain for [Init, End).
// A zero Init or End keeps the column default.
type FixtureEnrollment struct {
	Table     string // upeople_companies, upeople_countries or upeople_domains
	UPeopleID int
	EntityID  int
	Init, End time.Time
}

// FixtureCommit is one scmlog row with its file actions and line counts.
type FixtureCommit struct {
	ID          int
	RepoID      int
	AuthorID    int
	CommitterID int // 0 means the author
	Date        time.Time
	Files       []string
	Added       int
	Removed     int
}

// FixtureProject is one project with its subprojects and SCM repositories.
type FixtureProject struct {
	ID           string
	Subprojects  []string
	Repositories []string
}

var enrollmentKeys = map[string]string{
	"upeople_companies": "company_id",
	"upeople_countries": "country_id",
	"upeople_domains":   "domain_id",
}

// Load writes the fixture. The store must be migrated first.
func (s *SQLStore) Load(ctx context.Context, f Fixture) error {
	d, err := query.NewDialect(s.backend)
	if err != nil {
		return err
	}
	stmts, err := f.statements(d)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if err := s.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to load fixture: %w", err)
		}
	}
	return nil
}

func (f Fixture) statements(d query.Dialect) ([]string, error) {
	var out []string
	add := func(format string, args ...any) { out = append(out, fmt.Sprintf(format, args...)) }
	q := d.Quote

	add("INSERT INTO branches (id, name) VALUES (1, 'master')")
	for _, r := range f.Repositories {
		add("INSERT INTO repositories (id, name, uri, type) VALUES (%d, %s, %s, 'git')", r.ID, q(r.Name), q(r.URI))
	}
	for _, p := range f.People {
		add("INSERT INTO upeople (id, identifier) VALUES (%d, %s)", p.ID, q(p.Identifier))
		add("INSERT INTO people (id, name, email) VALUES (%d, %s, %s)", p.ID, q(p.Identifier), q(p.Email))
		add("INSERT INTO people_upeople (people_id, upeople_id) VALUES (%d, %d)", p.ID, p.ID)
	}
	for table, rows := range map[string][]FixtureNamed{"companies": f.Companies, "countries": f.Countries, "domains": f.Domains} {
		for _, n := range rows {
			add("INSERT INTO %s (id, name) VALUES (%d, %s)", table, n.ID, q(n.Name))
		}
	}
	for i, e := range f.Enrollments {
		key, ok := enrollmentKeys[e.Table]
		if !ok {
			return nil, fmt.Errorf("unknown enrollment table %q", e.Table)
		}
		cols := []string{"id", "upeople_id", key}
		vals := []string{fmt.Sprint(i + 1), fmt.Sprint(e.UPeopleID), fmt.Sprint(e.EntityID)}
		if !e.Init.IsZero() {
			cols, vals = append(cols, "init"), append(vals, d.Timestamp(e.Init))
		}
		if !e.End.IsZero() {
			cols, vals = append(cols, d.Ident("end")), append(vals, d.Timestamp(e.End))
		}
		add("INSERT INTO %s (%s) VALUES (%s)", e.Table, strings.Join(cols, ", "), strings.Join(vals, ", "))
	}

	fileIDs := map[string]int{}
	actionID := 0
	for _, c := range f.Commits {
		committer := c.CommitterID
		if committer == 0 {
			committer = c.AuthorID
		}
		add("INSERT INTO scmlog (id, rev, committer_id, author_id, date, message, repository_id) VALUES (%d, %s, %d, %d, %s, '', %d)",
			c.ID, q(fmt.Sprintf("rev%d", c.ID)), committer, c.AuthorID, d.Timestamp(c.Date), c.RepoID)
		add("INSERT INTO commits_lines (id, commit_id, added, removed) VALUES (%d, %d, %d, %d)", c.ID, c.ID, c.Added, c.Removed)
		for _, name := range c.Files {
			key := fmt.Sprintf("%d:%s", c.RepoID, name)
			fid, seen := fileIDs[key]
			if !seen {
				fid = len(fileIDs) + 1
				fileIDs[key] = fid
				add("INSERT INTO files (id, file_name, repository_id) VALUES (%d, %s, %d)", fid, q(name), c.RepoID)
			}
			actionID++
			add("INSERT INTO actions (id, type, file_id, commit_id, branch_id) VALUES (%d, 'M', %d, %d, 1)", actionID, fid, c.ID)
		}
	}

	for _, p := range f.Projects {
		add("INSERT INTO projects (id, title) VALUES (%s, %s)", q(p.ID), q(p.ID))
		for _, child := range p.Subprojects {
			add("INSERT INTO project_children (project_id, subproject_id) VALUES (%s, %s)", q(p.ID), q(child))
		}
		for _, repo := range p.Repositories {
			add("INSERT INTO project_repositories (project_id, data_source, repository_name) VALUES (%s, 'scm', %s)", q(p.ID), q(repo))
		}
	}
	return out, nil
}
