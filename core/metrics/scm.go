package metrics

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/huangsam/grimoire/core/fragment"
	"github.com/huangsam/grimoire/schema"
)

const scmCommits = "COUNT(DISTINCT s.id)"

// scmActions joins commits to the files they touched.
func scmActions(s Scope) (fragment.Fragments, error) {
	return s.activity().Table("actions a").Filter("a.commit_id = s.id"), nil
}

// scmLines joins commits to their line counts.
func scmLines(s Scope) (fragment.Fragments, error) {
	return s.activity().Table("commits_lines cl").Filter("cl.commit_id = s.id"), nil
}

// scmChanging keeps commits that touched at least one file.
var scmChanging = withFilters(activity, "s.id IN (SELECT DISTINCT a.commit_id FROM actions a)")

func scmInfo(id, name, desc string, c []schema.Capability) Info {
	return Info{ID: id, Name: name, Desc: desc, Source: schema.SCM, Capabilities: c, Role: schema.AuthorRole}
}

func scmMetrics() []Metric {
	authors := people(schema.AuthorRole)
	committers := people(schema.CommitterRole)

	committersInfo := scmInfo("committers", "Committers", "People committing changes", aggTSRank)
	committersInfo.Role = schema.CommitterRole
	avgCommittersInfo := scmInfo("avg_committers_period", "Average Committers per period", "Average number of committers per period", aggOnly)
	avgCommittersInfo.Role = schema.CommitterRole

	newAuthorsInfo := scmInfo("newauthors", "New Authors", "People whose first commit falls in the range", aggTS)
	newAuthorsInfo.Date = "na.first_date"

	lines := &counter{
		info:    scmInfo("lines", "Lines", "Added and removed lines", aggTS),
		columns: []schema.Column{schema.Count("added_lines"), schema.Count("removed_lines")},
		build:   selecting(scmLines, "SUM(cl.added) AS added_lines", "SUM(cl.removed) AS removed_lines"),
	}

	ms := []Metric{
		count(scmInfo("commits", "Commits", "Changes to the source code", aggTS), scmCommits, scmChanging),
		count(scmInfo("authors", "Authors", "People authoring commits", aggTSRank), "COUNT(DISTINCT pup.upeople_id)", authors).
			ranked(byPerson(scmCommits, "commits", schema.AuthorRole, scmChanging)),
		count(committersInfo, "COUNT(DISTINCT pup.upeople_id)", committers).
			ranked(byPerson(scmCommits, "commits", schema.CommitterRole, scmChanging)),
		count(scmInfo("files", "Files", "Files touched by at least one commit", aggTS), "COUNT(DISTINCT a.file_id)", scmActions),
		lines,
		count(scmInfo("added_lines", "Added Lines", "Lines added", aggTS), "SUM(cl.added)", scmLines),
		count(scmInfo("removed_lines", "Removed Lines", "Lines removed", aggTS), "SUM(cl.removed)", scmLines),
		count(scmInfo("branches", "Branches", "Branches with commits", aggTS), "COUNT(DISTINCT a.branch_id)", scmActions),
		count(scmInfo("actions", "Actions", "File actions done by commits", aggTS), "COUNT(DISTINCT a.id)", scmActions),
		count(scmInfo("repositories", "Repositories", "Repositories with commits", aggTSRank), "COUNT(DISTINCT s.repository_id)", activity).
			ranked(byRepository(scmCommits, "commits", scmChanging)),
		count(newAuthorsInfo, "COUNT(DISTINCT na.upeople_id)", withTables(authors,
			[]string{"(SELECT pup.upeople_id AS upeople_id, MIN(s.date) AS first_date FROM people_upeople pup, scmlog s WHERE s.author_id = pup.people_id GROUP BY pup.upeople_id) na"},
			"pup.upeople_id = na.upeople_id")),
		perPeriod(scmInfo("avg_commits", "Average Commits per period", "Average number of commits per period", aggOnly), scmCommits, scmChanging),
		perPeriod(scmInfo("avg_files", "Average Files per period", "Average number of files per period", aggOnly), "COUNT(DISTINCT a.file_id)", scmActions),
		perPeriod(scmInfo("avg_authors_period", "Average Authors per period", "Average number of authors per period", aggOnly), "COUNT(DISTINCT pup.upeople_id)", authors),
		perPeriod(avgCommittersInfo, "COUNT(DISTINCT pup.upeople_id)", committers),
		ratio(scmInfo("avg_commits_author", "Average Commits per Author", "Average number of commits per author", aggTS),
			perEntity(scmCommits, "COUNT(DISTINCT pup.upeople_id)"), both(scmChanging, authors)),
		ratio(scmInfo("avg_files_author", "Average Files per Author", "Average number of files per author", aggTS),
			perEntity("COUNT(DISTINCT a.file_id)", "COUNT(DISTINCT pup.upeople_id)"), both(scmActions, authors)),
		&projects{info: scmInfo("projects", "Projects", "Projects with commits in the range", caps(schema.ListCap))},
	}
	return append(ms, affiliationCounters(schema.SCM, schema.AuthorRole, scmCommits, "commits")...)
}

// projects lists registry projects by commits, keeping those with activity.
type projects struct {
	info Info
}

var _ Evaluator = &projects{}

func (p *projects) Info() Info {
	info := p.info
	info.Capabilities = slices.Clone(p.info.Capabilities)
	return info
}

func (p *projects) Columns() []schema.Column {
	return []schema.Column{schema.Label("name"), schema.Count("commits")}
}

func (p *projects) Fragments(s Scope) (fragment.Fragments, error) {
	return selecting(scmChanging, scmCommits+" AS commits")(s)
}

func (p *projects) Evaluate(ctx context.Context, e *Engine, _ schema.Capability, f schema.Filter) (*schema.Result, error) {
	ids, err := e.Registry().Projects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	commits := count(scmInfo("commits", "Commits", "", aggOnly), scmCommits, scmChanging)
	type row struct {
		name    string
		commits int64
	}
	var rows []row
	for _, id := range ids {
		res, err := e.Aggregate(ctx, commits, f.WithDimension(schema.Dimension{Kind: schema.ProjectDimension, Value: id}))
		if err != nil {
			return nil, err
		}
		n, _ := res.Float("commits")
		if n > 0 {
			rows = append(rows, row{id, int64(n)})
		}
	}
	slices.SortFunc(rows, func(a, b row) int {
		if c := cmp.Compare(b.commits, a.commits); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})

	names := make([]any, len(rows))
	counts := make([]any, len(rows))
	for i, r := range rows {
		names[i], counts[i] = r.name, r.commits
	}
	return schema.NewResult(schema.ListShape, p.Columns(), map[string]schema.Value{
		"name":    schema.SeriesValue(names),
		"commits": schema.SeriesValue(counts),
	}), nil
}
