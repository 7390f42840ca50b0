// Package registry provides project registries backed by the identities
// database or by a YAML file.
package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/huangsam/grimoire/core/query"
	"github.com/huangsam/grimoire/internal/contract"
	"github.com/huangsam/grimoire/schema"
)

var (
	// ErrUnknownProject is returned when a registry file refers to an undeclared project.
	ErrUnknownProject = errors.New("unknown project")

	// ErrInvalidRegistry is returned for malformed registry files.
	ErrInvalidRegistry = errors.New("invalid project registry")
)

// SQL reads the projects, project_children and project_repositories tables.
type SQL struct {
	querier contract.Querier
	dialect query.Dialect
	prefix  string
}

var _ contract.ProjectRegistry = &SQL{} // Compile-time check

// NewSQL returns a registry reading tables under the identities prefix.
func NewSQL(q contract.Querier, d query.Dialect, identitiesPrefix string) *SQL {
	return &SQL{querier: q, dialect: d, prefix: identitiesPrefix}
}

// Children implements contract.ProjectRegistry.
func (s *SQL) Children(ctx context.Context, project string) ([]string, error) {
	sql := fmt.Sprintf("SELECT subproject_id FROM %s WHERE project_id = %s ORDER BY subproject_id",
		query.Qualify(s.prefix, "project_children"), s.dialect.Quote(project))
	return s.strings(ctx, sql)
}

// Repositories implements contract.ProjectRegistry.
func (s *SQL) Repositories(ctx context.Context, source schema.DataSource, projects []string) ([]string, error) {
	if len(projects) == 0 {
		return nil, nil
	}
	sql := fmt.Sprintf("SELECT DISTINCT repository_name FROM %s WHERE data_source = %s AND project_id IN %s ORDER BY repository_name",
		query.Qualify(s.prefix, "project_repositories"), s.dialect.Quote(string(source)), query.InList(s.dialect, projects))
	return s.strings(ctx, sql)
}

// Projects implements contract.ProjectRegistry.
func (s *SQL) Projects(ctx context.Context) ([]string, error) {
	sql := fmt.Sprintf("SELECT id FROM %s ORDER BY id", query.Qualify(s.prefix, "projects"))
	return s.strings(ctx, sql)
}

func (s *SQL) strings(ctx context.Context, sql string) ([]string, error) {
	rows, err := s.querier.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, rows.Len())
	for _, row := range rows.Values {
		if len(row) == 0 || row[0] == nil {
			continue
		}
		out = append(out, fmt.Sprint(row[0]))
	}
	return out, nil
}

// Static is an in-memory registry.
type Static struct {
	projects map[string]Project
	order    []string
}

var _ contract.ProjectRegistry = &Static{} // Compile-time check

// NewStatic validates projects and returns a registry over them.
func NewStatic(projects []Project) (*Static, error) {
	s := &Static{projects: make(map[string]Project, len(projects))}
	for _, p := range projects {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: project without id", ErrInvalidRegistry)
		}
		if _, dup := s.projects[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate project %q", ErrInvalidRegistry, p.ID)
		}
		s.projects[p.ID] = p
		s.order = append(s.order, p.ID)
	}
	for _, p := range projects {
		for _, child := range p.Subprojects {
			if _, ok := s.projects[child]; !ok {
				return nil, fmt.Errorf("%w: %q lists subproject %q", ErrUnknownProject, p.ID, child)
			}
		}
	}
	return s, nil
}

// Children implements contract.ProjectRegistry. Unknown projects have no children.
func (s *Static) Children(_ context.Context, project string) ([]string, error) {
	return slices.Clone(s.projects[project].Subprojects), nil
}

// Repositories implements contract.ProjectRegistry.
func (s *Static) Repositories(_ context.Context, source schema.DataSource, projects []string) ([]string, error) {
	var out []string
	for _, id := range projects {
		for _, repo := range s.projects[id].Repositories[source] {
			if !slices.Contains(out, repo) {
				out = append(out, repo)
			}
		}
	}
	slices.Sort(out)
	return out, nil
}

// Projects implements contract.ProjectRegistry.
func (s *Static) Projects(context.Context) ([]string, error) {
	return slices.Clone(s.order), nil
}
