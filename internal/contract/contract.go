// Package contract provides interfaces and shared utilities for grimoire's internal architecture.
package contract

import (
	"context"

	"github.com/huangsam/grimoire/schema"
)

// Querier executes generated SQL text against the activity store.
// Implementations return column-labelled rows and never retry.
type Querier interface {
	Query(ctx context.Context, sql string) (*schema.Rows, error)
}

// Store is a Querier bound to one database connection.
type Store interface {
	Querier

	// Backend returns the database backend the store talks to.
	Backend() schema.DatabaseBackend

	// Close releases the underlying connection.
	Close() error
}

// ProjectRegistry maps projects to their nested subprojects and repositories.
// Lookups always reach the backing data so updates are visible on the next call.
type ProjectRegistry interface {
	// Children returns the direct subprojects of a project.
	Children(ctx context.Context, project string) ([]string, error)

	// Repositories returns the repositories of the given projects for one data source.
	Repositories(ctx context.Context, source schema.DataSource, projects []string) ([]string, error)

	// Projects returns every known project id.
	Projects(ctx context.Context) ([]string, error)
}
