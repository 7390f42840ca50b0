package dimension

import (
	"context"
	"fmt"
	"strconv"

	"github.com/huangsam/grimoire/core/fragment"
	"github.com/huangsam/grimoire/core/query"
	"github.com/huangsam/grimoire/internal/contract"
	"github.com/huangsam/grimoire/schema"
	"go.uber.org/zap"
)

// unmatchable is the predicate of a project without repositories.
const unmatchable = "1 = 0"

// Resolver maps dimensions to the joins and predicates scoping a query.
type Resolver struct {
	registry contract.ProjectRegistry
	tables   Tables
	logger   *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for unsupported combinations.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver returns a Resolver backed by a project registry.
func NewResolver(registry contract.ProjectRegistry, tables Tables, opts ...Option) *Resolver {
	r := &Resolver{registry: registry, tables: tables, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the project registry used for project closures.
func (r *Resolver) Registry() contract.ProjectRegistry { return r.registry }

// Tables returns the canonical table names the resolver emits.
func (r *Resolver) Tables() Tables { return r.tables }

// ResolveAll resolves every dimension and merges the results.
func (r *Resolver) ResolveAll(ctx context.Context, source schema.DataSource, dims []schema.Dimension, role schema.Role) (fragment.Fragments, error) {
	parts := make([]fragment.Fragments, 0, len(dims))
	for _, d := range dims {
		f, err := r.Resolve(ctx, source, d, role)
		if err != nil {
			return fragment.Fragments{}, err
		}
		parts = append(parts, f)
	}
	return fragment.Merge(parts...), nil
}

// Resolve returns the fragments scoping activity of source to dim. Kinds a
// source does not support resolve to no fragments and are logged.
func (r *Resolver) Resolve(ctx context.Context, source schema.DataSource, dim schema.Dimension, role schema.Role) (fragment.Fragments, error) {
	src, err := Source(source)
	if err != nil {
		return fragment.Fragments{}, err
	}
	if role == "" {
		role = schema.AuthorRole
	}

	switch dim.Kind {
	case schema.NoDimension, "":
		return fragment.Fragments{}, nil
	case schema.RepositoryDimension:
		return r.repository(src, dim)
	case schema.CompanyDimension, schema.CountryDimension, schema.DomainDimension:
		return r.affiliation(src, dim, role)
	case schema.ProjectDimension:
		return r.project(ctx, src, dim)
	case schema.PersonDimension:
		return r.person(src, dim, role)
	default:
		return r.unsupported(src, dim), nil
	}
}

func (r *Resolver) unsupported(src SourceSchema, dim schema.Dimension) fragment.Fragments {
	r.logger.Warn("dimension not supported for data source, query is left unscoped",
		zap.String("source", string(src.Source)),
		zap.String("dimension", string(dim.Kind)),
		zap.String("value", dim.Value))
	return fragment.Fragments{}
}

// named adds the equality and exclusion predicates on a name column.
func (r *Resolver) named(f fragment.Fragments, col string, dim schema.Dimension) fragment.Fragments {
	if dim.Value != "" {
		f = f.Filter(col + " = " + r.tables.Quote(dim.Value))
	}
	for _, ex := range dim.Exclude {
		f = f.Filter(col + " <> " + r.tables.Quote(ex))
	}
	return f
}

func (r *Resolver) repository(src SourceSchema, dim schema.Dimension) (fragment.Fragments, error) {
	f, col, ok := src.Repository()
	if !ok {
		return r.unsupported(src, dim), nil
	}
	return r.named(f, col, dim), nil
}

func (r *Resolver) affiliation(src SourceSchema, dim schema.Dimension, role schema.Role) (fragment.Fragments, error) {
	if src.Source == schema.Mediawiki {
		return r.unsupported(src, dim), nil
	}
	f, col, err := r.tables.Affiliation(src, role, dim.Kind)
	if err != nil {
		return fragment.Fragments{}, err
	}
	return r.named(f, col, dim), nil
}

func (r *Resolver) person(src SourceSchema, dim schema.Dimension, role schema.Role) (fragment.Fragments, error) {
	f := src.PersonLink(role)
	if dim.Value != "" {
		id, err := strconv.ParseInt(dim.Value, 10, 64)
		if err != nil {
			return fragment.Fragments{}, fmt.Errorf("person dimension needs a numeric identity, got %q", dim.Value)
		}
		f = f.Filter(fmt.Sprintf("pup.upeople_id = %d", id))
	}
	for _, ex := range dim.Exclude {
		if id, err := strconv.ParseInt(ex, 10, 64); err == nil {
			f = f.Filter(fmt.Sprintf("pup.upeople_id <> %d", id))
		}
	}
	return f, nil
}

func (r *Resolver) project(ctx context.Context, src SourceSchema, dim schema.Dimension) (fragment.Fragments, error) {
	col, ok := src.projectColumn()
	if !ok {
		return r.unsupported(src, dim), nil
	}
	f, _, _ := src.Repository()
	if dim.Value == "" {
		return f, nil
	}

	closure, err := Closure(ctx, r.registry, dim.Value, dim.Exclude...)
	if err != nil {
		return fragment.Fragments{}, err
	}
	var repos []string
	if len(closure) > 0 {
		repos, err = r.registry.Repositories(ctx, src.Source, closure)
		if err != nil {
			return fragment.Fragments{}, fmt.Errorf("failed to list repositories of project %q: %w", dim.Value, err)
		}
	}
	if len(repos) == 0 {
		r.logger.Debug("project has no repositories, matching nothing",
			zap.String("project", dim.Value), zap.String("source", string(src.Source)))
		return f.Filter(unmatchable), nil
	}
	return f.Filter(col + " IN " + query.InList(r.tables.Dialect(), repos)), nil
}
