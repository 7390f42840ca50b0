package registry

import (
	"context"
	"fmt"
	"os"

	"github.com/huangsam/grimoire/internal/contract"
	"github.com/huangsam/grimoire/schema"
	"gopkg.in/yaml.v3"
)

// Project is one entry of a registry file.
type Project struct {
	ID           string                         `yaml:"id"`
	Title        string                         `yaml:"title,omitempty"`
	Subprojects  []string                       `yaml:"subprojects,omitempty"`
	Repositories map[schema.DataSource][]string `yaml:"repositories,omitempty"`
}

// fileDoc is the top-level layout of a registry file.
type fileDoc struct {
	Projects []Project `yaml:"projects"`
}

// Parse decodes a YAML registry document.
func Parse(data []byte) (*Static, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRegistry, err)
	}
	for _, p := range doc.Projects {
		for src := range p.Repositories {
			if _, ok := schema.ValidDataSources[src]; !ok {
				return nil, fmt.Errorf("%w: project %q uses unknown data source %q", ErrInvalidRegistry, p.ID, src)
			}
		}
	}
	return NewStatic(doc.Projects)
}

// File is a registry that re-reads its YAML file on every lookup, so edits
// show up on the next query.
type File struct {
	path string
}

var _ contract.ProjectRegistry = &File{} // Compile-time check

// NewFile returns a registry over the YAML file at path.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) load() (*Static, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project registry %q: %w", f.path, err)
	}
	return Parse(data)
}

// Children implements contract.ProjectRegistry.
func (f *File) Children(ctx context.Context, project string) ([]string, error) {
	s, err := f.load()
	if err != nil {
		return nil, err
	}
	return s.Children(ctx, project)
}

// Repositories implements contract.ProjectRegistry.
func (f *File) Repositories(ctx context.Context, source schema.DataSource, projects []string) ([]string, error) {
	s, err := f.load()
	if err != nil {
		return nil, err
	}
	return s.Repositories(ctx, source, projects)
}

// Projects implements contract.ProjectRegistry.
func (f *File) Projects(ctx context.Context) ([]string, error) {
	s, err := f.load()
	if err != nil {
		return nil, err
	}
	return s.Projects(ctx)
}
