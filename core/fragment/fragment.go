// Package fragment holds the SQL fragments a metric and its dimensions
// contribute to a query, merged with exact-string deduplication.
package fragment

import (
	"slices"
	"strings"
)

// Set is an ordered set of unique strings. The zero value is ready to use.
type Set struct {
	items []string
	seen  map[string]struct{}
}

// NewSet builds a Set from the given items, dropping duplicates and blanks.
func NewSet(items ...string) Set {
	var s Set
	s.Add(items...)
	return s
}

// Add inserts items that are not yet present. Blank strings are ignored.
func (s *Set) Add(items ...string) {
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if s.seen == nil {
			s.seen = make(map[string]struct{})
		}
		if _, ok := s.seen[item]; ok {
			continue
		}
		s.seen[item] = struct{}{}
		s.items = append(s.items, item)
	}
}

// Has reports whether item is in the set.
func (s Set) Has(item string) bool {
	_, ok := s.seen[strings.TrimSpace(item)]
	return ok
}

// Len returns the number of items.
func (s Set) Len() int { return len(s.items) }

// Items returns the items in insertion order.
func (s Set) Items() []string { return slices.Clone(s.items) }

// Join renders the items with sep in insertion order.
func (s Set) Join(sep string) string { return strings.Join(s.items, sep) }

// Union returns a new set holding the items of s followed by the new items of o.
func (s Set) Union(o Set) Set {
	var out Set
	out.Add(s.items...)
	out.Add(o.items...)
	return out
}

// Equal compares two sets ignoring order.
func (s Set) Equal(o Set) bool {
	if len(s.items) != len(o.items) {
		return false
	}
	for _, item := range s.items {
		if !o.Has(item) {
			return false
		}
	}
	return true
}

// Fragments is the (fields, tables, filters) contribution to one query.
type Fragments struct {
	Fields  Set
	Tables  Set
	Filters Set
}

// Field adds select expressions and returns f for chaining.
func (f Fragments) Field(items ...string) Fragments {
	f.Fields = f.Fields.Union(NewSet(items...))
	return f
}

// Table adds FROM entries and returns f for chaining.
func (f Fragments) Table(items ...string) Fragments {
	f.Tables = f.Tables.Union(NewSet(items...))
	return f
}

// Filter adds WHERE predicates and returns f for chaining.
func (f Fragments) Filter(items ...string) Fragments {
	f.Filters = f.Filters.Union(NewSet(items...))
	return f
}

// IsEmpty reports whether nothing was contributed.
func (f Fragments) IsEmpty() bool {
	return f.Fields.Len() == 0 && f.Tables.Len() == 0 && f.Filters.Len() == 0
}

// Equal compares each part ignoring order.
func (f Fragments) Equal(o Fragments) bool {
	return f.Fields.Equal(o.Fields) && f.Tables.Equal(o.Tables) && f.Filters.Equal(o.Filters)
}

// Merge is the elementwise union of all parts. It never fails, and merging
// the same contribution twice has no effect.
func Merge(parts ...Fragments) Fragments {
	var out Fragments
	for _, p := range parts {
		out.Fields.Add(p.Fields.items...)
		out.Tables.Add(p.Tables.items...)
		out.Filters.Add(p.Filters.items...)
	}
	return out
}
