// Package dimension resolves scoping dimensions into SQL fragments for each
// source schema.
package dimension

import (
	"fmt"

	"github.com/huangsam/grimoire/core/fragment"
	"github.com/huangsam/grimoire/core/query"
	"github.com/huangsam/grimoire/schema"
)

// Tables renders the canonical, aliased names of the identity tables.
// Metrics and dimensions both go through it so their fragments dedupe.
type Tables struct {
	dialect query.Dialect
	prefix  string
}

// NewTables returns Tables for a dialect, with identity tables living under prefix.
func NewTables(d query.Dialect, identitiesPrefix string) Tables {
	return Tables{dialect: d, prefix: identitiesPrefix}
}

// Dialect returns the dialect used for literals.
func (t Tables) Dialect() query.Dialect { return t.dialect }

func (t Tables) identity(table, alias string) string {
	return query.Qualify(t.prefix, table) + " " + alias
}

// PeopleUPeople maps source-level people to unique identities. It lives with the activity data.
func (t Tables) PeopleUPeople() string { return "people_upeople pup" }

// UPeople is the unique identity table.
func (t Tables) UPeople() string { return t.identity("upeople", "up") }

// Companies is the company table.
func (t Tables) Companies() string { return t.identity("companies", "com") }

// UPeopleCompanies is the time-bounded person to company affiliation.
func (t Tables) UPeopleCompanies() string { return t.identity("upeople_companies", "upcom") }

// Countries is the country table.
func (t Tables) Countries() string { return t.identity("countries", "cou") }

// UPeopleCountries is the time-bounded person to country affiliation.
func (t Tables) UPeopleCountries() string { return t.identity("upeople_countries", "upcou") }

// Domains is the email domain table.
func (t Tables) Domains() string { return t.identity("domains", "dom") }

// UPeopleDomains is the time-bounded person to domain affiliation.
func (t Tables) UPeopleDomains() string { return t.identity("upeople_domains", "updom") }

// Quote renders a string literal.
func (t Tables) Quote(s string) string { return t.dialect.Quote(s) }

// End is the quoted end column of an affiliation alias.
func (t Tables) End(alias string) string { return alias + "." + t.dialect.Ident("end") }

// affiliation describes one of the company, country or domain joins.
type affiliation struct {
	link   string // upeople_* table
	entity string // named table
	la, ea string // aliases
	fk     string // foreign key in link
}

func (t Tables) affiliation(kind schema.DimensionKind) (affiliation, bool) {
	switch kind {
	case schema.CompanyDimension:
		return affiliation{t.UPeopleCompanies(), t.Companies(), "upcom", "com", "company_id"}, true
	case schema.CountryDimension:
		return affiliation{t.UPeopleCountries(), t.Countries(), "upcou", "cou", "country_id"}, true
	case schema.DomainDimension:
		return affiliation{t.UPeopleDomains(), t.Domains(), "updom", "dom", "domain_id"}, true
	default:
		return affiliation{}, false
	}
}

// Affiliation returns the time-scoped joins from activity rows of src to the
// company, country or domain tables, without any name predicate. The name
// column of the joined entity is returned alongside.
func (t Tables) Affiliation(src SourceSchema, role schema.Role, kind schema.DimensionKind) (fragment.Fragments, string, error) {
	aff, ok := t.affiliation(kind)
	if !ok {
		return fragment.Fragments{}, "", fmt.Errorf("%s is not an affiliation dimension", kind)
	}
	f := fragment.Merge(src.PersonLink(role)).
		Table(aff.link, aff.entity).
		Filter(
			"pup.upeople_id = "+aff.la+".upeople_id",
			aff.la+"."+aff.fk+" = "+aff.ea+".id",
			src.Date+" >= "+aff.la+".init",
			src.Date+" < "+t.End(aff.la),
		)
	return f, aff.ea + ".name", nil
}

// Identity returns the joins from activity rows of src to unique identities.
func (t Tables) Identity(src SourceSchema, role schema.Role) fragment.Fragments {
	return fragment.Merge(src.PersonLink(role)).
		Table(t.UPeople()).
		Filter("pup.upeople_id = up.id")
}
