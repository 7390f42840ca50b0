package dimension

import (
	"fmt"

	"github.com/huangsam/grimoire/core/fragment"
	"github.com/huangsam/grimoire/schema"
)

// repoLink joins activity rows to the repository-like entity of a source.
type repoLink struct {
	table   string // aliased table
	join    string // join predicate
	name    string // column matched by the repository dimension
	project string // column matched against registry repository names, "" if unsupported
}

// SourceSchema describes the activity table of one data source.
type SourceSchema struct {
	Source   schema.DataSource
	Activity string // aliased activity table
	Date     string // date column every range applies to
	Key      string // distinct activity key

	person    func(schema.Role) string
	linkTable []string
	linkWhere []string
	repo      *repoLink
}

var sources = map[schema.DataSource]SourceSchema{
	schema.SCM: {
		Source: schema.SCM, Activity: "scmlog s", Date: "s.date", Key: "s.id",
		person: func(role schema.Role) string {
			if role == schema.CommitterRole {
				return "s.committer_id"
			}
			return "s.author_id"
		},
		repo: &repoLink{table: "repositories r", join: "s.repository_id = r.id", name: "r.name", project: "r.uri"},
	},
	schema.ITS: {
		Source: schema.ITS, Activity: "issues i", Date: "i.submitted_on", Key: "i.id",
		person: func(schema.Role) string { return "i.submitted_by" },
		repo:   &repoLink{table: "trackers t", join: "i.tracker_id = t.id", name: "t.url", project: "t.url"},
	},
	schema.MLS: {
		Source: schema.MLS, Activity: "messages m", Date: "m.first_date", Key: "m.message_ID",
		person:    func(schema.Role) string { return "mp.email_address" },
		linkTable: []string{"messages_people mp"},
		linkWhere: []string{"m.message_ID = mp.message_id", "mp.type_of_recipient = 'From'"},
		repo: &repoLink{
			table: "mailing_lists ml", join: "m.mailing_list_url = ml.mailing_list_url",
			name: "ml.mailing_list_url", project: "ml.mailing_list_url",
		},
	},
	schema.SCR: {
		Source: schema.SCR, Activity: "issues i", Date: "i.submitted_on", Key: "i.id",
		person: func(schema.Role) string { return "i.submitted_by" },
		repo:   &repoLink{table: "trackers t", join: "i.tracker_id = t.id", name: "t.url", project: "t.url"},
	},
	schema.IRC: {
		Source: schema.IRC, Activity: "irclog i", Date: "i.date", Key: "i.id",
		person: func(schema.Role) string { return "i.nick" },
		repo:   &repoLink{table: "channels chn", join: "i.channel_id = chn.id", name: "chn.name"},
	},
	schema.Mediawiki: {
		Source: schema.Mediawiki, Activity: "wiki_pages_revs wp", Date: "wp.date", Key: "wp.id",
		person: func(schema.Role) string { return "wp.user" },
	},
}

// Source returns the schema description of a data source.
func Source(src schema.DataSource) (SourceSchema, error) {
	s, ok := sources[src]
	if !ok {
		return SourceSchema{}, fmt.Errorf("unknown data source: %s", src)
	}
	return s, nil
}

// PersonColumn returns the column holding the source-level person id.
func (s SourceSchema) PersonColumn(role schema.Role) string { return s.person(role) }

// PersonLink joins activity rows to people_upeople.
func (s SourceSchema) PersonLink(role schema.Role) fragment.Fragments {
	return fragment.Fragments{}.
		Table(s.Activity).
		Table(s.linkTable...).
		Table("people_upeople pup").
		Filter(s.linkWhere...).
		Filter(s.PersonColumn(role) + " = pup.people_id")
}

// HasRepositories reports whether the source has a repository-like entity.
func (s SourceSchema) HasRepositories() bool { return s.repo != nil }

// Repository joins activity rows to the repository-like entity and returns
// the column naming it.
func (s SourceSchema) Repository() (fragment.Fragments, string, bool) {
	if s.repo == nil {
		return fragment.Fragments{}, "", false
	}
	return fragment.Fragments{}.Table(s.Activity, s.repo.table).Filter(s.repo.join), s.repo.name, true
}

func (s SourceSchema) projectColumn() (string, bool) {
	if s.repo == nil || s.repo.project == "" {
		return "", false
	}
	return s.repo.project, true
}
