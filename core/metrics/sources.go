package metrics

import (
	"github.com/huangsam/grimoire/schema"
)

func sourceInfo(src schema.DataSource, id, name, desc string, c []schema.Capability) Info {
	return Info{ID: id, Name: name, Desc: desc, Source: src, Capabilities: c, Role: schema.AuthorRole}
}

func itsMetrics() []Metric {
	const opened = "COUNT(DISTINCT i.id)"
	info := func(id, name, desc string, c []schema.Capability) Info {
		return sourceInfo(schema.ITS, id, name, desc, c)
	}
	openers := people(schema.AuthorRole)

	ms := []Metric{
		count(info("opened", "Opened", "Issues opened", aggTS), opened, activity),
		count(info("openers", "Openers", "People opening issues", aggTSRank), "COUNT(DISTINCT pup.upeople_id)", openers).
			ranked(byPerson(opened, "opened", schema.AuthorRole, activity)),
		count(info("trackers", "Trackers", "Trackers with opened issues", aggTSRank), "COUNT(DISTINCT i.tracker_id)", activity).
			ranked(byRepository(opened, "opened", activity)),
	}
	return append(ms, affiliationCounters(schema.ITS, schema.AuthorRole, opened, "opened")...)
}

func mlsMetrics() []Metric {
	const sent = "COUNT(DISTINCT m.message_ID)"
	info := func(id, name, desc string, c []schema.Capability) Info {
		return sourceInfo(schema.MLS, id, name, desc, c)
	}
	senders := people(schema.AuthorRole)

	ms := []Metric{
		count(info("sent", "Sent", "Messages sent", aggTS), sent, activity),
		count(info("senders", "Senders", "People sending messages", aggTSRank), "COUNT(DISTINCT pup.upeople_id)", senders).
			ranked(byPerson(sent, "sent", schema.AuthorRole, activity)),
		count(info("threads", "Threads", "Messages starting a thread", aggTS), sent, withFilters(activity, "m.is_response_of IS NULL")),
		count(info("repositories", "Mailing Lists", "Mailing lists with messages", aggTSRank), "COUNT(DISTINCT m.mailing_list_url)", activity).
			ranked(byRepository(sent, "sent", activity)),
	}
	return append(ms, affiliationCounters(schema.MLS, schema.AuthorRole, sent, "sent")...)
}

func ircMetrics() []Metric {
	const sent = "COUNT(DISTINCT i.id)"
	info := func(id, name, desc string, c []schema.Capability) Info {
		return sourceInfo(schema.IRC, id, name, desc, c)
	}
	return []Metric{
		count(info("sent", "Sent", "Messages sent", aggTS), sent, activity),
		count(info("senders", "Senders", "People sending messages", aggTSRank), "COUNT(DISTINCT pup.upeople_id)", people(schema.AuthorRole)).
			ranked(byPerson(sent, "sent", schema.AuthorRole, activity)),
		count(info("repositories", "Channels", "Channels with messages", aggTSRank), "COUNT(DISTINCT i.channel_id)", activity).
			ranked(byRepository(sent, "sent", activity)),
	}
}

func mediawikiMetrics() []Metric {
	const reviews = "COUNT(DISTINCT wp.rev_id)"
	info := func(id, name, desc string, c []schema.Capability) Info {
		return sourceInfo(schema.Mediawiki, id, name, desc, c)
	}
	return []Metric{
		count(info("reviews", "Reviews", "Page revisions", aggTS), reviews, activity),
		count(info("authors", "Authors", "People editing pages", aggTSRank), "COUNT(DISTINCT wp.user)", activity).
			ranked(byPerson(reviews, "reviews", schema.AuthorRole, activity)),
	}
}
