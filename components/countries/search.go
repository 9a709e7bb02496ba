package countries

import (
	"sort"
	"strings"
)

// Search matches query against names and codes. Name prefixes rank first, then
// exact code matches, then substring matches.
func Search(list []Country, query string, limit int, opts Options) []Country {
	limit = clampLimit(limit, opts)
	if limit == 0 {
		return nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		if opts.EmptySearchMode != EmptySearchAll {
			return nil
		}
		if len(list) <= limit {
			return append([]Country{}, list...)
		}
		return append([]Country{}, list[:limit]...)
	}

	q := strings.ToLower(query)
	matches := make([]matchedCountry, 0, 16)
	for _, c := range list {
		name := strings.ToLower(c.Name)
		rank := -1
		switch {
		case strings.HasPrefix(name, q):
			rank = 0
		case strings.EqualFold(c.Code, query):
			rank = 1
		case strings.Contains(name, q):
			rank = 2
		}
		if rank < 0 {
			continue
		}
		matches = append(matches, matchedCountry{country: c, rank: rank})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].rank != matches[j].rank {
			return matches[i].rank < matches[j].rank
		}
		return matches[i].country.Name < matches[j].country.Name
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]Country, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.country)
	}
	return out
}

type matchedCountry struct {
	country Country
	rank    int
}
