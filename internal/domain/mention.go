package domain

import (
	"sort"
	"strings"
	"time"
)

// Item is one ranked post as returned by a source.
type Item struct {
	Title     string
	Score     int
	CreatedAt time.Time
	IsSelf    bool
	URL       string
}

// Mentions maps a place name to the number of items that mention it.
// A missing key means zero; stored values are always positive.
type Mentions map[string]int

// Merge returns the key-wise sum of m and other. Neither input is modified.
func (m Mentions) Merge(other Mentions) Mentions {
	out := make(Mentions, len(m)+len(other))
	for place, n := range m {
		if n > 0 {
			out[place] += n
		}
	}
	for place, n := range other {
		if n > 0 {
			out[place] += n
		}
	}
	return out
}

// Places returns the mentioned place names in sorted order.
func (m Mentions) Places() []string {
	places := make([]string, 0, len(m))
	for place := range m {
		places = append(places, place)
	}
	sort.Strings(places)
	return places
}

// Total returns the sum of all counts.
func (m Mentions) Total() int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}

// CountOptions filter which items are eligible for counting.
type CountOptions struct {
	MinScore         int
	ExcludeSelfPosts bool
}

// CountResult is the outcome of scanning one batch of items.
type CountResult struct {
	Mentions Mentions
	Scanned  int // every item seen, including filtered ones
	Eligible int // items that passed the filters
}

// CountMentions counts, for every place, how many eligible items mention it in
// their title. Matching is case-insensitive substring containment and each item
// increments a given place at most once.
func CountMentions(places []string, items []Item, opts CountOptions) CountResult {
	res := CountResult{Mentions: make(Mentions)}

	needles := make([]string, 0, len(places))
	seen := make(map[string]struct{}, len(places))
	for _, p := range places {
		p = NormalizePlace(p)
		if _, dup := seen[p]; dup || p == "" {
			continue
		}
		seen[p] = struct{}{}
		needles = append(needles, p)
	}

	for _, item := range items {
		res.Scanned++
		if item.Score < opts.MinScore {
			continue
		}
		if opts.ExcludeSelfPosts && item.IsSelf {
			continue
		}
		res.Eligible++

		title := strings.ToLower(item.Title)
		for _, place := range needles {
			if strings.Contains(title, place) {
				res.Mentions[place]++
			}
		}
	}
	return res
}
