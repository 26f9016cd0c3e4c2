package domain

import (
	"fmt"
	"strings"
)

// SortMode is the ordering requested by the user. Videos and Engagement are
// synthetic: Reddit has no such sort, the controller builds them itself.
type SortMode string

const (
	SortHot           SortMode = "hot"
	SortNew           SortMode = "new"
	SortTop           SortMode = "top"
	SortRising        SortMode = "rising"
	SortControversial SortMode = "controversial"
	SortRelevance     SortMode = "relevance"
	SortComments      SortMode = "comments"
	SortVideos        SortMode = "videos"
	SortEngagement    SortMode = "engagement"
)

var sortModes = []SortMode{
	SortHot, SortNew, SortTop, SortRising, SortControversial,
	SortRelevance, SortComments, SortVideos, SortEngagement,
}

// ParseSort accepts any of the known sort names, case-insensitively.
func ParseSort(s string) (SortMode, error) {
	m := SortMode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range sortModes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown sort %q", s)
}

func (m SortMode) Synthetic() bool {
	return m == SortVideos || m == SortEngagement
}

// searchOnly sorts make no sense for a subreddit listing.
func (m SortMode) searchOnly() bool {
	return m == SortRelevance || m == SortComments
}

// listingOnly sorts are not accepted by the search endpoint.
func (m SortMode) listingOnly() bool {
	return m == SortHot || m == SortRising || m == SortControversial
}

// SourceKind tells which of the three query sources is active.
type SourceKind int

const (
	SourceSubreddit SourceKind = iota
	SourceSearch
	SourcePost
)

func (k SourceKind) String() string {
	switch k {
	case SourceSearch:
		return "search"
	case SourcePost:
		return "post"
	default:
		return "subreddit"
	}
}

// Query is the current browsing intent. At most one of Subreddit, Search and
// PostURL is set; use the With* methods to switch sources so the others are
// cleared and the sort stays compatible.
type Query struct {
	Subreddit string   `json:"subreddit,omitempty"`
	Search    string   `json:"search,omitempty"`
	PostURL   string   `json:"post_url,omitempty"`
	Sort      SortMode `json:"sort"`
}

func BrowseQuery(subreddit string, sort SortMode) Query {
	return Query{Sort: sort}.WithSubreddit(subreddit)
}

func SearchQuery(text string, sort SortMode) Query {
	return Query{Sort: sort}.WithSearch(text)
}

func PostQuery(postURL string) Query {
	return Query{Sort: SortHot}.WithPostURL(postURL)
}

func (q Query) Kind() SourceKind {
	switch {
	case q.PostURL != "":
		return SourcePost
	case q.Search != "":
		return SourceSearch
	default:
		return SourceSubreddit
	}
}

// WithSubreddit switches to browsing a subreddit. A leading r/ is stripped.
func (q Query) WithSubreddit(name string) Query {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(strings.TrimPrefix(name, "/"), "r/")
	q.Subreddit = name
	q.Search = ""
	q.PostURL = ""
	if q.Sort == "" || q.Sort.searchOnly() {
		q.Sort = SortHot
	}
	return q
}

// WithSearch switches to a free-text search. Entering search leaves the
// videos filter; it only applies when chosen while already searching.
func (q Query) WithSearch(text string) Query {
	entering := q.Kind() != SourceSearch
	q.Search = strings.TrimSpace(text)
	q.Subreddit = ""
	q.PostURL = ""
	if q.Sort == "" || q.Sort.listingOnly() || (entering && q.Sort == SortVideos) {
		q.Sort = SortRelevance
	}
	return q
}

func (q Query) WithPostURL(raw string) Query {
	q.PostURL = strings.TrimSpace(raw)
	q.Subreddit = ""
	q.Search = ""
	if q.Sort == "" {
		q.Sort = SortHot
	}
	return q
}

// WithSort changes the ordering without touching the source.
func (q Query) WithSort(m SortMode) Query {
	q.Sort = m
	return q
}

func (q Query) String() string {
	switch q.Kind() {
	case SourcePost:
		return "post " + q.PostURL
	case SourceSearch:
		return fmt.Sprintf("search %q sort=%s", q.Search, q.Sort)
	default:
		return fmt.Sprintf("r/%s sort=%s", q.Subreddit, q.Sort)
	}
}
