package browse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/qepting91/reddit-relay/internal/config"
	"github.com/qepting91/reddit-relay/internal/domain"
)

// maxPageSize is the largest limit Reddit honours on listing endpoints.
const maxPageSize = 100

// videoMarker restricts a search to natively hosted videos.
const videoMarker = "site:" + domain.VideoHost

var permalinkRegex = regexp.MustCompile(`^https?://(?:(?:www|old|new|np)\.)?reddit\.com(/r/[A-Za-z0-9_]+/comments/[A-Za-z0-9]+(?:/[^?#]*)?)(?:[?#].*)?$`)

// Branch records which construction rule produced a request.
type Branch int

const (
	BranchBrowse Branch = iota
	BranchSearch
	BranchVideos
	BranchEngagement
	BranchPost
)

func (b Branch) String() string {
	switch b {
	case BranchSearch:
		return "search"
	case BranchVideos:
		return "videos"
	case BranchEngagement:
		return "engagement"
	case BranchPost:
		return "post"
	default:
		return "browse"
	}
}

// Engagement tunes the multi-page video aggregation.
type Engagement struct {
	Target      int
	MinScore    int
	MinComments int
	MaxPages    int
	PageSize    int
}

func (e Engagement) qualifies(p domain.Post) bool {
	return p.HostedVideo() && p.Score > e.MinScore && p.CommentCount > e.MinComments
}

// clamped replaces a non-positive target or page limit with the default so
// an engagement run always makes at least one request.
func (e Engagement) clamped() Engagement {
	def := DefaultOptions().Engagement
	if e.Target < 1 {
		e.Target = def.Target
	}
	if e.MaxPages < 1 {
		e.MaxPages = def.MaxPages
	}
	return e
}

type Options struct {
	PageSize   int
	Engagement Engagement
}

func DefaultOptions() Options {
	return Options{
		PageSize: 25,
		Engagement: Engagement{
			Target:      50,
			MinScore:    1500,
			MinComments: 50,
			MaxPages:    10,
			PageSize:    maxPageSize,
		},
	}
}

// OptionsFromConfig maps the BROWSE_* and ENGAGEMENT_* settings.
func OptionsFromConfig(c config.BrowseConfig) Options {
	return Options{
		PageSize: c.PageSize,
		Engagement: Engagement{
			Target:      c.EngagementTarget,
			MinScore:    c.EngagementMinScore,
			MinComments: c.EngagementMinComments,
			MaxPages:    c.EngagementMaxPages,
			PageSize:    c.EngagementPageSize,
		},
	}
}

// Plan is the first upstream request for a query plus what is needed to
// interpret its result.
type Plan struct {
	Branch  Branch
	Request domain.Request
	// Subreddit is the context the request is scoped to, empty for search.
	Subreddit string
}

// NewPlan applies the request construction rules in priority order: post
// URL, search, videos filter, engagement, plain listing. It never touches
// the network; invalid input yields a Validation error.
func NewPlan(q domain.Query, ambient string, opts Options) (Plan, error) {
	switch q.Kind() {
	case domain.SourcePost:
		path, err := NormalizePermalink(q.PostURL)
		if err != nil {
			return Plan{}, domain.NewError(domain.KindValidation, err)
		}
		return Plan{
			Branch:  BranchPost,
			Request: domain.Request{Kind: domain.RequestThread, Permalink: path},
		}, nil

	case domain.SourceSearch:
		req := domain.Request{Kind: domain.RequestSearch, Query: q.Search, Sort: string(q.Sort), Limit: opts.PageSize}
		switch q.Sort {
		case domain.SortVideos:
			req.Query = q.Search + " " + videoMarker
			req.Sort = string(domain.SortRelevance)
		case domain.SortEngagement:
			return engagementPlan(req, "", opts), nil
		}
		return Plan{Branch: BranchSearch, Request: req}, nil
	}

	sub := q.Subreddit
	if sub == "" {
		sub = ambient
	}
	if !domain.ValidSubreddit(sub) {
		if sub == "" {
			return Plan{}, domain.NewError(domain.KindValidation, errors.New("no subreddit selected"))
		}
		return Plan{}, domain.NewError(domain.KindValidation, fmt.Errorf("%q is not a valid subreddit name", sub))
	}

	req := domain.Request{Kind: domain.RequestListing, Subreddit: sub, Sort: string(q.Sort), Limit: opts.PageSize}
	switch q.Sort {
	case "", domain.SortRelevance, domain.SortComments:
		// search-only orderings have no listing endpoint
		req.Sort = string(domain.SortHot)
	case domain.SortVideos:
		req.Sort = string(domain.SortNew)
		req.Limit = maxPageSize
		return Plan{Branch: BranchVideos, Request: req, Subreddit: sub}, nil
	case domain.SortEngagement:
		return engagementPlan(req, sub, opts), nil
	}
	return Plan{Branch: BranchBrowse, Request: req, Subreddit: sub}, nil
}

func engagementPlan(req domain.Request, sub string, opts Options) Plan {
	req.Sort = string(domain.SortTop)
	req.Time = "all"
	req.Limit = opts.Engagement.PageSize
	if req.Limit <= 0 || req.Limit > maxPageSize {
		req.Limit = maxPageSize
	}
	return Plan{Branch: BranchEngagement, Request: req, Subreddit: sub}
}

// NormalizePermalink validates a post URL and returns its thread path with
// query string, fragment, trailing slash and any .json suffix removed.
func NormalizePermalink(raw string) (string, error) {
	m := permalinkRegex.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", fmt.Errorf("%q is not a Reddit post link (expected https://www.reddit.com/r/<sub>/comments/<id>/...)", raw)
	}
	path := strings.TrimRight(m[1], "/")
	path = strings.TrimSuffix(path, ".json")
	return path, nil
}

func emptyMessage(b Branch, p Plan, q domain.Query, opts Options) string {
	switch b {
	case BranchSearch:
		return fmt.Sprintf("No results for %q.", q.Search)
	case BranchVideos:
		return fmt.Sprintf("No recent video posts in r/%s.", p.Subreddit)
	case BranchEngagement:
		return fmt.Sprintf("No videos with more than %d points and %d comments were found.",
			opts.Engagement.MinScore, opts.Engagement.MinComments)
	case BranchPost:
		return "That post is no longer available."
	default:
		return fmt.Sprintf("No posts in r/%s yet.", p.Subreddit)
	}
}
