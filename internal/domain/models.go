package domain

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Regex for valid subreddit names
var subNameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{2,21}$`)

// ValidSubreddit reports whether name looks like a subreddit name (without the r/ prefix).
func ValidSubreddit(name string) bool {
	return subNameRegex.MatchString(name)
}

// Post is the normalized record rendered by every front end
type Post struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Subreddit    string  `json:"subreddit"`
	Author       string  `json:"author"`
	Permalink    string  `json:"permalink"`
	URL          string  `json:"url"`
	Domain       string  `json:"domain,omitempty"`
	Thumbnail    string  `json:"thumbnail,omitempty"`
	Score        int     `json:"score"`
	CommentCount int     `json:"comment_count"`
	CreatedUTC   float64 `json:"created_utc"`
	IsVideo      bool    `json:"is_video"`
	Media        *Media  `json:"media,omitempty"`
}

// Media describes what can be previewed or downloaded for a post.
// Exactly one of Images or Video is normally populated.
type Media struct {
	Images []Image `json:"images,omitempty"`
	Video  *Video  `json:"video,omitempty"`
}

type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Video struct {
	FallbackURL string `json:"fallback_url"`
	HLSURL      string `json:"hls_url,omitempty"`
	DashURL     string `json:"dash_url,omitempty"`
	Duration    int    `json:"duration"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	// IsGIF marks looping clips that carry no audio track.
	IsGIF bool `json:"is_gif"`
}

// VideoHost is the domain Reddit serves native videos from.
const VideoHost = "v.redd.it"

// HostedVideo reports whether the post is a native Reddit video.
func (p Post) HostedVideo() bool {
	if p.IsVideo || p.Domain == VideoHost {
		return true
	}
	u, err := url.Parse(p.URL)
	if err != nil {
		return false
	}
	return u.Host == VideoHost
}

// PermalinkURL returns the absolute link to the post's comment page.
func (p Post) PermalinkURL() string {
	if strings.HasPrefix(p.Permalink, "http") {
		return p.Permalink
	}
	return "https://www.reddit.com" + p.Permalink
}

// RequestKind selects the upstream endpoint family.
type RequestKind int

const (
	RequestListing RequestKind = iota
	RequestSearch
	RequestThread
)

// Request is one upstream call, independent of the transport serving it.
type Request struct {
	Kind      RequestKind
	Subreddit string
	Sort      string
	Time      string
	Query     string
	Limit     int
	After     string
	// Permalink is the normalized thread path, e.g. /r/golang/comments/abc/title
	Permalink string
}

// Path renders the request as a path plus query string relative to the Reddit host.
func (r Request) Path() string {
	v := url.Values{}
	var path string
	switch r.Kind {
	case RequestThread:
		path = r.Permalink + ".json"
	case RequestSearch:
		path = "/search.json"
		v.Set("q", r.Query)
		if r.Sort != "" {
			v.Set("sort", r.Sort)
		}
	default:
		path = "/r/" + r.Subreddit + "/" + r.Sort + ".json"
	}
	if r.Kind != RequestThread && r.Limit > 0 {
		v.Set("limit", strconv.Itoa(r.Limit))
	}
	if r.Time != "" {
		v.Set("t", r.Time)
	}
	if r.After != "" {
		v.Set("after", r.After)
	}
	v.Set("raw_json", "1")
	return path + "?" + v.Encode()
}

// Page is one listing page; After is empty on the last page.
type Page struct {
	Posts []Post
	After string
}

// Source defines the interface for data fetching
type Source interface {
	Listing(ctx context.Context, req Request) (Page, error)
	// Thread returns nil without error when the thread holds no post.
	Thread(ctx context.Context, req Request) (*Post, error)
}
