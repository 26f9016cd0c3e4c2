package resolver

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/qepting91/reddit-relay/internal/domain"
	"github.com/qepting91/reddit-relay/internal/listing"
)

var (
	// Only per-subreddit listings have an RSS equivalent.
	listingPathRegex = regexp.MustCompile(`^/r/([A-Za-z0-9_]{2,21})(?:/(?:hot|new|top|rising|controversial))?(?:\.json)?/?$`)
	threadIDRegex    = regexp.MustCompile(`/comments/([A-Za-z0-9]+)`)
	// Reddit puts the submitted link in the entry body as <a href="...">[link]</a>.
	linkRegex = regexp.MustCompile(`<a href="([^"]+)">\[link\]</a>`)
)

const feedPreset = "rss"

func feedSubreddit(u *url.URL) (string, bool) {
	m := listingPathRegex.FindStringSubmatch(u.Path)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// feed fetches the subreddit's RSS and re-encodes it as listing JSON.
// Score and comment counts are not in the feed and stay zero.
func (r *Resolver) feed(ctx context.Context, target *url.URL, sub string) (*Result, error) {
	feedURL := url.URL{
		Scheme:   target.Scheme,
		Host:     target.Host,
		Path:     "/r/" + sub + "/new.rss",
		RawQuery: "limit=" + strconv.Itoa(r.feedLimit),
	}

	headers := map[string]string{"User-Agent": browserUA, "Accept": "application/atom+xml, application/rss+xml, */*"}
	body, resp, err := r.get(ctx, feedURL.String(), headers)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	posts := make([]domain.Post, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if p, ok := feedPost(item, sub); ok {
			posts = append(posts, p)
		}
	}

	out, err := listing.Encode(posts, "")
	if err != nil {
		return nil, err
	}
	return &Result{
		Status:      200,
		ContentType: "application/json; charset=utf-8",
		Body:        out,
		Preset:      feedPreset,
		Degraded:    true,
	}, nil
}

func feedPost(item *gofeed.Item, sub string) (domain.Post, bool) {
	p := domain.Post{
		ID:        strings.TrimPrefix(item.GUID, "t3_"),
		Title:     item.Title,
		Subreddit: sub,
		URL:       item.Link,
	}
	if p.ID == "" || strings.Contains(p.ID, "/") {
		m := threadIDRegex.FindStringSubmatch(item.Link)
		if m == nil {
			return domain.Post{}, false
		}
		p.ID = m[1]
	}

	if link, err := url.Parse(item.Link); err == nil {
		p.Permalink = link.Path
	}
	if m := linkRegex.FindStringSubmatch(item.Content); m != nil {
		p.URL = m[1]
	}
	if u, err := url.Parse(p.URL); err == nil {
		p.Domain = u.Hostname()
	}

	if len(item.Authors) > 0 && item.Authors[0] != nil {
		p.Author = strings.TrimPrefix(item.Authors[0].Name, "/u/")
	}

	switch {
	case item.PublishedParsed != nil:
		p.CreatedUTC = float64(item.PublishedParsed.Unix())
	case item.UpdatedParsed != nil:
		p.CreatedUTC = float64(item.UpdatedParsed.Unix())
	}
	return p, true
}
