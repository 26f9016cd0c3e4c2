package collector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/loganintech/go-reddit/v2/reddit"
	"github.com/qepting91/reddit-relay/internal/domain"
	"golang.org/x/time/rate"
)

// APIClient serves the same requests through the authenticated OAuth API.
// The OAuth post model carries no media descriptors, so video detection
// falls back to the post URL's host.
type APIClient struct {
	client  *reddit.Client
	limiter *rate.Limiter
}

func NewAPIClient(id, secret, user, pass, userAgent string) (*APIClient, error) {
	creds := reddit.Credentials{ID: id, Secret: secret, Username: user, Password: pass}

	client, err := reddit.NewClient(creds, reddit.WithUserAgent(userAgent))
	if err != nil {
		return nil, err
	}

	// API Rate Limit: ~60 reqs/min (safe buffer)
	limiter := rate.NewLimiter(rate.Every(1*time.Second), 1)

	return &APIClient{client: client, limiter: limiter}, nil
}

func (ac *APIClient) Listing(ctx context.Context, req domain.Request) (domain.Page, error) {
	if err := ac.limiter.Wait(ctx); err != nil {
		return domain.Page{}, transportError(ctx, err)
	}

	list := reddit.ListOptions{Limit: req.Limit, After: req.After}
	var (
		posts []*reddit.Post
		resp  *reddit.Response
		err   error
	)
	switch {
	case req.Kind == domain.RequestSearch:
		posts, resp, err = ac.client.Subreddit.SearchPosts(ctx, req.Query, req.Subreddit, &reddit.ListPostSearchOptions{
			ListPostOptions: reddit.ListPostOptions{ListOptions: list, Time: req.Time},
			Sort:            req.Sort,
		})
	case req.Sort == "new":
		posts, resp, err = ac.client.Subreddit.NewPosts(ctx, req.Subreddit, &list)
	case req.Sort == "rising":
		posts, resp, err = ac.client.Subreddit.RisingPosts(ctx, req.Subreddit, &list)
	case req.Sort == "top":
		posts, resp, err = ac.client.Subreddit.TopPosts(ctx, req.Subreddit, &reddit.ListPostOptions{ListOptions: list, Time: req.Time})
	case req.Sort == "controversial":
		posts, resp, err = ac.client.Subreddit.ControversialPosts(ctx, req.Subreddit, &reddit.ListPostOptions{ListOptions: list, Time: req.Time})
	default:
		posts, resp, err = ac.client.Subreddit.HotPosts(ctx, req.Subreddit, &list)
	}
	if err != nil {
		return domain.Page{}, apiError(ctx, err)
	}

	page := domain.Page{Posts: make([]domain.Post, 0, len(posts))}
	for _, p := range posts {
		page.Posts = append(page.Posts, fromAPIPost(p))
	}
	if resp != nil {
		page.After = resp.After
	}
	return page, nil
}

func (ac *APIClient) Thread(ctx context.Context, req domain.Request) (*domain.Post, error) {
	id, ok := threadID(req.Permalink)
	if !ok {
		return nil, domain.NewError(domain.KindValidation, fmt.Errorf("no post id in %q", req.Permalink))
	}
	if err := ac.limiter.Wait(ctx); err != nil {
		return nil, transportError(ctx, err)
	}

	pc, _, err := ac.client.Post.Get(ctx, id)
	if err != nil {
		var er *reddit.ErrorResponse
		if errors.As(err, &er) && er.Response != nil && isNotFound(er.Response.StatusCode) {
			return nil, nil
		}
		return nil, apiError(ctx, err)
	}
	if pc == nil || pc.Post == nil {
		return nil, nil
	}
	post := fromAPIPost(pc.Post)
	return &post, nil
}

func apiError(ctx context.Context, err error) error {
	var er *reddit.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		return &domain.FetchError{
			Kind:   domain.KindUpstreamStatus,
			Status: er.Response.StatusCode,
			Err:    fmt.Errorf("authenticated api error: %w", err),
		}
	}
	return transportError(ctx, fmt.Errorf("authenticated api error: %w", err))
}

func fromAPIPost(p *reddit.Post) domain.Post {
	post := domain.Post{
		ID:           p.ID,
		Title:        p.Title,
		Subreddit:    p.SubredditName,
		Author:       p.Author,
		Permalink:    p.Permalink,
		URL:          p.URL,
		Score:        p.Score,
		CommentCount: p.NumberOfComments,
	}
	if p.Created != nil {
		post.CreatedUTC = float64(p.Created.Time.Unix())
	}
	if u, err := url.Parse(p.URL); err == nil {
		post.Domain = strings.TrimPrefix(u.Host, "www.")
	}
	post.IsVideo = post.Domain == domain.VideoHost
	return post
}
