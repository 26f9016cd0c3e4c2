package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/qepting91/reddit-relay/internal/domain"
)

// MockClient implements domain.Source but returns fake data.
// Output is deterministic per subreddit/query and page so runs are repeatable.
type MockClient struct {
	Latency  time.Duration
	MaxPages int
}

func NewMockClient() *MockClient {
	return &MockClient{Latency: 300 * time.Millisecond, MaxPages: 5}
}

func (mc *MockClient) Listing(ctx context.Context, req domain.Request) (domain.Page, error) {
	if err := mc.wait(ctx); err != nil {
		return domain.Page{}, err
	}

	page := 0
	if req.After != "" {
		page, _ = strconv.Atoi(strings.TrimPrefix(req.After, "mock_page_"))
	}
	scope := req.Subreddit
	if req.Kind == domain.RequestSearch {
		scope = "search"
	}
	if scope == "" {
		scope = "all"
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 25
	}
	var posts []domain.Post
	for i := 0; i < limit; i++ {
		n := page*limit + i
		posts = append(posts, mockPost(scope, n))
	}

	out := domain.Page{Posts: posts}
	if page+1 < mc.MaxPages {
		out.After = fmt.Sprintf("mock_page_%d", page+1)
	}
	return out, nil
}

func (mc *MockClient) Thread(ctx context.Context, req domain.Request) (*domain.Post, error) {
	if err := mc.wait(ctx); err != nil {
		return nil, err
	}
	id, ok := threadID(req.Permalink)
	if !ok {
		return nil, nil
	}
	p := mockPost("mock", 0)
	p.ID = id
	p.Permalink = req.Permalink
	return &p, nil
}

// Simulate network latency (nice for testing cancellation)
func (mc *MockClient) wait(ctx context.Context) error {
	if mc.Latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(mc.Latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func mockPost(scope string, n int) domain.Post {
	id := fmt.Sprintf("mock_%s_%d", scope, n)
	p := domain.Post{
		ID:           id,
		Title:        fmt.Sprintf("[%s] Simulated post #%d", scope, n),
		Subreddit:    scope,
		Author:       "simulated_user",
		Permalink:    fmt.Sprintf("/r/%s/comments/%s/simulated_post/", scope, id),
		URL:          "http://localhost/mock-url",
		Score:        (n * 7919) % 5000,
		CommentCount: (n * 104729) % 400,
		CreatedUTC:   float64(1700000000 - n*60),
	}
	// Every third post is a native video.
	if n%3 == 0 {
		p.IsVideo = true
		p.Domain = domain.VideoHost
		p.URL = "https://v.redd.it/" + id
		p.Media = &domain.Media{Video: &domain.Video{
			FallbackURL: p.URL + "/DASH_720.mp4",
			DashURL:     p.URL + "/DASHPlaylist.mpd",
			Duration:    15 + n%45,
		}}
	}
	return p
}
