package browse

import (
	"context"
	"fmt"
	"sync"

	"github.com/qepting91/reddit-relay/internal/domain"
)

// fakeSource records every call and delegates to the configured funcs.
type fakeSource struct {
	mu       sync.Mutex
	requests []domain.Request
	ctxs     []context.Context

	listing func(ctx context.Context, call int, req domain.Request) (domain.Page, error)
	thread  func(ctx context.Context, req domain.Request) (*domain.Post, error)
}

func (f *fakeSource) record(ctx context.Context, req domain.Request) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	f.ctxs = append(f.ctxs, ctx)
	return len(f.requests)
}

func (f *fakeSource) Listing(ctx context.Context, req domain.Request) (domain.Page, error) {
	call := f.record(ctx, req)
	if f.listing == nil {
		return domain.Page{}, nil
	}
	return f.listing(ctx, call, req)
}

func (f *fakeSource) Thread(ctx context.Context, req domain.Request) (*domain.Post, error) {
	f.record(ctx, req)
	if f.thread == nil {
		return nil, nil
	}
	return f.thread(ctx, req)
}

func (f *fakeSource) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeSource) contexts() []context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]context.Context(nil), f.ctxs...)
}

// blockUntilCancelled is a listing func that never completes on its own.
func blockUntilCancelled(ctx context.Context, _ int, _ domain.Request) (domain.Page, error) {
	<-ctx.Done()
	return domain.Page{}, ctx.Err()
}

// videoPage builds n posts; the first qualifying of them pass the default
// engagement thresholds and the rest fall short on score.
func videoPage(page, n, qualifying int, after string) domain.Page {
	posts := make([]domain.Post, 0, n)
	for i := 0; i < n; i++ {
		p := domain.Post{
			ID:           fmt.Sprintf("p%d_%d", page, i),
			Title:        "clip",
			Subreddit:    "videos",
			URL:          fmt.Sprintf("https://v.redd.it/p%d_%d", page, i),
			Score:        100,
			CommentCount: 80,
		}
		if i < qualifying {
			p.Score = 2000 + page*100 + i
		}
		posts = append(posts, p)
	}
	return domain.Page{Posts: posts, After: after}
}
