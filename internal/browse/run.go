package browse

import (
	"context"
	"net/http"
	"sort"

	"github.com/qepting91/reddit-relay/internal/domain"
)

// Result is the render-ready outcome of one fetch.
type Result struct {
	Branch Branch
	Posts  []domain.Post
	// Subreddit is the ambient context after the fetch; empty means unchanged.
	Subreddit string
	// Empty is set when Posts is empty and explains why.
	Empty string
	Pages int
}

// Run performs one logical fetch for q. Errors are *domain.FetchError, or a
// context error when ctx was cancelled; a cancelled run never returns posts.
func Run(ctx context.Context, src domain.Source, q domain.Query, ambient string, opts Options) (Result, error) {
	plan, err := NewPlan(q, ambient, opts)
	if err != nil {
		return Result{}, err
	}

	res := Result{Branch: plan.Branch, Subreddit: plan.Subreddit}
	switch plan.Branch {
	case BranchPost:
		post, err := src.Thread(ctx, plan.Request)
		if err != nil {
			return Result{}, classify(err, q, plan)
		}
		res.Pages = 1
		if post != nil {
			res.Posts = []domain.Post{*post}
			res.Subreddit = post.Subreddit
		}

	case BranchEngagement:
		posts, pages, err := accumulate(ctx, src, plan.Request, opts.Engagement)
		if err != nil {
			return Result{}, classify(err, q, plan)
		}
		res.Posts, res.Pages = posts, pages

	default:
		page, err := src.Listing(ctx, plan.Request)
		if err != nil {
			return Result{}, classify(err, q, plan)
		}
		res.Pages = 1
		res.Posts = page.Posts
		if plan.Branch == BranchVideos {
			res.Posts = filterVideos(page.Posts)
		}
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if len(res.Posts) == 0 {
		res.Empty = emptyMessage(plan.Branch, plan, q, opts)
	}
	return res, nil
}

// accumulate pages through a top listing keeping qualifying videos. It stops
// at the target, the page limit or the last page, checking ctx before every
// request so a superseded session stops without publishing anything.
func accumulate(ctx context.Context, src domain.Source, req domain.Request, e Engagement) ([]domain.Post, int, error) {
	e = e.clamped()
	var collected []domain.Post
	pages := 0
	for pages < e.MaxPages {
		if err := ctx.Err(); err != nil {
			return nil, pages, err
		}
		page, err := src.Listing(ctx, req)
		if err != nil {
			return nil, pages, err
		}
		pages++

		for _, p := range page.Posts {
			if e.qualifies(p) {
				collected = append(collected, p)
			}
		}
		if len(collected) >= e.Target || page.After == "" {
			break
		}
		req.After = page.After
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].Score > collected[j].Score
	})
	if len(collected) > e.Target {
		collected = collected[:e.Target]
	}
	return collected, pages, nil
}

func filterVideos(posts []domain.Post) []domain.Post {
	out := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		if p.HostedVideo() {
			out = append(out, p)
		}
	}
	return out
}

// classify turns source errors into the user-facing taxonomy. A 404 only
// means "not found or private" when a subreddit alone scoped the request.
func classify(err error, q domain.Query, plan Plan) error {
	if domain.IsCancelled(err) {
		return err
	}
	fe, ok := domain.AsFetchError(err)
	if !ok {
		return domain.NewError(domain.KindTransport, err)
	}
	if fe.Kind == domain.KindUpstreamStatus && fe.Status == http.StatusNotFound &&
		q.Kind() == domain.SourceSubreddit && plan.Subreddit != "" {
		return &domain.FetchError{Kind: domain.KindNotFound, Subreddit: plan.Subreddit, Status: fe.Status, Err: fe.Err}
	}
	return fe
}
