// Package browse owns the fetch lifecycle of a front end: one session per
// query, cancelled when a newer query arrives or the controller closes.
package browse

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/qepting91/reddit-relay/internal/domain"
	"github.com/qepting91/reddit-relay/internal/metrics"
)

var ErrNothingToRetry = errors.New("no query has been submitted yet")

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSucceeded
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// State is the single view exposed to the render layer.
type State struct {
	Status  Status
	Session string
	Query   domain.Query
	Branch  Branch
	Posts   []domain.Post
	// Err is only set when Status is StatusFailed.
	Err   *domain.FetchError
	Empty string
	// Subreddit is the ambient context used when a query names none.
	Subreddit string
}

type session struct {
	id      string
	query   domain.Query
	ambient string
	ctx     context.Context
	cancel  context.CancelFunc
}

// Controller runs at most one session at a time against a Source.
type Controller struct {
	src       domain.Source
	opts      Options
	logger    *slog.Logger
	observers []func(State)

	mu      sync.Mutex
	current *session
	last    *domain.Query
	state   State
	closed  bool
	wg      sync.WaitGroup
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithObserver registers fn to receive every published state, in order.
// fn runs with the controller locked and must not call back into it.
func WithObserver(fn func(State)) Option {
	return func(c *Controller) { c.observers = append(c.observers, fn) }
}

// WithSubreddit sets the initial ambient subreddit.
func WithSubreddit(name string) Option {
	return func(c *Controller) { c.state.Subreddit = name }
}

func New(src domain.Source, opts Options, options ...Option) *Controller {
	c := &Controller{src: src, opts: opts, logger: slog.Default()}
	for _, o := range options {
		o(c)
	}
	return c
}

// Submit starts a session for q. The previous session is cancelled before
// the new one becomes current, so two sessions are never active together.
func (c *Controller) Submit(q domain.Query) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ""
	}
	if prev := c.current; prev != nil {
		prev.cancel()
		c.logger.Debug("session superseded", "session", prev.id, "query", prev.query.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:      uuid.NewString(),
		query:   q,
		ambient: c.state.Subreddit,
		ctx:     ctx,
		cancel:  cancel,
	}
	c.current = s
	c.last = &q

	c.publish(State{Status: StatusLoading, Session: s.id, Query: q, Subreddit: c.state.Subreddit})
	c.logger.Info("session started", "session", s.id, "query", q.String())

	c.wg.Add(1)
	go c.run(s)
	return s.id
}

// Retry resubmits the most recent query.
func (c *Controller) Retry() (string, error) {
	c.mu.Lock()
	last := c.last
	c.mu.Unlock()
	if last == nil {
		return "", ErrNothingToRetry
	}
	return c.Submit(*last), nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Wait blocks until every session goroutine has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels the in-flight session and waits for it. Later submits are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	if c.current != nil {
		c.current.cancel()
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Controller) run(s *session) {
	defer c.wg.Done()

	res, err := Run(s.ctx, c.src, s.query, s.ambient, c.opts)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != s {
		metrics.BrowseSessionsTotal.WithLabelValues(res.Branch.String(), StatusCancelled.String()).Inc()
		return
	}

	next := State{
		Session:   s.id,
		Query:     s.query,
		Branch:    res.Branch,
		Subreddit: c.state.Subreddit,
	}
	switch {
	case s.ctx.Err() != nil || domain.IsCancelled(err):
		next.Status = StatusCancelled
	case err != nil:
		fe, ok := domain.AsFetchError(err)
		if !ok {
			fe = domain.NewError(domain.KindTransport, err)
		}
		next.Status = StatusFailed
		next.Err = fe
		c.logger.Warn("session failed", "session", s.id, "kind", fe.Kind.String(), "err", err)
	default:
		next.Status = StatusSucceeded
		next.Posts = res.Posts
		next.Empty = res.Empty
		if res.Subreddit != "" {
			next.Subreddit = res.Subreddit
		}
		c.logger.Info("session succeeded", "session", s.id, "branch", res.Branch.String(),
			"posts", len(res.Posts), "pages", res.Pages)
	}
	s.cancel()

	metrics.BrowseSessionsTotal.WithLabelValues(next.Branch.String(), next.Status.String()).Inc()
	c.publish(next)
}

// publish must be called with mu held.
func (c *Controller) publish(s State) {
	c.state = s
	for _, fn := range c.observers {
		fn(s)
	}
}
