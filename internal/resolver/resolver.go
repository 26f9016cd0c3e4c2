// Package resolver fetches an upstream Reddit URL by trying a list of header
// presets in order, falling back to the subreddit's RSS feed when every
// preset is refused.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/qepting91/reddit-relay/internal/metrics"
)

var (
	ErrInvalidTarget = errors.New("invalid target url")
	ErrExhausted     = errors.New("all upstream strategies failed")
	ErrBodyTooLarge  = errors.New("upstream body exceeds limit")
)

// ExhaustedCode is the error field the relay sends when Resolve returns ErrExhausted.
const ExhaustedCode = "upstream_exhausted"

const defaultMaxBody = 16 << 20

// Result is an upstream response to pass through to the caller.
type Result struct {
	Status      int
	ContentType string
	Body        []byte
	// Preset names the strategy that produced the body.
	Preset string
	// Degraded is set when the body was synthesized from the RSS feed.
	Degraded bool
}

type Resolver struct {
	presets        []Preset
	client         *http.Client
	attemptTimeout time.Duration
	feedLimit      int
	allowedHosts   []string
	maxBody        int64
	logger         *slog.Logger
}

type Option func(*Resolver)

func WithPresets(p []Preset) Option {
	return func(r *Resolver) { r.presets = p }
}

func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithAttemptTimeout bounds each upstream request, the feed fallback included.
func WithAttemptTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.attemptTimeout = d }
}

func WithFeedLimit(n int) Option {
	return func(r *Resolver) { r.feedLimit = n }
}

// WithAllowedHosts restricts targets to these domains and their subdomains.
// An empty list allows any host.
func WithAllowedHosts(hosts []string) Option {
	return func(r *Resolver) { r.allowedHosts = hosts }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

func New(opts ...Option) *Resolver {
	r := &Resolver{
		presets:        DefaultPresets(),
		client:         &http.Client{},
		attemptTimeout: 8 * time.Second,
		feedLimit:      25,
		allowedHosts:   []string{"reddit.com", "redd.it"},
		maxBody:        defaultMaxBody,
		logger:         slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the first 2xx response, or the first response that failed
// with anything other than 403. Transport errors and 403s move on to the next
// preset. The whole traversal is bounded by (presets+1) attempt timeouts.
func (r *Resolver) Resolve(ctx context.Context, target string) (*Result, error) {
	u, err := r.validate(target)
	if err != nil {
		return nil, err
	}

	budget := time.Duration(len(r.presets)+1) * r.attemptTimeout
	tctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	var lastErr error
	for _, p := range r.presets {
		res, err := r.attempt(tctx, u, p)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.ResolverAttemptsTotal.WithLabelValues(p.Name, "transport").Inc()
			r.logger.Warn("upstream attempt failed", "preset", p.Name, "target", target, "error", err)
			lastErr = err
			continue
		}

		switch {
		case res.Status >= 200 && res.Status < 300:
			metrics.ResolverAttemptsTotal.WithLabelValues(p.Name, "ok").Inc()
			return res, nil
		case res.Status == http.StatusForbidden:
			metrics.ResolverAttemptsTotal.WithLabelValues(p.Name, "forbidden").Inc()
			r.logger.Info("upstream refused preset", "preset", p.Name, "target", target)
			lastErr = fmt.Errorf("preset %s: status %d", p.Name, res.Status)
		default:
			metrics.ResolverAttemptsTotal.WithLabelValues(p.Name, "status").Inc()
			r.logger.Info("upstream status passed through", "preset", p.Name, "status", res.Status)
			return res, nil
		}
	}

	sub, ok := feedSubreddit(u)
	if !ok {
		metrics.ResolverFallbackTotal.WithLabelValues("skipped").Inc()
		return nil, fmt.Errorf("%w: %v", ErrExhausted, lastErr)
	}
	res, err := r.feed(tctx, u, sub)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.ResolverFallbackTotal.WithLabelValues("failed").Inc()
		r.logger.Error("rss fallback failed", "subreddit", sub, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrExhausted, err)
	}
	metrics.ResolverFallbackTotal.WithLabelValues("ok").Inc()
	r.logger.Warn("served degraded listing from rss", "subreddit", sub)
	return res, nil
}

func (r *Resolver) validate(target string) (*url.URL, error) {
	if strings.TrimSpace(target) == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidTarget)
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute http(s) url", ErrInvalidTarget, target)
	}
	if !r.hostAllowed(u.Hostname()) {
		return nil, fmt.Errorf("%w: host %q is not allowed", ErrInvalidTarget, u.Hostname())
	}
	return u, nil
}

func (r *Resolver) hostAllowed(host string) bool {
	if len(r.allowedHosts) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, h := range r.allowedHosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func (r *Resolver) attempt(ctx context.Context, target *url.URL, p Preset) (*Result, error) {
	u := *target
	if p.Host != "" {
		u.Host = p.Host
		if !r.hostAllowed(u.Hostname()) {
			return nil, fmt.Errorf("preset %s: host %q is not allowed", p.Name, u.Hostname())
		}
	}
	body, resp, err := r.get(ctx, u.String(), p.Headers)
	if err != nil {
		return nil, err
	}
	return &Result{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Preset:      p.Name,
	}, nil
}

// get performs one GET bounded by the attempt timeout and reads the body
// before the timeout is released.
func (r *Resolver) get(ctx context.Context, target string, headers map[string]string) ([]byte, *http.Response, error) {
	actx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBody+1))
	if err != nil {
		return nil, nil, err
	}
	if int64(len(body)) > r.maxBody {
		return nil, nil, fmt.Errorf("%w: more than %d bytes from %s", ErrBodyTooLarge, r.maxBody, req.URL.Host)
	}
	return body, resp, nil
}
