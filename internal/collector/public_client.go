package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/qepting91/reddit-relay/internal/domain"
	"github.com/qepting91/reddit-relay/internal/listing"
	"golang.org/x/time/rate"
)

// PublicClient reads Reddit's public JSON endpoints, either directly or
// through a relay that forwards the request upstream.
type PublicClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	baseURL    string
	relayURL   string
}

type PublicOption func(*PublicClient)

// WithBaseURL points the client at a different Reddit host.
func WithBaseURL(u string) PublicOption {
	return func(pc *PublicClient) { pc.baseURL = strings.TrimRight(u, "/") }
}

// WithRelay routes every request through the relay's /api/fetch endpoint.
func WithRelay(u string) PublicOption {
	return func(pc *PublicClient) { pc.relayURL = strings.TrimRight(u, "/") }
}

func WithTimeout(d time.Duration) PublicOption {
	return func(pc *PublicClient) { pc.httpClient.Timeout = d }
}

// WithMinInterval sets the spacing between requests; zero disables limiting.
func WithMinInterval(d time.Duration) PublicOption {
	return func(pc *PublicClient) { pc.limiter = newLimiter(d) }
}

func NewPublicClient(userAgent string, opts ...PublicOption) (*PublicClient, error) {
	if userAgent == "" {
		return nil, fmt.Errorf("a User-Agent is required for public access")
	}
	pc := &PublicClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		// Public JSON Limit: 1 req / 2 seconds (Stricter)
		limiter:   rate.NewLimiter(rate.Every(2*time.Second), 1),
		userAgent: userAgent,
		baseURL:   "https://www.reddit.com",
	}
	for _, opt := range opts {
		opt(pc)
	}
	return pc, nil
}

func (pc *PublicClient) Listing(ctx context.Context, req domain.Request) (domain.Page, error) {
	body, err := pc.get(ctx, req)
	if err != nil {
		return domain.Page{}, err
	}
	return listing.Parse(body)
}

func (pc *PublicClient) Thread(ctx context.Context, req domain.Request) (*domain.Post, error) {
	body, err := pc.get(ctx, req)
	if err != nil {
		return nil, err
	}
	return listing.ParseThread(body)
}

// Target returns the URL that will be requested for req.
func (pc *PublicClient) Target(req domain.Request) string {
	upstream := pc.baseURL + req.Path()
	if pc.relayURL == "" {
		return upstream
	}
	return pc.relayURL + "/api/fetch?url=" + url.QueryEscape(upstream)
}

func (pc *PublicClient) get(ctx context.Context, req domain.Request) ([]byte, error) {
	if err := pc.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domain.NewError(domain.KindTransport, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pc.Target(req), nil)
	if err != nil {
		return nil, domain.NewError(domain.KindValidation, err)
	}
	httpReq.Header.Set("User-Agent", pc.userAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := pc.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, transportError(ctx, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, body)
	}
	return body, nil
}
