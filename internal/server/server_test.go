package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/reddit-relay/internal/collector"
	"github.com/qepting91/reddit-relay/internal/domain"
	"github.com/qepting91/reddit-relay/internal/resolver"
)

type fakeResolver struct {
	res    *resolver.Result
	err    error
	target string
}

func (f *fakeResolver) Resolve(_ context.Context, target string) (*resolver.Result, error) {
	f.target = target
	return f.res, f.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func do(r http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Origin", "http://localhost:5173")
	r.ServeHTTP(w, req)
	return w
}

func TestFetch_PassThrough(t *testing.T) {
	res := &fakeResolver{res: &resolver.Result{
		Status:      http.StatusOK,
		ContentType: "application/json; charset=UTF-8",
		Body:        []byte(`{"kind":"Listing"}`),
		Preset:      "mobile",
	}}
	w := do(New(res).Router(), http.MethodGet, "/api/fetch?url=https%3A%2F%2Fwww.reddit.com%2Fr%2Fgolang%2Fhot.json%3Flimit%3D5")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"kind":"Listing"}`, w.Body.String())
	assert.Equal(t, "application/json; charset=UTF-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "mobile", w.Header().Get("X-Relay-Preset"))
	assert.Empty(t, w.Header().Get("X-Relay-Degraded"))
	assert.Equal(t, "https://www.reddit.com/r/golang/hot.json?limit=5", res.target)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")
	assert.Equal(t, "no-cache", w.Header().Get("Pragma"))
}

func TestFetch_UpstreamStatusVerbatim(t *testing.T) {
	res := &fakeResolver{res: &resolver.Result{Status: http.StatusNotFound, Body: []byte(`{"message":"Not Found","error":404}`), Preset: "browser"}}
	w := do(New(res).Router(), http.MethodGet, "/api/fetch?url=x")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, `{"message":"Not Found","error":404}`, w.Body.String())
}

func TestFetch_Degraded(t *testing.T) {
	res := &fakeResolver{res: &resolver.Result{Status: http.StatusOK, Body: []byte(`{}`), Preset: "rss", Degraded: true}}
	w := do(New(res).Router(), http.MethodGet, "/api/fetch?url=x")
	assert.Equal(t, "rss", w.Header().Get("X-Relay-Degraded"))
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid", fmt.Errorf("%w: url is required", resolver.ErrInvalidTarget), http.StatusBadRequest, "invalid_url"},
		{"exhausted", fmt.Errorf("%w: preset bot: status 403", resolver.ErrExhausted), http.StatusBadGateway, resolver.ExhaustedCode},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "upstream_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(New(&fakeResolver{err: tt.err}).Router(), http.MethodGet, "/api/fetch")
			require.Equal(t, tt.status, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["error"])
			assert.NotEmpty(t, body["details"])
		})
	}
}

func TestFetch_ExhaustedMentionsTransience(t *testing.T) {
	w := do(New(&fakeResolver{err: resolver.ErrExhausted}).Router(), http.MethodGet, "/api/fetch?url=x")
	assert.Contains(t, w.Body.String(), "usually temporary")
}

func TestFetch_RateLimited(t *testing.T) {
	res := &fakeResolver{res: &resolver.Result{Status: http.StatusOK, Body: []byte(`{}`)}}
	r := New(res, WithRateLimit(0.001, 1)).Router()

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/fetch?url=x").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodGet, "/api/fetch?url=x").Code)
	// Health is not limited.
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health").Code)
}

func TestHealthMetricsDashboard(t *testing.T) {
	called := false
	r := New(&fakeResolver{}, WithDashboard(func(c *gin.Context) {
		called = true
		c.String(http.StatusOK, "charts")
	})).Router()

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health").Code)

	w := do(r, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "relay_http_requests_total")

	assert.Equal(t, "charts", do(r, http.MethodGet, "/dashboard").Body.String())
	assert.True(t, called)
}

func TestRelay_EndToEnd(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/r/golang/hot.json":
			if r.Header.Get("User-Agent") == "blocked" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"kind":"Listing","data":{"after":null,"children":[{"kind":"t3","data":{"id":"abc","title":"Hello","subreddit":"golang","permalink":"/r/golang/comments/abc/hello/","score":7}}]}}`))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer upstream.Close()

	res := resolver.New(
		resolver.WithAllowedHosts(nil),
		resolver.WithPresets([]resolver.Preset{
			{Name: "blocked", Headers: map[string]string{"User-Agent": "blocked"}},
			{Name: "ok", Headers: map[string]string{"User-Agent": "ok"}},
		}),
	)
	relay := httptest.NewServer(New(res).Router())
	defer relay.Close()

	client, err := collector.NewPublicClient("test-agent",
		collector.WithBaseURL(upstream.URL),
		collector.WithRelay(relay.URL),
		collector.WithMinInterval(0),
	)
	require.NoError(t, err)

	page, err := client.Listing(context.Background(), domain.Request{Kind: domain.RequestListing, Subreddit: "golang", Sort: "hot", Limit: 5})
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "Hello", page.Posts[0].Title)

	// The search endpoint has no feed fallback, so the relay reports exhaustion.
	_, err = client.Listing(context.Background(), domain.Request{Kind: domain.RequestSearch, Query: "go", Limit: 5})
	fe, ok := domain.AsFetchError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, domain.KindExhausted, fe.Kind)
}
