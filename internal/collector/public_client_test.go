package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/reddit-relay/internal/config"
	"github.com/qepting91/reddit-relay/internal/domain"
)

const oneListing = `{"kind":"Listing","data":{"after":"t3_b","children":[{"kind":"t3","data":{"id":"a","title":"A","subreddit":"golang","score":5}}]}}`

func newTestClient(t *testing.T, opts ...PublicOption) *PublicClient {
	t.Helper()
	pc, err := NewPublicClient("relay-test/1.0", append([]PublicOption{WithMinInterval(0)}, opts...)...)
	require.NoError(t, err)
	return pc
}

func TestPublicClient_Listing(t *testing.T) {
	var gotPath, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(oneListing))
	}))
	defer server.Close()

	pc := newTestClient(t, WithBaseURL(server.URL))
	page, err := pc.Listing(context.Background(), domain.Request{Subreddit: "golang", Sort: "hot", Limit: 25})

	require.NoError(t, err)
	assert.Equal(t, "t3_b", page.After)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "/r/golang/hot.json?limit=25&raw_json=1", gotPath)
	assert.Equal(t, "relay-test/1.0", gotUA)
}

func TestPublicClient_StatusErrors(t *testing.T) {
	status := http.StatusNotFound
	body := `{"message":"Not Found","error":404}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	defer server.Close()
	pc := newTestClient(t, WithBaseURL(server.URL))

	_, err := pc.Listing(context.Background(), domain.Request{Subreddit: "nope", Sort: "hot"})
	fe, ok := domain.AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindUpstreamStatus, fe.Kind)
	assert.Equal(t, http.StatusNotFound, fe.Status)

	status = http.StatusBadGateway
	body = `{"error":"upstream_exhausted","details":"every preset was blocked"}`
	_, err = pc.Listing(context.Background(), domain.Request{Subreddit: "golang", Sort: "hot"})
	fe, ok = domain.AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindExhausted, fe.Kind)
}

func TestPublicClient_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>whoa there, pardner</html>"))
	}))
	defer server.Close()

	pc := newTestClient(t, WithBaseURL(server.URL))
	_, err := pc.Listing(context.Background(), domain.Request{Subreddit: "golang", Sort: "hot"})

	fe, ok := domain.AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindMalformedJSON, fe.Kind)
}

func TestPublicClient_ViaRelay(t *testing.T) {
	var forwarded string
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/fetch", r.URL.Path)
		forwarded = r.URL.Query().Get("url")
		w.Write([]byte(`[{"kind":"Listing","data":{"children":[{"kind":"t3","data":{"id":"abc","title":"T","subreddit":"golang"}}]}},{"kind":"Listing","data":{"children":[]}}]`))
	}))
	defer relay.Close()

	pc := newTestClient(t, WithRelay(relay.URL+"/"))
	post, err := pc.Thread(context.Background(), domain.Request{Kind: domain.RequestThread, Permalink: "/r/golang/comments/abc/t"})

	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, "golang", post.Subreddit)

	u, err := url.Parse(forwarded)
	require.NoError(t, err)
	assert.Equal(t, "www.reddit.com", u.Host)
	assert.Equal(t, "/r/golang/comments/abc/t.json", u.Path)
}

func TestPublicClient_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	pc := newTestClient(t, WithBaseURL(server.URL))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := pc.Listing(ctx, domain.Request{Subreddit: "golang", Sort: "hot"})
	assert.True(t, domain.IsCancelled(err))
	_, isFetchErr := domain.AsFetchError(err)
	assert.False(t, isFetchErr)
}

func TestPublicClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	pc := newTestClient(t, WithBaseURL(server.URL))
	_, err := pc.Listing(context.Background(), domain.Request{Subreddit: "golang", Sort: "hot"})

	fe, ok := domain.AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindTransport, fe.Kind)
}

func TestNewCollector(t *testing.T) {
	src, err := NewCollector(config.CollectorConfig{Mode: "mock"})
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, src)

	_, err = NewCollector(config.CollectorConfig{Mode: "public"})
	assert.ErrorContains(t, err, "REDDIT_USER_AGENT")

	src, err = NewCollector(config.CollectorConfig{Mode: "proxy", UserAgent: "ua", RelayURL: "http://relay:8080", BaseURL: "https://www.reddit.com"})
	require.NoError(t, err)
	pc := src.(*PublicClient)
	assert.Equal(t, "http://relay:8080/api/fetch?url=https%3A%2F%2Fwww.reddit.com%2Fr%2Fgo%2Fnew.json%3Fraw_json%3D1",
		pc.Target(domain.Request{Subreddit: "go", Sort: "new"}))

	_, err = NewCollector(config.CollectorConfig{Mode: "smoke-signals"})
	assert.Error(t, err)
}

func TestMockClient_Paging(t *testing.T) {
	mc := &MockClient{MaxPages: 2}

	first, err := mc.Listing(context.Background(), domain.Request{Subreddit: "videos", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, first.Posts, 10)
	assert.Equal(t, "mock_page_1", first.After)

	second, err := mc.Listing(context.Background(), domain.Request{Subreddit: "videos", Limit: 10, After: first.After})
	require.NoError(t, err)
	assert.Empty(t, second.After)
	assert.Equal(t, "mock_videos_10", second.Posts[0].ID)
}
