package dashboard

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qepting91/reddit-relay/internal/browse"
	"github.com/qepting91/reddit-relay/internal/domain"
)

type stubSource struct {
	page domain.Page
	err  error
	reqs []domain.Request
}

func (s *stubSource) Listing(_ context.Context, req domain.Request) (domain.Page, error) {
	s.reqs = append(s.reqs, req)
	return s.page, s.err
}

func (s *stubSource) Thread(context.Context, domain.Request) (*domain.Post, error) {
	return nil, nil
}

func serve(h *Handler, target string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/dashboard", h.Serve)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestServe_LiveQuery(t *testing.T) {
	src := &stubSource{page: domain.Page{Posts: []domain.Post{
		{ID: "a", Title: "Gopher plush", Subreddit: "golang", Score: 900},
		{ID: "b", Title: "Ferris plush", Subreddit: "rust", Score: 400},
	}}}
	h := New(src, "", browse.DefaultOptions(), nil)

	w := serve(h, "/dashboard?sub=golang&sort=top")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Top Scores")
	assert.Contains(t, w.Body.String(), "Gopher plush")
	assert.Contains(t, w.Body.String(), "r/rust")

	require.Len(t, src.reqs, 1)
	assert.Equal(t, "top", src.reqs[0].Sort)
}

func TestServe_Export(t *testing.T) {
	path := filepath.Join(t.TempDir(), "current.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"x","title":"Exported","subreddit":"aww","score":5}`+"\n"), 0o644))

	src := &stubSource{}
	w := serve(New(src, path, browse.DefaultOptions(), nil), "/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Exported")
	assert.Empty(t, src.reqs)
}

func TestServe_Errors(t *testing.T) {
	h := New(&stubSource{}, "", browse.DefaultOptions(), nil)
	assert.Equal(t, http.StatusBadRequest, serve(h, "/dashboard?sub=golang&sort=best").Code)

	failing := &stubSource{err: &domain.FetchError{Kind: domain.KindUpstreamStatus, Status: http.StatusNotFound}}
	w := serve(New(failing, "", browse.DefaultOptions(), nil), "/dashboard?sub=missing")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "r/missing")
}

func TestRender_TruncatesLabels(t *testing.T) {
	long := "An extremely long post title that goes on well past the chart label width"
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "test", []domain.Post{{Title: long, Subreddit: "golang"}}))
	assert.NotContains(t, buf.String(), long)
	assert.Len(t, []rune(truncate(long)), labelLength)
}

func TestSubredditCounts(t *testing.T) {
	counts := subredditCounts([]domain.Post{{Subreddit: "a"}, {Subreddit: "a"}, {Subreddit: "b"}, {}})
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, counts)
}
