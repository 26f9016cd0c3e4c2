package assist

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/qepting91/reddit-relay/internal/domain"
)

type stubGenerator struct {
	text    string
	err     error
	prompts []string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string, _ *genai.Schema) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.text, s.err
}

var post = domain.Post{
	ID:        "abc",
	Title:     "Dog learns to skateboard in the park",
	Subreddit: "aww",
	Author:    "skaterdog",
	Permalink: "/r/aww/comments/abc/dog/",
}

func TestRepostMetadata(t *testing.T) {
	gen := &stubGenerator{text: "```json\n" + `{"title":"` + strings.Repeat("x", 150) + `","description":"Credit to u/skaterdog","tags":["#Dogs","dogs"," skate "]}` + "\n```"}
	a := New(gen, nil)

	md := a.RepostMetadata(context.Background(), post)
	assert.Equal(t, 100, utf8.RuneCountInString(md.Title))
	assert.Equal(t, "Credit to u/skaterdog", md.Description)
	assert.Equal(t, []string{"dogs", "skate"}, md.Tags)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "r/aww")
}

func TestRepostMetadata_FallsBack(t *testing.T) {
	for name, gen := range map[string]Generator{
		"nil":        nil,
		"error":      &stubGenerator{err: errors.New("quota")},
		"not json":   &stubGenerator{text: "sorry"},
		"incomplete": &stubGenerator{text: `{"title":"t","description":"","tags":[]}`},
	} {
		t.Run(name, func(t *testing.T) {
			md := New(gen, nil).RepostMetadata(context.Background(), post)
			assert.Equal(t, DefaultMetadata(post), md)
		})
	}
}

func TestDefaultMetadata(t *testing.T) {
	md := DefaultMetadata(post)
	assert.Equal(t, post.Title, md.Title)
	assert.Contains(t, md.Description, "u/skaterdog")
	assert.Contains(t, md.Description, "https://www.reddit.com/r/aww/comments/abc/dog/")
	assert.Equal(t, []string{"aww", "reddit", "dog", "learns", "skateboard", "park"}, md.Tags)
}

func TestRisk(t *testing.T) {
	a := New(&stubGenerator{text: `{"risk":"High","reasoning":"Broadcast footage","recommendation":"Skip it"}`}, nil)
	r := a.Risk(context.Background(), post)
	assert.Equal(t, "high", r.Risk)

	a = New(&stubGenerator{text: `{"risk":"maybe","reasoning":"x","recommendation":"y"}`}, nil)
	assert.Equal(t, DefaultRisk(), a.Risk(context.Background(), post))
}

func TestSEOQuestions(t *testing.T) {
	a := New(&stubGenerator{text: `{"questions":["Can dogs skate?"," ","How to teach a dog tricks?","Best dog skateboards?","extra"]}`}, nil)
	qs := a.SEOQuestions(context.Background(), post)
	assert.Equal(t, []string{"Can dogs skate?", "How to teach a dog tricks?", "Best dog skateboards?"}, qs)

	a = New(&stubGenerator{text: `{"questions":["only one"]}`}, nil)
	qs = a.SEOQuestions(context.Background(), post)
	assert.Len(t, qs, 3)
	assert.Equal(t, DefaultSEOQuestions(post), qs)
}

func TestGeminiGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"))

		body, _ := io.ReadAll(r.Body)
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
			GenerationConfig struct {
				ResponseMimeType string         `json:"responseMimeType"`
				ResponseSchema   map[string]any `json:"responseSchema"`
			} `json:"generationConfig"`
		}
		assert.NoError(t, json.Unmarshal(body, &req))
		if assert.NotEmpty(t, req.Contents) && assert.NotEmpty(t, req.Contents[0].Parts) {
			assert.Equal(t, "hello", req.Contents[0].Parts[0].Text)
		}
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMimeType)
		assert.NotEmpty(t, req.GenerationConfig.ResponseSchema)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"questions\":[]}"}]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGeminiGenerator(context.Background(), srv.URL, "gemini-test", "secret", time.Second)
	require.NoError(t, err)
	text, err := g.Generate(context.Background(), "hello", seoSchema)
	require.NoError(t, err)
	assert.Equal(t, `{"questions":[]}`, text)
}

func TestGeminiGenerator_ErrorsNeverCarryTheKey(t *testing.T) {
	const key = "SECRET_KEY_123"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
	}))
	defer srv.Close()

	for name, endpoint := range map[string]string{
		"api error":   srv.URL,
		"unreachable": "http://127.0.0.1:1",
	} {
		t.Run(name, func(t *testing.T) {
			g, err := NewGeminiGenerator(context.Background(), endpoint, "m", key, time.Second)
			require.NoError(t, err)
			_, err = g.Generate(context.Background(), "p", nil)
			require.Error(t, err)
			assert.NotContains(t, err.Error(), key)
		})
	}
}

func TestGeminiGenerator_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	g, err := NewGeminiGenerator(context.Background(), srv.URL, "m", "ok", time.Second)
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), "p", nil)
	assert.Error(t, err)
}
