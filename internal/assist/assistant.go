// Package assist drafts repost metadata for a post. Every answer has a
// local default so a missing or failing generator never blocks the caller.
package assist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"google.golang.org/genai"

	"github.com/qepting91/reddit-relay/internal/domain"
)

const (
	maxTitle = 100
	maxTags  = 15
)

type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

type RiskReport struct {
	Risk           string `json:"risk"`
	Reasoning      string `json:"reasoning"`
	Recommendation string `json:"recommendation"`
}

type seoAnswer struct {
	Questions []string `json:"questions"`
}

var (
	stringList = &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}

	metadataSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
			"tags":        stringList,
		},
		Required: []string{"title", "description", "tags"},
	}
	riskSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"risk":           {Type: genai.TypeString, Enum: []string{"low", "medium", "high"}},
			"reasoning":      {Type: genai.TypeString},
			"recommendation": {Type: genai.TypeString},
		},
		Required: []string{"risk", "reasoning", "recommendation"},
	}
	seoSchema = &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"questions": stringList},
		Required:   []string{"questions"},
	}
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true, "to": true,
	"in": true, "on": true, "for": true, "is": true, "it": true, "this": true, "that": true,
	"with": true, "my": true, "i": true, "at": true, "be": true, "was": true,
}

type Assistant struct {
	gen    Generator
	logger *slog.Logger
}

// New returns an assistant; gen may be nil, in which case every call
// returns the local default.
func New(gen Generator, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{gen: gen, logger: logger}
}

// RepostMetadata drafts a video title, description and tags for post.
func (a *Assistant) RepostMetadata(ctx context.Context, post domain.Post) Metadata {
	prompt := fmt.Sprintf(`Write YouTube upload metadata for a clip reposted from Reddit.
Post title: %q
Subreddit: r/%s
Return a title of at most %d characters, a description that credits the original poster, and up to %d tags.`,
		post.Title, post.Subreddit, maxTitle, maxTags)

	var out Metadata
	err := a.ask(ctx, prompt, metadataSchema, &out, func() error {
		out.Title = strings.TrimSpace(out.Title)
		out.Description = strings.TrimSpace(out.Description)
		out.Tags = cleanTags(out.Tags)
		if out.Title == "" || out.Description == "" || len(out.Tags) == 0 {
			return errors.New("incomplete metadata")
		}
		out.Title = truncate(out.Title, maxTitle)
		return nil
	})
	if err != nil {
		a.logger.Warn("using default repost metadata", "post", post.ID, "error", err)
		return DefaultMetadata(post)
	}
	return out
}

// Risk rates how likely a repost of post is to draw a copyright claim.
func (a *Assistant) Risk(ctx context.Context, post domain.Post) RiskReport {
	prompt := fmt.Sprintf(`Assess the copyright risk of reposting this Reddit video to YouTube.
Post title: %q
Subreddit: r/%s
Answer with risk (low, medium or high), a short reasoning and a recommendation.`,
		post.Title, post.Subreddit)

	var out RiskReport
	err := a.ask(ctx, prompt, riskSchema, &out, func() error {
		out.Risk = strings.ToLower(strings.TrimSpace(out.Risk))
		switch out.Risk {
		case "low", "medium", "high":
		default:
			return fmt.Errorf("unknown risk level %q", out.Risk)
		}
		if strings.TrimSpace(out.Reasoning) == "" || strings.TrimSpace(out.Recommendation) == "" {
			return errors.New("incomplete risk report")
		}
		return nil
	})
	if err != nil {
		a.logger.Warn("using default risk report", "post", post.ID, "error", err)
		return DefaultRisk()
	}
	return out
}

// SEOQuestions returns three search-style questions the clip answers.
func (a *Assistant) SEOQuestions(ctx context.Context, post domain.Post) []string {
	prompt := fmt.Sprintf(`List exactly three questions people might search for that this clip answers.
Post title: %q
Subreddit: r/%s`, post.Title, post.Subreddit)

	var out seoAnswer
	err := a.ask(ctx, prompt, seoSchema, &out, func() error {
		qs := make([]string, 0, 3)
		for _, q := range out.Questions {
			if q = strings.TrimSpace(q); q != "" {
				qs = append(qs, q)
			}
		}
		if len(qs) < 3 {
			return fmt.Errorf("expected 3 questions, got %d", len(qs))
		}
		out.Questions = qs[:3]
		return nil
	})
	if err != nil {
		a.logger.Warn("using default seo questions", "post", post.ID, "error", err)
		return DefaultSEOQuestions(post)
	}
	return out.Questions
}

func (a *Assistant) ask(ctx context.Context, prompt string, schema *genai.Schema, into any, validate func() error) error {
	if a.gen == nil {
		return errors.New("no generator configured")
	}
	text, err := a.gen.Generate(ctx, prompt, schema)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripFence(text)), into); err != nil {
		return fmt.Errorf("decoding generator output: %w", err)
	}
	return validate()
}

func DefaultMetadata(post domain.Post) Metadata {
	title := strings.TrimSpace(post.Title)
	if title == "" {
		title = "Clip from r/" + post.Subreddit
	}
	desc := fmt.Sprintf("Originally posted to r/%s", post.Subreddit)
	if post.Author != "" {
		desc += " by u/" + post.Author
	}
	desc += "."
	if post.Permalink != "" {
		desc += "\n\nSource: " + post.PermalinkURL()
	}

	tags := []string{post.Subreddit, "reddit"}
	for _, w := range strings.FieldsFunc(strings.ToLower(post.Title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) > 2 && !stopWords[w] {
			tags = append(tags, w)
		}
	}
	return Metadata{Title: truncate(title, maxTitle), Description: desc, Tags: cleanTags(tags)}
}

func DefaultRisk() RiskReport {
	return RiskReport{
		Risk:           "unknown",
		Reasoning:      "Automatic review is unavailable right now.",
		Recommendation: "Ask the original poster for permission and credit them before reposting.",
	}
}

func DefaultSEOQuestions(post domain.Post) []string {
	topic := strings.TrimSpace(post.Title)
	if topic == "" {
		topic = "this clip"
	}
	return []string{
		fmt.Sprintf("What happens in %s?", topic),
		fmt.Sprintf("Why is r/%s talking about this?", post.Subreddit),
		fmt.Sprintf("Where can I find the original of %s?", topic),
	}
}

// cleanTags lowercases, trims and de-duplicates tags, keeping order.
func cleanTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "#")))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == maxTags {
			break
		}
	}
	return out
}

// stripFence removes a ```json fence some models wrap around JSON output.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
