package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/qepting91/reddit-relay/internal/assist"
	"github.com/qepting91/reddit-relay/internal/browse"
	"github.com/qepting91/reddit-relay/internal/domain"
	"github.com/qepting91/reddit-relay/internal/media"
)

// render prints a published state. Cancelled sessions print nothing.
func render(w io.Writer, s browse.State) {
	switch s.Status {
	case browse.StatusLoading:
		fmt.Fprintf(w, "… loading %s\n", s.Query)
	case browse.StatusFailed:
		fmt.Fprintf(w, "! %s\n", s.Err.Message())
	case browse.StatusSucceeded:
		if len(s.Posts) == 0 {
			fmt.Fprintf(w, "%s\n", s.Empty)
			return
		}
		fmt.Fprintf(w, "%s (%s, %d posts)\n", s.Query, s.Branch, len(s.Posts))
		for i, p := range s.Posts {
			renderPost(w, i+1, p)
		}
	}
}

func renderPost(w io.Writer, n int, p domain.Post) {
	fmt.Fprintf(w, "%3d. %s\n", n, p.Title)
	meta := []string{
		"r/" + p.Subreddit,
		fmt.Sprintf("%d pts", p.Score),
		fmt.Sprintf("%d comments", p.CommentCount),
	}
	if p.Author != "" {
		meta = append(meta, "u/"+p.Author)
	}
	if p.CreatedUTC > 0 {
		meta = append(meta, age(time.Unix(int64(p.CreatedUTC), 0)))
	}
	if tag := mediaTag(p); tag != "" {
		meta = append(meta, tag)
	}
	fmt.Fprintf(w, "     %s\n", strings.Join(meta, " · "))
	fmt.Fprintf(w, "     %s\n", p.PermalinkURL())
}

func mediaTag(p domain.Post) string {
	switch {
	case p.Media != nil && p.Media.Video != nil && p.Media.Video.IsGIF:
		return "[gif]"
	case p.HostedVideo():
		return "[video]"
	case p.Media != nil && len(p.Media.Images) > 0:
		return "[image]"
	}
	return ""
}

func age(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func renderPlan(w io.Writer, p *media.Plan) {
	fmt.Fprintf(w, "%s: %s\n", p.Kind, p.URL)
	if p.AudioURL != "" {
		fmt.Fprintf(w, "audio: %s\n", p.AudioURL)
	}
	for _, c := range p.AudioCandidates {
		fmt.Fprintf(w, "audio (guess): %s\n", c)
	}
	if p.MergeURL != "" {
		fmt.Fprintf(w, "merge video and audio: %s\n", p.MergeURL)
	}
}

func renderAssist(w io.Writer, md assist.Metadata, risk assist.RiskReport, questions []string) {
	fmt.Fprintf(w, "title: %s\n\n%s\n\ntags: %s\n", md.Title, md.Description, strings.Join(md.Tags, ", "))
	fmt.Fprintf(w, "risk: %s (%s)\n  %s\n", risk.Risk, risk.Reasoning, risk.Recommendation)
	for _, q := range questions {
		fmt.Fprintf(w, "? %s\n", q)
	}
}
