// Package media works out what to download for a post and saves it.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/qepting91/reddit-relay/internal/domain"
)

var ErrNoMedia = errors.New("post has no downloadable media")

// audioCandidates are the names Reddit has used for the audio track,
// newest first.
var audioCandidates = []string{"DASH_AUDIO_128.mp4", "DASH_audio.mp4"}

var (
	imageExtRegex = regexp.MustCompile(`(?i)\.(jpe?g|png|gif|webp)$`)
	unsafeName    = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

const maxManifest = 1 << 20

type Kind int

const (
	KindImage Kind = iota + 1
	KindGIF
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindGIF:
		return "gif"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Plan is what a front end needs to offer a download for one post.
type Plan struct {
	Kind Kind
	URL  string
	// AudioURL is the separate audio track when the manifest named one.
	AudioURL string
	// AudioCandidates are guesses used when the manifest was unavailable.
	AudioCandidates []string
	// MergeURL opens an external service that muxes video and audio.
	MergeURL string
	// FromFallback is set when the manifest could not be used.
	FromFallback bool
}

type Downloader struct {
	client   *http.Client
	mergeURL string
	logger   *slog.Logger
}

type Option func(*Downloader)

func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) { d.client = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Downloader) { d.logger = l }
}

// NewDownloader builds a downloader; mergeURL may be empty to disable the
// merge-service redirect.
func NewDownloader(mergeURL string, opts ...Option) *Downloader {
	d := &Downloader{
		client:   &http.Client{Timeout: 60 * time.Second},
		mergeURL: mergeURL,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Downloader) Plan(ctx context.Context, post domain.Post) (*Plan, error) {
	if post.Media != nil && post.Media.Video != nil {
		return d.videoPlan(ctx, post, post.Media.Video)
	}
	if post.Media != nil && len(post.Media.Images) > 0 {
		return &Plan{Kind: KindImage, URL: largest(post.Media.Images).URL}, nil
	}
	if u, err := url.Parse(post.URL); err == nil && imageExtRegex.MatchString(u.Path) {
		return &Plan{Kind: KindImage, URL: post.URL}, nil
	}
	return nil, ErrNoMedia
}

func (d *Downloader) videoPlan(ctx context.Context, post domain.Post, v *domain.Video) (*Plan, error) {
	if v.IsGIF {
		if v.FallbackURL == "" {
			return nil, ErrNoMedia
		}
		return &Plan{Kind: KindGIF, URL: v.FallbackURL}, nil
	}

	plan := &Plan{Kind: KindVideo, MergeURL: d.merge(post)}
	if v.DashURL != "" {
		videoURL, audioURL, err := d.fromManifest(ctx, v.DashURL)
		if err == nil {
			plan.URL, plan.AudioURL = videoURL, audioURL
			return plan, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		d.logger.Warn("dash manifest unavailable, using fallback", "post", post.ID, "error", err)
	}

	if v.FallbackURL == "" {
		return nil, ErrNoMedia
	}
	plan.URL = v.FallbackURL
	plan.FromFallback = true
	plan.AudioCandidates = guessAudio(v.FallbackURL)
	return plan, nil
}

func (d *Downloader) fromManifest(ctx context.Context, dashURL string) (string, string, error) {
	body, err := d.fetch(ctx, dashURL, maxManifest)
	if err != nil {
		return "", "", err
	}
	m, err := ParseManifest(bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}

	base, err := url.Parse(dashURL)
	if err != nil {
		return "", "", err
	}
	video, audio := m.Best()
	videoURL, err := resolveRef(base, video.BaseURL)
	if err != nil {
		return "", "", err
	}
	if audio == nil {
		return videoURL, "", nil
	}
	audioURL, err := resolveRef(base, audio.BaseURL)
	if err != nil {
		return "", "", err
	}
	return videoURL, audioURL, nil
}

func (d *Downloader) merge(post domain.Post) string {
	if d.mergeURL == "" || post.Permalink == "" {
		return ""
	}
	return d.mergeURL + "?url=" + url.QueryEscape(post.PermalinkURL())
}

// Save streams rawURL into dir and returns the written path.
func (d *Downloader) Save(ctx context.Context, rawURL, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: status %d", rawURL, resp.StatusCode)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	dest := filepath.Join(dir, fileName(rawURL))
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", err
	}
	d.logger.Info("saved media", "url", rawURL, "path", dest)
	return dest, nil
}

func (d *Downloader) fetch(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

func resolveRef(base *url.URL, ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(r).String(), nil
}

// guessAudio derives audio track URLs from a fallback like
// https://v.redd.it/abc/DASH_720.mp4?source=fallback.
func guessAudio(fallback string) []string {
	u, err := url.Parse(fallback)
	if err != nil {
		return nil
	}
	u.RawQuery = ""
	dir := path.Dir(u.Path)
	out := make([]string, 0, len(audioCandidates))
	for _, name := range audioCandidates {
		c := *u
		c.Path = path.Join(dir, name)
		out = append(out, c.String())
	}
	return out
}

func largest(images []domain.Image) domain.Image {
	best := images[0]
	for _, img := range images[1:] {
		if img.Width*img.Height > best.Width*best.Height {
			best = img
		}
	}
	return best
}

// fileName builds a flat, filesystem-safe name from the URL path,
// keeping the parent segment so v.redd.it tracks stay distinct.
func fileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "download"
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 2 {
		parts = parts[len(parts)-2:]
	}
	name := unsafeName.ReplaceAllString(strings.Join(parts, "_"), "_")
	if name == "" {
		return "download"
	}
	return name
}
