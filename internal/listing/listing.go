// Package listing decodes Reddit listing JSON into domain posts and encodes
// posts back into the same minimal shape.
package listing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/qepting91/reddit-relay/internal/domain"
)

const (
	kindListing = "Listing"
	kindPost    = "t3"
)

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listingData struct {
	After    *string  `json:"after"`
	Children *[]thing `json:"children"`
}

type imageData struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type previewImage struct {
	Source      imageData   `json:"source"`
	Resolutions []imageData `json:"resolutions"`
}

type redditVideo struct {
	FallbackURL string `json:"fallback_url"`
	HLSURL      string `json:"hls_url"`
	DashURL     string `json:"dash_url"`
	Duration    int    `json:"duration"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	IsGIF       bool   `json:"is_gif"`
}

type mediaContainer struct {
	Media *struct {
		RedditVideo *redditVideo `json:"reddit_video"`
	} `json:"media"`
	SecureMedia *struct {
		RedditVideo *redditVideo `json:"reddit_video"`
	} `json:"secure_media"`
}

func (mc mediaContainer) video() *redditVideo {
	if mc.Media != nil && mc.Media.RedditVideo != nil {
		return mc.Media.RedditVideo
	}
	if mc.SecureMedia != nil && mc.SecureMedia.RedditVideo != nil {
		return mc.SecureMedia.RedditVideo
	}
	return nil
}

type postData struct {
	ID          string  `json:"id"`
	Name        string  `json:"name,omitempty"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	Domain      string  `json:"domain,omitempty"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	IsVideo     bool    `json:"is_video"`
	Preview     *struct {
		Images []previewImage `json:"images"`
	} `json:"preview,omitempty"`
	mediaContainer
	CrosspostParentList []mediaContainer `json:"crosspost_parent_list,omitempty"`
}

// Parse decodes a listing body. Syntax errors are MalformedJSON; valid JSON
// without data.children is BadShape. Non-post children (comments, "more")
// and posts without an id are skipped.
func Parse(body []byte) (domain.Page, error) {
	var t thing
	if err := decode(body, &t); err != nil {
		return domain.Page{}, err
	}
	posts, after, err := fromListing(t)
	if err != nil {
		return domain.Page{}, err
	}
	return domain.Page{Posts: posts, After: after}, nil
}

// ParseThread decodes the two-element [post listing, comment listing] array
// returned for a permalink. It returns nil when the post listing is empty.
func ParseThread(body []byte) (*domain.Post, error) {
	var things []thing
	if err := decode(body, &things); err != nil {
		return nil, err
	}
	if len(things) == 0 {
		return nil, domain.NewError(domain.KindBadShape, errors.New("thread payload is an empty array"))
	}
	posts, _, err := fromListing(things[0])
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, nil
	}
	return &posts[0], nil
}

func decode(body []byte, v any) error {
	if !json.Valid(body) {
		return domain.NewError(domain.KindMalformedJSON, errors.New("response body is not valid JSON"))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return domain.NewError(domain.KindBadShape, err)
	}
	return nil
}

func fromListing(t thing) ([]domain.Post, string, error) {
	if t.Kind != kindListing {
		return nil, "", domain.NewError(domain.KindBadShape, fmt.Errorf("expected a Listing, got kind %q", t.Kind))
	}
	var ld listingData
	if err := json.Unmarshal(t.Data, &ld); err != nil {
		return nil, "", domain.NewError(domain.KindBadShape, err)
	}
	if ld.Children == nil {
		return nil, "", domain.NewError(domain.KindBadShape, errors.New("listing has no children"))
	}

	posts := make([]domain.Post, 0, len(*ld.Children))
	for _, child := range *ld.Children {
		if child.Kind != kindPost {
			continue
		}
		var pd postData
		if err := json.Unmarshal(child.Data, &pd); err != nil {
			return nil, "", domain.NewError(domain.KindBadShape, fmt.Errorf("post data: %w", err))
		}
		if pd.ID == "" {
			continue
		}
		posts = append(posts, toPost(pd))
	}

	after := ""
	if ld.After != nil {
		after = *ld.After
	}
	return posts, after, nil
}

func toPost(pd postData) domain.Post {
	p := domain.Post{
		ID:           pd.ID,
		Title:        html.UnescapeString(pd.Title),
		Subreddit:    pd.Subreddit,
		Author:       pd.Author,
		Permalink:    pd.Permalink,
		URL:          pd.URL,
		Domain:       pd.Domain,
		Thumbnail:    thumbnail(pd.Thumbnail),
		Score:        pd.Score,
		CommentCount: pd.NumComments,
		CreatedUTC:   pd.CreatedUTC,
		IsVideo:      pd.IsVideo,
	}

	v := pd.video()
	if v == nil {
		for _, xp := range pd.CrosspostParentList {
			if v = xp.video(); v != nil {
				break
			}
		}
	}
	if v != nil {
		p.IsVideo = true
		p.Media = &domain.Media{Video: &domain.Video{
			FallbackURL: html.UnescapeString(v.FallbackURL),
			HLSURL:      html.UnescapeString(v.HLSURL),
			DashURL:     html.UnescapeString(v.DashURL),
			Duration:    v.Duration,
			Width:       v.Width,
			Height:      v.Height,
			IsGIF:       v.IsGIF,
		}}
		return p
	}

	if pd.Preview != nil && len(pd.Preview.Images) > 0 {
		img := pd.Preview.Images[0]
		images := make([]domain.Image, 0, len(img.Resolutions)+1)
		for _, r := range img.Resolutions {
			images = append(images, domain.Image{URL: html.UnescapeString(r.URL), Width: r.Width, Height: r.Height})
		}
		if img.Source.URL != "" {
			images = append(images, domain.Image{URL: html.UnescapeString(img.Source.URL), Width: img.Source.Width, Height: img.Source.Height})
		}
		if len(images) > 0 {
			p.Media = &domain.Media{Images: images}
		}
	}
	return p
}

// Reddit uses placeholder words instead of URLs for missing thumbnails.
func thumbnail(s string) string {
	switch s {
	case "", "self", "default", "nsfw", "spoiler", "image":
		return ""
	}
	if !strings.HasPrefix(s, "http") {
		return ""
	}
	return html.UnescapeString(s)
}

// Encode writes posts as a minimal listing that Parse accepts.
// Media descriptors are not encoded.
func Encode(posts []domain.Post, after string) ([]byte, error) {
	children := make([]thing, 0, len(posts))
	for _, p := range posts {
		data, err := json.Marshal(postData{
			ID:          p.ID,
			Name:        kindPost + "_" + p.ID,
			Title:       p.Title,
			Author:      p.Author,
			Subreddit:   p.Subreddit,
			Permalink:   p.Permalink,
			URL:         p.URL,
			Domain:      p.Domain,
			Score:       p.Score,
			NumComments: p.CommentCount,
			CreatedUTC:  p.CreatedUTC,
			IsVideo:     p.IsVideo,
		})
		if err != nil {
			return nil, err
		}
		children = append(children, thing{Kind: kindPost, Data: data})
	}

	var afterPtr *string
	if after != "" {
		afterPtr = &after
	}
	data, err := json.Marshal(listingData{After: afterPtr, Children: &children})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(thing{Kind: kindListing, Data: data}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
