package media

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zencoder/go-dash/v3/mpd"
)

// Representation is one encoded stream in a DASH manifest.
type Representation struct {
	ID        string
	Bandwidth int
	Width     int
	Height    int
	MimeType  string
	BaseURL   string
}

// Manifest holds the video and audio streams of a DASH MPD.
type Manifest struct {
	Video []Representation
	Audio []Representation
}

// ParseManifest reads an MPD document. Representations without a BaseURL
// are ignored; a manifest without any video stream is an error.
func ParseManifest(r io.Reader) (*Manifest, error) {
	doc, err := mpd.Read(r)
	if err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	m := &Manifest{}
	for _, p := range doc.Periods {
		if p == nil {
			continue
		}
		for _, set := range p.AdaptationSets {
			if set == nil {
				continue
			}
			for _, rep := range set.Representations {
				if rep == nil {
					continue
				}
				out := Representation{
					ID:        deref(rep.ID),
					Bandwidth: int(derefInt(rep.Bandwidth)),
					Width:     int(derefInt(rep.Width)),
					Height:    int(derefInt(rep.Height)),
					MimeType:  firstNonEmpty(deref(rep.MimeType), deref(set.MimeType)),
					BaseURL:   strings.TrimSpace(firstOf(rep.BaseURL)),
				}
				if out.BaseURL == "" {
					continue
				}
				switch streamKind(deref(set.ContentType), out) {
				case "audio":
					m.Audio = append(m.Audio, out)
				case "video":
					m.Video = append(m.Video, out)
				}
			}
		}
	}
	if len(m.Video) == 0 {
		return nil, errors.New("manifest has no video representations")
	}
	return m, nil
}

// Best returns the highest-bandwidth video and audio streams. audio is nil
// when the clip is silent.
func (m *Manifest) Best() (video, audio *Representation) {
	return best(m.Video), best(m.Audio)
}

func best(reps []Representation) *Representation {
	var out *Representation
	for i := range reps {
		if out == nil || reps[i].Bandwidth > out.Bandwidth {
			out = &reps[i]
		}
	}
	return out
}

func streamKind(contentType string, rep Representation) string {
	switch {
	case contentType != "":
		return contentType
	case strings.HasPrefix(rep.MimeType, "audio/"):
		return "audio"
	case strings.HasPrefix(rep.MimeType, "video/"):
		return "video"
	case strings.Contains(strings.ToLower(rep.BaseURL), "audio"):
		return "audio"
	default:
		return "video"
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstOf(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}
