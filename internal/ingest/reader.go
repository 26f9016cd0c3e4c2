package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/qepting91/reddit-relay/internal/domain"
	"github.com/qepting91/reddit-relay/internal/resolver"
)

var presetNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)

// LoadPresets reads name,user_agent,host rows. The first row is a header;
// rows without a valid name or user agent are skipped.
func LoadPresets(path string) ([]resolver.Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readPresets(f)
}

func readPresets(in io.Reader) ([]resolver.Preset, error) {
	var presets []resolver.Preset
	err := eachRecord(in, func(rec []string) {
		if len(rec) < 2 {
			return
		}
		name := strings.ToLower(strings.TrimSpace(rec[0]))
		ua := strings.TrimSpace(rec[1])
		if !presetNameRegex.MatchString(name) || ua == "" {
			return
		}
		p := resolver.Preset{
			Name:    name,
			Headers: map[string]string{"User-Agent": ua, "Accept": "application/json"},
		}
		if len(rec) > 2 {
			p.Host = strings.TrimSpace(rec[2])
		}
		presets = append(presets, p)
	})
	if err != nil {
		return nil, err
	}
	if len(presets) == 0 {
		return nil, errors.New("no valid presets found")
	}
	return presets, nil
}

// LoadQueries reads kind,value,sort rows, where kind is sub, search or url.
// An empty or unknown sort falls back to the kind's default.
func LoadQueries(path string) ([]domain.Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readQueries(f)
}

func readQueries(in io.Reader) ([]domain.Query, error) {
	var queries []domain.Query
	err := eachRecord(in, func(rec []string) {
		if len(rec) < 2 {
			return
		}
		value := strings.TrimSpace(rec[1])
		if value == "" {
			return
		}
		var sort domain.SortMode
		if len(rec) > 2 {
			sort, _ = domain.ParseSort(rec[2])
		}

		switch strings.ToLower(strings.TrimSpace(rec[0])) {
		case "sub", "subreddit":
			q := domain.BrowseQuery(value, sort)
			if !domain.ValidSubreddit(q.Subreddit) {
				return
			}
			queries = append(queries, q)
		case "search":
			queries = append(queries, domain.SearchQuery(value, sort))
		case "url", "post":
			queries = append(queries, domain.PostQuery(value))
		}
	})
	return queries, err
}

// eachRecord calls fn for every data row. Malformed rows are skipped.
func eachRecord(in io.Reader, fn func([]string)) error {
	r := csv.NewReader(stripBOM(in))
	r.FieldsPerRecord = -1
	r.Comment = '#'

	line := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return err
		}
		line++
		if line == 1 {
			continue // header
		}
		fn(record)
	}
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	rdr, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if rdr != '\uFEFF' {
		_ = br.UnreadRune()
	}
	return br
}
