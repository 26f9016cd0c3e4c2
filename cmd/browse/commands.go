package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/qepting91/reddit-relay/internal/browse"
	"github.com/qepting91/reddit-relay/internal/domain"
)

type action int

const (
	actQuery action = iota
	actRetry
	actDownload
	actAssist
	actHelp
	actQuit
)

type command struct {
	action action
	query  domain.Query
	// index is 1-based into the last result list.
	index int
}

const helpText = `commands:
  r/<name> | sub <name>     browse a subreddit
  search <text>             search all of Reddit
  url <link> | <link>       open a single post
  sort <mode>               hot new top rising controversial relevance comments videos engagement
  retry                     run the last query again
  download <n>              save the media of result n
  assist <n>                draft repost metadata for result n
  help | quit`

// parseCommand turns one input line into a command. Query commands derive
// from cur so the sort carries over between sources.
func parseCommand(line string, cur domain.Query) (command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return command{}, errors.New("empty command")
	}
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(verb) {
	case "quit", "exit", "q":
		return command{action: actQuit}, nil
	case "help", "?":
		return command{action: actHelp}, nil
	case "retry":
		return command{action: actRetry}, nil
	case "sub":
		if arg == "" {
			return command{}, errors.New("usage: sub <name>")
		}
		return command{action: actQuery, query: cur.WithSubreddit(arg)}, nil
	case "search":
		if arg == "" {
			return command{}, errors.New("usage: search <text>")
		}
		return command{action: actQuery, query: cur.WithSearch(arg)}, nil
	case "url":
		if arg == "" {
			return command{}, errors.New("usage: url <link>")
		}
		return command{action: actQuery, query: cur.WithPostURL(arg)}, nil
	case "sort":
		m, err := domain.ParseSort(arg)
		if err != nil {
			return command{}, err
		}
		return command{action: actQuery, query: cur.WithSort(m)}, nil
	case "download", "assist":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return command{}, fmt.Errorf("usage: %s <n>", verb)
		}
		act := actDownload
		if verb == "assist" {
			act = actAssist
		}
		return command{action: act, index: n}, nil
	}

	switch {
	case strings.HasPrefix(line, "r/") || strings.HasPrefix(line, "/r/"):
		return command{action: actQuery, query: cur.WithSubreddit(line)}, nil
	case strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://"):
		return command{action: actQuery, query: cur.WithPostURL(line)}, nil
	}
	return command{}, fmt.Errorf("unknown command %q (try help)", verb)
}

// settle replaces a finished post lookup with a listing of the subreddit it
// adopted, so a following sort browses that subreddit instead of reopening
// the post.
func settle(cur domain.Query, s browse.State) domain.Query {
	if cur.Kind() != domain.SourcePost || s.Status != browse.StatusSucceeded || s.Query != cur || s.Subreddit == "" {
		return cur
	}
	return domain.BrowseQuery(s.Subreddit, cur.Sort)
}
