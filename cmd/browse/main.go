package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/qepting91/reddit-relay/internal/assist"
	"github.com/qepting91/reddit-relay/internal/browse"
	"github.com/qepting91/reddit-relay/internal/collector"
	"github.com/qepting91/reddit-relay/internal/config"
	"github.com/qepting91/reddit-relay/internal/domain"
	"github.com/qepting91/reddit-relay/internal/ingest"
	"github.com/qepting91/reddit-relay/internal/media"
	"github.com/qepting91/reddit-relay/internal/storage"
)

type app struct {
	ctl        *browse.Controller
	downloader *media.Downloader
	assistant  *assist.Assistant
	outputDir  string
	out        io.Writer
	logger     *slog.Logger
}

func main() {
	var (
		sub     = flag.String("sub", "", "browse this subreddit once and exit")
		search  = flag.String("q", "", "search once and exit")
		postURL = flag.String("url", "", "open this post once and exit")
		sortArg = flag.String("sort", "", "sort mode")
		mode    = flag.String("mode", "", "override COLLECTOR_MODE")
		relay   = flag.String("relay", "", "override RELAY_URL")
		export  = flag.String("export", "", "append every result to this NDJSON file")
		batch   = flag.String("batch", "", "run the queries in this CSV (kind,value,sort) and exit")
	)
	flag.Parse()

	// 1. Setup
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Collector.Mode = *mode
	}
	if *relay != "" {
		cfg.Collector.RelayURL = *relay
	}

	// 2. Source
	src, err := collector.NewCollector(cfg.Collector)
	if err != nil {
		logger.Error("Failed to initialize collector", "error", err)
		os.Exit(1)
	}
	logger.Info("Collector initialized", "mode", cfg.Collector.Mode)

	// 3. Rendering and export run off the controller's lock.
	states := make(chan browse.State, 64)
	var exportCh chan domain.Post
	var wg sync.WaitGroup
	if *export != "" {
		exportCh = make(chan domain.Post, 100)
		writer := &storage.WriterService{FilePath: *export, Logger: logger}
		wg.Add(1)
		go writer.Start(&wg, exportCh)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for s := range states {
			render(os.Stdout, s)
			if exportCh != nil && s.Status == browse.StatusSucceeded {
				for _, p := range s.Posts {
					exportCh <- p
				}
			}
		}
		if exportCh != nil {
			close(exportCh)
		}
	}()

	ctl := browse.New(src, browse.OptionsFromConfig(cfg.Browse),
		browse.WithLogger(logger),
		browse.WithObserver(func(s browse.State) { states <- s }),
	)

	var gen assist.Generator
	if cfg.Assist.APIKey != "" {
		g, err := assist.NewGeminiGenerator(context.Background(), cfg.Assist.Endpoint, cfg.Assist.Model, cfg.Assist.APIKey, cfg.Assist.Timeout)
		if err != nil {
			logger.Warn("Assist disabled", "error", err)
		} else {
			gen = g
		}
	}
	a := &app{
		ctl:        ctl,
		downloader: media.NewDownloader(cfg.Media.MergeServiceURL, media.WithLogger(logger)),
		assistant:  assist.New(gen, logger),
		outputDir:  cfg.Media.OutputDir,
		out:        os.Stdout,
		logger:     logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Run
	var runErr error
	switch {
	case *batch != "":
		runErr = a.runBatch(*batch)
	case *sub != "" || *search != "" || *postURL != "":
		runErr = a.runOnce(*sub, *search, *postURL, *sortArg)
	default:
		a.repl(ctx, os.Stdin, *sortArg)
	}

	// 5. Shutdown
	ctl.Close()
	close(states)
	wg.Wait()
	if runErr != nil {
		logger.Error("Browse failed", "error", runErr)
		os.Exit(1)
	}
}

func (a *app) runOnce(sub, search, postURL, sortArg string) error {
	q := domain.Query{}
	if sortArg != "" {
		m, err := domain.ParseSort(sortArg)
		if err != nil {
			return err
		}
		q.Sort = m
	}
	switch {
	case postURL != "":
		q = q.WithPostURL(postURL)
	case search != "":
		q = q.WithSearch(search)
	default:
		q = q.WithSubreddit(sub)
	}
	a.ctl.Submit(q)
	a.ctl.Wait()
	if s := a.ctl.State(); s.Status == browse.StatusFailed {
		return s.Err
	}
	return nil
}

func (a *app) runBatch(path string) error {
	queries, err := ingest.LoadQueries(path)
	if err != nil {
		return err
	}
	a.logger.Info("Starting batch", "queries", len(queries))
	failed := 0
	for _, q := range queries {
		a.ctl.Submit(q)
		a.ctl.Wait()
		if a.ctl.State().Status == browse.StatusFailed {
			failed++
		}
	}
	a.logger.Info("Batch complete", "queries", len(queries), "failed", failed)
	return nil
}

// repl reads one command per line. A new query supersedes the one in flight.
func (a *app) repl(ctx context.Context, in io.Reader, sortArg string) {
	cur := domain.Query{Sort: domain.SortHot}
	if m, err := domain.ParseSort(sortArg); err == nil {
		cur.Sort = m
	}
	fmt.Fprintln(a.out, helpText)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		var line string
		select {
		case <-ctx.Done():
			return
		case l, ok := <-lines:
			if !ok {
				a.ctl.Wait()
				return
			}
			line = l
		}

		cur = settle(cur, a.ctl.State())
		cmd, err := parseCommand(line, cur)
		if err != nil {
			fmt.Fprintf(a.out, "! %v\n", err)
			continue
		}
		switch cmd.action {
		case actQuit:
			return
		case actHelp:
			fmt.Fprintln(a.out, helpText)
		case actQuery:
			cur = cmd.query
			a.ctl.Submit(cur)
		case actRetry:
			if _, err := a.ctl.Retry(); err != nil {
				fmt.Fprintf(a.out, "! %v\n", err)
			}
		case actDownload:
			if p, ok := a.pick(cmd.index); ok {
				a.download(ctx, p)
			}
		case actAssist:
			if p, ok := a.pick(cmd.index); ok {
				md := a.assistant.RepostMetadata(ctx, p)
				risk := a.assistant.Risk(ctx, p)
				renderAssist(a.out, md, risk, a.assistant.SEOQuestions(ctx, p))
			}
		}
	}
}

func (a *app) pick(n int) (domain.Post, bool) {
	s := a.ctl.State()
	if s.Status != browse.StatusSucceeded || n > len(s.Posts) {
		fmt.Fprintf(a.out, "! no result #%d\n", n)
		return domain.Post{}, false
	}
	return s.Posts[n-1], true
}

func (a *app) download(ctx context.Context, p domain.Post) {
	plan, err := a.downloader.Plan(ctx, p)
	if err != nil {
		fmt.Fprintf(a.out, "! %v\n", err)
		return
	}
	renderPlan(a.out, plan)

	path, err := a.downloader.Save(ctx, plan.URL, a.outputDir)
	if err != nil {
		fmt.Fprintf(a.out, "! download failed: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "saved %s\n", path)

	audio := plan.AudioCandidates
	if plan.AudioURL != "" {
		audio = []string{plan.AudioURL}
	}
	for _, u := range audio {
		if path, err := a.downloader.Save(ctx, u, a.outputDir); err == nil {
			fmt.Fprintf(a.out, "saved %s\n", path)
			break
		}
	}
}
