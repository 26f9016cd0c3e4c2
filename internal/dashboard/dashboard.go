package dashboard

import (
	"io"
	"log/slog"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/qepting91/reddit-relay/internal/browse"
	"github.com/qepting91/reddit-relay/internal/domain"
	"github.com/qepting91/reddit-relay/internal/storage"
)

const (
	maxBars     = 20
	labelLength = 40
)

// Handler renders charts for a live query or, without one, for the export file.
type Handler struct {
	src        domain.Source
	exportPath string
	opts       browse.Options
	logger     *slog.Logger
}

func New(src domain.Source, exportPath string, opts browse.Options, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{src: src, exportPath: exportPath, opts: opts, logger: logger}
}

// Serve handles GET /dashboard?sub=&q=&sort=.
func (h *Handler) Serve(c *gin.Context) {
	q, live, err := queryFrom(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_query", "details": err.Error()})
		return
	}

	var (
		posts []domain.Post
		title = "Export"
	)
	if live && h.src != nil {
		res, err := browse.Run(c.Request.Context(), h.src, q, "", h.opts)
		if err != nil {
			msg := err.Error()
			if fe, ok := domain.AsFetchError(err); ok {
				msg = fe.Message()
			}
			h.logger.Warn("dashboard query failed", "query", q.String(), "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "fetch_failed", "details": msg})
			return
		}
		posts, title = res.Posts, q.String()
	} else {
		posts, err = storage.LoadPosts(h.exportPath)
		if err != nil {
			h.logger.Error("loading export failed", "path", h.exportPath, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export_unavailable", "details": err.Error()})
			return
		}
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := Render(c.Writer, title, posts); err != nil {
		h.logger.Error("rendering dashboard failed", "error", err)
	}
}

func queryFrom(c *gin.Context) (domain.Query, bool, error) {
	sub, text := c.Query("sub"), c.Query("q")
	if sub == "" && text == "" {
		return domain.Query{}, false, nil
	}
	sortMode := domain.SortHot
	if raw := c.Query("sort"); raw != "" {
		m, err := domain.ParseSort(raw)
		if err != nil {
			return domain.Query{}, false, err
		}
		sortMode = m
	}
	if text != "" {
		return domain.SearchQuery(text, sortMode), true, nil
	}
	return domain.BrowseQuery(sub, sortMode), true, nil
}

// Render writes a page with the top scores and the subreddit split.
func Render(w io.Writer, title string, posts []domain.Post) error {
	page := components.NewPage()
	page.PageTitle = "reddit-relay: " + title
	page.AddCharts(scoreBar(title, posts), subredditPie(posts))
	return page.Render(w)
}

func scoreBar(title string, posts []domain.Post) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{Title: "Top Scores", Subtitle: title}),
	)

	top := append([]domain.Post(nil), posts...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Score > top[j].Score })
	if len(top) > maxBars {
		top = top[:maxBars]
	}

	labels := make([]string, 0, len(top))
	scores := make([]opts.BarData, 0, len(top))
	comments := make([]opts.BarData, 0, len(top))
	for _, p := range top {
		labels = append(labels, truncate(p.Title))
		scores = append(scores, opts.BarData{Value: p.Score})
		comments = append(comments, opts.BarData{Value: p.CommentCount})
	}
	bar.SetXAxis(labels).
		AddSeries("Score", scores).
		AddSeries("Comments", comments)
	return bar
}

func subredditPie(posts []domain.Post) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{Title: "Subreddit Share"}),
	)

	counts := subredditCounts(posts)
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]opts.PieData, 0, len(names))
	for _, name := range names {
		items = append(items, opts.PieData{Name: "r/" + name, Value: counts[name]})
	}
	pie.AddSeries("Posts", items)
	return pie
}

func subredditCounts(posts []domain.Post) map[string]int {
	counts := make(map[string]int)
	for _, p := range posts {
		if p.Subreddit != "" {
			counts[p.Subreddit]++
		}
	}
	return counts
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= labelLength {
		return s
	}
	return string(r[:labelLength-1]) + "…"
}
