// Package research gathers web context about a product before a report is
// generated: the product page's readable text and what search turns up about
// where its audience talks.
package research

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BerylCAtieno/getreach/internal/models"
)

const maxExcerpt = 4000

// Searcher is the search backend used for findings.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// PageReader extracts the readable text of a web page.
type PageReader interface {
	Read(ctx context.Context, url string) (Page, error)
}

type Page struct {
	Title string
	Text  string
}

// Finding is one search hit worth showing the model.
type Finding struct {
	Query   string
	Title   string
	URL     string
	Snippet string
}

// Brief is the research handed to the prompt. Any part may be empty.
type Brief struct {
	PageTitle   string
	PageExcerpt string
	Findings    []Finding
}

// Empty reports whether the brief carries nothing useful.
func (b Brief) Empty() bool {
	return b.PageTitle == "" && b.PageExcerpt == "" && len(b.Findings) == 0
}

// Researcher combines a page reader and a searcher. Either may be nil.
type Researcher struct {
	pages   PageReader
	search  Searcher
	limiter *rate.Limiter
	logger  *zap.Logger
	maxPerQ int
}

// NewResearcher builds a researcher. Search calls are throttled to a few per
// second so one report never bursts the search quota.
func NewResearcher(pages PageReader, search Searcher, logger *zap.Logger) *Researcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Researcher{
		pages:   pages,
		search:  search,
		limiter: rate.NewLimiter(rate.Limit(3), 3),
		logger:  logger,
		maxPerQ: 3,
	}
}

// Brief collects what it can. Failures of individual steps are logged and
// skipped; an error is returned only when ctx ends.
func (r *Researcher) Brief(ctx context.Context, in models.AnalysisInput) (Brief, error) {
	var b Brief

	if r.pages != nil {
		page, err := r.pages.Read(ctx, in.URL)
		if err != nil {
			r.logger.Warn("product page unreadable", zap.String("url", in.URL), zap.Error(err))
		} else {
			b.PageTitle = strings.TrimSpace(page.Title)
			b.PageExcerpt = truncate(collapseSpace(page.Text), maxExcerpt)
		}
	}

	if r.search == nil {
		return b, ctx.Err()
	}

	seen := make(map[string]bool)
	for _, q := range Queries(in, b.PageTitle) {
		if err := r.limiter.Wait(ctx); err != nil {
			return b, err
		}
		resp, err := r.search.Search(ctx, SearchRequest{Query: q, MaxResults: r.maxPerQ})
		if err != nil {
			r.logger.Warn("search failed", zap.String("query", q), zap.Error(err))
			continue
		}
		for _, res := range resp.Results {
			if res.URL == "" || seen[res.URL] {
				continue
			}
			seen[res.URL] = true
			b.Findings = append(b.Findings, Finding{
				Query:   q,
				Title:   res.Title,
				URL:     res.URL,
				Snippet: truncate(collapseSpace(res.Content), 400),
			})
		}
	}
	return b, nil
}

// Queries returns the search queries run for an input.
func Queries(in models.AnalysisInput, pageTitle string) []string {
	subject := strings.TrimSpace(in.Description)
	if subject == "" {
		subject = strings.TrimSpace(pageTitle)
	}
	if subject == "" {
		subject = in.URL
	}
	subject = truncate(subject, 120)

	suffix := ""
	if in.Region != "" {
		suffix = " " + in.Region
	}
	return []string{
		fmt.Sprintf("best online communities forums subreddits for %s%s", subject, suffix),
		fmt.Sprintf("alternatives competitors to %s", subject),
		fmt.Sprintf("people asking for a tool like %s", subject),
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
