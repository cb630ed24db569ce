// Package scrape fetches tabular batches from HTML pages by extracting the
// first <table> element on the page.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"quickelt/internal/model"
	"quickelt/internal/pipeline"
)

// Config holds the scrape source settings.
type Config struct {
	URL       string
	UserAgent string
	Framework string
	Timeout   time.Duration
}

// Fetcher scrapes one page per run.
type Fetcher struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewFetcher creates a scrape fetcher.
func NewFetcher(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{cfg: cfg, client: &http.Client{Timeout: timeout}, logger: logger}
}

// Origin implements pipeline.Fetcher.
func (f *Fetcher) Origin() string { return string(model.SourceKindScrape) }

// Framework implements pipeline.Fetcher.
func (f *Fetcher) Framework() string { return f.cfg.Framework }

// Extra implements pipeline.Fetcher.
func (f *Fetcher) Extra() map[string]interface{} {
	return map[string]interface{}{"scraping_url": f.cfg.URL}
}

// Fetch downloads the page and parses its first table. Pages without a
// table are a permanent failure.
func (f *Fetcher) Fetch(ctx context.Context) (*model.Batch, error) {
	op := "GET " + f.cfg.URL

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return nil, pipeline.Permanent(op, err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, pipeline.Transient(op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return nil, pipeline.Transient(op, fmt.Errorf("unexpected status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		io.Copy(io.Discard, resp.Body)
		return nil, pipeline.Permanent(op, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	batch, err := parseFirstTable(resp.Body)
	if err != nil {
		return nil, pipeline.Permanent(op, err)
	}

	f.logger.Info("table scraped",
		zap.String("url", f.cfg.URL),
		zap.Int("rows", batch.RowCount()),
		zap.Int("columns", batch.ColumnCount()))
	return batch, nil
}

// parseFirstTable extracts the first <table> of the document. Header cells
// come from <th> elements when present, otherwise from the first row.
func parseFirstTable(r io.Reader) (*model.Batch, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("malformed HTML: %w", err)
	}

	table := findFirst(doc, "table")
	if table == nil {
		return nil, fmt.Errorf("no table found in page")
	}

	var rows [][]string
	collectRows(table, &rows)

	if len(rows) < 1 {
		return nil, fmt.Errorf("table has no rows")
	}

	header := rows[0]
	records := make([]model.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(model.Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		records = append(records, rec)
	}
	return model.NewBatch(header, records), nil
}

// collectRows gathers the <tr> rows belonging to the given table, descending
// through its sections but not into nested <table> elements, whose rows are
// not part of the parent.
func collectRows(table *html.Node, rows *[][]string) {
	var descend func(n *html.Node)
	descend = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				switch c.Data {
				case "table":
					continue
				case "tr":
					var cells []string
					for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
						if cell.Type == html.ElementNode && (cell.Data == "td" || cell.Data == "th") {
							cells = append(cells, strings.TrimSpace(text(cell)))
						}
					}
					if len(cells) > 0 {
						*rows = append(*rows, cells)
					}
					continue
				}
			}
			descend(c)
		}
	}
	descend(table)
}

func findFirst(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, name); found != nil {
			return found
		}
	}
	return nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func text(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	})
	return sb.String()
}
