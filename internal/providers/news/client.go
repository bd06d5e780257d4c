package news

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/sandevgo/aizen/pkg/retry"
)

const (
	maxPageSize        = 4 << 20 // news listings are heavy
	defaultPageTimeout = 30 * time.Second

	// Some outlets block generic clients, so the scrapers present a browser.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Article is the normalized card shape both outlets produce.
type Article struct {
	Headline    string `json:"headline"`
	Description string `json:"description,omitempty"`
	Metadata    string `json:"metadata"`
	URL         string `json:"url"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}

// pager fetches and parses listing pages with retries.
type pager struct {
	client  *http.Client
	retrier *retry.Retrier
}

func newPager(timeout time.Duration, retryCfg *retry.Config) *pager {
	if retryCfg == nil {
		retryCfg = retry.NewDefaultConfig()
	}
	return &pager{
		client: &http.Client{
			Timeout: timeout,
		},
		retrier: retry.NewRetrier(retryCfg),
	}
}

func (p *pager) fetchHTML(ctx context.Context, url string) (*html.Node, error) {
	var root *html.Node
	err := p.retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", browserUserAgent)
		req.Header.Set("Accept", "text/html")

		resp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to fetch page: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
		}

		root, err = html.Parse(io.LimitReader(resp.Body, maxPageSize))
		if err != nil {
			return fmt.Errorf("failed to parse page: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}

// findAll walks the tree depth-first and collects nodes the predicate accepts.
func findAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	if n == nil {
		return nil
	}
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && pred(node) {
			out = append(out, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	nodes := findAll(n, pred)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, substr string) bool {
	return strings.Contains(attr(n, "class"), substr)
}

func elem(tag, classSubstr string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Data == tag && (classSubstr == "" || hasClass(n, classSubstr))
	}
}

// textContent returns the concatenated text of a subtree, whitespace-trimmed.
func textContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
