package news

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/net/html"

	"github.com/sandevgo/aizen/internal/core"
	"github.com/sandevgo/aizen/pkg/log"
	"github.com/sandevgo/aizen/pkg/retry"
)

const getLatestNewsSchema = `
{
  "type": "object",
  "properties": {
    "topk": { "type": "integer", "description": "Maximum number of articles to return", "default": 20 }
  }
}
`

// Blockworks scrapes the blockworks.co news listing.
type Blockworks struct {
	baseURL string
	pager   *pager
}

func NewBlockworks() *Blockworks {
	return NewBlockworksWithURL("https://www.blockworks.co", defaultPageTimeout, nil)
}

func NewBlockworksWithURL(baseURL string, timeout time.Duration, retryCfg *retry.Config) *Blockworks {
	return &Blockworks{
		baseURL: baseURL,
		pager:   newPager(timeout, retryCfg),
	}
}

func (b *Blockworks) GetLatestNews(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		TopK int `json:"topk"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if input.TopK <= 0 {
		input.TopK = 20
	}

	root, err := b.pager.fetchHTML(ctx, b.baseURL+"/news")
	if err != nil {
		return "", err
	}

	articles := b.parseLatestNews(root)
	log.FromCtx(ctx).Debug().Int("count", len(articles)).Msg("blockworks articles parsed")

	if len(articles) > input.TopK {
		articles = articles[:input.TopK]
	}

	data, err := json.Marshal(articles)
	if err != nil {
		return "", fmt.Errorf("marshal articles: %w", err)
	}
	return string(data), nil
}

// parseLatestNews extracts article cards from the grid layout. A card counts
// only when it carries a headline link, which filters out the grid containers
// the layout nests around the list.
func (b *Blockworks) parseLatestNews(root *html.Node) []Article {
	var articles []Article
	seen := make(map[string]bool)

	for _, card := range findAll(root, elem("div", "grid")) {
		link := findFirst(card, elem("a", "font-headline"))
		if link == nil {
			continue
		}

		href := attr(link, "href")
		url := ""
		if href != "" {
			url = b.baseURL + href
		}
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true

		articles = append(articles, Article{
			Headline:    textContent(link),
			Description: textContent(findFirst(card, elem("p", "text-base"))),
			Metadata:    attr(findFirst(card, elem("time", "")), "datetime"),
			URL:         url,
		})
	}
	return articles
}

func (b *Blockworks) Definitions() []core.ToolDefinition {
	return []core.ToolDefinition{
		{
			Name:        "get_latest_news",
			Description: "Get the latest news articles from Blockworks",
			Schema:      getLatestNewsSchema,
			Handler:     b.GetLatestNews,
			Blocking:    true,
		},
	}
}
