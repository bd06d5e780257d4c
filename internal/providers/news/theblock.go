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

const theBlockPageSize = 10

// TheBlock scrapes the theblock.co latest-news listing, which paginates with
// a start offset.
type TheBlock struct {
	baseURL string
	pager   *pager
}

func NewTheBlock() *TheBlock {
	return NewTheBlockWithURL("https://www.theblock.co", defaultPageTimeout, nil)
}

func NewTheBlockWithURL(baseURL string, timeout time.Duration, retryCfg *retry.Config) *TheBlock {
	return &TheBlock{
		baseURL: baseURL,
		pager:   newPager(timeout, retryCfg),
	}
}

func (t *TheBlock) GetLatestNews(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		TopK int `json:"topk"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if input.TopK <= 0 {
		input.TopK = 20
	}

	pages := (input.TopK / theBlockPageSize) + 1
	var articles []Article

	for i := 0; i < pages; i++ {
		url := fmt.Sprintf("%s/latest?start=%d", t.baseURL, i*theBlockPageSize)
		root, err := t.pager.fetchHTML(ctx, url)
		if err != nil {
			// keep whatever earlier pages produced
			if len(articles) > 0 {
				log.FromCtx(ctx).Warn().Err(err).Str("url", url).Msg("theblock page fetch failed, returning partial results")
				break
			}
			return "", err
		}
		articles = append(articles, t.parseLatestNews(root)...)
	}

	log.FromCtx(ctx).Debug().Int("count", len(articles)).Msg("theblock articles parsed")

	if len(articles) > input.TopK {
		articles = articles[:input.TopK]
	}

	data, err := json.Marshal(articles)
	if err != nil {
		return "", fmt.Errorf("marshal articles: %w", err)
	}
	return string(data), nil
}

func (t *TheBlock) parseLatestNews(root *html.Node) []Article {
	var articles []Article

	for _, card := range findAll(root, elem("article", "articleCard")) {
		headline := findFirst(card, func(n *html.Node) bool {
			return n.Data == "h2" && hasClass(n, "articleCard__headline")
		})
		thumb := findFirst(card, elem("a", "articleCard__thumbnail"))

		url := ""
		if href := attr(thumb, "href"); href != "" {
			url = t.baseURL + href
		}

		articles = append(articles, Article{
			Headline:  textContent(headline),
			Metadata:  textContent(findFirst(card, elem("div", "meta__wrapper"))),
			URL:       url,
			Thumbnail: attr(findFirst(thumb, elem("img", "")), "src"),
		})
	}
	return articles
}

func (t *TheBlock) Definitions() []core.ToolDefinition {
	return []core.ToolDefinition{
		{
			Name:        "get_latest_news",
			Description: "Get the latest news articles from The Block",
			Schema:      getLatestNewsSchema,
			Handler:     t.GetLatestNews,
			Blocking:    true,
		},
	}
}
