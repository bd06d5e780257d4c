package social

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/sandevgo/aizen/internal/config"
	"github.com/sandevgo/aizen/internal/core"
	"github.com/sandevgo/aizen/pkg/conv"
	"github.com/sandevgo/aizen/pkg/log"
)

const maxTelegramMsgLen = 4000 // Safety margin below 4096

const postUpdateSchema = `
{
  "type": "object",
  "properties": {
    "text": { "type": "string", "description": "Markdown text to publish" }
  },
  "required": ["text"]
}
`

// messageSender is the telebot surface the publisher uses, split out so tests
// do not need a live bot token.
type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Telegram publishes agent-authored updates to a channel. It is outbound
// only; no poller runs.
type Telegram struct {
	bot    messageSender
	chatID tele.ChatID
}

func NewTelegram(cfg *config.TelegramConfig) (*Telegram, error) {
	// outbound only, no poller configured
	pref := tele.Settings{
		Token: cfg.Token,
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &Telegram{
		bot:    b,
		chatID: tele.ChatID(cfg.ChannelID),
	}, nil
}

func (t *Telegram) PostUpdate(ctx context.Context, args json.RawMessage) (string, error) {
	var input struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(input.Text) == "" {
		return "", fmt.Errorf("text is required")
	}

	html := strings.TrimSpace(conv.MarkdownToTelegramHTML([]byte(input.Text)))
	chunks := splitHTML(html, maxTelegramMsgLen)

	for i, chunk := range chunks {
		if _, err := t.bot.Send(t.chatID, chunk, tele.ModeHTML); err != nil {
			log.FromCtx(ctx).Error().Err(err).Int("chunk", i).Msg("failed to send telegram chunk")
			return "", fmt.Errorf("failed to post update: %w", err)
		}
	}

	out, err := json.Marshal(map[string]any{
		"posted": true,
		"chunks": len(chunks),
		"length": len(html),
	})
	return string(out), err
}

// splitHTML splits text into chunks respecting Telegram's limit.
// It tries to split at newlines to preserve formatting.
func splitHTML(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}

		cut := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/3 {
			cut = idx
		}

		chunks = append(chunks, text[:cut])
		text = strings.TrimSpace(text[cut:])
	}
	return chunks
}

func (t *Telegram) Definitions() []core.ToolDefinition {
	return []core.ToolDefinition{
		{
			Name:        "post_update",
			Description: "Publish a markdown update to the Telegram channel",
			Schema:      postUpdateSchema,
			Handler:     t.PostUpdate,
			Blocking:    true,
		},
	}
}
