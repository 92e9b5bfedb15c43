package claude

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sony/gobreaker"

	"github.com/vbonduro/peoplegallery/internal/caption"
)

// maxTokens caps the reply length.
const maxTokens = 200

var errEmptyCaption = errors.New("claude returned no text")

type ClaudeCaptioner struct {
	client  *anthropic.Client
	model   string
	breaker *gobreaker.CircuitBreaker
}

func NewClaudeCaptioner(apiKey, model string) *ClaudeCaptioner {
	return newCaptioner(anthropic.NewClient(apiKey), model)
}

func newCaptioner(client *anthropic.Client, model string) *ClaudeCaptioner {
	return &ClaudeCaptioner{
		client:  client,
		model:   model,
		breaker: caption.NewBreaker("claude-caption"),
	}
}

func (c *ClaudeCaptioner) Caption(ctx context.Context, r io.Reader, mimeType string) (string, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	req := anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					normaliseMIME(mimeType),
					base64.StdEncoding.EncodeToString(imageData),
				)),
				anthropic.NewTextMessageContent(caption.Prompt),
			},
		}},
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.client.CreateMessages(ctx, req)
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to call claude: %w", err)
	}

	resp := out.(anthropic.MessagesResponse)
	for _, blk := range resp.Content {
		if blk.Type != "text" {
			continue
		}
		if text := strings.TrimSpace(blk.GetText()); text != "" {
			return text, nil
		}
	}
	return "", errEmptyCaption
}

// normaliseMIME maps MIME types to the four image types the Anthropic API
// accepts. Anything else is sent as jpeg.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
