package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/vbonduro/peoplegallery/internal/caption"
)

var errEmptyCaption = errors.New("ollama returned no text")

type OllamaCaptioner struct {
	host    string
	model   string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewOllamaCaptioner(host, model string) *OllamaCaptioner {
	return &OllamaCaptioner{
		host:    strings.TrimRight(host, "/"),
		model:   model,
		client:  &http.Client{},
		breaker: caption.NewBreaker("ollama-caption"),
	}
}

func (c *OllamaCaptioner) Caption(ctx context.Context, r io.Reader, mimeType string) (string, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"model":  c.model,
		"prompt": caption.Prompt,
		"images": []string{base64.StdEncoding.EncodeToString(imageData)},
		"stream": false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generate(ctx, payload)
	})
	if err != nil {
		return "", fmt.Errorf("failed to call ollama: %w", err)
	}

	text := strings.TrimSpace(out.(string))
	if text == "" {
		return "", errEmptyCaption
	}
	return text, nil
}

func (c *OllamaCaptioner) generate(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var body struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return body.Response, nil
}
