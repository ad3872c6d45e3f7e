// Package advisor wraps an optional language-model provider used to enrich
// tier recommendations with free-text pricing suggestions. The advisor is a
// capability, never a dependency: callers must fall back to deterministic
// heuristics on any failure, including the provider being unconfigured.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/supportiq/insight/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the advisor client.
var Module = fx.Provide(New)

// ErrNotConfigured signals that no provider credentials are present.
var ErrNotConfigured = errors.New("advisor_not_configured")

// Advisor turns a textual tier/market summary into recommendation strings.
type Advisor interface {
	PricingSuggestions(ctx context.Context, summary string) ([]string, error)
}

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

type client struct {
	cfg  config.AdvisorConfig
	log  *zap.Logger
	http *retryablehttp.Client
}

func New(p Params) Advisor {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = 30 * time.Second
	rc.Logger = nil

	return &client{
		cfg:  p.Config.Advisor,
		log:  p.Log.Named("optimizer.advisor"),
		http: rc,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const systemPrompt = "You are a SaaS pricing analyst. Reply with a numbered list " +
	"of concise, actionable pricing recommendations and nothing else."

func (c *client) PricingSuggestions(ctx context.Context, summary string) ([]string, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: summary},
		},
	})
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("advisor request failed: status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("advisor returned no choices")
	}

	suggestions := ParseNumberedList(parsed.Choices[0].Message.Content)
	if len(suggestions) == 0 {
		return nil, errors.New("advisor response contained no suggestions")
	}

	c.log.Debug("advisor suggestions received", zap.Int("count", len(suggestions)))
	return suggestions, nil
}

var numberedLine = regexp.MustCompile(`^\s*\d+[.)]\s+(.+)$`)

// ParseNumberedList extracts the items of a numbered-list response. Lines
// that do not look like list items are ignored.
func ParseNumberedList(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		if m := numberedLine.FindStringSubmatch(line); m != nil {
			if item := strings.TrimSpace(m[1]); item != "" {
				items = append(items, item)
			}
		}
	}
	return items
}
