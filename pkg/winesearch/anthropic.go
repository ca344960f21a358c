package winesearch

import (
	"context"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultModel   = "claude-sonnet-4-5-20250929"
	defaultTimeout = 90 * time.Second
	maxSearchUses  = 5
)

const systemPrompt = `You are a wine knowledge assistant. Given a wine identification,
use web search to find accurate metadata and answer with a single JSON object, nothing else.
Fields (omit anything you cannot verify): grapes (array of {variety, percent}),
appellation, abv, drink_window {start, end, maturity}, production_method,
critic_scores (array of {critic, score, vintage, source}), style {body, tannin,
acidity, sweetness}, overview, tasting_notes, pairing_notes,
confidence (0-1, your own certainty the data describes this exact wine).
Never invent critic scores or drink windows you did not find.`

// Config holds Anthropic search client settings.
type Config struct {
	APIKey         string  `yaml:"api_key" mapstructure:"api_key"`
	Model          string  `yaml:"model" mapstructure:"model"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerMin float64 `yaml:"requests_per_min" mapstructure:"requests_per_min"`
}

// Client is a Searcher backed by the Anthropic API with the web search
// tool enabled.
type Client struct {
	client  sdk.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

// NewClient creates a search-grounded retrieval client.
func NewClient(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := defaultTimeout
	if cfg.TimeoutSecs > 0 {
		timeout = time.Duration(cfg.TimeoutSecs) * time.Second
	}
	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = 10
	}
	return &Client{
		client:  sdk.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:   model,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(rpm/60), 1),
	}
}

// Search performs one retrieval call. The context is bounded by the
// client's timeout; rate limiting applies before the request is sent.
func (c *Client) Search(ctx context.Context, producer, wine, vintage string) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "winesearch: rate limit wait")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query := buildQuery(producer, wine, vintage)
	start := time.Now()

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: 4096,
		System: []sdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(query)),
		},
		Tools: []sdk.ToolUnionParam{
			{
				OfWebSearchTool20250305: &sdk.WebSearchTool20250305Param{
					MaxUses: sdk.Int(maxSearchUses),
				},
			},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "winesearch: create message")
	}

	var text strings.Builder
	grounded := false
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "web_search_tool_result", "server_tool_use":
			grounded = true
		}
	}

	result := ParseResponse(text.String())
	result.Grounded = grounded
	if !grounded && result.Payload != nil {
		// Ungrounded answers are pure model recall; trust them less.
		result.Confidence *= 0.8
		result.Payload.Confidence = result.Confidence
	}

	zap.L().Info("winesearch: retrieval complete",
		zap.String("query", query),
		zap.Bool("grounded", grounded),
		zap.Float64("confidence", result.Confidence),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return result, nil
}

func buildQuery(producer, wine, vintage string) string {
	parts := make([]string, 0, 3)
	if producer != "" {
		parts = append(parts, producer)
	}
	if wine != "" {
		parts = append(parts, wine)
	}
	if vintage != "" {
		parts = append(parts, vintage)
	} else {
		parts = append(parts, "NV")
	}
	return strings.Join(parts, " ")
}
