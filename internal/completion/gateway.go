// Package completion relays a conversation to an OpenAI-compatible chat
// completion endpoint and always hands back a usable reply string.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wuwenbin0122/anony/internal/models"
	"github.com/wuwenbin0122/anony/internal/utils"
)

const (
	// FallbackReply stands in for the assistant whenever the remote call
	// cannot produce text.
	FallbackReply = "sorry, no reply"

	defaultBaseURL   = "https://openrouter.ai/api/v1"
	defaultTimeout   = 8 * time.Second
	maxResponseBytes = 1 << 20
)

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

type Gateway struct {
	endpoint string
	apiKey   string
	model    string
	referer  string
	title    string
	timeout  time.Duration
	client   httpDoer
	logger   *zap.Logger
}

func NewGateway(cfg utils.CompletionConfig, logger *zap.Logger) *Gateway {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Gateway{
		endpoint: base + "/chat/completions",
		apiKey:   strings.TrimSpace(cfg.APIKey),
		model:    strings.TrimSpace(cfg.Model),
		referer:  strings.TrimSpace(cfg.Referer),
		title:    strings.TrimSpace(cfg.Title),
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
		logger:   utils.NopIfNil(logger).Named("completion"),
	}
}

type chatRequest struct {
	Model    string        `json:"model,omitempty"`
	Messages []models.Turn `json:"messages"`
}

// Complete sends messages to the remote endpoint once and returns the
// extracted reply. Transport failures, timeouts and unusable bodies are
// logged and answered with FallbackReply; no error reaches the caller.
func (g *Gateway) Complete(ctx context.Context, messages []models.Turn) string {
	started := time.Now()

	result, err := g.complete(ctx, messages)
	if err != nil {
		g.logger.Warn("completion failed, using fallback reply",
			zap.Error(err),
			zap.Int("messages", len(messages)),
			zap.Duration("elapsed", time.Since(started)),
		)
		return FallbackReply
	}

	g.logger.Debug("completion succeeded",
		zap.String("source", result.Source),
		zap.Int("messages", len(messages)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result.Reply
}

func (g *Gateway) complete(ctx context.Context, messages []models.Turn) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{Model: g.model, Messages: messages})
	if err != nil {
		return Result{}, fmt.Errorf("marshal chat payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create chat request: %w", err)
	}

	request.Header.Set("Authorization", "Bearer "+g.apiKey)
	request.Header.Set("Content-Type", "application/json")
	if g.referer != "" {
		request.Header.Set("HTTP-Referer", g.referer)
	}
	if g.title != "" {
		request.Header.Set("X-Title", g.title)
	}

	response, err := g.client.Do(request)
	if err != nil {
		return Result{}, fmt.Errorf("call chat api: %w", err)
	}
	defer response.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return Result{}, fmt.Errorf("read chat response: %w", err)
	}

	// Error statuses still go through extraction; some proxies answer with
	// a reply field alongside a non-2xx code.
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		g.logger.Warn("chat api returned error status", zap.Error(buildAPIError(response.StatusCode, respBody)))
	}

	return extractReply(respBody)
}
