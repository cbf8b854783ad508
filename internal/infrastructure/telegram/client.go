package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	maxRetries     = 3
)

// ErrDisabled is returned when no bot token is configured.
var ErrDisabled = errors.New("telegram bot token not configured")

type Config struct {
	BotToken string
	BaseURL  string
	// RateLimit is messages per second across all chats.
	RateLimit float64
}

// Client sends alert messages through the Telegram Bot API.
type Client struct {
	client  *resty.Client
	token   string
	logger  *zap.Logger
	limiter *rate.Limiter
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 25
	}
	if cfg.BotToken == "" {
		logger.Warn("no telegram bot token configured, telegram alerts disabled")
	}

	return &Client{
		client:  resty.New().SetBaseURL(base).SetTimeout(10 * time.Second),
		token:   cfg.BotToken,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(limit), 1),
	}
}

func (c *Client) IsEnabled() bool {
	return c.token != ""
}

// SendMessage posts text to chatID. Rate-limited responses are retried
// after the delay Telegram asks for.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	if !c.IsEnabled() {
		return ErrDisabled
	}

	body := sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}

		result := &apiResponse{}
		resp, err := c.client.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(result).
			SetError(result).
			Post("/bot" + c.token + "/sendMessage")
		if err != nil {
			return fmt.Errorf("send telegram message: %w", err)
		}
		if !resp.IsError() && result.OK {
			return nil
		}

		lastErr = fmt.Errorf("telegram api error %d: %s", resp.StatusCode(), result.Description)
		if resp.StatusCode() != http.StatusTooManyRequests {
			return lastErr
		}

		wait := time.Duration(result.Parameters.RetryAfter) * time.Second
		if wait <= 0 {
			wait = time.Second
		}
		c.logger.Warn("telegram rate limited, retrying",
			zap.String("chat_id", chatID),
			zap.Duration("retry_after", wait),
			zap.Int("attempt", i+1))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("telegram send failed after %d attempts: %w", maxRetries, lastErr)
}
