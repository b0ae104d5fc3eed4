package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"sedeck/internal/logging"
)

const (
	defaultBaseURL     = "https://discord.com/api/v10"
	defaultVersion     = "dev"
	defaultHTTPTimeout = 30 * time.Second

	// MaxPageSize is the largest page Discord returns for channel messages.
	MaxPageSize = 100
	// DefaultMaxPages bounds a single history walk.
	DefaultMaxPages = 50
)

// Config describes the Discord client configuration.
type Config struct {
	Token      string
	BaseURL    string
	Version    string
	HTTPClient *http.Client
	// PageDelay is the minimum spacing between requests. Zero disables throttling.
	PageDelay time.Duration
	MaxPages  int
	PageSize  int
	Logger    *slog.Logger
}

// Client wraps the Discord REST endpoints used to read channel history.
type Client struct {
	token     string
	userAgent string
	baseURL   *url.URL
	http      *http.Client
	limiter   *rate.Limiter
	maxPages  int
	pageSize  int
	logger    *slog.Logger
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("discord: bot token is required")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("discord: parse base url: %w", err)
	}
	version := strings.TrimSpace(cfg.Version)
	if version == "" {
		version = defaultVersion
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	limit := rate.Inf
	if cfg.PageDelay > 0 {
		limit = rate.Every(cfg.PageDelay)
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		token:     token,
		userAgent: fmt.Sprintf("DiscordBot (sedeck, %s)", version),
		baseURL:   baseURL,
		http:      client,
		limiter:   rate.NewLimiter(limit, 1),
		maxPages:  maxPages,
		pageSize:  pageSize,
		logger:    logging.NewComponentLogger(logger, "discord"),
	}, nil
}

// ResolveChannel confirms the channel exists and is visible to the bot.
func (c *Client) ResolveChannel(ctx context.Context, channelID uint64) (Channel, error) {
	if c == nil {
		return Channel{}, errors.New("discord: client is nil")
	}
	endpoint := c.baseURL.JoinPath("channels", strconv.FormatUint(channelID, 10))
	var channel Channel
	if err := c.getJSON(ctx, "resolve channel", endpoint, &channel); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusForbidden) {
			return Channel{}, fmt.Errorf("channel %d: %w", channelID, ErrChannelNotFound)
		}
		return Channel{}, err
	}
	return channel, nil
}

// Page returns up to limit messages. When after is set only messages with a
// greater ID are returned. Discord orders the page newest first.
func (c *Client) Page(ctx context.Context, channelID uint64, after *uint64, limit int) ([]Message, error) {
	if c == nil {
		return nil, errors.New("discord: client is nil")
	}
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	endpoint := c.baseURL.JoinPath("channels", strconv.FormatUint(channelID, 10), "messages")
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if after != nil {
		params.Set("after", strconv.FormatUint(*after, 10))
	}
	endpoint.RawQuery = params.Encode()

	var messages []Message
	if err := c.getJSON(ctx, "list messages", endpoint, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) getJSON(ctx context.Context, op string, endpoint *url.URL, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("discord: %s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("discord: build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("discord: %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("discord: decode %s response: %w", op, err)
	}
	return nil
}

func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
