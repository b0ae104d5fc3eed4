package discord

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrChannelNotFound indicates the channel does not exist or the bot cannot see it.
	ErrChannelNotFound = errors.New("discord channel not found or not accessible")
	// ErrRateLimited indicates Discord answered 429.
	ErrRateLimited = errors.New("discord rate limit exceeded")
)

// APIError is returned for non-2xx responses.
type APIError struct {
	Op         string
	StatusCode int
	Status     string
	Body       string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("discord: %s failed (%s)", e.Op, e.Status)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(", retry after %s", e.RetryAfter)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Is lets callers match rate limit responses with errors.Is(err, ErrRateLimited).
func (e *APIError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}
