package discord

import (
	"context"
	"fmt"
	"sort"

	"sedeck/internal/logging"
)

// History walks the channel forward from cursor and returns messages in
// ascending ID order. A nil cursor starts from the most recent page.
//
// The channel is resolved before any page is requested. Paging stops at the
// first empty page or after the configured page cap.
func (c *Client) History(ctx context.Context, channelID uint64, cursor *uint64) ([]Message, error) {
	if _, err := c.ResolveChannel(ctx, channelID); err != nil {
		return nil, err
	}

	var (
		collected []Message
		after     *uint64
	)
	if cursor != nil {
		start := *cursor
		after = &start
	}

	for page := 1; page <= c.maxPages; page++ {
		messages, err := c.Page(ctx, channelID, after, c.pageSize)
		if err != nil {
			return nil, fmt.Errorf("history page %d: %w", page, err)
		}
		if len(messages) == 0 {
			c.logger.Debug("history walk finished",
				logging.Int("pages", page-1),
				logging.Int("messages", len(collected)),
			)
			return collected, nil
		}

		sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })
		last := messages[len(messages)-1].ID
		after = &last
		collected = append(collected, messages...)

		c.logger.Debug("history page fetched",
			logging.Int("page", page),
			logging.Int("count", len(messages)),
			logging.Uint64("last_message_id", last),
		)
	}

	c.logger.Info("history page cap reached",
		logging.String(logging.FieldEventType, "history_page_cap"),
		logging.Int("max_pages", c.maxPages),
		logging.Int("messages", len(collected)),
		logging.String(logging.FieldImpact, "remaining messages are fetched on the next cycle"),
	)
	return collected, nil
}
