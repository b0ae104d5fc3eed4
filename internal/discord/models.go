package discord

import (
	"path/filepath"
	"strings"
	"time"
)

// Channel is the subset of a Discord channel object used to confirm access.
type Channel struct {
	ID   uint64 `json:"id,string"`
	Name string `json:"name"`
	Type int    `json:"type"`
}

// Message is one channel message with its attachments.
type Message struct {
	ID          uint64       `json:"id,string"`
	Content     string       `json:"content"`
	Timestamp   time.Time    `json:"timestamp"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment describes a file attached to a message.
type Attachment struct {
	ID          uint64 `json:"id,string"`
	Filename    string `json:"filename"`
	Title       string `json:"title"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

// DisplayTitle returns the attachment title, falling back to the file name
// without its extension when Discord did not send one.
func (a Attachment) DisplayTitle() string {
	if title := strings.TrimSpace(a.Title); title != "" {
		return title
	}
	name := strings.TrimSpace(a.Filename)
	return strings.TrimSpace(strings.TrimSuffix(name, filepath.Ext(name)))
}

// Extension returns the lower-cased extension of the attachment file name,
// including the leading dot.
func (a Attachment) Extension() string {
	return strings.ToLower(filepath.Ext(strings.TrimSpace(a.Filename)))
}
