package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"sedeck/internal/catalog"
	"sedeck/internal/config"
	"sedeck/internal/discord"
	"sedeck/internal/fileutil"
	"sedeck/internal/logging"
	"sedeck/internal/tags"
	"sedeck/internal/textutil"
)

// Options configures a Fetcher.
type Options struct {
	DownloadDir string
	Extensions  []string
	MaxBytes    int64
	HTTPClient  *http.Client
	// Now stamps CreatedAt on candidates. Defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Fetcher downloads eligible attachments and builds catalog items for them.
type Fetcher struct {
	downloadDir string
	extensions  map[string]struct{}
	maxBytes    int64
	http        *http.Client
	now         func() time.Time
	logger      *slog.Logger
}

// New constructs a Fetcher.
func New(opts Options) *Fetcher {
	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Fetcher{
		downloadDir: opts.DownloadDir,
		extensions:  exts,
		maxBytes:    opts.MaxBytes,
		http:        client,
		now:         now,
		logger:      logging.NewComponentLogger(logger, "fetcher"),
	}
}

// NewFromConfig builds a Fetcher from application configuration.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Fetcher {
	return New(Options{
		DownloadDir: cfg.Paths.DownloadDir,
		Extensions:  cfg.Fetch.Extensions,
		MaxBytes:    cfg.MaxAttachmentBytes(),
		HTTPClient:  &http.Client{Timeout: cfg.RequestTimeout()},
		Logger:      logger,
	})
}

// Eligible reports whether the attachment passes the extension and size
// filters. Ineligible attachments are never requested.
func (f *Fetcher) Eligible(att discord.Attachment) bool {
	if _, ok := f.extensions[att.Extension()]; !ok {
		return false
	}
	if f.maxBytes > 0 && att.Size > f.maxBytes {
		return false
	}
	return true
}

// FileName derives the catalog key for an attachment: the sanitized title
// followed by the lower-cased extension.
func FileName(att discord.Attachment) string {
	return baseName(att) + att.Extension()
}

// Trigger picks the activation phrase for att: the message tag when present,
// then the attachment title, then the derived base name.
func Trigger(att discord.Attachment, fields tags.Fields) string {
	if trigger := strings.TrimSpace(fields.Trigger); trigger != "" {
		return trigger
	}
	if title := att.DisplayTitle(); title != "" {
		return title
	}
	return baseName(att)
}

func baseName(att discord.Attachment) string {
	if base := textutil.SanitizeFileName(att.DisplayTitle()); base != "" {
		return base
	}
	return fmt.Sprintf("attachment-%d", att.ID)
}

// Candidates downloads every eligible attachment of msg and returns one item
// per attachment, in attachment order. On a failed download the items
// completed so far are returned together with a *DownloadFailure so callers
// can account for the files already written.
func (f *Fetcher) Candidates(ctx context.Context, msg discord.Message, fields tags.Fields) ([]catalog.Item, error) {
	var items []catalog.Item
	for _, att := range msg.Attachments {
		if !f.Eligible(att) {
			f.logger.Debug("attachment skipped",
				logging.Uint64(logging.FieldMessageID, msg.ID),
				logging.String("filename", att.Filename),
				logging.String("size", humanize.IBytes(uint64(max(att.Size, 0)))),
			)
			continue
		}

		name := FileName(att)
		path := filepath.Join(f.downloadDir, name)
		written, err := f.download(ctx, att.URL, path)
		if err != nil {
			return items, &DownloadFailure{URL: att.URL, FileName: name, Cause: err}
		}

		trigger := Trigger(att, fields)
		f.logger.Info("attachment downloaded",
			logging.Uint64(logging.FieldMessageID, msg.ID),
			logging.String(logging.FieldFileName, name),
			logging.String("trigger", trigger),
			logging.String("size", humanize.IBytes(uint64(written))),
		)
		items = append(items, catalog.Item{
			FileName:      name,
			MessageID:     msg.ID,
			FilePath:      path,
			Trigger:       trigger,
			VolumePercent: fields.Volume,
			Priority:      fields.Priority,
			IsEnglish:     fields.English,
			CreatedAt:     f.now().UTC(),
		})
	}
	return items, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL, dst string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return fileutil.WriteStream(dst, resp.Body)
}
