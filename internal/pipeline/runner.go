package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"sedeck/internal/audio"
	"sedeck/internal/catalog"
	"sedeck/internal/config"
	"sedeck/internal/discord"
	"sedeck/internal/export"
	"sedeck/internal/fetcher"
	"sedeck/internal/logging"
	"sedeck/internal/tags"
)

// Store is the catalog surface used by the cycles.
type Store interface {
	Upsert(ctx context.Context, item catalog.Item) (bool, error)
	Get(ctx context.Context, fileName string) (*catalog.Item, error)
	Update(ctx context.Context, item *catalog.Item) error
	GetCursor(ctx context.Context) (uint64, bool, error)
	SetCursor(ctx context.Context, messageID uint64) error
	ResetCursor(ctx context.Context) error
	PurgeAll(ctx context.Context) (catalog.PurgeReport, error)
}

// MessageSource yields channel messages after a cursor, oldest first.
type MessageSource interface {
	History(ctx context.Context, channelID uint64, cursor *uint64) ([]discord.Message, error)
}

// AttachmentFetcher downloads a message's eligible attachments.
type AttachmentFetcher interface {
	Candidates(ctx context.Context, msg discord.Message, fields tags.Fields) ([]catalog.Item, error)
}

// Committer runs the commit cycle.
type Committer interface {
	Commit(ctx context.Context) (export.Summary, error)
}

// Dependencies groups the collaborators of a Runner.
type Dependencies struct {
	Store    Store
	Source   MessageSource
	Fetcher  AttachmentFetcher
	Exporter Committer
	Logger   *slog.Logger
}

// Runner executes fetch, commit, and maintenance cycles under the session lock.
type Runner struct {
	cfg      *config.Config
	store    Store
	source   MessageSource
	fetcher  AttachmentFetcher
	exporter Committer
	logger   *slog.Logger
	lockPath string
	newRunID func() string
}

// NewRunner constructs a Runner from explicit dependencies.
func NewRunner(cfg *config.Config, deps Dependencies) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		cfg:      cfg,
		store:    deps.Store,
		source:   deps.Source,
		fetcher:  deps.Fetcher,
		exporter: deps.Exporter,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		lockPath: cfg.LockPath(),
		newRunID: newRunID,
	}
}

// NewRunnerFromConfig wires the production collaborators around store. The
// Discord client is only built when credentials are configured so commit and
// clear work without them.
func NewRunnerFromConfig(cfg *config.Config, store *catalog.Store, version string, logger *slog.Logger) (*Runner, error) {
	deps := Dependencies{
		Store:    store,
		Fetcher:  fetcher.NewFromConfig(cfg, logger),
		Exporter: export.NewFromConfig(cfg, store, audio.NewRendererFromConfig(cfg, logger), logger),
		Logger:   logger,
	}
	if cfg.RequireDiscord() == nil {
		client, err := discord.New(discord.Config{
			Token:      cfg.Discord.BotToken,
			BaseURL:    cfg.Discord.BaseURL,
			Version:    version,
			HTTPClient: &http.Client{Timeout: cfg.RequestTimeout()},
			PageDelay:  cfg.PageDelay(),
			MaxPages:   cfg.Fetch.MaxPages,
			PageSize:   cfg.Fetch.PageSize,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("discord client: %w", err)
		}
		deps.Source = client
	}
	return NewRunner(cfg, deps), nil
}

// Commit renders and exports adopted items, then purges the catalog.
func (r *Runner) Commit(ctx context.Context) (export.Summary, error) {
	if err := r.cfg.RequireOutput(); err != nil {
		return export.Summary{}, err
	}
	s, err := r.begin(ctx, "commit")
	if err != nil {
		return export.Summary{}, err
	}
	defer s.end()
	return r.exporter.Commit(s.ctx)
}

// Clear purges every catalog row and its backing file without exporting.
func (r *Runner) Clear(ctx context.Context) (catalog.PurgeReport, error) {
	s, err := r.begin(ctx, "clear")
	if err != nil {
		return catalog.PurgeReport{}, err
	}
	defer s.end()

	report, err := r.store.PurgeAll(s.ctx)
	if err != nil {
		return report, err
	}
	s.logger.Info("catalog cleared",
		logging.Int("rows", report.Rows),
		logging.Int("files_removed", report.FilesRemoved),
		logging.Int("file_errors", len(report.FileErrors)),
	)
	return report, nil
}

// ResetCursor forgets the fetch resume point.
func (r *Runner) ResetCursor(ctx context.Context) error {
	s, err := r.begin(ctx, "cursor-reset")
	if err != nil {
		return err
	}
	defer s.end()
	return r.store.ResetCursor(s.ctx)
}

// Edit applies change to the named item and stores the result. It holds the
// session lock so an edit never interleaves with a commit or clear.
func (r *Runner) Edit(ctx context.Context, fileName string, change func(*catalog.Item) error) (*catalog.Item, error) {
	if change == nil {
		return nil, errors.New("edit: change is nil")
	}
	s, err := r.begin(ctx, "edit")
	if err != nil {
		return nil, err
	}
	defer s.end()

	item, err := r.store.Get(s.ctx, fileName)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%s: %w", fileName, catalog.ErrNotFound)
	}
	if err := change(item); err != nil {
		return nil, err
	}
	if err := r.store.Update(s.ctx, item); err != nil {
		return nil, err
	}
	s.logger.Debug("item edited",
		logging.String(logging.FieldFileName, item.FileName),
		logging.Bool("adopted", item.IsAdopted),
	)
	return item, nil
}
