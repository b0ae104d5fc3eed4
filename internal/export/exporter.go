package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"sedeck/internal/catalog"
	"sedeck/internal/config"
	"sedeck/internal/logging"
)

// Store is the catalog surface the commit cycle needs.
type Store interface {
	GetAll(ctx context.Context) ([]catalog.Item, error)
	PurgeAll(ctx context.Context) (catalog.PurgeReport, error)
}

// Renderer produces a playback-ready clip and returns its path.
type Renderer interface {
	Render(ctx context.Context, src string, volumePercent int, dstWithoutExt string) (string, error)
}

// Options configures an Exporter.
type Options struct {
	SoundDir        string
	DictionaryPath  string
	CollisionPolicy string
	Logger          *slog.Logger
}

// Summary describes a completed commit cycle.
type Summary struct {
	Adopted        int
	Rendered       []string
	RowsWritten    int
	DictionaryPath string
	Purge          catalog.PurgeReport
}

// Exporter runs the commit cycle against a catalog.
type Exporter struct {
	store    Store
	renderer Renderer
	opts     Options
	logger   *slog.Logger
}

// New constructs an Exporter.
func New(store Store, renderer Renderer, opts Options) *Exporter {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Exporter{
		store:    store,
		renderer: renderer,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "export"),
	}
}

// NewFromConfig builds an Exporter from application configuration.
func NewFromConfig(cfg *config.Config, store Store, renderer Renderer, logger *slog.Logger) *Exporter {
	return New(store, renderer, Options{
		SoundDir:        cfg.SoundDir(),
		DictionaryPath:  cfg.DictionaryPath(),
		CollisionPolicy: cfg.Export.CollisionPolicy,
		Logger:          logger,
	})
}

// Commit renders every adopted item, appends their dictionary rows, and then
// purges the whole catalog, adopted or not. When nothing is adopted no row
// is written but the purge still runs. Any planning, render, or dictionary
// error returns before the purge.
func (e *Exporter) Commit(ctx context.Context) (Summary, error) {
	items, err := e.store.GetAll(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load catalog: %w", err)
	}
	entries, err := Plan(items, e.opts.CollisionPolicy)
	if err != nil {
		return Summary{}, err
	}

	logger := logging.WithContext(ctx, e.logger)
	summary := Summary{Adopted: len(entries), DictionaryPath: e.opts.DictionaryPath}
	logger.Info("commit started",
		logging.Int("catalog_items", len(items)),
		logging.Int("adopted", len(entries)),
	)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		out, err := e.renderer.Render(ctx, entry.Item.FilePath, entry.Item.VolumePercent, filepath.Join(e.opts.SoundDir, entry.BaseName))
		if err != nil {
			logging.ErrorWithContext(logger, "render failed", "render_failed",
				logging.String(logging.FieldFileName, entry.Item.FileName),
				logging.Error(err),
				logging.String(logging.FieldImpact, "dictionary not written, catalog kept"),
				logging.String(logging.FieldErrorHint, "fix or unadopt the clip, then commit again"),
			)
			return summary, fmt.Errorf("render %s: %w", entry.Item.FileName, err)
		}
		summary.Rendered = append(summary.Rendered, out)
	}

	if len(entries) > 0 {
		if err := appendRows(e.opts.DictionaryPath, entries); err != nil {
			return summary, err
		}
		summary.RowsWritten = len(entries)
	}

	report, err := e.store.PurgeAll(ctx)
	summary.Purge = report
	if err != nil {
		return summary, fmt.Errorf("purge catalog: %w", err)
	}
	for _, fe := range report.FileErrors {
		logging.WarnWithContext(logger, "source file not removed", "purge_file_failed",
			logging.String("path", fe.Path),
			logging.Error(fe.Err),
			logging.String(logging.FieldImpact, "orphaned file left in the download directory"),
		)
	}
	logger.Info("commit finished",
		logging.Int("rows_written", summary.RowsWritten),
		logging.Int("purged_rows", report.Rows),
		logging.String("dictionary", e.opts.DictionaryPath),
	)
	return summary, nil
}

func appendRows(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dictionary directory: %w", err)
	}
	var b strings.Builder
	for _, entry := range entries {
		b.WriteString(FormatRow(entry.Row()))
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open dictionary: %w", err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return fmt.Errorf("append dictionary rows: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close dictionary: %w", err)
	}
	return nil
}
