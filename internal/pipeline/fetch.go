package pipeline

import (
	"context"
	"errors"
	"fmt"

	"sedeck/internal/catalog"
	"sedeck/internal/config"
	"sedeck/internal/fetcher"
	"sedeck/internal/fileutil"
	"sedeck/internal/logging"
	"sedeck/internal/tags"
)

// Status classifies a fetch cycle result.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Outcome reports what a fetch cycle did.
type Outcome struct {
	RunID    string
	Status   Status
	Messages int
	// Items holds the candidates that were persisted (inserted or skipped).
	Items    []catalog.Item
	Inserted int
	Skipped  int
	// Cursor is the resume point after the cycle; CursorAdvanced reports
	// whether this cycle moved it.
	Cursor         uint64
	CursorAdvanced bool
	// Cleaned lists files removed because their cycle failed.
	Cleaned []string
	Err     error
}

// Fetch pulls new messages, downloads their eligible attachments, and
// upserts the resulting items. Existing rows are never overwritten.
//
// A failed download stops the cycle. Under the discard policy nothing is
// persisted and the cursor stays put. Under persist_completed the items of
// messages finished before the failure are kept and the cursor moves to the
// highest of their message IDs.
func (r *Runner) Fetch(ctx context.Context) (Outcome, error) {
	if err := r.cfg.RequireDiscord(); err != nil {
		return Outcome{Status: StatusFailed, Err: err}, err
	}
	if r.source == nil {
		err := errors.New("message source is not configured")
		return Outcome{Status: StatusFailed, Err: err}, err
	}
	s, err := r.begin(ctx, "fetch")
	if err != nil {
		return Outcome{Status: StatusFailed, Err: err}, err
	}
	defer s.end()
	ctx = s.ctx
	logger := s.logger

	outcome := Outcome{RunID: s.id}
	fail := func(err error) (Outcome, error) {
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome, err
	}

	cursor, hasCursor, err := r.store.GetCursor(ctx)
	if err != nil {
		return fail(fmt.Errorf("read cursor: %w", err))
	}
	outcome.Cursor = cursor
	var after *uint64
	if hasCursor {
		after = &cursor
	}

	logger.Info("fetch started",
		logging.Uint64("channel_id", r.cfg.Discord.ChannelID),
		logging.Bool("resume", hasCursor),
		logging.Uint64("cursor", cursor),
	)

	messages, err := r.source.History(ctx, r.cfg.Discord.ChannelID, after)
	if err != nil {
		logging.ErrorWithContext(logger, "history fetch failed", "history_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check discord.bot_token and discord.channel_id"),
		)
		return fail(fmt.Errorf("fetch history: %w", err))
	}
	outcome.Messages = len(messages)

	var (
		completed []catalog.Item
		written   []catalog.Item
		failure   error
	)
	for _, msg := range messages {
		if len(msg.Attachments) == 0 {
			continue
		}
		fields := tags.Parse(msg.Content)
		items, err := r.fetcher.Candidates(ctx, msg, fields)
		written = append(written, items...)
		if err != nil {
			failure = err
			break
		}
		completed = append(completed, items...)
	}

	var persist []catalog.Item
	switch {
	case failure == nil:
		persist = completed
	case r.cfg.Fetch.OnDownloadFailure == config.DownloadFailurePersistCompleted:
		persist = completed
	}

	if err := r.persist(ctx, persist, &outcome); err != nil {
		return fail(err)
	}

	if failure == nil {
		outcome.Status = StatusSuccess
		logger.Info("fetch finished",
			logging.Int("messages", outcome.Messages),
			logging.Int("inserted", outcome.Inserted),
			logging.Int("skipped", outcome.Skipped),
			logging.Uint64("cursor", outcome.Cursor),
		)
		return outcome, nil
	}

	if r.cfg.Fetch.CleanupOnFailure {
		outcome.Cleaned = r.cleanup(ctx, written, persist)
	}

	attrs := []logging.Attr{
		logging.Error(failure),
		logging.Int("persisted", len(persist)),
		logging.String("policy", r.cfg.Fetch.OnDownloadFailure),
	}
	var dl *fetcher.DownloadFailure
	if errors.As(failure, &dl) {
		attrs = append(attrs, logging.String(logging.FieldFileName, dl.FileName))
	}
	if len(persist) > 0 {
		attrs = append(attrs, logging.String(logging.FieldImpact, "items before the failed message were kept"))
		logging.WarnWithContext(logger, "fetch partially completed", "fetch_partial", attrs...)
		outcome.Status = StatusPartial
		outcome.Err = failure
		return outcome, failure
	}
	attrs = append(attrs, logging.String(logging.FieldImpact, "nothing persisted, cursor unchanged"))
	logging.ErrorWithContext(logger, "fetch failed", "fetch_failed", attrs...)
	return fail(failure)
}

// persist upserts items in order and advances the cursor to their highest
// message ID when there is at least one.
func (r *Runner) persist(ctx context.Context, items []catalog.Item, outcome *Outcome) error {
	if len(items) == 0 {
		return nil
	}
	var highest uint64
	for _, item := range items {
		inserted, err := r.store.Upsert(ctx, item)
		if err != nil {
			return fmt.Errorf("persist %s: %w", item.FileName, err)
		}
		if inserted {
			outcome.Inserted++
		} else {
			outcome.Skipped++
		}
		highest = max(highest, item.MessageID)
		outcome.Items = append(outcome.Items, item)
	}
	if err := r.store.SetCursor(ctx, highest); err != nil {
		return fmt.Errorf("store cursor: %w", err)
	}
	outcome.Cursor = highest
	outcome.CursorAdvanced = true
	return nil
}

// cleanup removes files downloaded by a failed cycle unless they were
// persisted or already back a catalogued row.
func (r *Runner) cleanup(ctx context.Context, written, persisted []catalog.Item) []string {
	keep := make(map[string]struct{}, len(persisted))
	for _, item := range persisted {
		keep[item.FilePath] = struct{}{}
	}
	var removed []string
	for _, item := range written {
		if _, ok := keep[item.FilePath]; ok {
			continue
		}
		if existing, err := r.store.Get(ctx, item.FileName); err != nil || existing != nil {
			continue
		}
		ok, err := fileutil.RemoveIfExists(item.FilePath)
		if err != nil {
			r.logger.Warn("cleanup failed", logging.String("path", item.FilePath), logging.Error(err))
			continue
		}
		if ok {
			removed = append(removed, item.FilePath)
		}
		keep[item.FilePath] = struct{}{}
	}
	return removed
}
