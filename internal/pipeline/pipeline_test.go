package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"sedeck/internal/catalog"
	"sedeck/internal/config"
	"sedeck/internal/discord"
	"sedeck/internal/export"
	"sedeck/internal/fetcher"
	"sedeck/internal/pipeline"
	"sedeck/internal/tags"
	"sedeck/internal/testsupport"
)

type fakeSource struct {
	messages []discord.Message
	err      error
	cursors  []*uint64
}

func (f *fakeSource) History(_ context.Context, _ uint64, cursor *uint64) ([]discord.Message, error) {
	f.cursors = append(f.cursors, cursor)
	if f.err != nil {
		return nil, f.err
	}
	var out []discord.Message
	for _, m := range f.messages {
		if cursor == nil || m.ID > *cursor {
			out = append(out, m)
		}
	}
	return out, nil
}

// fakeFetcher writes one file per attachment into the download dir and fails
// on attachments whose file name is "fail.mp3".
type fakeFetcher struct {
	dir string
}

func (f *fakeFetcher) Candidates(_ context.Context, msg discord.Message, fields tags.Fields) ([]catalog.Item, error) {
	var items []catalog.Item
	for _, att := range msg.Attachments {
		if att.Filename == "fail.mp3" {
			return items, &fetcher.DownloadFailure{URL: att.URL, FileName: att.Filename, Cause: errors.New("404 Not Found")}
		}
		path := filepath.Join(f.dir, att.Filename)
		if err := os.WriteFile(path, []byte("clip"), 0o644); err != nil {
			return items, err
		}
		trigger := fetcher.Trigger(att, fields)
		items = append(items, catalog.Item{
			FileName:      att.Filename,
			MessageID:     msg.ID,
			FilePath:      path,
			Trigger:       trigger,
			VolumePercent: fields.Volume,
			Priority:      fields.Priority,
			IsEnglish:     fields.English,
			CreatedAt:     time.Date(2024, 1, 1, 0, 0, int(msg.ID), 0, time.UTC),
		})
	}
	return items, nil
}

type fakeCommitter struct{ calls int }

func (f *fakeCommitter) Commit(context.Context) (export.Summary, error) {
	f.calls++
	return export.Summary{}, nil
}

func message(id uint64, content string, files ...string) discord.Message {
	msg := discord.Message{ID: id, Content: content}
	for i, name := range files {
		msg.Attachments = append(msg.Attachments, discord.Attachment{ID: id*10 + uint64(i), Filename: name, URL: "https://cdn.test/" + name})
	}
	return msg
}

func newRunner(t *testing.T, cfg *config.Config, source pipeline.MessageSource) (*pipeline.Runner, *catalog.Store) {
	t.Helper()
	store := testsupport.MustOpenCatalog(t, cfg)
	runner := pipeline.NewRunner(cfg, pipeline.Dependencies{
		Store:    store,
		Source:   source,
		Fetcher:  &fakeFetcher{dir: cfg.Paths.DownloadDir},
		Exporter: &fakeCommitter{},
	})
	return runner, store
}

func TestFetchPersistsAndAdvancesCursor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := &fakeSource{messages: []discord.Message{
		message(100, "trigger:boom volume:80", "boom.mp3"),
		message(101, "no attachments here"),
		message(105, "priority:7 english:y", "clap.wav", "snap.mp3"),
	}}
	runner, store := newRunner(t, cfg, source)
	ctx := context.Background()

	outcome, err := runner.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if outcome.Status != pipeline.StatusSuccess || outcome.Inserted != 3 || outcome.Skipped != 0 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.RunID == "" {
		t.Fatal("expected run id")
	}
	if outcome.Cursor != 105 || !outcome.CursorAdvanced {
		t.Fatalf("expected cursor 105, got %d (advanced=%v)", outcome.Cursor, outcome.CursorAdvanced)
	}
	if id, ok, _ := store.GetCursor(ctx); !ok || id != 105 {
		t.Fatalf("stored cursor = %d, %v", id, ok)
	}
	boom, _ := store.Get(ctx, "boom.mp3")
	if boom == nil || boom.Trigger != "boom" || boom.VolumePercent != 80 || boom.Priority != 50 {
		t.Fatalf("unexpected boom row %+v", boom)
	}
	clap, _ := store.Get(ctx, "clap.wav")
	if clap == nil || clap.Trigger != "clap" || clap.Priority != 7 || !clap.IsEnglish {
		t.Fatalf("unexpected clap row %+v", clap)
	}

	source.messages = append(source.messages, message(110, "", "new.mp3"))
	outcome, err = runner.Fetch(ctx)
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if outcome.Inserted != 1 || outcome.Cursor != 110 {
		t.Fatalf("unexpected second outcome %+v", outcome)
	}
	if len(source.cursors) != 2 || source.cursors[0] != nil || *source.cursors[1] != 105 {
		t.Fatalf("unexpected cursors passed to history: %v", source.cursors)
	}
}

func TestFetchRefetchKeepsOperatorEdits(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := &fakeSource{messages: []discord.Message{message(100, "trigger:boom", "boom.mp3")}}
	runner, store := newRunner(t, cfg, source)
	ctx := context.Background()

	if _, err := runner.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	item, _ := store.Get(ctx, "boom.mp3")
	item.Trigger = "curated"
	item.IsAdopted = true
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := store.ResetCursor(ctx); err != nil {
		t.Fatalf("ResetCursor: %v", err)
	}

	outcome, err := runner.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if outcome.Inserted != 0 || outcome.Skipped != 1 {
		t.Fatalf("expected skip on re-fetch, got %+v", outcome)
	}
	got, _ := store.Get(ctx, "boom.mp3")
	if got.Trigger != "curated" || !got.IsAdopted {
		t.Fatalf("operator edit lost: %+v", got)
	}
}

func TestFetchWithoutItemsKeepsCursor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := &fakeSource{messages: []discord.Message{message(300, "just chatting")}}
	runner, store := newRunner(t, cfg, source)
	ctx := context.Background()
	if err := store.SetCursor(ctx, 250); err != nil {
		t.Fatalf("SetCursor: %v", err)
	}

	outcome, err := runner.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if outcome.CursorAdvanced || outcome.Cursor != 250 {
		t.Fatalf("cursor should not move without items: %+v", outcome)
	}
	if id, _, _ := store.GetCursor(ctx); id != 250 {
		t.Fatalf("stored cursor changed to %d", id)
	}
}

func TestFetchDownloadFailureDiscards(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := &fakeSource{messages: []discord.Message{
		message(100, "", "first.mp3"),
		message(101, "", "second.mp3", "fail.mp3"),
		message(102, "", "never.mp3"),
	}}
	runner, store := newRunner(t, cfg, source)
	ctx := context.Background()

	outcome, err := runner.Fetch(ctx)
	var failure *fetcher.DownloadFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected DownloadFailure, got %v", err)
	}
	if outcome.Status != pipeline.StatusFailed || outcome.Inserted != 0 || outcome.CursorAdvanced {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if total, _, _ := store.Count(ctx); total != 0 {
		t.Fatalf("expected nothing persisted, got %d rows", total)
	}
	if _, ok, _ := store.GetCursor(ctx); ok {
		t.Fatal("cursor must not be set after a discarded cycle")
	}
	// Without cleanup the downloaded files stay for the retry to overwrite.
	if !testsupport.Exists(filepath.Join(cfg.Paths.DownloadDir, "first.mp3")) {
		t.Fatal("expected downloaded file to remain")
	}
	if testsupport.Exists(filepath.Join(cfg.Paths.DownloadDir, "never.mp3")) {
		t.Fatal("messages after the failure must not be processed")
	}
}

func TestFetchDownloadFailurePersistCompleted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Fetch.OnDownloadFailure = config.DownloadFailurePersistCompleted
	source := &fakeSource{messages: []discord.Message{
		message(100, "", "first.mp3"),
		message(103, "", "third.mp3"),
		message(104, "", "second.mp3", "fail.mp3"),
	}}
	runner, store := newRunner(t, cfg, source)
	ctx := context.Background()

	outcome, err := runner.Fetch(ctx)
	if err == nil {
		t.Fatal("expected error for partial cycle")
	}
	if outcome.Status != pipeline.StatusPartial || outcome.Inserted != 2 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if id, ok, _ := store.GetCursor(ctx); !ok || id != 103 {
		t.Fatalf("expected cursor at last completed message, got %d %v", id, ok)
	}
	if got, _ := store.Get(ctx, "second.mp3"); got != nil {
		t.Fatal("items of the failing message must not be persisted")
	}
}

func TestFetchCleanupOnFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Fetch.CleanupOnFailure = true
	store := testsupport.MustOpenCatalog(t, cfg)
	kept := testsupport.SeedItem(t, cfg, store, "kept.mp3", 0, nil)

	source := &fakeSource{messages: []discord.Message{
		message(100, "", "fresh.mp3", "kept.mp3"),
		message(101, "", "fail.mp3"),
	}}
	runner := pipeline.NewRunner(cfg, pipeline.Dependencies{
		Store:   store,
		Source:  source,
		Fetcher: &fakeFetcher{dir: cfg.Paths.DownloadDir},
	})

	outcome, err := runner.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected failure")
	}
	fresh := filepath.Join(cfg.Paths.DownloadDir, "fresh.mp3")
	if testsupport.Exists(fresh) {
		t.Fatal("expected cleanup to remove unpersisted download")
	}
	if !testsupport.Exists(kept.FilePath) {
		t.Fatal("cleanup must not delete files backing catalogued rows")
	}
	if len(outcome.Cleaned) != 1 || outcome.Cleaned[0] != fresh {
		t.Fatalf("unexpected cleaned list %v", outcome.Cleaned)
	}
}

func TestFetchHistoryFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := &fakeSource{err: fmt.Errorf("channel 1001: %w", discord.ErrChannelNotFound)}
	runner, _ := newRunner(t, cfg, source)

	outcome, err := runner.Fetch(context.Background())
	if !errors.Is(err, discord.ErrChannelNotFound) || outcome.Status != pipeline.StatusFailed {
		t.Fatalf("expected channel not found failure, got %v (%+v)", err, outcome)
	}
}

func TestFetchRequiresCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Discord.BotToken = ""
	runner, _ := newRunner(t, cfg, &fakeSource{})
	if _, err := runner.Fetch(context.Background()); err == nil {
		t.Fatal("expected error without bot token")
	}
}

func TestCyclesRejectConcurrentSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner, _ := newRunner(t, cfg, &fakeSource{})

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}
	defer func() { _ = lock.Unlock() }()

	ctx := context.Background()
	if _, err := runner.Fetch(ctx); !errors.Is(err, pipeline.ErrBusy) {
		t.Fatalf("Fetch: expected ErrBusy, got %v", err)
	}
	if _, err := runner.Commit(ctx); !errors.Is(err, pipeline.ErrBusy) {
		t.Fatalf("Commit: expected ErrBusy, got %v", err)
	}
	if _, err := runner.Clear(ctx); !errors.Is(err, pipeline.ErrBusy) {
		t.Fatalf("Clear: expected ErrBusy, got %v", err)
	}
	if _, err := runner.Edit(ctx, "a.mp3", func(*catalog.Item) error { return nil }); !errors.Is(err, pipeline.ErrBusy) {
		t.Fatalf("Edit: expected ErrBusy, got %v", err)
	}
}

func TestEditAppliesChange(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	runner := pipeline.NewRunner(cfg, pipeline.Dependencies{Store: store})
	ctx := context.Background()
	testsupport.SeedItem(t, cfg, store, "a.mp3", 0, nil)

	item, err := runner.Edit(ctx, "a.mp3", func(it *catalog.Item) error {
		it.Trigger = "boom"
		it.Priority = 500
		it.IsAdopted = true
		return nil
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if item.Priority != 99 {
		t.Fatalf("expected clamped priority, got %d", item.Priority)
	}
	got, err := store.Get(ctx, "a.mp3")
	if err != nil || got == nil || got.Trigger != "boom" || !got.IsAdopted {
		t.Fatalf("stored item = %+v, %v", got, err)
	}

	if _, err := runner.Edit(ctx, "ghost.mp3", func(*catalog.Item) error { return nil }); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	rejected := errors.New("rejected")
	if _, err := runner.Edit(ctx, "a.mp3", func(it *catalog.Item) error {
		it.Trigger = "never"
		return rejected
	}); !errors.Is(err, rejected) {
		t.Fatalf("expected change error, got %v", err)
	}
	if got, _ := store.Get(ctx, "a.mp3"); got.Trigger != "boom" {
		t.Fatalf("failed change must not be stored, got %q", got.Trigger)
	}
}

func TestCommitAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	committer := &fakeCommitter{}
	runner := pipeline.NewRunner(cfg, pipeline.Dependencies{Store: store, Exporter: committer})
	ctx := context.Background()

	if _, err := runner.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if committer.calls != 1 {
		t.Fatalf("expected exporter called once, got %d", committer.calls)
	}

	testsupport.SeedItem(t, cfg, store, "a.mp3", 0, nil)
	report, err := runner.Clear(ctx)
	if err != nil || report.Rows != 1 || report.FilesRemoved != 1 {
		t.Fatalf("Clear = %+v, %v", report, err)
	}
}

func TestFetchEndToEnd(t *testing.T) {
	var downloads int
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/channels/1001", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "1001", "name": "sounds"}`))
	})
	var serverURL string
	mux.HandleFunc("GET /api/channels/1001/messages", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("after") != "" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		page := []map[string]any{
			{
				"id":        "9000000000000000002",
				"content":   "trigger=bang priority:3",
				"timestamp": "2024-03-01T10:00:01Z",
				"attachments": []map[string]any{
					{"id": "2", "filename": "Bang.WAV", "size": 10, "url": serverURL + "/cdn/bang"},
					{"id": "3", "filename": "huge.mp3", "size": 60 * 1024 * 1024, "url": serverURL + "/cdn/huge"},
				},
			},
			{
				"id":        "9000000000000000001",
				"content":   "",
				"timestamp": "2024-03-01T10:00:00Z",
				"attachments": []map[string]any{
					{"id": "1", "filename": "boom.mp3", "title": "boom", "size": 10, "url": serverURL + "/cdn/boom"},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(page)
	})
	mux.HandleFunc("GET /cdn/{name}", func(w http.ResponseWriter, r *http.Request) {
		downloads++
		if r.PathValue("name") == "huge" {
			t.Errorf("oversized attachment must not be requested")
		}
		_, _ = w.Write([]byte("audio-" + r.PathValue("name")))
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	serverURL = server.URL

	cfg := testsupport.NewConfig(t, testsupport.WithDiscordBaseURL(server.URL+"/api"))
	store := testsupport.MustOpenCatalog(t, cfg)
	runner, err := pipeline.NewRunnerFromConfig(cfg, store, "test", nil)
	if err != nil {
		t.Fatalf("NewRunnerFromConfig: %v", err)
	}

	outcome, err := runner.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if outcome.Inserted != 2 || downloads != 2 {
		t.Fatalf("expected 2 inserts and downloads, got %+v (downloads=%d)", outcome, downloads)
	}
	if outcome.Cursor != 9000000000000000002 {
		t.Fatalf("unexpected cursor %d", outcome.Cursor)
	}
	bang, _ := store.Get(context.Background(), "Bang.wav")
	if bang == nil || bang.Trigger != "bang" || bang.Priority != 3 {
		t.Fatalf("unexpected bang row %+v", bang)
	}
	if got := testsupport.ReadFile(t, bang.FilePath); got != "audio-bang" {
		t.Fatalf("unexpected downloaded content %q", got)
	}
	if id, _, _ := store.GetCursor(context.Background()); strconv.FormatUint(id, 10) != "9000000000000000002" {
		t.Fatalf("unexpected stored cursor %d", id)
	}
}
