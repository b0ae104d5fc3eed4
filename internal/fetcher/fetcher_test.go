package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"sedeck/internal/discord"
	"sedeck/internal/tags"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestFetcher(t *testing.T) (*Fetcher, string) {
	t.Helper()
	dir := t.TempDir()
	return New(Options{
		DownloadDir: dir,
		Extensions:  []string{".mp3", "WAV"},
		MaxBytes:    50 * 1024 * 1024,
		Now:         func() time.Time { return fixedNow },
	}), dir
}

func TestCandidatesDownloadsEligibleAttachments(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("audio:" + r.URL.Path))
	}))
	defer server.Close()

	f, dir := newTestFetcher(t)
	msg := discord.Message{
		ID: 77,
		Attachments: []discord.Attachment{
			{ID: 1, Filename: "boom.mp3", Title: "boom", Size: 1000, URL: server.URL + "/boom"},
			{ID: 2, Filename: "notes.txt", Size: 10, URL: server.URL + "/notes"},
			{ID: 3, Filename: "Clap.WAV", Size: 2000, URL: server.URL + "/clap"},
		},
	}
	fields := tags.Fields{Volume: 80, Priority: 10, English: true}

	items, err := f.Candidates(context.Background(), msg, fields)
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 downloads, got %d", hits.Load())
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.FileName != "boom.mp3" || first.Trigger != "boom" || first.MessageID != 77 {
		t.Fatalf("unexpected first item %+v", first)
	}
	if first.VolumePercent != 80 || first.Priority != 10 || !first.IsEnglish || first.IsAdopted {
		t.Fatalf("fields not carried over: %+v", first)
	}
	if !first.CreatedAt.Equal(fixedNow) {
		t.Fatalf("expected injected clock, got %v", first.CreatedAt)
	}
	if first.FilePath != filepath.Join(dir, "boom.mp3") {
		t.Fatalf("unexpected path %s", first.FilePath)
	}
	data, err := os.ReadFile(first.FilePath)
	if err != nil || string(data) != "audio:/boom" {
		t.Fatalf("downloaded content = %q, %v", data, err)
	}

	if items[1].FileName != "Clap.wav" || items[1].Trigger != "Clap" {
		t.Fatalf("unexpected second item %+v", items[1])
	}
}

func TestCandidatesSkipsOversizedWithoutRequest(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	f, _ := newTestFetcher(t)
	msg := discord.Message{
		ID: 1,
		Attachments: []discord.Attachment{
			{ID: 9, Filename: "huge.mp3", Size: 51 * 1024 * 1024, URL: server.URL + "/huge"},
		},
	}
	items, err := f.Candidates(context.Background(), msg, tags.Fields{})
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(items) != 0 || hits.Load() != 0 {
		t.Fatalf("expected skip without request, items=%d hits=%d", len(items), hits.Load())
	}
}

func TestCandidatesSizeCeilingIsInclusive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer server.Close()

	f, _ := newTestFetcher(t)
	msg := discord.Message{Attachments: []discord.Attachment{
		{ID: 1, Filename: "edge.mp3", Size: 50 * 1024 * 1024, URL: server.URL},
	}}
	items, err := f.Candidates(context.Background(), msg, tags.Fields{})
	if err != nil || len(items) != 1 {
		t.Fatalf("expected attachment at the ceiling to be accepted, items=%d err=%v", len(items), err)
	}
}

func TestCandidatesUntitledAttachmentUsesDerivedName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer server.Close()

	f, _ := newTestFetcher(t)
	msg := discord.Message{ID: 5, Attachments: []discord.Attachment{
		{ID: 7, Filename: ".mp3", URL: server.URL},
		{ID: 8, Filename: "   .wav", Title: "  ", URL: server.URL},
	}}
	items, err := f.Candidates(context.Background(), msg, tags.Parse("volume:80"))
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	want := []struct{ file, trigger string }{
		{"attachment-7.mp3", "attachment-7"},
		{"attachment-8.wav", "attachment-8"},
	}
	for i, w := range want {
		if items[i].FileName != w.file || items[i].Trigger != w.trigger {
			t.Fatalf("item %d = %q/%q, want %q/%q", i, items[i].FileName, items[i].Trigger, w.file, w.trigger)
		}
	}
}

func TestTriggerPrecedence(t *testing.T) {
	tests := []struct {
		name   string
		att    discord.Attachment
		fields tags.Fields
		want   string
	}{
		{"tag wins", discord.Attachment{ID: 1, Filename: "a.mp3", Title: "title"}, tags.Fields{Trigger: "boom"}, "boom"},
		{"title", discord.Attachment{ID: 1, Filename: "a.mp3", Title: "title"}, tags.Fields{}, "title"},
		{"file stem", discord.Attachment{ID: 1, Filename: "clap.mp3"}, tags.Fields{}, "clap"},
		{"blank tag", discord.Attachment{ID: 1, Filename: "clap.mp3"}, tags.Fields{Trigger: " "}, "clap"},
		{"untitled", discord.Attachment{ID: 9, Filename: ".mp3"}, tags.Fields{}, "attachment-9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Trigger(tt.att, tt.fields); got != tt.want {
				t.Fatalf("Trigger() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCandidatesTriggerFallbackIsPerAttachment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer server.Close()

	f, _ := newTestFetcher(t)
	msg := discord.Message{Attachments: []discord.Attachment{
		{ID: 1, Filename: "a.mp3", Title: "boom", URL: server.URL},
		{ID: 2, Filename: "b.mp3", Title: "bang", URL: server.URL},
	}}
	items, err := f.Candidates(context.Background(), msg, tags.Fields{})
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if items[0].Trigger != "boom" || items[1].Trigger != "bang" {
		t.Fatalf("expected per-attachment triggers, got %q and %q", items[0].Trigger, items[1].Trigger)
	}

	items, err = f.Candidates(context.Background(), msg, tags.Fields{Trigger: "hit"})
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if items[0].Trigger != "hit" || items[1].Trigger != "hit" {
		t.Fatalf("expected parsed trigger on every attachment, got %q and %q", items[0].Trigger, items[1].Trigger)
	}
}

func TestCandidatesDownloadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	f, dir := newTestFetcher(t)
	msg := discord.Message{Attachments: []discord.Attachment{
		{ID: 1, Filename: "good.mp3", URL: server.URL + "/good"},
		{ID: 2, Filename: "bad.mp3", URL: server.URL + "/broken"},
		{ID: 3, Filename: "never.mp3", URL: server.URL + "/never"},
	}}
	items, err := f.Candidates(context.Background(), msg, tags.Fields{})
	var failure *DownloadFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected DownloadFailure, got %v", err)
	}
	if failure.URL != server.URL+"/broken" || failure.FileName != "bad.mp3" {
		t.Fatalf("unexpected failure %+v", failure)
	}
	if len(items) != 1 || items[0].FileName != "good.mp3" {
		t.Fatalf("expected completed items returned alongside failure, got %+v", items)
	}
	if _, err := os.Stat(filepath.Join(dir, "never.mp3")); !os.IsNotExist(err) {
		t.Fatal("attachments after the failure must not be downloaded")
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.mp3")); !os.IsNotExist(err) {
		t.Fatal("failed download must not leave a file")
	}
}

func TestCandidatesTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	f, _ := newTestFetcher(t)
	msg := discord.Message{Attachments: []discord.Attachment{{ID: 1, Filename: "a.mp3", URL: url}}}
	_, err := f.Candidates(context.Background(), msg, tags.Fields{})
	var failure *DownloadFailure
	if !errors.As(err, &failure) || failure.Cause == nil {
		t.Fatalf("expected DownloadFailure with cause, got %v", err)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		att  discord.Attachment
		want string
	}{
		{discord.Attachment{Filename: "x.MP3", Title: "boom"}, "boom.mp3"},
		{discord.Attachment{Filename: "Airhorn.wav"}, "Airhorn.wav"},
		{discord.Attachment{Filename: "x.mp3", Title: "../../evil"}, "-..-evil.mp3"},
		{discord.Attachment{ID: 42, Filename: "x.mp3", Title: ".."}, "attachment-42.mp3"},
	}
	for _, tc := range tests {
		if got := FileName(tc.att); got != tc.want {
			t.Errorf("FileName(%+v) = %q, want %q", tc.att, got, tc.want)
		}
	}
}
