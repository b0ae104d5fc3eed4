package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

type fakeChannel struct {
	mu       sync.Mutex
	ids      []uint64
	requests []string
	pageHits int
}

func (f *fakeChannel) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /channels/42", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "42", "name": "sounds", "type": 0})
	})
	mux.HandleFunc("GET /channels/42/messages", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.requests = append(f.requests, r.URL.RawQuery)
		f.pageHits++
		if got := r.Header.Get("Authorization"); got != "Bot secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		window := f.ids
		if raw := r.URL.Query().Get("after"); raw != "" {
			after, _ := strconv.ParseUint(raw, 10, 64)
			window = nil
			for _, id := range f.ids {
				if id > after {
					window = append(window, id)
				}
			}
			if len(window) > limit {
				window = window[:limit]
			}
		} else if len(window) > limit {
			window = window[len(window)-limit:]
		}
		// Discord returns the page newest first.
		page := make([]map[string]any, 0, len(window))
		for i := len(window) - 1; i >= 0; i-- {
			page = append(page, map[string]any{
				"id":        strconv.FormatUint(window[i], 10),
				"content":   fmt.Sprintf("message %d", window[i]),
				"timestamp": "2024-03-01T10:00:00.000000+00:00",
			})
		}
		_ = json.NewEncoder(w).Encode(page)
	})
	return mux
}

func (f *fakeChannel) snapshot() ([]string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...), f.pageHits
}

func newTestClient(t *testing.T, url string, cfg Config) *Client {
	t.Helper()
	cfg.Token = "secret"
	cfg.BaseURL = url
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestHistoryFromCursorAscending(t *testing.T) {
	fake := &fakeChannel{}
	for id := uint64(1); id <= 7; id++ {
		fake.ids = append(fake.ids, id)
	}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{PageSize: 3})
	cursor := uint64(1)
	messages, err := client.History(context.Background(), 42, &cursor)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(messages) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(messages))
	}
	for i, msg := range messages {
		if msg.ID != uint64(i+2) {
			t.Fatalf("position %d: got id %d", i, msg.ID)
		}
	}
	requests, _ := fake.snapshot()
	want := []string{"after=1&limit=3", "after=4&limit=3", "after=7&limit=3"}
	if len(requests) != len(want) {
		t.Fatalf("expected %d page requests, got %v", len(want), requests)
	}
	for i := range want {
		if requests[i] != want[i] {
			t.Fatalf("request %d: got %q want %q", i, requests[i], want[i])
		}
	}
}

func TestHistoryWithoutCursorStartsAtNewestPage(t *testing.T) {
	fake := &fakeChannel{}
	for id := uint64(1); id <= 5; id++ {
		fake.ids = append(fake.ids, id)
	}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{PageSize: 3})
	messages, err := client.History(context.Background(), 42, nil)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(messages) != 3 || messages[0].ID != 3 || messages[2].ID != 5 {
		t.Fatalf("unexpected first-run window: %+v", messages)
	}
	requests, _ := fake.snapshot()
	if requests[0] != "limit=3" {
		t.Fatalf("first request should omit after, got %q", requests[0])
	}
}

func TestHistoryStopsAtPageCap(t *testing.T) {
	fake := &fakeChannel{}
	for id := uint64(1); id <= 20; id++ {
		fake.ids = append(fake.ids, id)
	}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{PageSize: 2, MaxPages: 3})
	cursor := uint64(0)
	messages, err := client.History(context.Background(), 42, &cursor)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if _, hits := fake.snapshot(); hits != 3 {
		t.Fatalf("expected 3 page requests, got %d", hits)
	}
	if len(messages) != 6 || messages[5].ID != 6 {
		t.Fatalf("unexpected messages: %d", len(messages))
	}
}

func TestHistoryChannelNotFound(t *testing.T) {
	var pageHits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/channels/9" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message": "Unknown Channel", "code": 10003}`))
			return
		}
		pageHits++
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{})
	_, err := client.History(context.Background(), 9, nil)
	if !errors.Is(err, ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}
	if pageHits != 0 {
		t.Fatalf("expected no page requests, got %d", pageHits)
	}
}

func TestResolveChannelForbidden(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{})
	if _, err := client.ResolveChannel(context.Background(), 5); !errors.Is(err, ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestPageRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1.5")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message": "You are being rate limited."}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{})
	_, err := client.Page(context.Background(), 42, nil, 100)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.RetryAfter != 1500*time.Millisecond {
		t.Fatalf("expected retry-after 1.5s, got %v", err)
	}
}

func TestRequestsAreSpaced(t *testing.T) {
	var (
		mu    sync.Mutex
		stamp []time.Time
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		stamp = append(stamp, time.Now())
		mu.Unlock()
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{PageDelay: 40 * time.Millisecond})
	for range 3 {
		if _, err := client.Page(context.Background(), 42, nil, 10); err != nil {
			t.Fatalf("Page: %v", err)
		}
	}
	for i := 1; i < len(stamp); i++ {
		if gap := stamp[i].Sub(stamp[i-1]); gap < 30*time.Millisecond {
			t.Fatalf("requests %d and %d only %s apart", i-1, i, gap)
		}
	}
}

func TestUserAgentIncludesVersion(t *testing.T) {
	var agent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"id": "1"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{Version: "1.2.3"})
	if _, err := client.ResolveChannel(context.Background(), 1); err != nil {
		t.Fatalf("ResolveChannel: %v", err)
	}
	if agent != "DiscordBot (sedeck, 1.2.3)" {
		t.Fatalf("unexpected user agent %q", agent)
	}
}

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without token")
	}
}

func TestMessageDecoding(t *testing.T) {
	raw := `{
		"id": "1234567890123456789",
		"content": "trigger:boom volume:80",
		"timestamp": "2024-03-01T10:00:00.123000+00:00",
		"attachments": [
			{"id": "99", "filename": "Boom.MP3", "size": 2048, "url": "https://cdn.example/boom.mp3"},
			{"id": "100", "filename": "x.wav", "title": "Named Clip", "size": 1}
		]
	}`
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.ID != 1234567890123456789 {
		t.Fatalf("unexpected id %d", msg.ID)
	}
	if len(msg.Attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(msg.Attachments))
	}
	first := msg.Attachments[0]
	if first.DisplayTitle() != "Boom" || first.Extension() != ".mp3" || first.Size != 2048 {
		t.Fatalf("unexpected first attachment %+v", first)
	}
	if msg.Attachments[1].DisplayTitle() != "Named Clip" {
		t.Fatalf("expected explicit title, got %q", msg.Attachments[1].DisplayTitle())
	}
}
