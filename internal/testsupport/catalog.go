package testsupport

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"sedeck/internal/catalog"
	"sedeck/internal/config"
)

// MustOpenCatalog opens a catalog.Store for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedItem inserts an item whose backing file exists in the download dir.
// createdAt offsets from a fixed base so ordering is deterministic.
func SeedItem(t testing.TB, cfg *config.Config, store *catalog.Store, fileName string, createdAt time.Duration, mutate func(*catalog.Item)) catalog.Item {
	t.Helper()

	path := filepath.Join(cfg.Paths.DownloadDir, fileName)
	WriteFile(t, path, "clip:"+fileName)
	item := catalog.Item{
		FileName:      fileName,
		MessageID:     uint64(1000 + createdAt/time.Second),
		FilePath:      path,
		Trigger:       fileName,
		VolumePercent: 50,
		Priority:      50,
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(createdAt),
	}
	if mutate != nil {
		mutate(&item)
	}
	inserted, err := store.Upsert(context.Background(), item)
	if err != nil {
		t.Fatalf("Upsert %s: %v", fileName, err)
	}
	if !inserted {
		t.Fatalf("Upsert %s: expected insert", fileName)
	}
	return item
}
