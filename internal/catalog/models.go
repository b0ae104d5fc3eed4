package catalog

import (
	"errors"
	"time"

	"sedeck/internal/tags"
)

// ErrNotFound is returned when an operation targets a file name with no row.
var ErrNotFound = errors.New("catalog item not found")

// ErrEmptyTrigger rejects rows that would export without an activation phrase.
var ErrEmptyTrigger = errors.New("trigger is empty")

// Item is one ingested sound clip.
type Item struct {
	FileName      string    `json:"file_name"`
	MessageID     uint64    `json:"message_id"`
	FilePath      string    `json:"file_path"`
	Trigger       string    `json:"trigger"`
	VolumePercent int       `json:"volume_percent"`
	Priority      int       `json:"priority"`
	IsEnglish     bool      `json:"is_english"`
	IsAdopted     bool      `json:"is_adopted"`
	CreatedAt     time.Time `json:"created_at"`
}

// NormalizeVolume maps values outside 1-100 to the default of 50.
func NormalizeVolume(v int) int {
	if v < tags.MinVolume || v > tags.MaxVolume {
		return tags.DefaultVolume
	}
	return v
}

// NormalizePriority maps values outside 1-99 to the default of 50.
func NormalizePriority(v int) int {
	if v < tags.MinPriority || v > tags.MaxPriority {
		return tags.DefaultPriority
	}
	return v
}

// ClampPriority pins edited priorities into 1-99.
func ClampPriority(v int) int {
	return min(max(v, tags.MinPriority), tags.MaxPriority)
}

// normalizeForInsert applies ingestion defaults.
func (it *Item) normalizeForInsert() {
	it.VolumePercent = NormalizeVolume(it.VolumePercent)
	it.Priority = NormalizePriority(it.Priority)
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now()
	}
	it.CreatedAt = it.CreatedAt.UTC()
}

// normalizeForEdit applies operator edit rules: volume resets, priority clamps.
func (it *Item) normalizeForEdit() {
	it.VolumePercent = NormalizeVolume(it.VolumePercent)
	it.Priority = ClampPriority(it.Priority)
}

// PurgeReport summarizes a PurgeAll call.
type PurgeReport struct {
	Rows         int
	FilesRemoved int
	FilesMissing int
	FileErrors   []FileError
}

// FileError records a backing file that could not be deleted.
type FileError struct {
	Path string
	Err  error
}
