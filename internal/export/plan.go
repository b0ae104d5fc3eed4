package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"sedeck/internal/catalog"
	"sedeck/internal/config"
)

// ErrCollision indicates two adopted items map to the same output name.
var ErrCollision = errors.New("output name collision")

// Entry is an adopted item with its assigned output base name (no extension).
type Entry struct {
	Item     catalog.Item
	BaseName string
}

// OutputName returns the rendered file name referenced by the dictionary row.
func (e Entry) OutputName() string {
	return e.BaseName + ".wav"
}

// Row builds the dictionary row for the entry.
func (e Entry) Row() Row {
	return Row{
		Priority:   e.Item.Priority,
		English:    e.Item.IsEnglish,
		Trigger:    e.Item.Trigger,
		OutputName: e.OutputName(),
	}
}

// BaseName strips the extension from a catalog file name.
func BaseName(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}

// Plan selects the adopted items, keeping their order, and assigns output
// names according to policy. Names are compared case-insensitively.
func Plan(items []catalog.Item, policy string) ([]Entry, error) {
	var (
		entries []Entry
		owners  = make(map[string]string)
	)
	for _, item := range items {
		if !item.IsAdopted {
			continue
		}
		base := BaseName(item.FileName)
		key := strings.ToLower(base)
		if owner, taken := owners[key]; taken {
			switch policy {
			case config.CollisionOverwrite:
			case config.CollisionSuffix:
				for n := 2; ; n++ {
					candidate := base + "_" + strconv.Itoa(n)
					if _, used := owners[strings.ToLower(candidate)]; !used {
						base = candidate
						key = strings.ToLower(candidate)
						break
					}
				}
			default:
				return nil, fmt.Errorf("%w: %s and %s both render to %s.wav", ErrCollision, owner, item.FileName, base)
			}
		}
		if _, taken := owners[key]; !taken {
			owners[key] = item.FileName
		}
		entries = append(entries, Entry{Item: item, BaseName: base})
	}
	return entries, nil
}
