package catalog

import (
	"context"
	"fmt"
	"strings"

	"sedeck/internal/fileutil"
)

// PurgeAll deletes every row and attempts to delete each row's backing file.
// File errors are collected in the report and never stop the purge; rows are
// always cleared once the file pass finishes.
func (s *Store) PurgeAll(ctx context.Context) (PurgeReport, error) {
	items, err := s.GetAll(ctx)
	if err != nil {
		return PurgeReport{}, fmt.Errorf("purge: %w", err)
	}

	report := PurgeReport{}
	for _, item := range items {
		path := strings.TrimSpace(item.FilePath)
		if path == "" {
			continue
		}
		removed, err := fileutil.RemoveIfExists(path)
		switch {
		case err != nil:
			report.FileErrors = append(report.FileErrors, FileError{Path: path, Err: err})
		case removed:
			report.FilesRemoved++
		default:
			report.FilesMissing++
		}
	}

	res, err := s.exec(ctx, `DELETE FROM items`)
	if err != nil {
		return report, fmt.Errorf("purge rows: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil {
		report.Rows = int(affected)
	}
	return report, nil
}
