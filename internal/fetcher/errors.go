package fetcher

import "fmt"

// DownloadFailure reports an attachment that could not be retrieved.
type DownloadFailure struct {
	URL      string
	FileName string
	Cause    error
}

func (e *DownloadFailure) Error() string {
	return fmt.Sprintf("download %s (%s): %v", e.FileName, e.URL, e.Cause)
}

func (e *DownloadFailure) Unwrap() error {
	return e.Cause
}
