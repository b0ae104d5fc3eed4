// Package fetcher turns message attachments into catalog candidates.
//
// Attachments are filtered by extension and size before any network access,
// then downloaded into the working directory. The first failed download
// aborts the message and is reported as a *DownloadFailure.
package fetcher
