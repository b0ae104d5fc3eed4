// Package export runs the commit cycle: it renders every adopted clip,
// appends one dictionary row per clip, and then purges the catalog.
//
// Rows follow catalog order (newest first). A render failure stops the cycle
// before any row is written, leaving the catalog intact for a retry.
package export
