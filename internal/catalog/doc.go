// Package catalog persists ingested sound clips and the fetch cursor in SQLite.
//
// File names are the identity key. Upsert is insert-if-absent so operator
// curation (trigger, volume, priority, english, adopted) survives a re-fetch
// of the same attachment; only Update rewrites curated fields. GetAll orders
// newest first and that order is what the exporter writes rows in.
//
// The database is a working catalog, not an archive: the commit cycle purges
// every row together with its downloaded file. Schema changes bump
// schemaVersion; users delete the database to adopt a new schema.
package catalog
