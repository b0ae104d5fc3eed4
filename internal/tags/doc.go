// Package tags extracts sound-clip metadata from free-form message text.
//
// A tag is a key immediately followed by ':' or '=' and a value that runs to
// the next whitespace or backslash, e.g. "trigger:boom volume=80". Keys match
// case-insensitively anywhere in the text. Parsing never fails: missing or
// malformed values fall back to the defaults in Fields.
package tags
