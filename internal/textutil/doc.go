// Package textutil provides filename sanitization for names that come from
// untrusted message content.
package textutil
