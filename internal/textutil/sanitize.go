package textutil

import (
	"strings"
	"unicode"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters and control runes are removed. Leading dots are stripped so the
// result can never name a parent or hidden entry. Returns "" when nothing
// usable remains.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = fileNameReplacer.Replace(name)
	name = strings.TrimLeft(strings.TrimSpace(name), ".")
	return strings.TrimRight(strings.TrimSpace(name), ". ")
}

// HasPathSyntax reports whether name contains a separator or is a relative
// path element, meaning it cannot be used as a plain file name.
func HasPathSyntax(name string) bool {
	if name == "" || name == "." || name == ".." {
		return true
	}
	return strings.ContainsAny(name, `/\`)
}
