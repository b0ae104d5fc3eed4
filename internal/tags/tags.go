package tags

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Recognized keys.
const (
	KeyTrigger  = "trigger"
	KeyVolume   = "volume"
	KeyPriority = "priority"
	KeyEnglish  = "english"
)

// Defaults applied when a tag is missing or out of range.
const (
	DefaultVolume   = 50
	DefaultPriority = 50
	MinVolume       = 1
	MaxVolume       = 100
	MinPriority     = 1
	MaxPriority     = 99
)

var keys = []string{KeyTrigger, KeyVolume, KeyPriority, KeyEnglish}

// Fields holds the metadata parsed from one message.
type Fields struct {
	Trigger  string
	Volume   int
	Priority int
	English  bool
}

// Token is a single key/separator/value occurrence in the text.
type Token struct {
	Key       string
	Separator rune
	Value     string
	Offset    int
}

// Parse extracts Fields from text. For each key the first ':' form wins over
// any '=' form, and within a form the earliest occurrence wins.
func Parse(text string) Fields {
	fields := Fields{Volume: DefaultVolume, Priority: DefaultPriority}
	found := selectValues(Tokenize(text))

	if v, ok := found[KeyTrigger]; ok {
		fields.Trigger = v
	}
	if v, ok := parseInt(found[KeyVolume]); ok && v >= MinVolume && v <= MaxVolume {
		fields.Volume = v
	}
	if v, ok := parseInt(found[KeyPriority]); ok && v >= MinPriority && v <= MaxPriority {
		fields.Priority = v
	}
	fields.English = strings.EqualFold(found[KeyEnglish], "y")
	return fields
}

// Tokenize returns every recognized tag in text order. Tokens may overlap:
// in "trigger:volume:80" both trigger ("volume:80") and volume ("80") appear.
func Tokenize(text string) []Token {
	var tokens []Token
	fold := cases.Fold()
	for offset := 0; offset < len(text); {
		for _, key := range keys {
			end, ok := matchKey(fold, text, offset, key)
			if !ok || end >= len(text) {
				continue
			}
			sep := text[end]
			if sep != ':' && sep != '=' {
				continue
			}
			tokens = append(tokens, Token{
				Key:       key,
				Separator: rune(sep),
				Value:     readValue(text[end+1:]),
				Offset:    offset,
			})
		}
		_, size := utf8.DecodeRuneInString(text[offset:])
		offset += size
	}
	return tokens
}

// matchKey reports whether the runes of text starting at offset fold to key,
// returning the byte offset just past the match.
func matchKey(fold cases.Caser, text string, offset int, key string) (int, bool) {
	end := offset
	for i := 0; i < utf8.RuneCountInString(key); i++ {
		if end >= len(text) {
			return 0, false
		}
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}
	return end, fold.String(text[offset:end]) == key
}

// readValue skips leading whitespace and stops at whitespace or a backslash.
func readValue(rest string) string {
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	if i := strings.IndexFunc(rest, isTerminator); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

func isTerminator(r rune) bool {
	return r == '\\' || unicode.IsSpace(r)
}

func selectValues(tokens []Token) map[string]string {
	colon := make(map[string]string, len(keys))
	equals := make(map[string]string, len(keys))
	for _, tok := range tokens {
		target := equals
		if tok.Separator == ':' {
			target = colon
		}
		if _, seen := target[tok.Key]; !seen {
			target[tok.Key] = tok.Value
		}
	}
	for key, value := range equals {
		if _, ok := colon[key]; !ok {
			colon[key] = value
		}
	}
	return colon
}

func parseInt(value string) (int, bool) {
	if value == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}
