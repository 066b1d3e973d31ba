// Package textenc maps repository paths to text encodings and converts file
// bytes to and from UTF-8.
package textenc

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Rules maps glob patterns (doublestar syntax, slash separated) to encoding
// labels such as "windows-1252" or "shift_jis".
type Rules map[string]string

// Resolve returns the label configured for path, or "" when no pattern
// matches. Longer patterns win so that specific rules beat catch-alls.
func (r Rules) Resolve(path string) string {
	if len(r) == 0 {
		return ""
	}
	path = filepath.ToSlash(path)

	patterns := make([]string, 0, len(r))
	for p := range r {
		patterns = append(patterns, p)
	}
	sort.Slice(patterns, func(i, j int) bool {
		if len(patterns[i]) != len(patterns[j]) {
			return len(patterns[i]) > len(patterns[j])
		}
		return patterns[i] < patterns[j]
	})

	for _, p := range patterns {
		if ok, err := doublestar.Match(p, path); err == nil && ok {
			return r[p]
		}
	}
	return ""
}

// Lookup returns the encoding for label. Unknown labels report false.
func Lookup(label string) (encoding.Encoding, bool) {
	if label == "" {
		return nil, false
	}
	enc, err := htmlindex.Get(strings.TrimSpace(label))
	if err != nil {
		return nil, false
	}
	return enc, true
}

// Decode converts data to UTF-8 using label. An empty or unknown label, or
// a decode failure, falls back to UTF-8 with invalid bytes replaced.
func Decode(data []byte, label string) string {
	if enc, ok := Lookup(label); ok && enc != unicode.UTF8 {
		out, err := enc.NewDecoder().Bytes(data)
		if err == nil {
			return string(out)
		}
	}
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}

// Encode converts UTF-8 text back to label's encoding for writing.
func Encode(text, label string) ([]byte, error) {
	enc, ok := Lookup(label)
	if !ok || enc == unicode.UTF8 {
		return []byte(text), nil
	}
	out, err := enc.NewEncoder().String(text)
	if err != nil {
		return nil, fmt.Errorf("encode as %s: %w", label, err)
	}
	return []byte(out), nil
}

// MatchAny reports whether path matches any of patterns. Patterns without
// glob syntax match the exact path.
func MatchAny(path string, patterns []string) bool {
	path = filepath.ToSlash(path)
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if p == path {
			return true
		}
		if ok, err := doublestar.Match(p, path); err == nil && ok {
			return true
		}
	}
	return false
}
