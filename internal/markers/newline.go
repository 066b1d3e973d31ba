package markers

import (
	"bytes"
	"strings"
)

// DetectNewline reports CRLF if the data contains any "\r\n" sequence.
func DetectNewline(data []byte) Newline {
	if bytes.Contains(data, []byte("\r\n")) {
		return NewlineCRLF
	}
	return NewlineLF
}

// Denormalize converts LF-normalized text to the given convention.
func Denormalize(text string, nl Newline) string {
	if nl != NewlineCRLF {
		return text
	}
	return strings.ReplaceAll(text, "\n", "\r\n")
}

// NormalizeLF converts every "\r\n" to "\n".
func NormalizeLF(text string) string {
	return normalizeLF(text)
}

func normalizeLF(text string) string {
	if !strings.Contains(text, "\r\n") {
		return text
	}
	return strings.ReplaceAll(text, "\r\n", "\n")
}
