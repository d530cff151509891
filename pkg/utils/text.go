// Package utils provides shared utilities for text handling and logging.
package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

var windowsDeviceNames = map[string]bool{
	"CON": true, "AUX": true, "PRN": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"LPT1": true, "LPT2": true, "LPT3": true,
}

// Truncate returns s cut to at most maxLen bytes, with "..." appended if truncated.
// The cut never splits a UTF-8 sequence. If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// SecureFilename returns an ASCII-only version of name that is safe to use as
// a plain file name: path separators and whitespace become underscores,
// characters outside [A-Za-z0-9_.-] are dropped, and leading or trailing dots
// and underscores are trimmed. The result may be empty.
func SecureFilename(name string) string {
	decomposed := norm.NFKD.String(name)
	var b strings.Builder
	for _, r := range decomposed {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	s := strings.NewReplacer("/", " ", "\\", " ").Replace(b.String())
	s = strings.Join(strings.Fields(s), "_")
	s = unsafeFilenameChars.ReplaceAllString(s, "")
	s = strings.Trim(s, "._")

	if s != "" {
		stem := strings.ToUpper(strings.SplitN(s, ".", 2)[0])
		if windowsDeviceNames[stem] {
			s = "_" + s
		}
	}
	return s
}
