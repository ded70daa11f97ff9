package storage

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename reduces a client supplied name to a safe ASCII base name:
// accents are folded, path separators become word breaks, whitespace runs
// become underscores and anything outside [A-Za-z0-9_.-] is dropped. Leading
// and trailing dots and underscores are trimmed so the result can never be a
// relative path component. The result may be empty.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		if r > unicode.MaxASCII {
			continue
		}
		b.WriteRune(r)
	}
	ascii := b.String()
	ascii = strings.ReplaceAll(ascii, "/", " ")
	ascii = strings.ReplaceAll(ascii, "\\", " ")
	ascii = strings.Join(strings.Fields(ascii), "_")
	ascii = unsafeFilenameChars.ReplaceAllString(ascii, "")
	return strings.Trim(ascii, "._")
}
