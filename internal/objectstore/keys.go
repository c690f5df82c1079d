package objectstore

import (
	"crypto/rand"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/oklog/ulid/v2"
)

// DocumentKey builds the object key for an uploaded document:
// {areaCode}/{moduleType}/{folderID}/{ulid}-{fileName}. The ulid prefix keeps
// repeated uploads of the same file name apart and sorts keys by upload time.
func DocumentKey(areaCode, moduleType, folderID, fileName string, now time.Time) string {
	return path.Join(
		segment(areaCode),
		segment(moduleType),
		segment(folderID),
		newULID(now)+"-"+SanitizeFileName(fileName),
	)
}

// SanitizeFileName keeps letters, digits, dot, dash and underscore; runs of
// anything else collapse into a single dash.
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	var b strings.Builder
	lastDash := false
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '_':
			b.WriteRune(r)
			lastDash = false
		case r == '-':
			if !lastDash {
				b.WriteRune(r)
			}
			lastDash = true
		default:
			if !lastDash {
				b.WriteRune('-')
			}
			lastDash = true
		}
	}
	cleaned := strings.Trim(b.String(), "-.")
	if cleaned == "" {
		return "archivo"
	}
	return cleaned
}

// segment makes value a single path element. Empty, "." and ".." become "_"
// so path.Join cannot drop or climb out of a level.
func segment(value string) string {
	value = strings.ReplaceAll(strings.Trim(strings.TrimSpace(value), "/"), "/", "-")
	switch value {
	case "", ".", "..":
		return "_"
	}
	return value
}

func newULID(now time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(now), entropy).String())
}
