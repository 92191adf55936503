package artefact

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	timestampLayout = "2006-01-02T15:04:05"
	dateLayout      = "2006-01-02"
)

var (
	timestampRe = regexp.MustCompile(`\d{4}\W\d{2}\W\d{2}[\sT]\d{2}\W\d{2}\W\d{2}|\d{4}\W\d{2}\W\d{2}`)
	timePartRe  = regexp.MustCompile(`[\sT](\d{2})\W(\d{2})\W(\d{2})`)
	extensionRe = regexp.MustCompile(`\.(\w+)$`)
)

// TimestampedFilename builds "{prefix}_{YYYY-MM-DDTHH:MM:SS}.{ext}". The
// wall clock of ts is used as given, truncated to the second, and its zone
// is dropped. Keys are read back as UTC, so callers should pass ts.UTC().
func TimestampedFilename(prefix string, ts time.Time, f Format) string {
	return fmt.Sprintf("%s_%s.%s", prefix, ts.Format(timestampLayout), f.Extension())
}

// ExtractTimestamp returns the leftmost date-time or bare date embedded in s.
// Time separators may be any non-word character; a bare date is midnight UTC.
func ExtractTimestamp(s string) (time.Time, bool) {
	match := timestampRe.FindString(s)
	if match == "" {
		return time.Time{}, false
	}
	std := timePartRe.ReplaceAllString(match, "T${1}:${2}:${3}")
	layout := timestampLayout
	if len(std) == len(dateLayout) {
		layout = dateLayout
	}
	ts, err := time.Parse(layout, std)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// ExtractFormat maps the extension after the last dot of s to a Format.
func ExtractFormat(s string) (Format, bool) {
	m := extensionRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	f, ok := formatExtensions[strings.ToLower(m[1])]
	return f, ok
}
