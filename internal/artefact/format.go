package artefact

import (
	"fmt"
	"strings"
)

// Format is the logical file format of a stored artefact.
type Format string

const (
	FormatCSV     Format = "CSV"
	FormatParquet Format = "PARQUET"
	FormatPickle  Format = "PICKLE"
)

var formatExtensions = map[string]Format{
	"csv":     FormatCSV,
	"parquet": FormatParquet,
	"pkl":     FormatPickle,
}

func (f Format) Valid() bool {
	switch f {
	case FormatCSV, FormatParquet, FormatPickle:
		return true
	}
	return false
}

func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatParquet:
		return "parquet"
	case FormatPickle:
		return "pkl"
	}
	return ""
}

func (f Format) String() string {
	return string(f)
}

// ParseFormat accepts a file extension ("csv", ".parquet") or a format name
// ("PICKLE"), case-insensitively.
func ParseFormat(s string) (Format, error) {
	norm := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	if f, ok := formatExtensions[norm]; ok {
		return f, nil
	}
	if f := Format(strings.ToUpper(norm)); f.Valid() {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}
