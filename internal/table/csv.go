package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ReadCSV parses a headed CSV document. Column kinds are inferred from the
// non-empty cells: int64 if all parse as integers, then float64, then bool,
// otherwise string. Empty cells become nil.
func ReadCSV(r io.Reader, opts ...Option) (*Table, error) {
	o := applyOptions(opts)
	cr := csv.NewReader(r)
	cr.Comma = o.delimiter

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: csv has no header", ErrDecode)
		}
		return nil, fmt.Errorf("%w: csv header: %w", ErrDecode, err)
	}
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: csv: %w", ErrDecode, err)
	}

	columns := make([]Column, len(header))
	for j, name := range header {
		columns[j] = Column{Name: name, Kind: inferKind(records, j)}
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(rec))
		for j, cell := range rec {
			v, err := parseCell(cell, columns[j].Kind)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %q: %w", ErrDecode, i+1, columns[j].Name, err)
			}
			row[j] = v
		}
		rows[i] = row
	}

	t, err := New(columns, rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return t, nil
}

// WriteCSV writes t with a header row. Floats always carry a decimal point
// so integral values read back as floats.
func WriteCSV(w io.Writer, t *Table, opts ...Option) error {
	o := applyOptions(opts)
	cw := csv.NewWriter(w)
	cw.Comma = o.delimiter

	header := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		header[j] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("%w: csv header: %w", ErrEncode, err)
	}
	rec := make([]string, len(t.Columns))
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrEncode, i, len(row), len(t.Columns))
		}
		for j, v := range row {
			s, err := formatCell(v)
			if err != nil {
				return fmt.Errorf("%w: row %d column %q: %w", ErrEncode, i, t.Columns[j].Name, err)
			}
			rec[j] = s
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("%w: csv: %w", ErrEncode, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: csv: %w", ErrEncode, err)
	}
	return nil
}

func inferKind(records [][]string, col int) Kind {
	isInt, isFloat, isBool := true, true, true
	seen := false
	for _, rec := range records {
		cell := rec[col]
		if cell == "" {
			continue
		}
		seen = true
		if isInt {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				isFloat = false
			}
		}
		if isBool && !isBoolLiteral(cell) {
			isBool = false
		}
	}
	switch {
	case !seen:
		return KindString
	case isInt:
		return KindInt64
	case isFloat:
		return KindFloat64
	case isBool:
		return KindBool
	}
	return KindString
}

func isBoolLiteral(s string) bool {
	return strings.EqualFold(s, "true") || strings.EqualFold(s, "false")
}

func parseCell(cell string, k Kind) (any, error) {
	if cell == "" {
		return nil, nil
	}
	switch k {
	case KindInt64:
		return strconv.ParseInt(cell, 10, 64)
	case KindFloat64:
		return strconv.ParseFloat(cell, 64)
	case KindBool:
		return strings.EqualFold(cell, "true"), nil
	}
	return cell, nil
}

func formatCell(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return formatFloat(x), nil
	case bool:
		if x {
			return "True", nil
		}
		return "False", nil
	}
	return "", fmt.Errorf("unsupported cell type %T", v)
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
