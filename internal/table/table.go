package table

import (
	"errors"
	"fmt"
	"math"

	"github.com/parquet-go/parquet-go"
)

var (
	ErrDecode = errors.New("table: decode failed")
	ErrEncode = errors.New("table: encode failed")
	ErrShape  = errors.New("table: invalid shape")
)

// Kind is the logical type of a column. Cells hold string, int64, float64,
// bool or nil for a missing value.
type Kind int

const (
	KindString Kind = iota
	KindInt64
	KindFloat64
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) accepts(v any) bool {
	if v == nil {
		return true
	}
	switch k {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindInt64:
		_, ok := v.(int64)
		return ok
	case KindFloat64:
		_, ok := v.(float64)
		return ok
	case KindBool:
		_, ok := v.(bool)
		return ok
	}
	return false
}

type Column struct {
	Name string
	Kind Kind
}

// Table is an in-memory, column-typed set of rows.
type Table struct {
	Columns []Column
	Rows    [][]any
}

// New checks that every row has one cell per column and that each cell
// matches its column kind.
func New(columns []Column, rows [][]any) (*Table, error) {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: empty column name", ErrShape)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrShape, c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrShape, i, len(row), len(columns))
		}
		for j, v := range row {
			if !columns[j].Kind.accepts(v) {
				return nil, fmt.Errorf("%w: row %d column %q holds %T, want %s", ErrShape, i, columns[j].Name, v, columns[j].Kind)
			}
		}
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

func (t *Table) NumRows() int    { return len(t.Rows) }
func (t *Table) NumColumns() int { return len(t.Columns) }

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Equal reports whether both tables have the same columns and cells. NaN
// cells compare equal to each other.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.Columns) != len(o.Columns) || len(t.Rows) != len(o.Rows) {
		return false
	}
	for i := range t.Columns {
		if t.Columns[i] != o.Columns[i] {
			return false
		}
	}
	for i := range t.Rows {
		for j := range t.Rows[i] {
			if !cellEqual(t.Rows[i][j], o.Rows[i][j]) {
				return false
			}
		}
	}
	return true
}

func cellEqual(a, b any) bool {
	fa, aok := a.(float64)
	fb, bok := b.(float64)
	if aok && bok && math.IsNaN(fa) && math.IsNaN(fb) {
		return true
	}
	return a == b
}

type options struct {
	delimiter rune
	parquet   []parquet.WriterOption
}

// Option tunes encoding and decoding.
type Option func(*options)

// WithDelimiter sets the CSV field separator. The default is a comma.
func WithDelimiter(r rune) Option {
	return func(o *options) { o.delimiter = r }
}

// WithParquetOptions passes extra options to the Parquet writer.
func WithParquetOptions(opts ...parquet.WriterOption) Option {
	return func(o *options) { o.parquet = append(o.parquet, opts...) }
}

func applyOptions(opts []Option) options {
	o := options{delimiter: ','}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
