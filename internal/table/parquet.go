package table

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/parquet-go/parquet-go"
)

// columnOrderKey holds the table's column order. Parquet groups sort
// their fields by name.
const columnOrderKey = "pipelineutils.columns"

const readBatch = 256

// WriteParquet writes t as a single Parquet file with Snappy compression.
// Every column is optional so nil cells survive the round trip.
func WriteParquet(w io.Writer, t *Table, opts ...Option) error {
	o := applyOptions(opts)

	group := make(parquet.Group, len(t.Columns))
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		node, err := leafFor(c.Kind)
		if err != nil {
			return fmt.Errorf("%w: column %q: %w", ErrEncode, c.Name, err)
		}
		group[c.Name] = parquet.Optional(node)
		names[i] = c.Name
	}
	schema := parquet.NewSchema("table", group)

	order, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}

	// Leaf index of each table column within the name-sorted schema.
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	leaf := make(map[string]int, len(sorted))
	for i, n := range sorted {
		leaf[n] = i
	}

	writerOpts := append([]parquet.WriterOption{
		schema,
		parquet.Compression(&parquet.Snappy),
		parquet.KeyValueMetadata(columnOrderKey, string(order)),
	}, o.parquet...)
	pw := parquet.NewWriter(w, writerOpts...)

	rows := make([]parquet.Row, 0, len(t.Rows))
	for i, r := range t.Rows {
		if len(r) != len(t.Columns) {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrEncode, i, len(r), len(t.Columns))
		}
		row := make(parquet.Row, len(t.Columns))
		for j, cell := range r {
			idx := leaf[t.Columns[j].Name]
			v, err := valueFor(cell)
			if err != nil {
				return fmt.Errorf("%w: row %d column %q: %w", ErrEncode, i, t.Columns[j].Name, err)
			}
			if v.IsNull() {
				row[idx] = v.Level(0, 0, idx)
			} else {
				row[idx] = v.Level(0, 1, idx)
			}
		}
		rows = append(rows, row)
	}
	if _, err := pw.WriteRows(rows); err != nil {
		return fmt.Errorf("%w: parquet write rows: %w", ErrEncode, err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("%w: parquet close: %w", ErrEncode, err)
	}
	return nil
}

// ReadParquet decodes a flat Parquet file. Integer columns become int64,
// floating point columns float64 and byte arrays strings.
func ReadParquet(r io.ReaderAt, size int64) (*Table, error) {
	f, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: parquet open: %w", ErrDecode, err)
	}

	fields := f.Schema().Fields()
	columns := make([]Column, len(fields))
	for i, field := range fields {
		if !field.Leaf() {
			return nil, fmt.Errorf("%w: nested column %q is not supported", ErrDecode, field.Name())
		}
		k, err := kindOf(field.Type().Kind())
		if err != nil {
			return nil, fmt.Errorf("%w: column %q: %w", ErrDecode, field.Name(), err)
		}
		columns[i] = Column{Name: field.Name(), Kind: k}
	}

	var rows [][]any
	buf := make([]parquet.Row, readBatch)
	for _, rg := range f.RowGroups() {
		rr := rg.Rows()
		for {
			n, err := rr.ReadRows(buf)
			for _, prow := range buf[:n] {
				row := make([]any, len(columns))
				for _, v := range prow {
					c := v.Column()
					if c < 0 || c >= len(columns) {
						_ = rr.Close()
						return nil, fmt.Errorf("%w: value for unknown column %d", ErrDecode, c)
					}
					row[c] = cellFor(v)
				}
				rows = append(rows, row)
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				_ = rr.Close()
				return nil, fmt.Errorf("%w: parquet read: %w", ErrDecode, err)
			}
		}
		_ = rr.Close()
	}

	t, err := New(columns, rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if raw, ok := f.Lookup(columnOrderKey); ok {
		var names []string
		if err := json.Unmarshal([]byte(raw), &names); err == nil {
			t = reorder(t, names)
		}
	}
	return t, nil
}

// reorder returns t with columns in the given order, or t unchanged when
// names does not describe the same set of columns.
func reorder(t *Table, names []string) *Table {
	if len(names) != len(t.Columns) {
		return t
	}
	perm := make([]int, len(names))
	for i, n := range names {
		j, ok := t.ColumnIndex(n)
		if !ok {
			return t
		}
		perm[i] = j
	}
	out := &Table{Columns: make([]Column, len(perm)), Rows: make([][]any, len(t.Rows))}
	for i, j := range perm {
		out.Columns[i] = t.Columns[j]
	}
	for r, row := range t.Rows {
		nr := make([]any, len(perm))
		for i, j := range perm {
			nr[i] = row[j]
		}
		out.Rows[r] = nr
	}
	return out
}

func leafFor(k Kind) (parquet.Node, error) {
	switch k {
	case KindString:
		return parquet.String(), nil
	case KindInt64:
		return parquet.Int(64), nil
	case KindFloat64:
		return parquet.Leaf(parquet.DoubleType), nil
	case KindBool:
		return parquet.Leaf(parquet.BooleanType), nil
	}
	return nil, fmt.Errorf("unsupported column kind %s", k)
}

func valueFor(cell any) (parquet.Value, error) {
	switch x := cell.(type) {
	case nil:
		return parquet.NullValue(), nil
	case string:
		return parquet.ByteArrayValue([]byte(x)), nil
	case int64:
		return parquet.Int64Value(x), nil
	case float64:
		return parquet.DoubleValue(x), nil
	case bool:
		return parquet.BooleanValue(x), nil
	}
	return parquet.Value{}, fmt.Errorf("unsupported cell type %T", cell)
}

func kindOf(k parquet.Kind) (Kind, error) {
	switch k {
	case parquet.Boolean:
		return KindBool, nil
	case parquet.Int32, parquet.Int64:
		return KindInt64, nil
	case parquet.Float, parquet.Double:
		return KindFloat64, nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return KindString, nil
	}
	return 0, fmt.Errorf("unsupported parquet type %s", k)
}

func cellFor(v parquet.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	}
	return string(v.ByteArray())
}
