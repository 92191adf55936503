package table

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := New(
		[]Column{
			{Name: "y", Kind: KindFloat64},
			{Name: "x", Kind: KindInt64},
			{Name: "label", Kind: KindString},
			{Name: "flag", Kind: KindBool},
		},
		[][]any{
			{1.5, int64(1), "a", true},
			{2.0, int64(-7), "b, with comma", false},
			{nil, int64(3), nil, nil},
		},
	)
	require.NoError(t, err)
	return tbl
}

func TestNew_Validation(t *testing.T) {
	_, err := New([]Column{{Name: "a", Kind: KindInt64}}, [][]any{{int64(1), int64(2)}})
	assert.ErrorIs(t, err, ErrShape)

	_, err = New([]Column{{Name: "a", Kind: KindInt64}}, [][]any{{"one"}})
	assert.ErrorIs(t, err, ErrShape)

	_, err = New([]Column{{Name: "a"}, {Name: "a"}}, nil)
	assert.ErrorIs(t, err, ErrShape)

	tbl, err := New([]Column{{Name: "a", Kind: KindInt64}}, [][]any{{nil}})
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.NumRows())
	assert.Equal(t, 1, tbl.NumColumns())
}

func TestEqual(t *testing.T) {
	a := sampleTable(t)
	b := sampleTable(t)
	assert.True(t, a.Equal(b))

	b.Rows[0][0] = 9.0
	assert.False(t, a.Equal(b))

	n1, _ := New([]Column{{Name: "f", Kind: KindFloat64}}, [][]any{{math.NaN()}})
	n2, _ := New([]Column{{Name: "f", Kind: KindFloat64}}, [][]any{{math.NaN()}})
	assert.True(t, n1.Equal(n2))
}

func TestCSV_RoundTrip(t *testing.T) {
	in := sampleTable(t)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, in))

	out, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.True(t, in.Equal(out), "got %+v", out)
}

func TestCSV_FloatsKeepDecimalPoint(t *testing.T) {
	in, err := New([]Column{{Name: "f", Kind: KindFloat64}}, [][]any{{2.0}, {3.0}})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, in))
	assert.Equal(t, "f\n2.0\n3.0\n", buf.String())

	out, err := ReadCSV(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, KindFloat64, out.Columns[0].Kind)
}

func TestReadCSV_Inference(t *testing.T) {
	doc := "i,f,b,s,empty\n1,1.5,true,x,\n2,2,False,3,\n"
	tbl, err := ReadCSV(strings.NewReader(doc))
	require.NoError(t, err)
	kinds := []Kind{KindInt64, KindFloat64, KindBool, KindString, KindString}
	for i, k := range kinds {
		assert.Equal(t, k, tbl.Columns[i].Kind, tbl.Columns[i].Name)
	}
	assert.Equal(t, []any{int64(2), 2.0, false, "3", nil}, tbl.Rows[1])
}

func TestReadCSV_Delimiter(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("a;b\n1;2\n"), WithDelimiter(';'))
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, tbl.Rows[0])
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrDecode)

	_, err = ReadCSV(strings.NewReader("a,b\n1,2,3\n"))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestParquet_RoundTrip(t *testing.T) {
	in := sampleTable(t)
	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, in))

	out, err := ReadParquet(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, in.Columns, out.Columns)
	assert.True(t, in.Equal(out), "got %+v", out.Rows)
}

func TestParquet_Empty(t *testing.T) {
	in, err := New([]Column{{Name: "a", Kind: KindString}}, nil)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, in))

	out, err := ReadParquet(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, 0, out.NumRows())
	assert.Equal(t, in.Columns, out.Columns)
}

func TestReadParquet_Garbage(t *testing.T) {
	data := []byte("a,b\n1,2\n")
	_, err := ReadParquet(bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, ErrDecode)
}
