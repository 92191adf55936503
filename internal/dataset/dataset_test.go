package dataset

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PipelineUtils/internal/artefact"
	"PipelineUtils/internal/s3"
	"PipelineUtils/internal/table"
)

const bucket = "project-bucket"

type brokenUpload struct {
	*s3.MemoryStore
}

func (b brokenUpload) UploadFile(context.Context, string, string, string) error {
	return errors.New("connection reset")
}

func sample(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.New(
		[]table.Column{{Name: "x", Kind: table.KindFloat64}, {Name: "y", Kind: table.KindInt64}},
		[][]any{{1.0, int64(2)}, {3.5, int64(4)}, {nil, int64(6)}},
	)
	require.NoError(t, err)
	return tbl
}

func TestPutThenGetLatest(t *testing.T) {
	ref := time.Date(2021, 7, 12, 13, 0, 0, 0, time.UTC)
	for _, format := range []artefact.Format{artefact.FormatCSV, artefact.FormatParquet} {
		t.Run(format.String(), func(t *testing.T) {
			ctx := context.Background()
			store := s3.NewMemoryStore()
			in := sample(t)

			key, err := Put(ctx, store, in, format, "training_data", ref, bucket, "datasets")
			require.NoError(t, err)
			assert.Equal(t, "datasets/training_data_2021-07-12T13:00:00."+format.Extension(), key)

			ds, err := GetLatest(ctx, store, format, bucket, "datasets")
			require.NoError(t, err)
			assert.True(t, in.Equal(ds.Data), "got %+v", ds.Data)
			assert.True(t, ref.Equal(ds.Timestamp))
			assert.Equal(t, bucket, ds.Bucket)
			assert.Equal(t, key, ds.Key)
			assert.NotEmpty(t, ds.Hash)
		})
	}
}

func TestGetLatest_PicksNewestOfTwoPuts(t *testing.T) {
	ctx := context.Background()
	store := s3.NewMemoryStore()
	older := sample(t)
	newer, err := table.New([]table.Column{{Name: "z", Kind: table.KindString}}, [][]any{{"new"}})
	require.NoError(t, err)

	_, err = PutCSV(ctx, store, older, "d", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), bucket, "")
	require.NoError(t, err)
	_, err = PutCSV(ctx, store, newer, "d", time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC), bucket, "")
	require.NoError(t, err)

	ds, err := GetLatestCSV(ctx, store, bucket, "")
	require.NoError(t, err)
	assert.True(t, newer.Equal(ds.Data))
}

func TestPutParquet_WithWriterOptions(t *testing.T) {
	ctx := context.Background()
	store := s3.NewMemoryStore()
	ref := time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC)
	_, err := PutParquet(ctx, store, sample(t), "p", ref, bucket, "pq",
		table.WithParquetOptions(parquet.Compression(&parquet.Zstd)))
	require.NoError(t, err)

	ds, err := GetLatestParquet(ctx, store, bucket, "pq")
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Data.NumRows())
}

func TestGetLatest_Errors(t *testing.T) {
	ctx := context.Background()
	store := s3.NewMemoryStore()
	store.Set(bucket, "d/broken_2021-01-01.parquet", []byte("not parquet"))

	_, err := GetLatest(ctx, store, artefact.FormatPickle, bucket, "d")
	assert.ErrorIs(t, err, artefact.ErrUnsupportedFormat)

	_, err = GetLatestCSV(ctx, store, bucket, "d")
	assert.True(t, artefact.IsNotFound(err))

	_, err = GetLatestParquet(ctx, store, bucket, "d")
	assert.ErrorIs(t, err, table.ErrDecode)
}

func TestPut_Errors(t *testing.T) {
	ctx := context.Background()
	ref := time.Now().UTC()

	_, err := Put(ctx, s3.NewMemoryStore(), sample(t), artefact.FormatPickle, "d", ref, bucket, "")
	assert.ErrorIs(t, err, artefact.ErrUnsupportedFormat)

	bad := &table.Table{Columns: []table.Column{{Name: "a"}}, Rows: [][]any{{struct{}{}}}}
	_, err = PutCSV(ctx, s3.NewMemoryStore(), bad, "d", ref, bucket, "")
	assert.ErrorIs(t, err, artefact.ErrSerialize)
	assert.ErrorIs(t, err, table.ErrEncode)

	_, err = PutCSV(ctx, brokenUpload{s3.NewMemoryStore()}, sample(t), "d", ref, bucket, "")
	assert.ErrorIs(t, err, artefact.ErrUpload)
}


func TestPut_RemovesTempFile(t *testing.T) {
	ctx := context.Background()
	ref := time.Date(2021, 7, 12, 13, 0, 0, 0, time.UTC)
	bad := &table.Table{Columns: []table.Column{{Name: "a"}}, Rows: [][]any{{struct{}{}}}}

	tests := []struct {
		name    string
		store   artefact.Storage
		data    *table.Table
		wantErr error
	}{
		{"success", s3.NewMemoryStore(), sample(t), nil},
		{"encode failure", s3.NewMemoryStore(), bad, artefact.ErrSerialize},
		{"upload failure", brokenUpload{s3.NewMemoryStore()}, sample(t), artefact.ErrUpload},
	}
	for _, tt := range tests {
		for _, format := range []artefact.Format{artefact.FormatCSV, artefact.FormatParquet} {
			t.Run(tt.name+"/"+format.String(), func(t *testing.T) {
				dir := t.TempDir()
				t.Setenv("TMPDIR", dir)

				_, err := Put(ctx, tt.store, tt.data, format, "d", ref, bucket, "")
				if tt.wantErr == nil {
					require.NoError(t, err)
				} else {
					require.ErrorIs(t, err, tt.wantErr)
				}
				left, err := filepath.Glob(filepath.Join(dir, "dataset-*"))
				require.NoError(t, err)
				assert.Empty(t, left)
			})
		}
	}
}
