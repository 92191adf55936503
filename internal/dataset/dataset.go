package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"PipelineUtils/internal/artefact"
	"PipelineUtils/internal/table"
	"PipelineUtils/pkg/logger"
)

// Dataset is a table fetched from the store together with where it came
// from. Hash is the entity tag of the source object.
type Dataset struct {
	Data      *table.Table
	Timestamp time.Time
	Bucket    string
	Key       string
	Hash      string
}

func checkFormat(format artefact.Format) error {
	if format != artefact.FormatCSV && format != artefact.FormatParquet {
		return fmt.Errorf("%w: %q is not a dataset format", artefact.ErrUnsupportedFormat, string(format))
	}
	return nil
}

// GetLatest downloads and decodes the newest dataset of the given format
// under bucket/folder.
func GetLatest(ctx context.Context, store artefact.Storage, format artefact.Format, bucket, folder string, opts ...table.Option) (*Dataset, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	a, err := artefact.FindLatest(ctx, store, format, bucket, folder)
	if err != nil {
		return nil, err
	}
	rc, err := a.Get(ctx, store)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := decode(rc, format, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot read dataset s3://%s/%s: %w", bucket, a.Key(), err)
	}
	logger.Log.Debug().
		Str("bucket", bucket).
		Str("key", a.Key()).
		Int("rows", data.NumRows()).
		Msg("dataset downloaded")
	return &Dataset{
		Data:      data,
		Timestamp: a.Timestamp(),
		Bucket:    bucket,
		Key:       a.Key(),
		Hash:      a.ETag(),
	}, nil
}

func GetLatestCSV(ctx context.Context, store artefact.Storage, bucket, folder string, opts ...table.Option) (*Dataset, error) {
	return GetLatest(ctx, store, artefact.FormatCSV, bucket, folder, opts...)
}

func GetLatestParquet(ctx context.Context, store artefact.Storage, bucket, folder string) (*Dataset, error) {
	return GetLatest(ctx, store, artefact.FormatParquet, bucket, folder)
}

// Put encodes data and uploads it as "{prefix}_{ref}.{ext}" under
// bucket/folder, returning the object key. The encoded file lives in a
// temporary file that is removed before Put returns.
func Put(ctx context.Context, store artefact.Storage, data *table.Table, format artefact.Format, prefix string, ref time.Time, bucket, folder string, opts ...table.Option) (string, error) {
	if err := checkFormat(format); err != nil {
		return "", err
	}
	filename := artefact.TimestampedFilename(prefix, ref, format)

	tmp, err := os.CreateTemp("", "dataset-*."+format.Extension())
	if err != nil {
		return "", fmt.Errorf("%w %s: temp file: %w", artefact.ErrSerialize, filename, err)
	}
	defer os.Remove(tmp.Name())

	if err := encode(tmp, data, format, opts); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("%w %s: %w", artefact.ErrSerialize, filename, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w %s: %w", artefact.ErrSerialize, filename, err)
	}

	return artefact.PutFile(ctx, store, tmp.Name(), bucket, folder, filename)
}

func PutCSV(ctx context.Context, store artefact.Storage, data *table.Table, prefix string, ref time.Time, bucket, folder string, opts ...table.Option) (string, error) {
	return Put(ctx, store, data, artefact.FormatCSV, prefix, ref, bucket, folder, opts...)
}

func PutParquet(ctx context.Context, store artefact.Storage, data *table.Table, prefix string, ref time.Time, bucket, folder string, opts ...table.Option) (string, error) {
	return Put(ctx, store, data, artefact.FormatParquet, prefix, ref, bucket, folder, opts...)
}

func decode(r io.Reader, format artefact.Format, opts []table.Option) (*table.Table, error) {
	switch format {
	case artefact.FormatCSV:
		return table.ReadCSV(r, opts...)
	case artefact.FormatParquet:
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", artefact.ErrRetrieval, err)
		}
		return table.ReadParquet(bytes.NewReader(body), int64(len(body)))
	}
	return nil, checkFormat(format)
}

func encode(w io.Writer, data *table.Table, format artefact.Format, opts []table.Option) error {
	switch format {
	case artefact.FormatCSV:
		return table.WriteCSV(w, data, opts...)
	case artefact.FormatParquet:
		return table.WriteParquet(w, data, opts...)
	}
	return checkFormat(format)
}
