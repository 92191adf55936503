package artefact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"PipelineUtils/internal/serial"
	"PipelineUtils/pkg/logger"
)

// PutObject serialises obj and stores it under folder/filename.
func PutObject(ctx context.Context, store Storage, obj any, filename, bucket, folder string) (string, error) {
	var buf bytes.Buffer
	if err := serial.Encode(&buf, obj); err != nil {
		return "", fmt.Errorf("%w to bytes: %w", ErrSerialize, err)
	}
	key := ObjectKey(folder, filename)
	if err := store.PutObject(ctx, bucket, key, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		return "", fmt.Errorf("%w object to s3://%s/%s: %w", ErrUpload, bucket, key, err)
	}
	logger.Log.Debug().Str("bucket", bucket).Str("key", key).Int("bytes", buf.Len()).Msg("object stored")
	return key, nil
}

// PutFile uploads a local file under folder/name, where name defaults to
// the file's base name.
func PutFile(ctx context.Context, store Storage, localPath, bucket, folder, name string) (string, error) {
	if _, err := os.Stat(localPath); err != nil {
		return "", fmt.Errorf("%w at %s: %w", ErrLocalFileMissing, localPath, err)
	}
	if name == "" {
		name = filepath.Base(localPath)
	}
	key := ObjectKey(folder, name)
	if err := store.UploadFile(ctx, localPath, bucket, key); err != nil {
		if errors.Is(err, ErrLocalFileMissing) {
			return "", err
		}
		return "", fmt.Errorf("%w file to s3://%s/%s: %w", ErrUpload, bucket, key, err)
	}
	logger.Log.Debug().Str("bucket", bucket).Str("key", key).Str("path", localPath).Msg("file uploaded")
	return key, nil
}
